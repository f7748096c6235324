package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// DatabaseKind tags the database with a coarse domain guess based on its
// table vocabulary. Heuristic, not authoritative.
type DatabaseKind string

const (
	DatabaseKindBioinformatics DatabaseKind = "bioinformatics"
	DatabaseKindExperimental   DatabaseKind = "experimental"
	DatabaseKindGeneric        DatabaseKind = "generic"
)

// SchemaModel is the full in-memory, typed representation of a database:
// tables, classified columns, and the inferred relationship graph. Built once
// per analysis session and treated as immutable afterwards; any refinement
// produces a new model.
type SchemaModel struct {
	Path          string         `json:"path"`
	Kind          DatabaseKind   `json:"kind"`
	Tables        []string       `json:"tables"` // discovery order
	Relationships []Relationship `json:"relationships"`

	tables map[string]*TableDescriptor
}

// NewSchemaModel creates an empty model for the database at path.
func NewSchemaModel(path string) *SchemaModel {
	return &SchemaModel{
		Path:   path,
		Kind:   DatabaseKindGeneric,
		tables: make(map[string]*TableDescriptor),
	}
}

// AddTable registers a table descriptor. Returns false when a table with the
// same name is already present.
func (m *SchemaModel) AddTable(t *TableDescriptor) bool {
	if _, exists := m.tables[t.Name]; exists {
		return false
	}
	m.tables[t.Name] = t
	m.Tables = append(m.Tables, t.Name)
	return true
}

// Table returns the descriptor for the named table, or nil.
func (m *SchemaModel) Table(name string) *TableDescriptor {
	return m.tables[name]
}

// TableDescriptors returns all tables in discovery order.
func (m *SchemaModel) TableDescriptors() []*TableDescriptor {
	out := make([]*TableDescriptor, 0, len(m.Tables))
	for _, name := range m.Tables {
		out = append(out, m.tables[name])
	}
	return out
}

// AnalyzableColumnCount counts columns across all tables whose role is known.
func (m *SchemaModel) AnalyzableColumnCount() int {
	n := 0
	for _, t := range m.tables {
		n += len(t.AnalyzableColumns())
	}
	return n
}

// ValidateRelationships checks the model invariant that every relationship
// edge references columns that exist in the model.
func (m *SchemaModel) ValidateRelationships() error {
	for _, rel := range m.Relationships {
		for _, ref := range []ColumnRef{rel.Source, rel.Target} {
			t := m.Table(ref.Table)
			if t == nil {
				return fmt.Errorf("relationship references unknown table %q", ref.Table)
			}
			if t.Column(ref.Column) == nil {
				return fmt.Errorf("relationship references unknown column %s.%s", ref.Table, ref.Column)
			}
		}
	}
	return nil
}

// RelatedTables returns the names of tables linked to the given table by at
// least one relationship edge.
func (m *SchemaModel) RelatedTables(table string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rel := range m.Relationships {
		var other string
		switch table {
		case rel.Source.Table:
			other = rel.Target.Table
		case rel.Target.Table:
			other = rel.Source.Table
		default:
			continue
		}
		if other != table && !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	sort.Strings(out)
	return out
}

// Fingerprint returns a stable hash over table names, column names and
// declared types. Two snapshots with identical structure hash identically,
// which is what the analysis cache keys on.
func (m *SchemaModel) Fingerprint() string {
	names := make([]string, len(m.Tables))
	copy(names, m.Tables)
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		t := m.tables[name]
		fmt.Fprintf(h, "%s(%d)\n", t.Name, t.RowCount)
		for _, c := range t.Columns {
			fmt.Fprintf(h, "  %s %s %s\n", c.Name, c.DeclaredType, c.Role)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// bioTableVocabulary and experimentTableVocabulary drive DetectDatabaseKind.
// Table names common to assembly/annotation output vs. sample measurement
// collections.
var (
	bioTableVocabulary        = []string{"contigs", "genes", "genomes", "taxonomy", "contig", "gene_calls", "hmm_hits", "scg_taxonomy", "splits", "collections"}
	experimentTableVocabulary = []string{"samples", "measurements", "experiments", "runs", "observations"}
)

// DetectDatabaseKind tags the model from its table-name vocabulary.
func (m *SchemaModel) DetectDatabaseKind() DatabaseKind {
	has := func(vocab []string) bool {
		for _, name := range m.Tables {
			lower := strings.ToLower(name)
			for _, v := range vocab {
				if lower == v {
					return true
				}
			}
		}
		return false
	}
	switch {
	case has(bioTableVocabulary):
		return DatabaseKindBioinformatics
	case has(experimentTableVocabulary):
		return DatabaseKindExperimental
	default:
		return DatabaseKindGeneric
	}
}
