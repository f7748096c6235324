package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModel() *SchemaModel {
	m := NewSchemaModel("/data/assembly.db")
	m.AddTable(&TableDescriptor{
		Name:     "contigs",
		RowCount: 10,
		Columns: []ColumnDescriptor{
			{Name: "contig_id", DeclaredType: "TEXT", Role: RoleIdentifier},
			{Name: "length", DeclaredType: "INTEGER", Role: RoleNumericContinuous},
		},
	})
	m.AddTable(&TableDescriptor{
		Name:     "genes",
		RowCount: 50,
		Columns: []ColumnDescriptor{
			{Name: "gene_id", DeclaredType: "INTEGER", Role: RoleIdentifier},
			{Name: "contig_id", DeclaredType: "TEXT", Role: RoleIdentifier},
		},
	})
	return m
}

func TestAddTable_RejectsDuplicate(t *testing.T) {
	m := NewSchemaModel("x")
	ok := m.AddTable(&TableDescriptor{Name: "contigs"})
	assert.True(t, ok)
	ok = m.AddTable(&TableDescriptor{Name: "contigs"})
	assert.False(t, ok)
	assert.Len(t, m.Tables, 1)
}

func TestValidateRelationships(t *testing.T) {
	m := sampleModel()
	m.Relationships = []Relationship{{
		Source: ColumnRef{Table: "genes", Column: "contig_id"},
		Target: ColumnRef{Table: "contigs", Column: "contig_id"},
		Origin: RelationshipInferred,
	}}
	require.NoError(t, m.ValidateRelationships())

	m.Relationships = append(m.Relationships, Relationship{
		Source: ColumnRef{Table: "genes", Column: "contig_id"},
		Target: ColumnRef{Table: "taxonomy", Column: "taxon_id"},
	})
	require.Error(t, m.ValidateRelationships())
}

func TestRelatedTables(t *testing.T) {
	m := sampleModel()
	m.Relationships = []Relationship{{
		Source: ColumnRef{Table: "genes", Column: "contig_id"},
		Target: ColumnRef{Table: "contigs", Column: "contig_id"},
	}}
	assert.Equal(t, []string{"genes"}, m.RelatedTables("contigs"))
	assert.Equal(t, []string{"contigs"}, m.RelatedTables("genes"))
	assert.Empty(t, m.RelatedTables("unrelated"))
}

func TestFingerprint_StableAcrossCalls(t *testing.T) {
	m := sampleModel()
	assert.Equal(t, m.Fingerprint(), m.Fingerprint())
}

func TestFingerprint_ChangesWithStructure(t *testing.T) {
	a := sampleModel()
	b := sampleModel()
	require.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.AddTable(&TableDescriptor{Name: "layers", RowCount: 1})
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestDetectDatabaseKind(t *testing.T) {
	assert.Equal(t, DatabaseKindBioinformatics, sampleModel().DetectDatabaseKind())

	exp := NewSchemaModel("x")
	exp.AddTable(&TableDescriptor{Name: "samples"})
	exp.AddTable(&TableDescriptor{Name: "measurements"})
	assert.Equal(t, DatabaseKindExperimental, exp.DetectDatabaseKind())

	generic := NewSchemaModel("x")
	generic.AddTable(&TableDescriptor{Name: "users"})
	assert.Equal(t, DatabaseKindGeneric, generic.DetectDatabaseKind())
}

func TestAnalyzableColumnCount(t *testing.T) {
	m := sampleModel()
	m.AddTable(&TableDescriptor{
		Name: "blobs",
		Columns: []ColumnDescriptor{
			{Name: "payload", Role: RoleUnknown},
		},
	})
	assert.Equal(t, 4, m.AnalyzableColumnCount())
}
