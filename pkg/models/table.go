package models

// ColumnRef names a column within a table.
type ColumnRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// RelationshipOrigin records how a relationship edge was established.
type RelationshipOrigin string

const (
	// RelationshipDeclared comes from a foreign key constraint in the schema.
	RelationshipDeclared RelationshipOrigin = "declared"
	// RelationshipInferred comes from name matching confirmed by value overlap.
	RelationshipInferred RelationshipOrigin = "inferred"
)

// Relationship is an edge between two columns of (usually) different tables.
// Self-referential edges are only kept when they are explicitly hierarchical
// (parent/child taxonomy columns).
type Relationship struct {
	Source  ColumnRef          `json:"source"`
	Target  ColumnRef          `json:"target"`
	Origin  RelationshipOrigin `json:"origin"`
	Overlap float64            `json:"overlap"` // share of the smaller distinct set found in the larger (0.0 - 1.0)
}

// TableDescriptor describes one discovered table with its classified columns.
type TableDescriptor struct {
	Name        string             `json:"name"`
	RowCount    int64              `json:"row_count"`
	Columns     []ColumnDescriptor `json:"columns"`
	PrimaryKeys []string           `json:"primary_keys,omitempty"`
}

// Column returns the descriptor for the named column, or nil.
func (t *TableDescriptor) Column(name string) *ColumnDescriptor {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// AnalyzableColumns returns the columns whose role is not unknown.
func (t *TableDescriptor) AnalyzableColumns() []ColumnDescriptor {
	var out []ColumnDescriptor
	for _, c := range t.Columns {
		if c.IsAnalyzable() {
			out = append(out, c)
		}
	}
	return out
}

// ColumnsWithRole returns the columns matching any of the given roles,
// in schema order.
func (t *TableDescriptor) ColumnsWithRole(roles ...SemanticRole) []ColumnDescriptor {
	var out []ColumnDescriptor
	for _, c := range t.Columns {
		for _, r := range roles {
			if c.Role == r {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
