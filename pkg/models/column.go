package models

import "slices"

// SemanticRole is the inferred analytical meaning of a column, distinct from
// its declared storage type.
type SemanticRole string

const (
	RoleIdentifier        SemanticRole = "identifier"
	RoleSequenceReference SemanticRole = "sequence_reference"
	RoleTimestamp         SemanticRole = "timestamp"
	RoleCoordinate        SemanticRole = "coordinate"
	RoleNumericContinuous SemanticRole = "numeric_continuous"
	RoleNumericDiscrete   SemanticRole = "numeric_discrete"
	RoleCategorical       SemanticRole = "categorical"
	RoleBoolean           SemanticRole = "boolean"
	RoleFreeText          SemanticRole = "free_text"
	RoleUnknown           SemanticRole = "unknown"
)

// ValidSemanticRoles contains every role the classifier can assign.
var ValidSemanticRoles = []SemanticRole{
	RoleIdentifier,
	RoleSequenceReference,
	RoleTimestamp,
	RoleCoordinate,
	RoleNumericContinuous,
	RoleNumericDiscrete,
	RoleCategorical,
	RoleBoolean,
	RoleFreeText,
	RoleUnknown,
}

// IsValidSemanticRole checks if the given role is part of the closed taxonomy.
func IsValidSemanticRole(r SemanticRole) bool {
	return slices.Contains(ValidSemanticRoles, r)
}

// IsNumeric reports whether the role carries a numeric measurement.
func (r SemanticRole) IsNumeric() bool {
	return r == RoleNumericContinuous || r == RoleNumericDiscrete || r == RoleCoordinate
}

// IsAnalyzable reports whether the role can participate in an analysis step.
// Unknown columns are excluded from planning entirely.
func (r SemanticRole) IsAnalyzable() bool {
	return r != RoleUnknown
}

// ValueCount pairs a categorical value with its occurrence count in the sample.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// ColumnDescriptor describes one column of a discovered table: its declared
// storage type, the semantic role assigned by the classifier, and the sample
// statistics that informed that assignment. Immutable once the schema model
// is built for a database snapshot.
type ColumnDescriptor struct {
	Name         string       `json:"name"`
	DeclaredType string       `json:"declared_type"`
	Role         SemanticRole `json:"role"`
	IsNullable   bool         `json:"is_nullable"`
	IsPrimaryKey bool         `json:"is_primary_key"`

	// Statistics from the deterministic sample
	SampleSize    int64   `json:"sample_size"`
	DistinctCount int64   `json:"distinct_count"`
	NullCount     int64   `json:"null_count"`
	NullRate      float64 `json:"null_rate"`   // null_count / sample_size (0.0 - 1.0)
	Cardinality   float64 `json:"cardinality"` // distinct_count / non-null sample (0.0 - 1.0)

	// For numeric columns
	MinValue *float64 `json:"min_value,omitempty"`
	MaxValue *float64 `json:"max_value,omitempty"`

	// For categorical columns: most frequent sample values, descending
	TopValues []ValueCount `json:"top_values,omitempty"`
}

// IsAnalyzable reports whether the column can be bound into a plan step.
func (c *ColumnDescriptor) IsAnalyzable() bool {
	return c.Role.IsAnalyzable()
}
