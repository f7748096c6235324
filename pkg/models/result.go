package models

import (
	"time"

	"github.com/google/uuid"
)

// StepStatus is the outcome of executing one plan step.
type StepStatus string

const (
	StatusSuccess StepStatus = "success"
	StatusError   StepStatus = "error"
	StatusSkipped StepStatus = "skipped"
)

// ScalarStat is one named statistic produced by a step.
type ScalarStat struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// DerivedTable is tabular step output (group means, frequency counts).
type DerivedTable struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ModelSummary describes a fitted model (ordinary least squares for now).
type ModelSummary struct {
	Formula      string             `json:"formula"` // e.g. "coverage ~ gc_content"
	Coefficients map[string]float64 `json:"coefficients"`
	RSquared     float64            `json:"r_squared"`
	N            int                `json:"n"`
}

// Provenance records which step produced a result and what data fed it.
type Provenance struct {
	StepID      uuid.UUID   `json:"step_id"`
	Table       string      `json:"table"`
	Columns     []ColumnRef `json:"columns"`
	RowsUsed    int         `json:"rows_used"`
	RowsDropped int         `json:"rows_dropped"` // rows removed for nulls in any referenced column
	ExecutedAt  time.Time   `json:"executed_at"`
}

// ResultRecord is the output of executing one plan step: a tagged variant
// over scalar statistics, a derived table, and a fitted-model summary.
// Exactly the populated fields matching the step's analysis kind are set.
// Records are ephemeral; they are handed to visualization and export
// collaborators and not retained by the engine.
type ResultRecord struct {
	Status     StepStatus   `json:"status"`
	Kind       AnalysisKind `json:"kind"`
	Provenance Provenance   `json:"provenance"`

	Scalars []ScalarStat  `json:"scalars,omitempty"`
	Table   *DerivedTable `json:"table,omitempty"`
	Model   *ModelSummary `json:"model,omitempty"`

	// Error carries the step failure reason when Status is error, or the
	// failed prerequisite when Status is skipped.
	Error string `json:"error,omitempty"`
}

// Scalar returns the named statistic and whether it is present.
func (r *ResultRecord) Scalar(name string) (float64, bool) {
	for _, s := range r.Scalars {
		if s.Name == name {
			return s.Value, true
		}
	}
	return 0, false
}
