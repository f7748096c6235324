package models

import (
	"fmt"

	"github.com/google/uuid"
)

// PlanStep binds one analysis template to concrete table/column selections.
type PlanStep struct {
	ID        uuid.UUID    `json:"id"`
	Template  string       `json:"template"`
	Kind      AnalysisKind `json:"kind"`
	Table     string       `json:"table"`
	Columns   []string     `json:"columns"` // in slot order; empty for table-scoped steps
	Rationale string       `json:"rationale"`

	// DependsOn lists step ids that must complete before this step runs.
	DependsOn []uuid.UUID `json:"depends_on,omitempty"`

	// Relevance is the question-match score used to bias ordering.
	// Zero when no research question was supplied.
	Relevance float64 `json:"relevance,omitempty"`
}

// ColumnRefs returns the step's column selections as qualified references.
func (s *PlanStep) ColumnRefs() []ColumnRef {
	out := make([]ColumnRef, 0, len(s.Columns))
	for _, c := range s.Columns {
		out = append(out, ColumnRef{Table: s.Table, Column: c})
	}
	return out
}

// AnalysisPlan is an ordered sequence of plan steps. Steps are emitted in a
// valid topological order: every dependency precedes its dependents.
type AnalysisPlan struct {
	ID       uuid.UUID  `json:"id"`
	Question string     `json:"question,omitempty"`
	Steps    []PlanStep `json:"steps"`
}

// Step returns the step with the given id, or nil.
func (p *AnalysisPlan) Step(id uuid.UUID) *PlanStep {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}

// Validate checks the plan invariants: step ids are unique, every dependency
// references a step in the plan, and dependencies precede their dependents
// (which also rules out cycles).
func (p *AnalysisPlan) Validate() error {
	position := make(map[uuid.UUID]int, len(p.Steps))
	for i, s := range p.Steps {
		if _, dup := position[s.ID]; dup {
			return fmt.Errorf("duplicate step id %s", s.ID)
		}
		position[s.ID] = i
	}
	for i, s := range p.Steps {
		for _, dep := range s.DependsOn {
			j, ok := position[dep]
			if !ok {
				return fmt.Errorf("step %s depends on unknown step %s", s.ID, dep)
			}
			if j >= i {
				return fmt.Errorf("step %s appears before its dependency %s", s.ID, dep)
			}
		}
	}
	return nil
}
