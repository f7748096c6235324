package models

// AnalysisKind identifies the statistical procedure a template runs.
type AnalysisKind string

const (
	AnalysisDescriptiveStats AnalysisKind = "descriptive_stats"
	AnalysisFrequency        AnalysisKind = "frequency"
	AnalysisCorrelation      AnalysisKind = "correlation"
	AnalysisGroupComparison  AnalysisKind = "group_comparison"
	AnalysisLinearRegression AnalysisKind = "linear_regression"
	AnalysisDataQuality      AnalysisKind = "data_quality"
)

// RoleSlot is one required column position in a template pattern. A column
// fills the slot when its semantic role is in Accepts.
type RoleSlot struct {
	Name    string         `json:"name"` // e.g. "x", "y", "group"
	Accepts []SemanticRole `json:"accepts"`
}

// Matches reports whether the role can fill this slot.
func (s RoleSlot) Matches(r SemanticRole) bool {
	for _, a := range s.Accepts {
		if a == r {
			return true
		}
	}
	return false
}

// AnalysisTemplate is a reusable statistical-analysis pattern keyed by the
// column-role shape it requires. Templates are registered in a catalog and
// bound to concrete columns by the planner.
type AnalysisTemplate struct {
	Name        string       `json:"name"`
	Kind        AnalysisKind `json:"kind"`
	Description string       `json:"description"`

	// Slots is the ordered role pattern. All slots bind columns from the
	// same table. An empty slot list makes the template table-scoped: it
	// binds once per table with at least one analyzable column.
	Slots []RoleSlot `json:"slots"`

	// Symmetric means column order does not change the analysis
	// (correlation of A,B equals correlation of B,A), so the planner
	// deduplicates mirrored bindings.
	Symmetric bool `json:"symmetric"`

	// DependsOnKind, when set, makes each emitted step depend on the step
	// of that kind bound to the same columns (a regression consumes the
	// correlation's filtered subset).
	DependsOnKind AnalysisKind `json:"depends_on_kind,omitempty"`
}

// Specificity orders templates so the planner prefers the most targeted
// analysis: more slots first, then narrower slots (fewer accepted roles).
func (t *AnalysisTemplate) Specificity() int {
	score := len(t.Slots) * 100
	for _, s := range t.Slots {
		// a slot accepting a single role is maximally constrained
		score += 10 - len(s.Accepts)
	}
	if t.DependsOnKind != "" {
		score++
	}
	return score
}
