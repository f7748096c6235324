package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPlanValidate_OK(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	p := &AnalysisPlan{
		ID: uuid.New(),
		Steps: []PlanStep{
			{ID: a, Kind: AnalysisCorrelation},
			{ID: b, Kind: AnalysisLinearRegression, DependsOn: []uuid.UUID{a}},
		},
	}
	require.NoError(t, p.Validate())
}

func TestPlanValidate_DuplicateID(t *testing.T) {
	id := uuid.New()
	p := &AnalysisPlan{
		Steps: []PlanStep{
			{ID: id, Kind: AnalysisFrequency},
			{ID: id, Kind: AnalysisFrequency},
		},
	}
	require.Error(t, p.Validate())
}

func TestPlanValidate_UnknownDependency(t *testing.T) {
	p := &AnalysisPlan{
		Steps: []PlanStep{
			{ID: uuid.New(), DependsOn: []uuid.UUID{uuid.New()}},
		},
	}
	require.Error(t, p.Validate())
}

func TestPlanValidate_DependencyAfterDependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	p := &AnalysisPlan{
		Steps: []PlanStep{
			{ID: b, DependsOn: []uuid.UUID{a}},
			{ID: a},
		},
	}
	require.Error(t, p.Validate())
}

func TestPlanStep_ColumnRefs(t *testing.T) {
	s := PlanStep{Table: "contigs", Columns: []string{"length", "gc_content"}}
	refs := s.ColumnRefs()
	require.Len(t, refs, 2)
	require.Equal(t, ColumnRef{Table: "contigs", Column: "length"}, refs[0])
}
