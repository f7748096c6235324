package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodb-tools/biodb-engine/pkg/config"
	"github.com/biodb-tools/biodb-engine/pkg/models"
)

// fakeRowSource serves canned rows keyed by "table|col1,col2".
type fakeRowSource struct {
	rows map[string][][]models.Value
	err  error
}

func (f *fakeRowSource) FetchRows(_ context.Context, table string, columns []string, limit int) ([][]models.Value, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := table + "|"
	for i, c := range columns {
		if i > 0 {
			key += ","
		}
		key += c
	}
	rows := f.rows[key]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func testExecConfig() config.ExecutionConfig {
	return config.ExecutionConfig{RowCap: 10000, MinRows: 3}
}

func singleStepPlan(kind models.AnalysisKind, table string, columns ...string) *models.AnalysisPlan {
	return &models.AnalysisPlan{
		ID: uuid.New(),
		Steps: []models.PlanStep{
			{ID: uuid.New(), Template: string(kind), Kind: kind, Table: table, Columns: columns},
		},
	}
}

func TestExecute_DescriptiveStats(t *testing.T) {
	src := &fakeRowSource{rows: map[string][][]models.Value{
		"contigs|length": {
			{models.FloatValue(100)},
			{models.FloatValue(200)},
			{models.FloatValue(300)},
			{models.FloatValue(400)},
		},
	}}
	e := NewExecutor(src, testExecConfig(), nil)
	plan := singleStepPlan(models.AnalysisDescriptiveStats, "contigs", "length")

	results, err := e.Execute(context.Background(), models.NewSchemaModel("x"), plan)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, models.StatusSuccess, r.Status)
	mean, ok := r.Scalar("mean")
	require.True(t, ok)
	assert.InDelta(t, 250.0, mean, 1e-9)
	assert.Equal(t, 4, r.Provenance.RowsUsed)
	assert.Equal(t, 0, r.Provenance.RowsDropped)
}

func TestExecute_NullRowsDroppedAndCounted(t *testing.T) {
	src := &fakeRowSource{rows: map[string][][]models.Value{
		"contigs|length,gc_content": {
			{models.FloatValue(100), models.FloatValue(0.3)},
			{models.FloatValue(200), models.NullValue()},
			{models.FloatValue(300), models.FloatValue(0.5)},
			{models.NullValue(), models.FloatValue(0.6)},
			{models.FloatValue(400), models.FloatValue(0.7)},
		},
	}}
	e := NewExecutor(src, testExecConfig(), nil)
	plan := singleStepPlan(models.AnalysisCorrelation, "contigs", "length", "gc_content")

	results, err := e.Execute(context.Background(), models.NewSchemaModel("x"), plan)
	require.NoError(t, err)

	r := results[0]
	assert.Equal(t, models.StatusSuccess, r.Status)
	assert.Equal(t, 3, r.Provenance.RowsUsed)
	assert.Equal(t, 2, r.Provenance.RowsDropped)
}

func TestExecute_InsufficientRowsIsStepError(t *testing.T) {
	src := &fakeRowSource{rows: map[string][][]models.Value{
		"contigs|length": {
			{models.FloatValue(100)},
			{models.NullValue()},
		},
	}}
	e := NewExecutor(src, testExecConfig(), nil)
	plan := singleStepPlan(models.AnalysisDescriptiveStats, "contigs", "length")

	results, err := e.Execute(context.Background(), models.NewSchemaModel("x"), plan)
	require.NoError(t, err, "a failing step must not abort the run")

	r := results[0]
	assert.Equal(t, models.StatusError, r.Status)
	assert.Contains(t, r.Error, "insufficient data")
}

func TestExecute_DependentOfFailedStepSkipped(t *testing.T) {
	corrID, regID := uuid.New(), uuid.New()
	plan := &models.AnalysisPlan{
		ID: uuid.New(),
		Steps: []models.PlanStep{
			{ID: corrID, Kind: models.AnalysisCorrelation, Table: "contigs", Columns: []string{"length", "gc_content"}},
			{ID: regID, Kind: models.AnalysisLinearRegression, Table: "contigs", Columns: []string{"length", "gc_content"}, DependsOn: []uuid.UUID{corrID}},
		},
	}
	// only two usable rows: the correlation fails on insufficient data
	src := &fakeRowSource{rows: map[string][][]models.Value{
		"contigs|length,gc_content": {
			{models.FloatValue(100), models.FloatValue(0.3)},
			{models.FloatValue(200), models.FloatValue(0.4)},
		},
	}}
	e := NewExecutor(src, testExecConfig(), nil)

	results, err := e.Execute(context.Background(), models.NewSchemaModel("x"), plan)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, models.StatusError, results[0].Status)
	assert.Equal(t, models.StatusSkipped, results[1].Status)
	assert.Contains(t, results[1].Error, corrID.String())
}

func TestExecute_GroupComparison(t *testing.T) {
	src := &fakeRowSource{rows: map[string][][]models.Value{
		"contigs|domain,length": {
			{models.TextValue("Bacteria"), models.FloatValue(1.0)},
			{models.TextValue("Bacteria"), models.FloatValue(1.2)},
			{models.TextValue("Bacteria"), models.FloatValue(0.8)},
			{models.TextValue("Archaea"), models.FloatValue(9.8)},
			{models.TextValue("Archaea"), models.FloatValue(10.1)},
			{models.TextValue("Archaea"), models.FloatValue(10.4)},
		},
	}}
	e := NewExecutor(src, testExecConfig(), nil)
	plan := singleStepPlan(models.AnalysisGroupComparison, "contigs", "domain", "length")

	results, err := e.Execute(context.Background(), models.NewSchemaModel("x"), plan)
	require.NoError(t, err)

	r := results[0]
	require.Equal(t, models.StatusSuccess, r.Status)
	f, ok := r.Scalar("f")
	require.True(t, ok)
	assert.Greater(t, f, 1.0)
	require.NotNil(t, r.Table)
	assert.Equal(t, []string{"group", "n", "mean"}, r.Table.Columns)
	require.Len(t, r.Table.Rows, 2)
	assert.Equal(t, "Archaea", r.Table.Rows[0][0])
}

func TestExecute_Frequency(t *testing.T) {
	src := &fakeRowSource{rows: map[string][][]models.Value{
		"contigs|domain": {
			{models.TextValue("Bacteria")},
			{models.TextValue("Bacteria")},
			{models.TextValue("Bacteria")},
			{models.TextValue("Archaea")},
		},
	}}
	e := NewExecutor(src, testExecConfig(), nil)
	plan := singleStepPlan(models.AnalysisFrequency, "contigs", "domain")

	results, err := e.Execute(context.Background(), models.NewSchemaModel("x"), plan)
	require.NoError(t, err)

	r := results[0]
	require.Equal(t, models.StatusSuccess, r.Status)
	require.NotNil(t, r.Table)
	require.Len(t, r.Table.Rows, 2)
	assert.Equal(t, []string{"Bacteria", "3"}, r.Table.Rows[0])
	assert.Equal(t, []string{"Archaea", "1"}, r.Table.Rows[1])
}

func TestExecute_LinearRegressionModelSummary(t *testing.T) {
	var rows [][]models.Value
	for i := 1; i <= 5; i++ {
		x := float64(i)
		rows = append(rows, []models.Value{models.FloatValue(x), models.FloatValue(1 + 2*x)})
	}
	src := &fakeRowSource{rows: map[string][][]models.Value{"contigs|length,coverage": rows}}
	e := NewExecutor(src, testExecConfig(), nil)
	plan := singleStepPlan(models.AnalysisLinearRegression, "contigs", "length", "coverage")

	results, err := e.Execute(context.Background(), models.NewSchemaModel("x"), plan)
	require.NoError(t, err)

	r := results[0]
	require.Equal(t, models.StatusSuccess, r.Status)
	require.NotNil(t, r.Model)
	assert.Equal(t, "coverage ~ length", r.Model.Formula)
	assert.InDelta(t, 2.0, r.Model.Coefficients["length"], 1e-9)
	assert.InDelta(t, 1.0, r.Model.Coefficients["intercept"], 1e-9)
	assert.InDelta(t, 1.0, r.Model.RSquared, 1e-9)
}

func TestExecute_DataQualityFromModel(t *testing.T) {
	model := models.NewSchemaModel("/tmp/test.db")
	require.True(t, model.AddTable(&models.TableDescriptor{
		Name:     "annotations",
		RowCount: 100,
		Columns: []models.ColumnDescriptor{
			{Name: "entry_id", Role: models.RoleIdentifier, NullRate: 0},
			{Name: "function", Role: models.RoleFreeText, NullRate: 0.8},
			{Name: "payload", Role: models.RoleUnknown},
		},
	}))
	e := NewExecutor(&fakeRowSource{}, testExecConfig(), nil)
	plan := singleStepPlan(models.AnalysisDataQuality, "annotations")

	results, err := e.Execute(context.Background(), model, plan)
	require.NoError(t, err)

	r := results[0]
	require.Equal(t, models.StatusSuccess, r.Status)
	unclassified, ok := r.Scalar("unclassified")
	require.True(t, ok)
	assert.Equal(t, 1.0, unclassified)
	require.NotNil(t, r.Table)
	require.Len(t, r.Table.Rows, 3)
	assert.Equal(t, "mostly_null", r.Table.Rows[1][4])
	assert.Equal(t, "unclassified", r.Table.Rows[2][4])
}

func TestExecute_FetchErrorRecordedNotFatal(t *testing.T) {
	src := &fakeRowSource{err: fmt.Errorf("disk went away")}
	e := NewExecutor(src, testExecConfig(), nil)
	plan := singleStepPlan(models.AnalysisDescriptiveStats, "contigs", "length")

	results, err := e.Execute(context.Background(), models.NewSchemaModel("x"), plan)
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, results[0].Status)
	assert.Contains(t, results[0].Error, "disk went away")
}

func TestExecute_Deterministic(t *testing.T) {
	src := &fakeRowSource{rows: map[string][][]models.Value{
		"contigs|length": {
			{models.FloatValue(100)},
			{models.FloatValue(200)},
			{models.FloatValue(300)},
		},
	}}
	e := NewExecutor(src, testExecConfig(), nil)
	plan := singleStepPlan(models.AnalysisDescriptiveStats, "contigs", "length")

	first, err := e.Execute(context.Background(), models.NewSchemaModel("x"), plan)
	require.NoError(t, err)
	second, err := e.Execute(context.Background(), models.NewSchemaModel("x"), plan)
	require.NoError(t, err)

	assert.Equal(t, first[0].Scalars, second[0].Scalars)
	assert.Equal(t, first[0].Status, second[0].Status)
}

func TestExecute_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExecutor(&fakeRowSource{}, testExecConfig(), nil)
	plan := singleStepPlan(models.AnalysisDescriptiveStats, "contigs", "length")
	_, err := e.Execute(ctx, models.NewSchemaModel("x"), plan)
	require.Error(t, err)
}
