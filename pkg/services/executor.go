package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/biodb-tools/biodb-engine/pkg/adapters/datasource"
	"github.com/biodb-tools/biodb-engine/pkg/apperrors"
	"github.com/biodb-tools/biodb-engine/pkg/config"
	"github.com/biodb-tools/biodb-engine/pkg/models"
	"github.com/biodb-tools/biodb-engine/pkg/stats"
)

// frequencyRowCap bounds the derived table emitted by frequency steps.
const frequencyRowCap = 50

// Executor runs an analysis plan step by step. A failing step is recorded and
// does not abort the run; steps depending on a failed or skipped step are
// marked skipped. Execution over an unchanged database is deterministic.
type Executor struct {
	rows   datasource.RowSource
	cfg    config.ExecutionConfig
	logger *zap.Logger
}

// NewExecutor creates an Executor reading rows from the given source.
func NewExecutor(rows datasource.RowSource, cfg config.ExecutionConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{rows: rows, cfg: cfg, logger: logger.Named("executor")}
}

// Execute runs every step of the plan in order and returns one result record
// per step, in plan order. The only returned error is context cancellation.
func (e *Executor) Execute(ctx context.Context, model *models.SchemaModel, plan *models.AnalysisPlan) ([]models.ResultRecord, error) {
	results := make([]models.ResultRecord, 0, len(plan.Steps))
	status := make(map[uuid.UUID]models.StepStatus, len(plan.Steps))

	for i := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("execution interrupted: %w", err)
		}
		step := &plan.Steps[i]

		if failed := failedPrerequisite(step, status); failed != uuid.Nil {
			rec := e.baseRecord(step)
			rec.Status = models.StatusSkipped
			rec.Error = fmt.Sprintf("prerequisite step %s did not succeed", failed)
			results = append(results, rec)
			status[step.ID] = models.StatusSkipped
			continue
		}

		rec := e.runStep(ctx, model, step)
		if rec.Status == models.StatusError {
			e.logger.Warn("step failed",
				zap.String("step_id", step.ID.String()),
				zap.String("kind", string(step.Kind)),
				zap.String("table", step.Table),
				zap.String("error", rec.Error))
		}
		results = append(results, rec)
		status[step.ID] = rec.Status
	}
	return results, nil
}

func failedPrerequisite(step *models.PlanStep, status map[uuid.UUID]models.StepStatus) uuid.UUID {
	for _, dep := range step.DependsOn {
		if status[dep] != models.StatusSuccess {
			return dep
		}
	}
	return uuid.Nil
}

func (e *Executor) baseRecord(step *models.PlanStep) models.ResultRecord {
	return models.ResultRecord{
		Kind: step.Kind,
		Provenance: models.Provenance{
			StepID:     step.ID,
			Table:      step.Table,
			Columns:    step.ColumnRefs(),
			ExecutedAt: time.Now().UTC(),
		},
	}
}

func (e *Executor) runStep(ctx context.Context, model *models.SchemaModel, step *models.PlanStep) models.ResultRecord {
	rec := e.baseRecord(step)

	if step.Kind == models.AnalysisDataQuality {
		return e.runDataQuality(model, step, rec)
	}

	raw, err := e.rows.FetchRows(ctx, step.Table, step.Columns, e.cfg.RowCap)
	if err != nil {
		rec.Status = models.StatusError
		rec.Error = fmt.Errorf("%w: fetch rows: %v", apperrors.ErrStep, err).Error()
		return rec
	}
	rows, dropped := dropIncompleteRows(raw)
	rec.Provenance.RowsUsed = len(rows)
	rec.Provenance.RowsDropped = dropped

	if len(rows) < e.cfg.MinRows {
		rec.Status = models.StatusError
		rec.Error = fmt.Sprintf("insufficient data: %d usable rows, need %d", len(rows), e.cfg.MinRows)
		return rec
	}

	switch step.Kind {
	case models.AnalysisDescriptiveStats:
		err = e.runDescriptive(rows, &rec)
	case models.AnalysisFrequency:
		err = e.runFrequency(rows, &rec)
	case models.AnalysisCorrelation:
		err = e.runCorrelation(rows, &rec)
	case models.AnalysisGroupComparison:
		err = e.runGroupComparison(rows, &rec)
	case models.AnalysisLinearRegression:
		err = e.runRegression(step, rows, &rec)
	default:
		err = fmt.Errorf("%w: unsupported analysis kind %q", apperrors.ErrStep, step.Kind)
	}
	if err != nil {
		rec.Status = models.StatusError
		rec.Error = err.Error()
		return rec
	}
	rec.Status = models.StatusSuccess
	return rec
}

// dropIncompleteRows removes rows with a null in any referenced column and
// reports how many were dropped.
func dropIncompleteRows(rows [][]models.Value) ([][]models.Value, int) {
	kept := rows[:0:0]
	dropped := 0
	for _, row := range rows {
		complete := true
		for _, v := range row {
			if v.IsNull() {
				complete = false
				break
			}
		}
		if complete {
			kept = append(kept, row)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

// numericColumn extracts column i of the rows as floats. A value that does
// not read as a number is an insufficient-data condition, not a crash; by
// this point the classifier has vouched for the column, so failures mean the
// sample missed non-numeric stragglers.
func numericColumn(rows [][]models.Value, i int) ([]float64, error) {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		f, ok := row[i].AsFloat()
		if !ok {
			return nil, fmt.Errorf("%w: non-numeric value %q", apperrors.ErrInsufficientData, row[i].String())
		}
		out = append(out, f)
	}
	return out, nil
}

func statError(err error) error {
	if errors.Is(err, stats.ErrDegenerate) {
		return fmt.Errorf("%w: %v", apperrors.ErrInsufficientData, err)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrStep, err)
}

func (e *Executor) runDescriptive(rows [][]models.Value, rec *models.ResultRecord) error {
	xs, err := numericColumn(rows, 0)
	if err != nil {
		return err
	}
	d, err := stats.Describe(xs)
	if err != nil {
		return statError(err)
	}
	rec.Scalars = []models.ScalarStat{
		{Name: "n", Value: float64(d.N)},
		{Name: "mean", Value: d.Mean},
		{Name: "median", Value: d.Median},
		{Name: "std_dev", Value: d.StdDev},
		{Name: "min", Value: d.Min},
		{Name: "max", Value: d.Max},
		{Name: "skewness", Value: d.Skewness},
		{Name: "kurtosis", Value: d.Kurtosis},
	}
	rec.Table = &models.DerivedTable{
		Columns: []string{"aspect", "reading"},
		Rows: [][]string{
			{"distribution", d.SkewLabel()},
			{"tails", d.TailLabel()},
		},
	}
	return nil
}

func (e *Executor) runFrequency(rows [][]models.Value, rec *models.ResultRecord) error {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row[0].String()]++
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})
	if len(values) > frequencyRowCap {
		values = values[:frequencyRowCap]
	}

	table := &models.DerivedTable{Columns: []string{"value", "count"}}
	for _, v := range values {
		table.Rows = append(table.Rows, []string{v, fmt.Sprintf("%d", counts[v])})
	}
	rec.Table = table
	rec.Scalars = []models.ScalarStat{
		{Name: "distinct", Value: float64(len(counts))},
		{Name: "n", Value: float64(len(rows))},
	}
	return nil
}

func (e *Executor) runCorrelation(rows [][]models.Value, rec *models.ResultRecord) error {
	x, err := numericColumn(rows, 0)
	if err != nil {
		return err
	}
	y, err := numericColumn(rows, 1)
	if err != nil {
		return err
	}
	p, err := stats.Pearson(x, y)
	if err != nil {
		return statError(err)
	}
	rec.Scalars = []models.ScalarStat{
		{Name: "r", Value: p.R},
		{Name: "p_value", Value: p.PValue},
		{Name: "n", Value: float64(p.N)},
	}
	return nil
}

func (e *Executor) runGroupComparison(rows [][]models.Value, rec *models.ResultRecord) error {
	groups := make(map[string][]float64)
	for _, row := range rows {
		f, ok := row[1].AsFloat()
		if !ok {
			return fmt.Errorf("%w: non-numeric value %q", apperrors.ErrInsufficientData, row[1].String())
		}
		groups[row[0].String()] = append(groups[row[0].String()], f)
	}
	a, err := stats.OneWayANOVA(groups)
	if err != nil {
		return statError(err)
	}
	rec.Scalars = []models.ScalarStat{
		{Name: "f", Value: a.F},
		{Name: "p_value", Value: a.PValue},
		{Name: "df_between", Value: float64(a.DFB)},
		{Name: "df_within", Value: float64(a.DFW)},
	}
	table := &models.DerivedTable{Columns: []string{"group", "n", "mean"}}
	for _, g := range a.Groups {
		table.Rows = append(table.Rows, []string{g.Name, fmt.Sprintf("%d", g.N), fmt.Sprintf("%g", g.Mean)})
	}
	rec.Table = table
	return nil
}

func (e *Executor) runRegression(step *models.PlanStep, rows [][]models.Value, rec *models.ResultRecord) error {
	x, err := numericColumn(rows, 0)
	if err != nil {
		return err
	}
	y, err := numericColumn(rows, 1)
	if err != nil {
		return err
	}
	fit, err := stats.LinearFit(x, y)
	if err != nil {
		return statError(err)
	}
	predictor, response := step.Columns[0], step.Columns[1]
	rec.Model = &models.ModelSummary{
		Formula: fmt.Sprintf("%s ~ %s", response, predictor),
		Coefficients: map[string]float64{
			"intercept": fit.Intercept,
			predictor:   fit.Slope,
		},
		RSquared: fit.RSquared,
		N:        fit.N,
	}
	rec.Scalars = []models.ScalarStat{
		{Name: "r_squared", Value: fit.RSquared},
		{Name: "slope", Value: fit.Slope},
		{Name: "intercept", Value: fit.Intercept},
	}
	return nil
}

// runDataQuality summarizes the table's column health from the schema model
// without touching the row source.
func (e *Executor) runDataQuality(model *models.SchemaModel, step *models.PlanStep, rec models.ResultRecord) models.ResultRecord {
	table := model.Table(step.Table)
	if table == nil {
		rec.Status = models.StatusError
		rec.Error = fmt.Errorf("%w: table %q not in schema model", apperrors.ErrStep, step.Table).Error()
		return rec
	}

	derived := &models.DerivedTable{Columns: []string{"column", "role", "null_rate", "distinct", "flag"}}
	unclassified := 0
	var nullSum float64
	for _, c := range table.Columns {
		flag := ""
		switch {
		case c.Role == models.RoleUnknown:
			flag = "unclassified"
			unclassified++
		case c.NullRate > 0.5:
			flag = "mostly_null"
		case c.DistinctCount == 1 && c.SampleSize > 1:
			flag = "constant"
		}
		nullSum += c.NullRate
		derived.Rows = append(derived.Rows, []string{
			c.Name, string(c.Role),
			fmt.Sprintf("%.3f", c.NullRate),
			fmt.Sprintf("%d", c.DistinctCount),
			flag,
		})
	}

	rec.Table = derived
	rec.Scalars = []models.ScalarStat{
		{Name: "columns", Value: float64(len(table.Columns))},
		{Name: "unclassified", Value: float64(unclassified)},
		{Name: "mean_null_rate", Value: nullSum / float64(max(len(table.Columns), 1))},
	}
	rec.Provenance.RowsUsed = int(table.RowCount)
	rec.Status = models.StatusSuccess
	return rec
}
