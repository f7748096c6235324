package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/biodb-tools/biodb-engine/pkg/apperrors"
	"github.com/biodb-tools/biodb-engine/pkg/models"
)

// Planner turns a schema model into an ordered analysis plan by binding
// catalog templates to concrete columns. An optional free-text research
// question biases step ordering toward matching tables and columns; it never
// adds or removes steps.
type Planner struct {
	catalog *Catalog
	logger  *zap.Logger
}

// NewPlanner creates a Planner over the given catalog.
func NewPlanner(catalog *Catalog, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{catalog: catalog, logger: logger.Named("planner")}
}

// Plan enumerates applicable template bindings across the model's tables and
// returns them in dependency order. Empty tables are skipped. Planning fails
// with ErrPlanning when the model has no analyzable columns at all.
func (p *Planner) Plan(model *models.SchemaModel, question string) (*models.AnalysisPlan, error) {
	if model.AnalyzableColumnCount() == 0 {
		return nil, fmt.Errorf("%w: no analyzable columns in %s", apperrors.ErrPlanning, model.Path)
	}

	plan := &models.AnalysisPlan{
		ID:       uuid.New(),
		Question: strings.TrimSpace(question),
	}

	// Tables are planned in lexical name order so emission order is a
	// property of the schema, not of discovery order.
	tables := append([]*models.TableDescriptor(nil), model.TableDescriptors()...)
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	for _, table := range tables {
		if table.RowCount == 0 {
			p.logger.Debug("skipping empty table", zap.String("table", table.Name))
			continue
		}
		p.planTable(plan, table)
	}

	if plan.Question != "" {
		p.rankByQuestion(plan, model)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPlanning, err)
	}
	p.logger.Info("analysis plan built",
		zap.String("plan_id", plan.ID.String()),
		zap.Int("steps", len(plan.Steps)),
		zap.Bool("question_driven", plan.Question != ""))
	return plan, nil
}

// planTable emits steps for one table. Independent templates go first so that
// a dependent step (regression after correlation) can always link to an
// already-emitted step over the same columns.
func (p *Planner) planTable(plan *models.AnalysisPlan, table *models.TableDescriptor) {
	templates := p.catalog.Match(table)
	byColumns := make(map[string][]uuid.UUID) // kind|sorted columns -> step ids

	emit := func(t models.AnalysisTemplate, columns []string) {
		step := models.PlanStep{
			ID:        uuid.New(),
			Template:  t.Name,
			Kind:      t.Kind,
			Table:     table.Name,
			Columns:   columns,
			Rationale: rationale(t, table.Name, columns),
		}
		if t.DependsOnKind != "" {
			step.DependsOn = byColumns[stepKey(t.DependsOnKind, columns)]
		}
		plan.Steps = append(plan.Steps, step)
		byColumns[stepKey(t.Kind, columns)] = append(byColumns[stepKey(t.Kind, columns)], step.ID)
	}

	for _, dependent := range []bool{false, true} {
		for _, t := range templates {
			if (t.DependsOnKind != "") != dependent {
				continue
			}
			if len(t.Slots) == 0 {
				emit(t, nil)
				continue
			}
			bindings := slotBindings(t, table, 0)
			sort.Slice(bindings, func(i, j int) bool {
				return lessColumns(bindings[i], bindings[j])
			})
			for _, binding := range bindings {
				emit(t, binding)
			}
		}
	}
}

// lessColumns orders column bindings lexically, element by element.
func lessColumns(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// stepKey identifies a step's analysis over an unordered column set, so a
// regression of (x, y) finds the correlation emitted for (y, x).
func stepKey(kind models.AnalysisKind, columns []string) string {
	sorted := make([]string, len(columns))
	copy(sorted, columns)
	sort.Strings(sorted)
	return string(kind) + "|" + strings.Join(sorted, ",")
}

func rationale(t models.AnalysisTemplate, table string, columns []string) string {
	if len(columns) == 0 {
		return fmt.Sprintf("%s of table %s", t.Description, table)
	}
	return fmt.Sprintf("%s for %s.%s", t.Description, table, strings.Join(columns, ", "))
}

// rankByQuestion reorders steps by their token overlap with the research
// question, preserving the invariant that dependencies precede dependents.
// Scheduling is greedy: among steps whose dependencies are already emitted,
// the most relevant goes next, original order breaking ties.
func (p *Planner) rankByQuestion(plan *models.AnalysisPlan, model *models.SchemaModel) {
	tokens := questionTokens(plan.Question)
	if len(tokens) == 0 {
		return
	}
	for i := range plan.Steps {
		plan.Steps[i].Relevance = relevanceScore(&plan.Steps[i], tokens)
	}

	emitted := make(map[uuid.UUID]bool, len(plan.Steps))
	remaining := plan.Steps
	ordered := make([]models.PlanStep, 0, len(plan.Steps))
	for len(remaining) > 0 {
		best := -1
		for i, s := range remaining {
			ready := true
			for _, dep := range s.DependsOn {
				if !emitted[dep] {
					ready = false
					break
				}
			}
			if !ready {
				continue
			}
			if best == -1 || s.Relevance > remaining[best].Relevance {
				best = i
			}
		}
		if best == -1 {
			// dependency on a skipped step; should not happen, keep order
			ordered = append(ordered, remaining...)
			break
		}
		emitted[remaining[best].ID] = true
		ordered = append(ordered, remaining[best])
		remaining = append(remaining[:best:best], remaining[best+1:]...)
	}
	plan.Steps = ordered
}

var questionStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "in": true, "on": true,
	"and": true, "or": true, "is": true, "are": true, "what": true,
	"which": true, "how": true, "between": true, "for": true, "to": true,
	"by": true, "with": true, "does": true, "do": true, "there": true,
}

func questionTokens(question string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '_')
	}) {
		if len(tok) < 2 || questionStopwords[tok] {
			continue
		}
		out[tok] = true
		// underscore-joined identifiers also match their parts
		for _, part := range strings.Split(tok, "_") {
			if len(part) >= 2 && !questionStopwords[part] {
				out[part] = true
			}
		}
	}
	return out
}

// relevanceScore weighs column-name matches above table-name matches, with a
// small contribution from the analysis vocabulary itself ("correlation
// between length and coverage" should favor correlation steps).
func relevanceScore(step *models.PlanStep, tokens map[string]bool) float64 {
	score := 0.0
	for _, part := range identifierParts(step.Table) {
		if tokens[part] {
			score += 1.0
		}
	}
	for _, col := range step.Columns {
		for _, part := range identifierParts(col) {
			if tokens[part] {
				score += 2.0
			}
		}
	}
	for _, part := range identifierParts(string(step.Kind)) {
		if tokens[part] {
			score += 0.5
		}
	}
	return score
}

func identifierParts(name string) []string {
	lower := strings.ToLower(name)
	parts := strings.Split(lower, "_")
	if lower != "" {
		parts = append(parts, lower)
	}
	// naive singular form so "contigs" matches "contig"
	for _, p := range parts {
		if strings.HasSuffix(p, "s") && len(p) > 3 {
			parts = append(parts, strings.TrimSuffix(p, "s"))
		}
	}
	return parts
}
