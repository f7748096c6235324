package services

import (
	"fmt"
	"sort"

	"github.com/biodb-tools/biodb-engine/pkg/apperrors"
	"github.com/biodb-tools/biodb-engine/pkg/models"
)

// Catalog is the registry of analysis templates the planner draws from.
// Registration order is preserved for stable iteration; matching is ordered
// by specificity so that narrower templates win ties.
type Catalog struct {
	templates []models.AnalysisTemplate
	byName    map[string]bool
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]bool)}
}

// Register adds a template. A second template with the same name is rejected.
func (c *Catalog) Register(t models.AnalysisTemplate) error {
	if c.byName[t.Name] {
		return fmt.Errorf("%w: template %q already registered", apperrors.ErrConflict, t.Name)
	}
	if t.Name == "" || t.Kind == "" {
		return fmt.Errorf("%w: template needs a name and kind", apperrors.ErrConflict)
	}
	c.byName[t.Name] = true
	c.templates = append(c.templates, t)
	return nil
}

// MustRegister is Register for static catalog construction.
func (c *Catalog) MustRegister(t models.AnalysisTemplate) {
	if err := c.Register(t); err != nil {
		panic(err)
	}
}

// Templates returns all registered templates in registration order.
func (c *Catalog) Templates() []models.AnalysisTemplate {
	out := make([]models.AnalysisTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

// Template returns the named template, or an ErrNotFound error.
func (c *Catalog) Template(name string) (models.AnalysisTemplate, error) {
	for _, t := range c.templates {
		if t.Name == name {
			return t, nil
		}
	}
	return models.AnalysisTemplate{}, fmt.Errorf("%w: template %q", apperrors.ErrNotFound, name)
}

// Match returns the templates applicable to a table, most specific first.
// A template applies when every one of its slots can be filled by a distinct
// column of the table; table-scoped templates (no slots) always apply as long
// as the table has at least one column.
func (c *Catalog) Match(table *models.TableDescriptor) []models.AnalysisTemplate {
	var out []models.AnalysisTemplate
	for _, t := range c.templates {
		if c.applies(t, table) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Specificity() > out[j].Specificity()
	})
	return out
}

func (c *Catalog) applies(t models.AnalysisTemplate, table *models.TableDescriptor) bool {
	if len(t.Slots) == 0 {
		return len(table.Columns) > 0
	}
	return len(slotBindings(t, table, 1)) > 0
}

// slotBindings enumerates up to max distinct column assignments for the
// template's slots. Columns are bound in schema order and a column fills at
// most one slot per binding.
func slotBindings(t models.AnalysisTemplate, table *models.TableDescriptor, max int) [][]string {
	var out [][]string
	current := make([]string, len(t.Slots))
	used := make(map[string]bool)

	var walk func(slot int)
	walk = func(slot int) {
		if max > 0 && len(out) >= max {
			return
		}
		if slot == len(t.Slots) {
			binding := make([]string, len(current))
			copy(binding, current)
			out = append(out, binding)
			return
		}
		for _, col := range table.Columns {
			if used[col.Name] || !t.Slots[slot].Matches(col.Role) {
				continue
			}
			// For symmetric templates an unordered pair appears once:
			// only bindings in schema order are emitted.
			if t.Symmetric && slot > 0 && columnIndex(table, col.Name) < columnIndex(table, current[slot-1]) {
				continue
			}
			used[col.Name] = true
			current[slot] = col.Name
			walk(slot + 1)
			used[col.Name] = false
		}
	}
	walk(0)
	return out
}

func columnIndex(table *models.TableDescriptor, name string) int {
	for i := range table.Columns {
		if table.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// DefaultCatalog returns the built-in template set.
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	numeric := []models.SemanticRole{models.RoleNumericContinuous, models.RoleNumericDiscrete}

	c.MustRegister(models.AnalysisTemplate{
		Name:        "descriptive_stats",
		Kind:        models.AnalysisDescriptiveStats,
		Description: "summary statistics (mean, median, spread, shape) for a numeric column",
		Slots: []models.RoleSlot{
			{Name: "value", Accepts: numeric},
		},
	})
	c.MustRegister(models.AnalysisTemplate{
		Name:        "frequency",
		Kind:        models.AnalysisFrequency,
		Description: "value counts for a categorical or boolean column",
		Slots: []models.RoleSlot{
			{Name: "category", Accepts: []models.SemanticRole{models.RoleCategorical, models.RoleBoolean}},
		},
	})
	c.MustRegister(models.AnalysisTemplate{
		Name:        "correlation",
		Kind:        models.AnalysisCorrelation,
		Description: "Pearson correlation between two numeric columns",
		Symmetric:   true,
		Slots: []models.RoleSlot{
			{Name: "x", Accepts: numeric},
			{Name: "y", Accepts: numeric},
		},
	})
	c.MustRegister(models.AnalysisTemplate{
		Name:        "group_comparison",
		Kind:        models.AnalysisGroupComparison,
		Description: "one-way ANOVA of a numeric column across categorical groups",
		Slots: []models.RoleSlot{
			{Name: "group", Accepts: []models.SemanticRole{models.RoleCategorical, models.RoleBoolean}},
			{Name: "value", Accepts: numeric},
		},
	})
	c.MustRegister(models.AnalysisTemplate{
		Name:          "linear_regression",
		Kind:          models.AnalysisLinearRegression,
		Description:   "ordinary least squares fit of one numeric column against another",
		DependsOnKind: models.AnalysisCorrelation,
		Slots: []models.RoleSlot{
			{Name: "predictor", Accepts: numeric},
			{Name: "response", Accepts: numeric},
		},
	})
	c.MustRegister(models.AnalysisTemplate{
		Name:        "data_quality",
		Kind:        models.AnalysisDataQuality,
		Description: "null rates, cardinality and unclassified columns across the table",
	})
	return c
}
