package llm

import (
	"fmt"
	"strings"

	"github.com/biodb-tools/biodb-engine/pkg/models"
)

const systemPrompt = `You are a bioinformatics data analyst. You are given the
schema of a SQLite database and, when available, the results of statistical
analyses already run against it. Answer the user's question using only this
material. When the schema does not contain the information needed, say so
instead of guessing. Refer to tables and columns by their exact names.`

// promptTableCap bounds how many tables the schema summary includes; very
// wide databases would otherwise blow past the context window.
const promptTableCap = 40

// renderSchema produces the compact schema description embedded in prompts:
// one line per table with row count, then classified columns indented under
// it, then the relationship edges.
func renderSchema(model *models.SchemaModel) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Database: %s (kind: %s)\n\n", model.Path, model.Kind)

	tables := model.TableDescriptors()
	if len(tables) > promptTableCap {
		tables = tables[:promptTableCap]
	}
	for _, t := range tables {
		fmt.Fprintf(&sb, "Table %s (%d rows):\n", t.Name, t.RowCount)
		for _, c := range t.Columns {
			fmt.Fprintf(&sb, "  %s %s [%s]", c.Name, c.DeclaredType, c.Role)
			if c.NullRate > 0 {
				fmt.Fprintf(&sb, " null_rate=%.2f", c.NullRate)
			}
			sb.WriteString("\n")
		}
	}
	if len(model.TableDescriptors()) > promptTableCap {
		fmt.Fprintf(&sb, "... and %d more tables\n", len(model.TableDescriptors())-promptTableCap)
	}

	if len(model.Relationships) > 0 {
		sb.WriteString("\nRelationships:\n")
		for _, rel := range model.Relationships {
			fmt.Fprintf(&sb, "  %s.%s -> %s.%s (%s, overlap %.2f)\n",
				rel.Source.Table, rel.Source.Column,
				rel.Target.Table, rel.Target.Column,
				rel.Origin, rel.Overlap)
		}
	}
	return sb.String()
}

// renderResults summarizes executed analysis results for interpretation
// prompts. Failed and skipped steps are listed by status only.
func renderResults(results []models.ResultRecord) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Analysis results:\n")
	for _, r := range results {
		cols := make([]string, 0, len(r.Provenance.Columns))
		for _, c := range r.Provenance.Columns {
			cols = append(cols, c.Column)
		}
		fmt.Fprintf(&sb, "- %s on %s(%s): %s", r.Kind, r.Provenance.Table, strings.Join(cols, ", "), r.Status)
		if r.Status != models.StatusSuccess {
			fmt.Fprintf(&sb, " (%s)\n", r.Error)
			continue
		}
		for _, s := range r.Scalars {
			fmt.Fprintf(&sb, " %s=%.4g", s.Name, s.Value)
		}
		if r.Model != nil {
			fmt.Fprintf(&sb, " model: %s r_squared=%.4g", r.Model.Formula, r.Model.RSquared)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// suggestionsPrompt asks the model to propose research questions that the
// discovered schema (and any executed results) could actually answer.
func suggestionsPrompt(model *models.SchemaModel, results []models.ResultRecord) string {
	var sb strings.Builder
	sb.WriteString(renderSchema(model))
	if rs := renderResults(results); rs != "" {
		sb.WriteString("\n")
		sb.WriteString(rs)
	}
	sb.WriteString("\nPropose up to five research questions this database can answer ")
	sb.WriteString("with the tables and columns listed above. For each question name ")
	sb.WriteString("the tables and columns involved and the kind of analysis that ")
	sb.WriteString("would answer it. One question per line.")
	return sb.String()
}

// questionPrompt assembles the user prompt for a research question.
func questionPrompt(model *models.SchemaModel, results []models.ResultRecord, question string) string {
	var sb strings.Builder
	sb.WriteString(renderSchema(model))
	if rs := renderResults(results); rs != "" {
		sb.WriteString("\n")
		sb.WriteString(rs)
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	return sb.String()
}
