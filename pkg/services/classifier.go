package services

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/biodb-tools/biodb-engine/pkg/config"
	"github.com/biodb-tools/biodb-engine/pkg/models"
)

// identifierNameVocabulary is the controlled vocabulary of column names that
// mark a column as an identifier regardless of its contents.
var identifierNameVocabulary = []string{"id", "key", "entry_id", "item_id"}

// identifierSuffixes are name endings that mark identifier columns.
var identifierSuffixes = []string{"_id", "_key", "_ids"}

// Accession and contig naming patterns recognized for the sequence-reference
// role. Covers GenBank/EMBL nucleotide accessions, RefSeq prefixed
// accessions, and the contig and split naming emitted by common
// assembly pipelines.
var sequencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z]{1,2}\d{5,8}(\.\d+)?$`),                  // GenBank/EMBL
	regexp.MustCompile(`^(NC|NM|NP|NR|NZ|NT|NW|XM|XP|XR|WP)_\d+(\.\d+)?$`), // RefSeq
	regexp.MustCompile(`^(c|contig|scaffold|split|bin)_?\d+([_.]\d+)*$`),   // assembly contigs/splits
	regexp.MustCompile(`^[ACGTUN]+$`),                                  // raw nucleotide runs
}

// coordinateNameVocabulary marks genomic position columns.
var coordinateNameVocabulary = []string{"start", "stop", "end", "position", "pos", "start_in_split", "stop_in_split"}

// booleanTokenSets are the accepted value universes for the boolean role.
var booleanTokenSets = [][]string{
	{"0", "1"},
	{"true", "false"},
	{"t", "f"},
	{"yes", "no"},
	{"y", "n"},
}

// timestampLayouts are the textual date/time forms recognized for the
// timestamp role.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// Classifier assigns each column exactly one semantic role from the closed
// taxonomy. Classification never fails: absence of a clear signal yields the
// unknown role, which planning treats as non-analyzable.
type Classifier struct {
	cfg    config.ClassifierConfig
	logger *zap.Logger
}

// NewClassifier creates a classifier with the given thresholds.
// If logger is nil, a no-op logger is used.
func NewClassifier(cfg config.ClassifierConfig, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{cfg: cfg, logger: logger.Named("classifier")}
}

// columnInput is everything the rule chain sees for one column.
type columnInput struct {
	Name         string
	DeclaredType string
	IsPrimaryKey bool
	Sample       []models.Value
}

// Classify runs the prioritized rule chain and returns the first matching
// role. The precedence is deliberate and documented, not an arbitrary
// default:
//
//  1. unknown — empty or all-null sample; no rule below sees evidence
//  2. identifier — declared primary key, or name in the identifier vocabulary
//  3. sequence-reference — all sampled values match an accession/contig pattern
//  4. timestamp — declared temporal type, or all values parse as date/time
//  5. coordinate — positional name with integral values
//  6. numeric — all values numeric; continuous when distinct/sampled ratio
//     reaches the threshold, discrete otherwise
//  7. categorical — distinct count under the absolute cap
//  8. boolean — values drawn entirely from a two-token truth set
//  9. free-text — anything else
//
// Re-running on an identical sample always yields the identical role.
func (c *Classifier) Classify(in columnInput) models.SemanticRole {
	nonNull := nonNullValues(in.Sample)

	// Without sampled values even a declared primary key is unknown; this
	// keeps empty tables out of the analyzable-column count.
	if len(nonNull) == 0 {
		return models.RoleUnknown
	}
	if in.IsPrimaryKey || isIdentifierName(in.Name) {
		return models.RoleIdentifier
	}
	if c.matchesSequencePattern(nonNull) {
		return models.RoleSequenceReference
	}
	if isTimestamp(in.DeclaredType, nonNull) {
		return models.RoleTimestamp
	}
	if isCoordinate(in.Name, nonNull) {
		return models.RoleCoordinate
	}
	if numeric, continuous := c.classifyNumeric(nonNull); numeric {
		if continuous {
			return models.RoleNumericContinuous
		}
		return models.RoleNumericDiscrete
	}
	if c.isCategorical(nonNull) {
		return models.RoleCategorical
	}
	if isBoolean(nonNull) {
		return models.RoleBoolean
	}
	return models.RoleFreeText
}

func nonNullValues(sample []models.Value) []models.Value {
	out := make([]models.Value, 0, len(sample))
	for _, v := range sample {
		if !v.IsNull() {
			out = append(out, v)
		}
	}
	return out
}

func isIdentifierName(name string) bool {
	lower := strings.ToLower(name)
	for _, exact := range identifierNameVocabulary {
		if lower == exact {
			return true
		}
	}
	for _, suffix := range identifierSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// matchesSequencePattern reports whether the sample reads as accession or
// contig references. The match rate requirement defaults to 1.0: a single
// non-matching value disqualifies the role.
func (c *Classifier) matchesSequencePattern(sample []models.Value) bool {
	matched := 0
	for _, v := range sample {
		if v.Kind != models.KindText {
			return false
		}
		text := strings.TrimSpace(v.Text)
		if text == "" {
			return false
		}
		for _, p := range sequencePatterns {
			if p.MatchString(text) {
				matched++
				break
			}
		}
	}
	rate := float64(matched) / float64(len(sample))
	return rate >= c.cfg.SequenceMatchRate && matched > 0
}

func isTimestamp(declaredType string, sample []models.Value) bool {
	lower := strings.ToLower(declaredType)
	if strings.Contains(lower, "timestamp") || strings.Contains(lower, "datetime") || lower == "date" {
		return true
	}
	for _, v := range sample {
		if v.Kind != models.KindText {
			return false
		}
		if !parsesAsTime(v.Text) {
			return false
		}
	}
	return len(sample) > 0
}

func parsesAsTime(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isCoordinate(name string, sample []models.Value) bool {
	lower := strings.ToLower(name)
	found := false
	for _, v := range coordinateNameVocabulary {
		if lower == v || strings.HasSuffix(lower, "_"+v) {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	for _, v := range sample {
		if _, ok := v.AsFloat(); !ok || !v.IsIntegral() {
			return false
		}
	}
	return true
}

// classifyNumeric reports whether the sample is numeric and, if so, whether
// its distinct-value ratio puts it on the continuous side of the threshold.
func (c *Classifier) classifyNumeric(sample []models.Value) (numeric, continuous bool) {
	// SQLite type affinity is loose, so the sample decides: every value
	// must read as a number regardless of the declared type.
	for _, v := range sample {
		if _, ok := v.AsFloat(); !ok {
			return false, false
		}
	}

	distinct := make(map[string]struct{}, len(sample))
	for _, v := range sample {
		distinct[v.String()] = struct{}{}
	}
	ratio := float64(len(distinct)) / float64(len(sample))
	return true, ratio >= c.cfg.ContinuousRatio
}

func (c *Classifier) isCategorical(sample []models.Value) bool {
	distinct := make(map[string]struct{}, len(sample))
	for _, v := range sample {
		distinct[v.String()] = struct{}{}
	}
	return len(distinct) < c.cfg.CategoricalCap && len(distinct) < len(sample)
}

func isBoolean(sample []models.Value) bool {
	for _, set := range booleanTokenSets {
		all := true
		for _, v := range sample {
			token := strings.ToLower(strings.TrimSpace(v.String()))
			if token != set[0] && token != set[1] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// Describe builds the full column descriptor: the assigned role plus the
// sample statistics that informed it.
func (c *Classifier) Describe(meta columnMeta, sample []models.Value) models.ColumnDescriptor {
	role := c.Classify(columnInput{
		Name:         meta.Name,
		DeclaredType: meta.DeclaredType,
		IsPrimaryKey: meta.IsPrimaryKey,
		Sample:       sample,
	})

	desc := models.ColumnDescriptor{
		Name:         meta.Name,
		DeclaredType: meta.DeclaredType,
		Role:         role,
		IsNullable:   meta.IsNullable,
		IsPrimaryKey: meta.IsPrimaryKey,
		SampleSize:   int64(len(sample)),
	}

	counts := make(map[string]int64)
	var nulls int64
	for _, v := range sample {
		if v.IsNull() {
			nulls++
			continue
		}
		counts[v.String()]++
	}
	desc.NullCount = nulls
	desc.DistinctCount = int64(len(counts))
	if desc.SampleSize > 0 {
		desc.NullRate = float64(nulls) / float64(desc.SampleSize)
	}
	if nonNull := desc.SampleSize - nulls; nonNull > 0 {
		desc.Cardinality = float64(desc.DistinctCount) / float64(nonNull)
	}

	if role.IsNumeric() {
		desc.MinValue, desc.MaxValue = numericRange(sample)
	}
	if role == models.RoleCategorical || role == models.RoleBoolean {
		desc.TopValues = topValues(counts, c.cfg.TopK)
	}

	c.logger.Debug("classified column",
		zap.String("column", meta.Name),
		zap.String("role", string(role)),
		zap.Int64("distinct", desc.DistinctCount),
		zap.Int64("nulls", nulls))
	return desc
}

func numericRange(sample []models.Value) (minV, maxV *float64) {
	for _, v := range sample {
		f, ok := v.AsFloat()
		if !ok {
			continue
		}
		if minV == nil || f < *minV {
			f := f
			minV = &f
		}
		if maxV == nil || f > *maxV {
			f := f
			maxV = &f
		}
	}
	return minV, maxV
}

func topValues(counts map[string]int64, k int) []models.ValueCount {
	out := make([]models.ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, models.ValueCount{Value: v, Count: n})
	}
	// count descending, then value ascending for determinism
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Count > out[i].Count || (out[j].Count == out[i].Count && out[j].Value < out[i].Value) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out
}
