// Package stats wraps the gonum statistics primitives the execution engine
// delegates to: descriptive summaries, Pearson correlation, one-way ANOVA
// group comparison, and ordinary least squares.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrDegenerate is returned when a computation is undefined on the input
// (zero variance, fewer than two groups).
var ErrDegenerate = errors.New("degenerate input")

// Descriptive summarizes one numeric sample.
type Descriptive struct {
	N        int
	Mean     float64
	Median   float64
	StdDev   float64
	Min      float64
	Max      float64
	Skewness float64
	Kurtosis float64 // excess kurtosis; 0 for a normal distribution
}

// SkewLabel renders the skewness direction the way the analysis narrative
// reports it.
func (d Descriptive) SkewLabel() string {
	switch {
	case d.Skewness > 0:
		return "right-skewed"
	case d.Skewness < 0:
		return "left-skewed"
	default:
		return "symmetric"
	}
}

// TailLabel renders the excess-kurtosis reading.
func (d Descriptive) TailLabel() string {
	switch {
	case d.Kurtosis > 0:
		return "heavy-tailed"
	case d.Kurtosis < 0:
		return "light-tailed"
	default:
		return "normal-tailed"
	}
}

// Describe computes the descriptive summary of xs.
func Describe(xs []float64) (Descriptive, error) {
	if len(xs) == 0 {
		return Descriptive{}, fmt.Errorf("%w: empty sample", ErrDegenerate)
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	d := Descriptive{
		N:    len(xs),
		Mean: stat.Mean(xs, nil),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
	}
	d.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if len(xs) > 1 {
		d.StdDev = stat.StdDev(xs, nil)
		d.Skewness = stat.Skew(xs, nil)
		d.Kurtosis = stat.ExKurtosis(xs, nil)
	}
	return d, nil
}

// PearsonResult is a correlation with its two-sided significance.
type PearsonResult struct {
	R      float64
	PValue float64
	N      int
}

// Pearson computes the Pearson correlation of two paired samples with a
// two-sided p-value from the t distribution.
func Pearson(x, y []float64) (PearsonResult, error) {
	if len(x) != len(y) {
		return PearsonResult{}, fmt.Errorf("sample length mismatch: %d vs %d", len(x), len(y))
	}
	n := len(x)
	if n < 3 {
		return PearsonResult{}, fmt.Errorf("%w: need at least 3 pairs, got %d", ErrDegenerate, n)
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return PearsonResult{}, fmt.Errorf("%w: zero variance", ErrDegenerate)
	}

	r := stat.Correlation(x, y, nil)
	result := PearsonResult{R: r, N: n}

	if math.Abs(r) >= 1 {
		result.PValue = 0
		return result, nil
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	result.PValue = 2 * dist.Survival(math.Abs(t))
	return result, nil
}

// GroupSummary is one group's contribution to a comparison.
type GroupSummary struct {
	Name string
	N    int
	Mean float64
}

// ANOVAResult is a one-way analysis of variance across two or more groups.
type ANOVAResult struct {
	F      float64
	PValue float64
	DFB    int // between-groups degrees of freedom
	DFW    int // within-groups degrees of freedom
	Groups []GroupSummary
}

// OneWayANOVA compares the means of the named groups. Groups with fewer than
// one observation are ignored; at least two non-empty groups are required.
func OneWayANOVA(groups map[string][]float64) (ANOVAResult, error) {
	names := make([]string, 0, len(groups))
	for name, xs := range groups {
		if len(xs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if len(names) < 2 {
		return ANOVAResult{}, fmt.Errorf("%w: need at least 2 groups, got %d", ErrDegenerate, len(names))
	}

	var all []float64
	result := ANOVAResult{}
	for _, name := range names {
		xs := groups[name]
		result.Groups = append(result.Groups, GroupSummary{
			Name: name,
			N:    len(xs),
			Mean: stat.Mean(xs, nil),
		})
		all = append(all, xs...)
	}

	grand := stat.Mean(all, nil)
	var ssb, ssw float64
	for i, name := range names {
		xs := groups[name]
		diff := result.Groups[i].Mean - grand
		ssb += float64(len(xs)) * diff * diff
		for _, x := range xs {
			d := x - result.Groups[i].Mean
			ssw += d * d
		}
	}

	result.DFB = len(names) - 1
	result.DFW = len(all) - len(names)
	if result.DFW < 1 {
		return ANOVAResult{}, fmt.Errorf("%w: not enough observations for %d groups", ErrDegenerate, len(names))
	}
	if ssw == 0 {
		if ssb == 0 {
			return ANOVAResult{}, fmt.Errorf("%w: zero variance", ErrDegenerate)
		}
		// perfectly separated groups
		result.F = math.Inf(1)
		result.PValue = 0
		return result, nil
	}

	result.F = (ssb / float64(result.DFB)) / (ssw / float64(result.DFW))
	dist := distuv.F{D1: float64(result.DFB), D2: float64(result.DFW)}
	result.PValue = dist.Survival(result.F)
	return result, nil
}

// OLSResult is an ordinary least squares fit of y on x.
type OLSResult struct {
	Intercept float64
	Slope     float64
	RSquared  float64
	N         int
}

// LinearFit fits y = intercept + slope*x by ordinary least squares.
func LinearFit(x, y []float64) (OLSResult, error) {
	if len(x) != len(y) {
		return OLSResult{}, fmt.Errorf("sample length mismatch: %d vs %d", len(x), len(y))
	}
	if len(x) < 3 {
		return OLSResult{}, fmt.Errorf("%w: need at least 3 pairs, got %d", ErrDegenerate, len(x))
	}
	if stat.Variance(x, nil) == 0 {
		return OLSResult{}, fmt.Errorf("%w: zero variance in predictor", ErrDegenerate)
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return OLSResult{
		Intercept: alpha,
		Slope:     beta,
		RSquared:  stat.RSquared(x, y, nil, alpha, beta),
		N:         len(x),
	}, nil
}
