// Package stats summarizes C&K reports: per-metric distributions, classes
// above the project mean, and trends across revisions.
package stats

import (
	"math"
	"sort"

	"github.com/panbanda/ckmetrics/pkg/analyzer/ck"
	"gonum.org/v1/gonum/stat"
)

// Percentile calculates the p-th percentile of a sorted slice.
// The slice must already be sorted in ascending order.
// Returns 0 if the slice is empty.
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Summary describes the distribution of one metric.
type Summary struct {
	Mean   float64 `json:"mean" yaml:"mean" toon:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev" toon:"stddev"`
	Max    float64 `json:"max" yaml:"max" toon:"max"`
	P90    float64 `json:"p90" yaml:"p90" toon:"p90"`
}

// Describe summarizes values. Fewer than two values have zero deviation.
func Describe(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s := Summary{
		Mean: stat.Mean(sorted, nil),
		Max:  sorted[len(sorted)-1],
		P90:  Percentile(sorted, 90),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// ClassRef names one class row.
type ClassRef struct {
	Path  string `json:"path" yaml:"path" toon:"path"`
	Class string `json:"class" yaml:"class" toon:"class"`
}

// Project holds project-wide statistics for one report.
type Project struct {
	Files    int `json:"files" yaml:"files" toon:"files"`
	Classes  int `json:"classes" yaml:"classes" toon:"classes"`
	Failures int `json:"failures" yaml:"failures" toon:"failures"`
	Skipped  int `json:"skipped" yaml:"skipped" toon:"skipped"`

	WMC  Summary `json:"wmc" yaml:"wmc" toon:"wmc"`
	DIT  Summary `json:"dit" yaml:"dit" toon:"dit"`
	NOC  Summary `json:"noc" yaml:"noc" toon:"noc"`
	RFC  Summary `json:"rfc" yaml:"rfc" toon:"rfc"`
	CBO  Summary `json:"cbo" yaml:"cbo" toon:"cbo"`
	LCOM Summary `json:"lcom" yaml:"lcom" toon:"lcom"`

	AboveMeanWMC  []ClassRef `json:"above_mean_wmc,omitempty" yaml:"above_mean_wmc,omitempty" toon:"above_mean_wmc"`
	AboveMeanCBO  []ClassRef `json:"above_mean_cbo,omitempty" yaml:"above_mean_cbo,omitempty" toon:"above_mean_cbo"`
	AboveMeanLCOM []ClassRef `json:"above_mean_lcom,omitempty" yaml:"above_mean_lcom,omitempty" toon:"above_mean_lcom"`
}

// Compute returns the statistics of a report. A nil or empty report yields zero values.
func Compute(r *ck.Report) Project {
	if r == nil {
		return Project{}
	}

	entries := r.Classes()
	p := Project{
		Files:    len(r.Files),
		Classes:  len(entries),
		Failures: len(r.Failures),
		Skipped:  len(r.Skipped),
	}
	if len(entries) == 0 {
		return p
	}

	column := func(key ck.SortKey) []float64 {
		out := make([]float64, len(entries))
		for i, e := range entries {
			out[i] = key.Value(e.MetricRecord)
		}
		return out
	}

	wmc, cbo, lcom := column(ck.SortByWMC), column(ck.SortByCBO), column(ck.SortByLCOM)
	p.WMC = Describe(wmc)
	p.DIT = Describe(column(ck.SortByDIT))
	p.NOC = Describe(column(ck.SortByNOC))
	p.RFC = Describe(column(ck.SortByRFC))
	p.CBO = Describe(cbo)
	p.LCOM = Describe(lcom)

	p.AboveMeanWMC = aboveMean(entries, wmc, p.WMC.Mean)
	p.AboveMeanCBO = aboveMean(entries, cbo, p.CBO.Mean)
	p.AboveMeanLCOM = aboveMean(entries, lcom, p.LCOM.Mean)
	return p
}

func aboveMean(entries []ck.ClassEntry, values []float64, mean float64) []ClassRef {
	var out []ClassRef
	for i, v := range values {
		if v > mean {
			out = append(out, ClassRef{Path: entries[i].Path, Class: entries[i].Class})
		}
	}
	return out
}

// Trend is a least-squares line through a series indexed 0..n-1.
type Trend struct {
	Slope     float64 `json:"slope" yaml:"slope" toon:"slope"`
	Intercept float64 `json:"intercept" yaml:"intercept" toon:"intercept"`
	RSquared  float64 `json:"r_squared" yaml:"r_squared" toon:"r_squared"`
}

// Direction reports "rising", "falling" or "flat" for the slope.
func (t Trend) Direction() string {
	const epsilon = 1e-9
	switch {
	case t.Slope > epsilon:
		return "rising"
	case t.Slope < -epsilon:
		return "falling"
	default:
		return "flat"
	}
}

// Fit returns the trend of ys, oldest first. Fewer than two points yield a flat trend.
func Fit(ys []float64) Trend {
	if len(ys) < 2 {
		if len(ys) == 1 {
			return Trend{Intercept: ys[0]}
		}
		return Trend{}
	}

	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	r2 := stat.RSquared(xs, ys, nil, alpha, beta)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		// Constant series: the line is exact.
		r2 = 1
	}
	return Trend{Slope: beta, Intercept: alpha, RSquared: r2}
}
