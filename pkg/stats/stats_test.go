package stats

import (
	"testing"

	"github.com/panbanda/ckmetrics/pkg/analyzer/ck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      int
		want   float64
	}{
		{"empty", nil, 50, 0},
		{"single", []float64{7}, 90, 7},
		{"p50", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 50, 6},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 90, 10},
		{"p100 clamps", []float64{1, 2, 3}, 100, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentile(tt.sorted, tt.p))
		})
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, Summary{}, Describe(nil))
	assert.Equal(t, Summary{Mean: 4, Max: 4, P90: 4}, Describe([]float64{4}))

	s := Describe([]float64{4, 2, 6})
	assert.InDelta(t, 4.0, s.Mean, 1e-9)
	assert.InDelta(t, 2.0, s.StdDev, 1e-9)
	assert.Equal(t, 6.0, s.Max)
	assert.Equal(t, 6.0, s.P90)
}

func TestCompute(t *testing.T) {
	r := ck.NewReport()
	r.Files["a.py"] = map[string]ck.MetricRecord{
		"Big":   {WMC: 10, CBO: 4, LCOM: 20, RFC: 15},
		"Small": {WMC: 1, LCOM: 0, RFC: 1},
	}
	r.Files["b.py"] = map[string]ck.MetricRecord{
		"Mid": {WMC: 4, CBO: 2, DIT: 1, LCOM: 4, RFC: 6},
	}
	r.Files["empty.py"] = map[string]ck.MetricRecord{}
	r.Failures = []ck.ParseFailure{{Path: "bad.py"}}

	p := Compute(r)

	assert.Equal(t, 3, p.Files)
	assert.Equal(t, 3, p.Classes)
	assert.Equal(t, 1, p.Failures)
	assert.InDelta(t, 5.0, p.WMC.Mean, 1e-9)
	assert.Equal(t, 10.0, p.WMC.Max)
	assert.InDelta(t, 2.0, p.CBO.Mean, 1e-9)
	assert.InDelta(t, 1.0/3, p.DIT.Mean, 1e-9)

	assert.Equal(t, []ClassRef{{Path: "a.py", Class: "Big"}}, p.AboveMeanWMC)
	assert.Equal(t, []ClassRef{{Path: "a.py", Class: "Big"}}, p.AboveMeanCBO)
	assert.Equal(t, []ClassRef{{Path: "a.py", Class: "Big"}}, p.AboveMeanLCOM)
}

func TestCompute_Empty(t *testing.T) {
	assert.Equal(t, Project{}, Compute(nil))

	r := ck.NewReport()
	r.Skipped = []string{"huge.py"}
	p := Compute(r)
	assert.Equal(t, Project{Skipped: 1}, p)
	assert.Nil(t, p.AboveMeanWMC)
}

func TestFit(t *testing.T) {
	rising := Fit([]float64{1, 2, 3, 4})
	assert.InDelta(t, 1.0, rising.Slope, 1e-9)
	assert.InDelta(t, 1.0, rising.Intercept, 1e-9)
	assert.InDelta(t, 1.0, rising.RSquared, 1e-9)
	assert.Equal(t, "rising", rising.Direction())

	falling := Fit([]float64{10, 8, 6})
	assert.InDelta(t, -2.0, falling.Slope, 1e-9)
	assert.Equal(t, "falling", falling.Direction())

	flat := Fit([]float64{3, 3, 3})
	assert.InDelta(t, 0.0, flat.Slope, 1e-9)
	assert.Equal(t, 1.0, flat.RSquared)
	assert.Equal(t, "flat", flat.Direction())

	noisy := Fit([]float64{1, 3, 2, 4})
	require.Greater(t, noisy.Slope, 0.0)
	assert.Less(t, noisy.RSquared, 1.0)

	assert.Equal(t, Trend{Intercept: 5}, Fit([]float64{5}))
	assert.Equal(t, Trend{}, Fit(nil))
}
