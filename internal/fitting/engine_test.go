package fitting

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gogrowth/adapters/solver"
	"gogrowth/domain/core"
	"gogrowth/domain/growth"
	"gogrowth/domain/plate"
)

// referenceParams is a lagged, non-logistic truth all six parameters of
// which the BR6 fit must recover from noiseless data.
var referenceParams = growth.Params{Y0: 0.12, K: 0.56, R: 0.8, Nu: 1.8, Q0: 0.2, V: 0.8}

func noiselessSeries(p growth.Params, maxTime float64, n int) *plate.AggregatedSeries {
	s := &plate.AggregatedSeries{
		Time: make([]float64, n),
		Mean: make([]float64, n),
		Std:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.Time[i] = maxTime * float64(i) / float64(n-1)
		s.Mean[i] = p.Eval(s.Time[i])
		s.Std[i] = 0.01
	}
	return s
}

func newTestEngine() *Engine {
	return NewEngine(solver.NewLevMar())
}

func TestFitModel_RecoversBaranyiRoberts(t *testing.T) {
	series := noiselessSeries(referenceParams, 12, 48)
	fits, err := newTestEngine().FitModel(context.Background(), series, FitOptions{})
	require.NoError(t, err)
	require.Len(t, fits, 5)

	// the full model must win on noiseless lagged data
	best := fits[0]
	assert.Equal(t, growth.VariantBR6, best.Variant)

	relErr := func(got, want float64) float64 { return math.Abs(got-want) / math.Abs(want) }
	assert.Less(t, relErr(best.Params.Y0, referenceParams.Y0), 0.05, "y0")
	assert.Less(t, relErr(best.Params.K, referenceParams.K), 0.05, "K")
	assert.Less(t, relErr(best.Params.R, referenceParams.R), 0.05, "r")
	assert.Less(t, relErr(best.Params.Nu, referenceParams.Nu), 0.05, "nu")
	assert.Less(t, relErr(best.Params.Q0, referenceParams.Q0), 0.05, "q0")
	assert.Less(t, relErr(best.Params.V, referenceParams.V), 0.05, "v")

	assert.Equal(t, 48, best.NData)
	assert.Equal(t, 6, best.NVarys)
	assert.Greater(t, best.Chisqr, 0.0)
}

func TestFitModel_RankingIsDeterministic(t *testing.T) {
	series := noiselessSeries(referenceParams, 12, 48)
	engine := newTestEngine()

	first, err := engine.FitModel(context.Background(), series, FitOptions{})
	require.NoError(t, err)
	second, err := engine.FitModel(context.Background(), series, FitOptions{})
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].Variant, second[i].Variant)
		assert.Equal(t, first[i].BIC, second[i].BIC)
	}
	// ranked ascending by BIC
	for i := 1; i < len(first); i++ {
		assert.LessOrEqual(t, first[i-1].BIC, first[i].BIC)
	}
}

func TestFitModel_LogisticDataPrefersFewParameters(t *testing.T) {
	// logistic truth plus a small deterministic ripple no family member can
	// chase: the BIC penalty should sink the wider variants
	logistic := growth.Params{Y0: 0.1, K: 0.9, R: 0.7, Nu: 1, Q0: math.Inf(1), V: math.Inf(1)}
	series := noiselessSeries(logistic, 16, 40)
	for i := range series.Mean {
		series.Mean[i] += 0.002 * math.Sin(7*series.Time[i])
	}

	fits, err := newTestEngine().FitModel(context.Background(), series, FitOptions{})
	require.NoError(t, err)

	best := fits[0]
	assert.Contains(t, []growth.Variant{growth.VariantLogistic, growth.VariantBR4, growth.VariantRichards},
		best.Variant, "a low-parameter variant should win on logistic data, got %s", best.Variant)
}

func TestFitModel_Errors(t *testing.T) {
	engine := newTestEngine()
	ctx := context.Background()

	_, err := engine.FitModel(ctx, nil, FitOptions{})
	assert.ErrorIs(t, err, core.ErrEmptySeries)

	_, err = engine.FitModel(ctx, &plate.AggregatedSeries{}, FitOptions{})
	assert.ErrorIs(t, err, core.ErrEmptySeries)

	bad := noiselessSeries(referenceParams, 12, 10)
	bad.Mean[3] = math.NaN()
	_, err = engine.FitModel(ctx, bad, FitOptions{})
	assert.True(t, core.IsInvalidInputError(err), "err = %v", err)
}

func TestFitVariant_SingleVariant(t *testing.T) {
	series := noiselessSeries(referenceParams, 12, 48)
	fit, err := newTestEngine().FitVariant(context.Background(), series, growth.VariantLogistic, FitOptions{})
	require.NoError(t, err)
	assert.Equal(t, growth.VariantLogistic, fit.Variant)
	assert.Equal(t, 3, fit.NVarys)
	assert.True(t, math.IsInf(fit.Params.Q0, 1), "logistic fit must sit on the no-lag boundary")
}

func TestSeriesWeights(t *testing.T) {
	tests := []struct {
		name         string
		std          []float64
		wantNil      bool
		wantWarnings int
	}{
		{"all finite", []float64{0.1, 0.2, 0.4}, false, 0},
		{"zero std substituted", []float64{0.1, 0, 0.4}, false, 1},
		{"missing std disables weighting", []float64{0.1, math.NaN(), 0.4}, true, 1},
		{"all zero", []float64{0, 0, 0}, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &plate.AggregatedSeries{
				Time: []float64{0, 1, 2},
				Mean: []float64{0.1, 0.2, 0.3},
				Std:  tt.std,
			}
			weights, warnings := SeriesWeights(s)
			if tt.wantNil {
				assert.Nil(t, weights)
			} else {
				require.NotNil(t, weights)
				assert.Len(t, weights, 3)
				for _, w := range weights {
					assert.False(t, math.IsInf(w, 0) || math.IsNaN(w) || w <= 0, "weight %g", w)
				}
			}
			assert.Len(t, warnings, tt.wantWarnings)
		})
	}

	// substituted weights equal the maximum finite weight
	s := &plate.AggregatedSeries{
		Time: []float64{0, 1, 2},
		Mean: []float64{0.1, 0.2, 0.3},
		Std:  []float64{0.5, 0, 0.1},
	}
	weights, _ := SeriesWeights(s)
	assert.Equal(t, 10.0, weights[1], "zero std should take the max finite weight 1/0.1")
}

func TestModelFit_Clone(t *testing.T) {
	series := noiselessSeries(referenceParams, 12, 48)
	fit, err := newTestEngine().FitVariant(context.Background(), series, growth.VariantLogistic, FitOptions{})
	require.NoError(t, err)

	clone := fit.Clone()
	clone.Params.K = 99
	clone.Specs[0].Guess = 99
	assert.NotEqual(t, fit.Params.K, clone.Params.K)
	assert.NotEqual(t, fit.Specs[0].Guess, clone.Specs[0].Guess)
	if fit.Covar != nil {
		clone.Covar.SetSym(0, 0, 1234)
		assert.NotEqual(t, fit.Covar.At(0, 0), clone.Covar.At(0, 0))
	}
}

func TestCheckFixedInvariant(t *testing.T) {
	specs := []growth.ParamSpec{
		{Name: "y0", Guess: 0.1, Vary: true},
		{Name: "nu", Guess: 1, Vary: false},
	}
	err := checkFixedInvariant(specs, map[string]float64{"y0": 0.2, "nu": 1})
	assert.NoError(t, err)

	err = checkFixedInvariant(specs, map[string]float64{"y0": 0.2, "nu": 1.1})
	assert.True(t, errors.Is(err, core.ErrDegenerateFit), "err = %v", err)
}
