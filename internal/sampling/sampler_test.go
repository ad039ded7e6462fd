package sampling

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"gogrowth/domain/core"
	"gogrowth/domain/growth"
	"gogrowth/internal/fitting"
)

func sampleFit() *fitting.ModelFit {
	params, _ := growth.ParamsFromValues(growth.VariantLogistic, map[string]float64{
		"y0": 0.1, "K": 0.6, "r": 0.8,
	})
	cov := mat.NewSymDense(3, nil)
	cov.SetSym(0, 0, 1e-4)
	cov.SetSym(1, 1, 1e-4)
	cov.SetSym(2, 2, 1e-3)
	return &fitting.ModelFit{
		Variant: growth.VariantLogistic,
		Params:  params,
		Specs: []growth.ParamSpec{
			{Name: "y0", Guess: 0.1, Min: 1e-10, Max: math.Inf(1), Vary: true},
			{Name: "K", Guess: 0.6, Min: 1e-10, Max: math.Inf(1), Vary: true},
			{Name: "r", Guess: 0.8, Min: 1e-10, Max: math.Inf(1), Vary: true},
			{Name: "nu", Guess: 1, Min: 1e-10, Max: math.Inf(1), Vary: false},
		},
		FreeNames: []string{"y0", "K", "r"},
		Covar:     cov,
		Chisqr:    0.5,
		NData:     40,
		NVarys:    3,
	}
}

func TestSampleParams(t *testing.T) {
	fit := sampleFit()
	samples, err := SampleParams(fit, 200, rand.NewPCG(7, 11))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) == 0 {
		t.Fatal("no samples returned")
	}

	for _, p := range samples {
		if p.Y0 < 1e-10 || p.K < 1e-10 || p.R < 1e-10 {
			t.Fatalf("sample escaped bounds: %+v", p)
		}
		// logistic structure is reapplied to every draw
		if p.Nu != 1 {
			t.Fatalf("Nu = %g, want 1", p.Nu)
		}
		if !math.IsInf(p.Q0, 1) || !math.IsInf(p.V, 1) {
			t.Fatalf("lag parameters not at the no-lag boundary: %+v", p)
		}
	}
}

func TestSampleParams_Deterministic(t *testing.T) {
	fit := sampleFit()
	a, err := SampleParams(fit, 50, rand.NewPCG(42, 42))
	if err != nil {
		t.Fatal(err)
	}
	b, err := SampleParams(fit, 50, rand.NewPCG(42, 42))
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatalf("sample counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs between identical seeds", i)
		}
	}
}

func TestSampleParams_Spread(t *testing.T) {
	fit := sampleFit()
	samples, err := SampleParams(fit, 500, rand.NewPCG(3, 9))
	if err != nil {
		t.Fatal(err)
	}

	// the draws should center near the best-fit K with nonzero spread
	var sum, sumSq float64
	for _, p := range samples {
		sum += p.K
		sumSq += p.K * p.K
	}
	n := float64(len(samples))
	mean := sum / n
	variance := sumSq/n - mean*mean

	if math.Abs(mean-0.6) > 0.01 {
		t.Errorf("mean K = %g, want ~0.6", mean)
	}
	if variance <= 0 {
		t.Errorf("variance = %g, want > 0", variance)
	}
}

func TestSampleParams_Errors(t *testing.T) {
	fit := sampleFit()

	if _, err := SampleParams(nil, 10, rand.NewPCG(1, 1)); !core.IsInvalidInputError(err) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if _, err := SampleParams(fit, 0, rand.NewPCG(1, 1)); !core.IsInvalidInputError(err) {
		t.Fatalf("err = %v, want invalid input", err)
	}

	noCov := sampleFit()
	noCov.Covar = nil
	if _, err := SampleParams(noCov, 10, rand.NewPCG(1, 1)); !core.IsDegenerateFitError(err) {
		t.Fatalf("err = %v, want degenerate fit", err)
	}
}
