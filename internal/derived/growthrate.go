package derived

import (
	"gonum.org/v1/gonum/diff/fd"

	"gogrowth/domain/core"
	"gogrowth/internal/fitting"
)

// MaxGrowth locates the two growth-rate maxima of a fitted curve: the
// population rate max(dy/dt) at (T1, Y1) with value A, and the per-capita
// rate max((dy/dt)/y) at (T2, Y2) with value Mu.
type MaxGrowth struct {
	T1 float64 `json:"t1"`
	Y1 float64 `json:"y1"`
	A  float64 `json:"a"`
	T2 float64 `json:"t2"`
	Y2 float64 `json:"y2"`
	Mu float64 `json:"mu"`
}

// FindMaxGrowth searches the fitted curve for its maximum population and
// per-capita growth rates. With afterLag the search starts at the estimated
// lag time, so the initial adjustment phase cannot masquerade as peak
// growth; otherwise it starts at t = 0.
func FindMaxGrowth(fit *fitting.ModelFit, afterLag bool) (*MaxGrowth, error) {
	if fit == nil || fit.Series == nil || fit.Series.Len() == 0 {
		return nil, core.ErrEmptySeries
	}

	t0 := 0.0
	if afterLag {
		lag, err := FindLag(fit)
		if err != nil {
			return nil, err
		}
		if lag > 0 {
			t0 = lag
		}
	}
	maxTime := fit.Series.MaxTime()
	if t0 >= maxTime {
		return nil, core.NewDegenerateFitError("lag %g exceeds the observed time horizon %g", t0, maxTime)
	}

	res := &MaxGrowth{}
	for i := 0; i < gridPoints; i++ {
		t := t0 + (maxTime-t0)*float64(i)/float64(gridPoints-1)
		y := fit.Eval(t)
		dydt := fd.Derivative(fit.Eval, t, nil)

		if i == 0 || dydt > res.A {
			res.T1, res.Y1, res.A = t, y, dydt
		}
		if y > 0 {
			perCapita := dydt / y
			if i == 0 || perCapita > res.Mu {
				res.T2, res.Y2, res.Mu = t, y, perCapita
			}
		}
	}
	return res, nil
}
