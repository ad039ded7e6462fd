// Package selection ranks fitted growth models and decides, statistically,
// which features of the data (lag phase, curvature shape) are real.
package selection

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"gogrowth/domain/core"
	"gogrowth/domain/growth"
	"gogrowth/internal/fitting"
)

// DefaultAlpha is the significance level of the nested-model tests
const DefaultAlpha = 0.05

// LikelihoodRatioResult reports one nested likelihood-ratio test
type LikelihoodRatioResult struct {
	PreferAlt bool    `json:"prefer_alt"`
	PValue    float64 `json:"p_value"`
	D         float64 `json:"d"`
	DDF       int     `json:"ddf"`
}

// Rank sorts fits ascending by BIC (lower is better). The input is not
// mutated; the ordering is stable, so reruns on identical fits produce an
// identical ranking.
func Rank(fits []*fitting.ModelFit) []*fitting.ModelFit {
	ranked := append([]*fitting.ModelFit(nil), fits...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].BIC < ranked[j].BIC })
	return ranked
}

// LikelihoodRatioTest compares a nested null model m0 against the wider m1
// on the same data:
//
//	Lambda = (chisqr1/chisqr0)^(n/2),  D = −2·ln(Lambda) ~ chi²(Δdf)
//
// Supplying the pair in the wrong nesting order (or non-nested fits) breaks
// the D > 0 and Δdf > 0 invariants and is a caller error, surfaced as a
// degenerate-fit error rather than silently corrected.
func LikelihoodRatioTest(m0, m1 *fitting.ModelFit, alpha float64) (*LikelihoodRatioResult, error) {
	if m0 == nil || m1 == nil {
		return nil, core.NewInvalidInputError("likelihood ratio test requires two fits")
	}
	if m0.Chisqr <= 0 || m1.Chisqr <= 0 {
		return nil, core.NewDegenerateFitError("likelihood ratio test requires positive chisqr, got %g and %g", m0.Chisqr, m1.Chisqr)
	}
	if m0.NData != m1.NData {
		return nil, core.NewInvalidInputError("likelihood ratio test requires fits of the same data")
	}
	ddf := m1.NVarys - m0.NVarys
	if ddf <= 0 {
		return nil, core.NewDegenerateFitError("likelihood ratio test requires m0 nested in m1, got %d vs %d free parameters", m0.NVarys, m1.NVarys)
	}

	n := float64(m0.NData)
	d := n * math.Log(m0.Chisqr/m1.Chisqr)
	if d < 0 {
		return nil, core.NewDegenerateFitError("negative test statistic D = %g, models supplied in wrong nesting order", d)
	}

	chi2 := distuv.ChiSquared{K: float64(ddf)}
	pval := chi2.Survival(d)
	return &LikelihoodRatioResult{
		PreferAlt: pval < alpha,
		PValue:    pval,
		D:         d,
		DDF:       ddf,
	}, nil
}

// nullForLag maps a lagged variant to the no-lag model it nests
func nullForLag(v growth.Variant) (growth.Variant, bool) {
	switch v {
	case growth.VariantBR6:
		return growth.VariantRichards, true
	case growth.VariantBR5, growth.VariantBR4:
		return growth.VariantLogistic, true
	}
	return "", false
}

// nullForNu maps a free-nu variant to its nu=1 counterpart
func nullForNu(v growth.Variant) (growth.Variant, bool) {
	switch v {
	case growth.VariantBR6:
		return growth.VariantBR5, true
	case growth.VariantRichards:
		return growth.VariantLogistic, true
	}
	return "", false
}

// findVariant locates a variant in a set of fits
func findVariant(fits []*fitting.ModelFit, v growth.Variant) (*fitting.ModelFit, bool) {
	for _, f := range fits {
		if f.Variant == v {
			return f, true
		}
	}
	return nil, false
}

// HasLag decides whether the lag phase of the best-ranked fit is
// statistically significant. A best fit already sitting at the no-lag
// boundary has nothing to test and reports false immediately.
func HasLag(ranked []*fitting.ModelFit, alpha float64) (bool, error) {
	if len(ranked) == 0 {
		return false, core.NewInvalidInputError("no fits to test")
	}
	best := ranked[0]
	if !best.Variant.Valid() {
		return false, core.NewUnknownModelError(best.NVarys)
	}
	if !best.Variant.HasLagPhase() || math.IsInf(best.Params.Q0, 1) || math.IsInf(best.Params.V, 1) {
		return false, nil
	}
	nullVariant, ok := nullForLag(best.Variant)
	if !ok {
		return false, core.NewUnknownModelError(best.NVarys)
	}
	null, ok := findVariant(ranked, nullVariant)
	if !ok {
		return false, core.NewInvalidInputError("ranked fits do not contain the " + string(nullVariant) + " null model")
	}
	res, err := LikelihoodRatioTest(null, best, alpha)
	if err != nil {
		return false, err
	}
	return res.PreferAlt, nil
}

// HasNu decides whether the curvature shape nu of the best-ranked fit
// differs significantly from 1. Best fits with nu already fixed at 1 report
// false immediately.
func HasNu(ranked []*fitting.ModelFit, alpha float64) (bool, error) {
	if len(ranked) == 0 {
		return false, core.NewInvalidInputError("no fits to test")
	}
	best := ranked[0]
	if !best.Variant.Valid() {
		return false, core.NewUnknownModelError(best.NVarys)
	}
	nullVariant, ok := nullForNu(best.Variant)
	if !ok {
		// nu is fixed at 1 in this variant, nothing to test
		return false, nil
	}
	null, ok := findVariant(ranked, nullVariant)
	if !ok {
		return false, core.NewInvalidInputError("ranked fits do not contain the " + string(nullVariant) + " null model")
	}
	res, err := LikelihoodRatioTest(null, best, alpha)
	if err != nil {
		return false, err
	}
	return res.PreferAlt, nil
}
