// Package app wires the fitting, selection, and derived-statistics layers
// into the per-plate analysis workflow the CLI and API expose.
package app

import (
	"context"
	"hash/fnv"
	"log"
	"math/rand/v2"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"gogrowth/domain/core"
	"gogrowth/domain/plate"
	"gogrowth/internal/competitions"
	"gogrowth/internal/config"
	"gogrowth/internal/derived"
	"gogrowth/internal/fitting"
	"gogrowth/internal/selection"
	"gogrowth/models"
	"gogrowth/ports"
)

// competitionSteps is the RK4 grid resolution of fitness simulations
const competitionSteps = 256

// AnalysisService runs the full growth-curve workflow for every strain on a
// plate: aggregate, fit the nested family, select a winner, and derive lag,
// growth-rate, outlier, and fitness statistics.
type AnalysisService struct {
	engine *fitting.Engine
	repo   ports.ResultRepository // nil disables persistence
	cfg    config.AnalysisConfig
}

// NewAnalysisService creates the analysis workflow service
func NewAnalysisService(engine *fitting.Engine, repo ports.ResultRepository, cfg config.AnalysisConfig) *AnalysisService {
	return &AnalysisService{engine: engine, repo: repo, cfg: cfg}
}

// strainResult pairs a finished summary with the best fit behind it, kept
// for the cross-strain fitness pass.
type strainResult struct {
	summary models.StrainSummary
	best    *fitting.ModelFit
}

// AnalyzeTable analyzes every strain on the plate and returns the summaries
// sorted by strain name. Strains run concurrently; each strain's bootstrap
// uses its own deterministic seed, so results do not depend on scheduling.
func (s *AnalysisService) AnalyzeTable(ctx context.Context, table *plate.Table, file string) (core.RunID, []models.StrainSummary, error) {
	if table == nil || len(table.Observations) == 0 {
		return "", nil, core.ErrEmptyTable
	}
	runID := core.RunID(core.NewID())
	strains := table.Strains()
	log.Printf("[Analysis] run %s: %d strains in %s", runID, len(strains), file)

	results := make(map[string]*strainResult, len(strains))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, strain := range strains {
		strain := strain
		g.Go(func() error {
			res, err := s.analyzeStrain(gctx, table, strain, file)
			if err != nil {
				return err
			}
			mu.Lock()
			results[strain] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", nil, err
	}

	s.applyFitness(results, strains)

	sorted := append([]string(nil), strains...)
	sort.Strings(sorted)
	summaries := make([]models.StrainSummary, 0, len(sorted))
	for _, strain := range sorted {
		summaries = append(summaries, results[strain].summary)
	}

	if s.repo != nil {
		for i := range summaries {
			if err := s.repo.SaveSummary(ctx, runID, &summaries[i]); err != nil {
				return "", nil, err
			}
		}
	}
	return runID, summaries, nil
}

func (s *AnalysisService) analyzeStrain(ctx context.Context, table *plate.Table, strain, file string) (*strainResult, error) {
	sub, err := table.FilterStrain(strain)
	if err != nil {
		return nil, err
	}
	series, err := plate.Aggregate(sub)
	if err != nil {
		return nil, err
	}

	opts := fitting.FitOptions{Unweighted: s.cfg.Unweighted}
	fits, err := s.engine.FitModel(ctx, series, opts)
	if err != nil {
		return nil, err
	}
	best := fits[0]
	log.Printf("[Analysis] strain %q: best model %s (BIC %.3f)", strain, best.Variant.Name(), best.BIC)

	hasLag, err := selection.HasLag(fits, s.cfg.Alpha)
	if err != nil {
		return nil, err
	}
	hasNu, err := selection.HasNu(fits, s.cfg.Alpha)
	if err != nil {
		return nil, err
	}
	benchmark, err := selection.Benchmark(best, s.cfg.BenchmarkMargin)
	if err != nil {
		return nil, err
	}

	lag, err := derived.FindLag(best)
	if err != nil {
		return nil, err
	}

	var lagLow, lagHigh float64
	if hasLag {
		lagLow, lagHigh, err = derived.FindLagCI(best, s.cfg.BootstrapSamples, s.cfg.ConfidenceLevel, s.strainSource(strain))
		if err != nil {
			// a singular covariance forfeits the interval, not the analysis
			log.Printf("[Analysis] strain %q: lag CI unavailable: %v", strain, err)
			lagLow, lagHigh = 0, 0
		}
	}

	// the rate search always skips the adjustment phase; FindLag reports 0
	// for fits without one, so this is a no-op on no-lag models
	mg, err := derived.FindMaxGrowth(best, true)
	if err != nil {
		return nil, err
	}

	outlierSets, err := derived.FindAllOutliers(ctx, s.engine, sub, derived.OutlierOptions{
		KSigma:      s.cfg.OutlierKSigma,
		MaxFraction: s.cfg.OutlierMaxFrac,
		FitOptions:  opts,
	})
	if err != nil {
		return nil, err
	}
	var outliers []string
	for _, set := range outlierSets {
		outliers = append(outliers, set...)
	}

	p := best.Params
	return &strainResult{
		best: best,
		summary: models.StrainSummary{
			ID:        core.AnalysisID(core.NewID()),
			File:      file,
			Strain:    strain,
			Model:     best.Variant.Name(),
			BIC:       best.BIC,
			AIC:       best.AIC,
			Y0:        p.Y0,
			K:         p.K,
			R:         p.R,
			Nu:        p.Nu,
			Q0:        p.Q0,
			V:         p.V,
			Lag:       lag,
			LagLow:    lagLow,
			LagHigh:   lagHigh,
			MaxGrowth: mg.Mu,
			HasLag:    hasLag,
			HasNu:     hasNu,
			Benchmark: benchmark,
			Outliers:  outliers,
			CreatedAt: core.Now(),
		},
	}, nil
}

// applyFitness simulates each strain competing against the reference strain
// and records the relative fitness. The reference competes against itself by
// definition with fitness 1. Simulation failures degrade to a warning and a
// zero fitness, never failing the run.
func (s *AnalysisService) applyFitness(results map[string]*strainResult, strains []string) {
	if len(strains) < 2 {
		return
	}
	refStrain := s.cfg.ReferenceStrain
	if _, ok := results[refStrain]; !ok {
		if refStrain != "" {
			log.Printf("[Analysis] reference strain %q not on plate, using %q", refStrain, strains[0])
		}
		refStrain = strains[0]
	}
	ref := results[refStrain]

	for strain, res := range results {
		if strain == refStrain {
			res.summary.Fitness = 1
			continue
		}
		horizon := res.best.Series.MaxTime()
		if refHorizon := ref.best.Series.MaxTime(); refHorizon < horizon {
			horizon = refHorizon
		}
		traj, err := competitions.Compete(res.best, ref.best, horizon, competitionSteps)
		if err != nil {
			log.Printf("[Analysis] strain %q: competition failed: %v", strain, err)
			continue
		}
		w, err := competitions.FitnessLTEE(traj, 0, 1)
		if err != nil {
			log.Printf("[Analysis] strain %q: fitness undefined: %v", strain, err)
			continue
		}
		res.summary.Fitness = w
	}
}

// strainSource derives a deterministic per-strain random source from the
// configured seed, independent of goroutine scheduling.
func (s *AnalysisService) strainSource(strain string) rand.Source {
	h := fnv.New64a()
	h.Write([]byte(strain))
	return rand.NewPCG(s.cfg.Seed, h.Sum64())
}
