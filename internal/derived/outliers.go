package derived

import (
	"context"
	"log"
	"runtime"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"

	"gogrowth/domain/core"
	"gogrowth/domain/plate"
	"gogrowth/internal/fitting"
)

// OutlierOptions tunes the iterative replicate-well outlier search
type OutlierOptions struct {
	// KSigma is the flagging threshold in standard deviations above the
	// mean Cook's distance.
	KSigma float64

	// MaxFraction caps the cumulative fraction of wells that may be
	// removed across all iterations.
	MaxFraction float64

	// Fit options forwarded to the leave-one-out refits.
	FitOptions fitting.FitOptions
}

// DefaultOutlierOptions returns the standard thresholds (2 sigma, 10% cap)
func DefaultOutlierOptions() OutlierOptions {
	return OutlierOptions{KSigma: 2, MaxFraction: 0.10}
}

// CooksDistance measures each replicate well's influence on the fit: the
// model is refit to the aggregated series with that well excluded, and the
// distance reported in the classical Cook's form
//
//	D_i = sum_t (y_full(t) − y_without_i(t))² / (nvarys · MSE)
//
// with MSE = fit.chisqr/fit.ndata: the squared displacement of the fitted
// curve caused by dropping the well, summed over the full time grid. A well
// that pulls the fit hard lands at the high extreme. Refits run in parallel
// on deep copies; the result map is independent of completion order.
func CooksDistance(ctx context.Context, engine *fitting.Engine, table *plate.Table, fit *fitting.ModelFit, opts fitting.FitOptions) (map[string]float64, error) {
	if table == nil || len(table.Observations) == 0 {
		return nil, core.ErrEmptyTable
	}
	if fit == nil || fit.Chisqr <= 0 {
		return nil, core.NewDegenerateFitError("cooks distance requires a fit with positive chisqr")
	}
	if fit.Series == nil || fit.Series.Len() == 0 {
		return nil, core.ErrEmptySeries
	}

	wells := table.Wells()
	if len(wells) < 2 {
		return nil, core.NewInvalidInputError("cooks distance requires at least two replicate wells")
	}
	mse := fit.Chisqr / float64(fit.NData)

	sem := semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0)))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error

	distances := make(map[string]float64, len(wells))
	for _, well := range wells {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(well string) {
			defer sem.Release(1)
			defer wg.Done()

			d, err := leaveOneOutDistance(ctx, engine, table, fit, well, mse, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			distances[well] = d
		}(well)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return distances, nil
}

func leaveOneOutDistance(ctx context.Context, engine *fitting.Engine, table *plate.Table, fit *fitting.ModelFit, well string, mse float64, opts fitting.FitOptions) (float64, error) {
	reduced, err := table.ExcludeWells(well)
	if err != nil {
		return 0, err
	}
	series, err := plate.Aggregate(reduced)
	if err != nil {
		return 0, err
	}
	refit, err := engine.FitVariant(ctx, series, fit.Variant, opts)
	if err != nil {
		return 0, err
	}
	var displacement float64
	for _, t := range fit.Series.Time {
		d := fit.Eval(t) - refit.Eval(t)
		displacement += d * d
	}
	return displacement / (float64(fit.NVarys) * mse), nil
}

// FindOutliers flags wells whose Cook's distance exceeds
// mean + kSigma·std. The returned well names are sorted for determinism.
func FindOutliers(distances map[string]float64, kSigma float64) []string {
	if len(distances) == 0 {
		return nil
	}
	values := make([]float64, 0, len(distances))
	for _, d := range distances {
		values = append(values, d)
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return nil
	}
	std, err := stats.StandardDeviationSample(values)
	if err != nil {
		return nil
	}

	threshold := mean + kSigma*std
	outliers := make([]string, 0)
	for well, d := range distances {
		if d > threshold {
			outliers = append(outliers, well)
		}
	}
	sort.Strings(outliers)
	return outliers
}

// FindAllOutliers iteratively removes flagged outlier wells and refits,
// stopping when an iteration flags nothing new or the cumulative removed
// fraction would exceed the cap. Returns the outlier sets found at each
// iteration, excluding the final empty one.
func FindAllOutliers(ctx context.Context, engine *fitting.Engine, table *plate.Table, opts OutlierOptions) ([][]string, error) {
	if table == nil || len(table.Observations) == 0 {
		return nil, core.ErrEmptyTable
	}
	if opts.KSigma <= 0 {
		opts.KSigma = 2
	}
	if opts.MaxFraction <= 0 {
		opts.MaxFraction = 0.10
	}

	totalWells := len(table.Wells())
	budget := int(opts.MaxFraction * float64(totalWells))
	removed := 0

	current := table
	iterations := make([][]string, 0)
	if budget == 0 {
		log.Printf("[Derived] %.0f%% cap on %d wells leaves no removal budget, skipping outlier search", opts.MaxFraction*100, totalWells)
		return iterations, nil
	}
	for removed < budget {
		series, err := plate.Aggregate(current)
		if err != nil {
			return nil, err
		}
		fits, err := engine.FitModel(ctx, series, opts.FitOptions)
		if err != nil {
			return nil, err
		}
		best := fits[0]

		distances, err := CooksDistance(ctx, engine, current, best, opts.FitOptions)
		if err != nil {
			return nil, err
		}
		outliers := FindOutliers(distances, opts.KSigma)
		if len(outliers) == 0 {
			break
		}

		if removed+len(outliers) > budget {
			// keep the most influential wells, trim the rest to the cap
			sort.SliceStable(outliers, func(i, j int) bool {
				return distances[outliers[i]] > distances[outliers[j]]
			})
			outliers = outliers[:budget-removed]
			sort.Strings(outliers)
			log.Printf("[Derived] outlier removal truncated to %d wells by the %.0f%% cap", len(outliers), opts.MaxFraction*100)
		}
		if len(outliers) == 0 {
			break
		}

		iterations = append(iterations, outliers)
		removed += len(outliers)
		current, err = current.ExcludeWells(outliers...)
		if err != nil {
			return nil, err
		}
	}
	return iterations, nil
}
