package engine

import (
	"context"
	"runtime"

	"github.com/rxtech-lab/argo-hybrid/internal/backtest/engine"
	"github.com/rxtech-lab/argo-hybrid/internal/indicator"
	"github.com/rxtech-lab/argo-hybrid/internal/logger"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweepResult is the outcome of one configuration of a parameter sweep.
type SweepResult struct {
	Index   int
	Config  Config
	Summary types.Summary
	// Err is set when this configuration failed; other configurations are unaffected
	Err error
}

// Sweep runs one simulation per configuration over the same bars using at most workers
// goroutines (0 uses one per CPU). Results are returned in the order of configs. A failing
// configuration is reported in its result; Sweep itself only fails on invalid arguments or
// when ctx is cancelled.
func Sweep(ctx context.Context, bars []types.Bar, configs []Config, workers int, log *logger.Logger) ([]SweepResult, error) {
	if len(configs) == 0 {
		return nil, errors.New(errors.ErrCodeBacktestNoConfigs, "no configurations to sweep")
	}

	if workers < 0 {
		return nil, errors.Newf(errors.ErrCodeBacktestInvalidWorker, "workers must not be negative, got %d", workers)
	}

	if workers == 0 {
		workers = runtime.NumCPU()
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	log.Info("Sweep started", zap.Int("configs", len(configs)), zap.Int("workers", workers), zap.Int("bars", len(bars)))

	registry := indicator.NewDefaultIndicatorRegistry()
	results := make([]SweepResult, len(configs))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, config := range configs {
		group.Go(func() error {
			// runs share nothing but the read-only bars and the registry
			summary, err := newSimulation(config, logger.NewNopLogger(), registry).Run(groupCtx, bars, engine.LifecycleCallbacks{})

			results[i] = SweepResult{Index: i, Config: config, Summary: summary, Err: err}

			if err != nil && errors.HasCode(err, errors.ErrCodeRunCancelled) {
				return err
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}

	failed := 0

	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}

	log.Info("Sweep finished", zap.Int("configs", len(configs)), zap.Int("failed", failed))

	return results, nil
}
