package engine

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/analytics"
	"github.com/rxtech-lab/argo-hybrid/internal/backtest/engine"
	"github.com/rxtech-lab/argo-hybrid/internal/indicator"
	"github.com/rxtech-lab/argo-hybrid/internal/ledger"
	"github.com/rxtech-lab/argo-hybrid/internal/logger"
	"github.com/rxtech-lab/argo-hybrid/internal/position"
	"github.com/rxtech-lab/argo-hybrid/internal/signal"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
	"go.uber.org/zap"
)

// Simulation runs the hybrid strategy over a bar series. A Simulation holds no state between
// runs, so one value can be reused and runs on separate values can execute in parallel.
type Simulation struct {
	config   Config
	log      *logger.Logger
	registry indicator.IndicatorRegistry
	runID    string
}

// NewSimulation creates a simulation with the given parameters. A nil logger discards output.
func NewSimulation(config Config, log *logger.Logger) *Simulation {
	return newSimulation(config, log, indicator.NewDefaultIndicatorRegistry())
}

func newSimulation(config Config, log *logger.Logger, registry indicator.IndicatorRegistry) *Simulation {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Simulation{
		config:   config,
		log:      log,
		registry: registry,
	}
}

// WithRunID fixes the ID reported in the summary instead of generating one per run.
func (s *Simulation) WithRunID(runID string) *Simulation {
	s.runID = runID

	return s
}

// Config returns the simulation parameters.
func (s *Simulation) Config() Config {
	return s.config
}

// Run simulates the strategy bar by bar. Only OnProcessData and OnTrade of callbacks are used;
// OnProcessData may return engine.ErrStopRun to end the run early, in which case the summary
// covers the bars processed so far. Invalid parameters and bars are reported before the first
// bar is processed.
func (s *Simulation) Run(ctx context.Context, bars []types.Bar, callbacks engine.LifecycleCallbacks) (types.Summary, error) {
	if err := s.config.Validate(); err != nil {
		return types.Summary{}, err
	}

	if err := types.ValidateBars(bars); err != nil {
		return types.Summary{}, err
	}

	owned := slices.Clone(bars)

	pipeline, err := indicator.NewPipeline(s.registry, s.config.IndicatorConfigs())
	if err != nil {
		return types.Summary{}, err
	}

	if err := pipeline.Validate(len(owned)); err != nil {
		return types.Summary{}, err
	}

	machine, err := position.NewStateMachine(s.config.PositionConfig())
	if err != nil {
		return types.Summary{}, err
	}

	evaluator := signal.NewEvaluator(s.config.SignalConfig())
	book := ledger.NewLedger()
	runID := s.runID
	if runID == "" {
		runID = uuid.New().String()
	}

	total := len(owned)
	if s.config.MaxBars > 0 && s.config.MaxBars < total {
		total = s.config.MaxBars
	}

	s.log.Info("Simulation started",
		zap.String("run_id", runID),
		zap.String("symbol", s.config.Symbol),
		zap.Int("bars", total),
		zap.Int("lookback", pipeline.Lookback()),
	)

	summary := types.Summary{
		ID:        runID,
		Timestamp: time.Now(),
		Symbol:    s.config.Symbol,
	}

	for index := 0; index < total; index++ {
		if err := ctx.Err(); err != nil {
			return types.Summary{}, errors.Wrapf(errors.ErrCodeRunCancelled, err, "simulation cancelled at bar %d", index)
		}

		bar := owned[index]
		pipeline.Push(bar)

		if !machine.IsFlat() {
			exit := machine.CheckExit(bar, index)
			if exit.IsSome() {
				if err := s.recordExit(book, exit.Unwrap(), callbacks); err != nil {
					return types.Summary{}, err
				}
			}
		} else {
			sig := evaluator.Evaluate(index, pipeline)
			sig.Time = bar.Time

			if sig.IsEntry() {
				if sig.Type == types.SignalTypeBuyLong {
					summary.BuySignals++
				} else {
					summary.SellSignals++
				}

				fill, err := machine.Enter(bar, index, sig.Type)
				if err != nil {
					return types.Summary{}, err
				}

				book.RecordFill(fill)

				s.log.Debug("Position opened",
					zap.Int("index", index),
					zap.Time("time", bar.Time),
					zap.String("side", string(fill.PositionSide)),
					zap.Float64("price", fill.Price),
					zap.Float64("quantity", fill.Quantity),
					zap.String("reason", sig.Reason),
				)
			}
		}

		summary.BarsProcessed = index + 1

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(index+1, total); err != nil {
				if errors.Is(err, engine.ErrStopRun) {
					s.log.Info("Simulation stopped by callback", zap.Int("bars_processed", summary.BarsProcessed))

					break
				}

				return types.Summary{}, err
			}
		}
	}

	last := owned[summary.BarsProcessed-1]
	openMark := optional.None[analytics.Mark]()

	if !machine.IsFlat() {
		openMark = optional.Some(analytics.Mark{Time: last.Time, UnrealizedPnL: machine.Mark(last)})
	}

	summary.Trades = book.Trades()
	summary.Fills = book.Fills()
	summary.OpenPosition = machine.OpenPosition()
	summary.Staking = machine.Staking()
	summary.Performance = analytics.Compute(summary.Trades, s.config.StartingCash, openMark, s.config.AnalyticsConfig(owned[0].Time))

	s.log.Info("Simulation finished",
		zap.String("run_id", runID),
		zap.Int("bars_processed", summary.BarsProcessed),
		zap.Int("buy_signals", summary.BuySignals),
		zap.Int("sell_signals", summary.SellSignals),
		zap.Int("trades", len(summary.Trades)),
		zap.Float64("final_value", summary.Performance.FinalValue),
		zap.Float64("total_return_pct", summary.Performance.TotalReturnPct),
		zap.Float64("max_drawdown_pct", summary.Performance.MaxDrawdownPct),
	)

	return summary, nil
}

func (s *Simulation) recordExit(book *ledger.Ledger, exit position.Exit, callbacks engine.LifecycleCallbacks) error {
	book.RecordFill(exit.Fill)

	if err := book.RecordTrade(exit.Trade); err != nil {
		return err
	}

	s.log.Debug("Position closed",
		zap.Int("trade_id", exit.Trade.ID),
		zap.Int("index", exit.Trade.ExitIndex),
		zap.String("side", string(exit.Trade.Side)),
		zap.String("exit_reason", string(exit.Trade.ExitReason)),
		zap.Float64("exit_price", exit.Trade.ExitPrice),
		zap.Float64("stake", exit.Trade.Stake),
		zap.Float64("pnl", exit.Trade.PnL),
	)

	if callbacks.OnTrade != nil {
		(*callbacks.OnTrade)(exit.Trade)
	}

	return nil
}
