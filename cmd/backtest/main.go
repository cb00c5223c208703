package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/argo-hybrid/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-hybrid/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-hybrid/internal/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// runAction runs every strategy config against every data file and prints one row per run.
func runAction(ctx context.Context, cmd *cli.Command) error {
	engineConfig := ""

	if path := cmd.String("engine-config"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read engine config: %w", err)
		}

		engineConfig = string(content)
	}

	backtest := enginev1.NewBacktestEngineV1()

	if err := backtest.Initialize(engineConfig); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}

	if err := backtest.SetConfigPath(cmd.String("config")); err != nil {
		return err
	}

	if err := backtest.SetDataPath(cmd.String("data")); err != nil {
		return err
	}

	resultsFolder := cmd.String("results")
	if err := backtest.SetResultsFolder(resultsFolder); err != nil {
		return err
	}

	source, err := datasource.NewDataSource(":memory:", logger.NewNopLogger())
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	defer source.Close()

	if err := backtest.SetDataSource(source); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	onRunStart := engine.OnRunStartCallback(func(runID string, configIndex int, configName string, dataFileIndex int, dataFilePath string, totalBars int) error {
		bar = progressbar.Default(int64(totalBars))
		bar.Describe(fmt.Sprintf("Processing %s with %s", filepath.Base(dataFilePath), filepath.Base(configName)))

		return nil
	})
	onProcessData := engine.OnProcessDataCallback(func(current int, total int) error {
		return bar.Add(1)
	})
	onRunEnd := engine.OnRunEndCallback(func(configIndex int, configName string, dataFileIndex int, dataFilePath string, resultFolderPath string) {
		_ = bar.Finish()
	})

	err = backtest.Run(ctx, engine.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnProcessData: &onProcessData,
		OnRunEnd:      &onRunEnd,
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	rows, err := collectReports(resultsFolder)
	if err != nil {
		return err
	}

	renderReports(os.Stdout, "Backtest results", rows)

	return nil
}

// sweepAction runs every strategy config over one data file concurrently.
func sweepAction(ctx context.Context, cmd *cli.Command) error {
	sweepLog, err := logger.NewLoggerWithLevel(cmd.String("log-level"))
	if err != nil {
		return err
	}

	configPaths, err := filepath.Glob(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("invalid config pattern: %w", err)
	}

	configs := make([]enginev1.Config, 0, len(configPaths))

	for _, path := range configPaths {
		config, err := enginev1.LoadConfigFile(path)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}

		configs = append(configs, config)
	}

	source, err := datasource.NewDataSource(":memory:", sweepLog)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	defer source.Close()

	if err := source.Initialize(cmd.String("data")); err != nil {
		return err
	}

	options := datasource.ReadOptions{}
	if interval := cmd.String("interval"); interval != "" {
		options.Interval = optional.Some(datasource.Interval(interval))
	}

	bars, err := datasource.Collect(source, options)
	if err != nil {
		return fmt.Errorf("failed to read bars: %w", err)
	}

	results, err := enginev1.Sweep(ctx, bars, configs, int(cmd.Int("workers")), sweepLog)
	if err != nil {
		return err
	}

	rows := make([]reportRow, 0, len(results))

	for _, result := range results {
		name := filepath.Base(configPaths[result.Index])

		if result.Err != nil {
			rows = append(rows, reportRow{Name: name, Err: result.Err})

			continue
		}

		rows = append(rows, reportRow{Name: name, Report: result.Summary.Report()})
	}

	renderReports(os.Stdout, "Sweep results", rows)

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Run the hybrid RSI/EMA strategy over historical bars",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Backtest every strategy config against every data file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "engine-config",
						Aliases: []string{"e"},
						Usage:   "Path to the engine config YAML",
					},
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Strategy config files, glob patterns allowed",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Bar data files (CSV or Parquet), glob patterns allowed",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "results",
						Aliases: []string{"r"},
						Usage:   "Results folder",
						Value:   "results",
					},
				},
				Action: runAction,
			},
			{
				Name:  "sweep",
				Usage: "Run many strategy configs over one data file concurrently",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Strategy config files, glob patterns allowed",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Bar data file (CSV or Parquet)",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent runs, 0 uses one per CPU",
						Value:   0,
					},
					&cli.StringFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Resample bars to this interval (e.g. 5m, 1h)",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Log level (debug, info, warn, error)",
						Value: "warn",
					},
				},
				Action: sweepAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
