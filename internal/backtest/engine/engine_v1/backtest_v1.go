package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-hybrid/internal/backtest/engine"
	"github.com/rxtech-lab/argo-hybrid/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-hybrid/internal/indicator"
	"github.com/rxtech-lab/argo-hybrid/internal/ledger"
	"github.com/rxtech-lab/argo-hybrid/internal/logger"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// StatsFileName is the summary written to every result folder.
const StatsFileName = "stats.yaml"

// BacktestEngineV1 runs every strategy configuration against every data file and writes one
// result folder per combination.
type BacktestEngineV1 struct {
	config              BacktestEngineV1Config
	strategyConfigPaths []string
	strategyConfigs     []string
	dataPaths           []string
	resultsFolder       string
	log                 *logger.Logger
	indicatorRegistry   indicator.IndicatorRegistry
	store               *ledger.Store
	datasource          datasource.DataSource
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:              EmptyConfig(),
		strategyConfigPaths: nil,
		strategyConfigs:     nil,
		dataPaths:           nil,
		resultsFolder:       "",
		log:                 nil,
		indicatorRegistry:   nil,
		store:               nil,
		datasource:          nil,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	b.config = EmptyConfig()

	err := yaml.Unmarshal([]byte(config), &b.config)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse engine config", err)
	}

	b.log, err = logger.NewLoggerWithLevel(b.config.logLevel())
	if err != nil {
		return err
	}

	b.log.Debug("Backtest engine initialized",
		zap.String("config", config),
	)

	b.indicatorRegistry = indicator.NewDefaultIndicatorRegistry()

	if b.store != nil {
		b.store.Close()
	}

	b.store, err = ledger.NewStore(b.log)
	if err != nil {
		return fmt.Errorf("failed to create ledger store: %w", err)
	}

	return nil
}

// SetConfigPath implements engine.Engine.
func (b *BacktestEngineV1) SetConfigPath(path string) error {
	files, err := filepath.Glob(path)
	if err != nil {
		b.log.Error("Failed to set config path",
			zap.String("path", path),
			zap.Error(err),
		)

		return err
	}

	b.strategyConfigPaths = files
	b.strategyConfigs = nil
	b.log.Debug("Config paths set",
		zap.Strings("files", files),
	)

	return nil
}

// SetConfigContent implements engine.Engine.
func (b *BacktestEngineV1) SetConfigContent(configs []string) error {
	b.strategyConfigs = configs
	b.strategyConfigPaths = nil
	b.log.Debug("Config content set",
		zap.Int("count", len(configs)),
	)

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	files, err := filepath.Glob(path)
	if err != nil {
		b.log.Error("Failed to set data path",
			zap.String("path", path),
			zap.Error(err),
		)

		return err
	}

	absolutePaths := make([]string, len(files))

	for i, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			b.log.Error("Failed to get absolute path",
				zap.String("path", file),
				zap.Error(err),
			)

			return err
		}

		absolutePaths[i] = absPath
	}

	b.dataPaths = absolutePaths
	b.log.Debug("Data paths set",
		zap.Strings("files", absolutePaths),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(datasource datasource.DataSource) error {
	b.datasource = datasource

	return nil
}

type namedConfig struct {
	name   string
	config Config
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (runErr error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() {
			(*callbacks.OnBacktestEnd)(runErr)
		}()
	}

	if err := b.preRunCheck(); err != nil {
		return err
	}

	configs, err := b.loadConfigs()
	if err != nil {
		return err
	}

	if _, err := os.Stat(b.resultsFolder); err == nil {
		os.RemoveAll(b.resultsFolder)
	}

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create results folder", err)
	}

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(configs), len(b.dataPaths)); err != nil {
			return err
		}
	}

	for configIndex, cfg := range configs {
		for dataIndex, dataPath := range b.dataPaths {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(errors.ErrCodeRunCancelled, "backtest cancelled", err)
			}

			if err := b.runOne(ctx, callbacks, configIndex, cfg, dataIndex, dataPath); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *BacktestEngineV1) runOne(ctx context.Context, callbacks engine.LifecycleCallbacks, configIndex int, cfg namedConfig, dataIndex int, dataPath string) error {
	if err := b.datasource.Initialize(dataPath); err != nil {
		return fmt.Errorf("failed to initialize data source: %w", err)
	}

	bars, err := datasource.Collect(b.datasource, b.config.ReadOptions())
	if err != nil {
		return fmt.Errorf("failed to read bars from %s: %w", dataPath, err)
	}

	runID := uuid.New().String()
	resultFolderPath := b.resultFolder(cfg.name, dataPath)

	b.log.Debug("Running strategy",
		zap.String("run_id", runID),
		zap.String("config", cfg.name),
		zap.String("data", dataPath),
		zap.String("result", resultFolderPath),
	)

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, configIndex, cfg.name, dataIndex, dataPath, len(bars)); err != nil {
			return err
		}
	}

	simulation := newSimulation(cfg.config, b.log, b.indicatorRegistry).WithRunID(runID)

	summary, err := simulation.Run(ctx, bars, callbacks)
	if err != nil {
		return fmt.Errorf("run %s on %s failed: %w", cfg.name, dataPath, err)
	}

	if err := b.writeResults(summary, dataPath, resultFolderPath); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if err := b.store.Cleanup(); err != nil {
		return fmt.Errorf("failed to cleanup run: %w", err)
	}

	if callbacks.OnRunEnd != nil {
		(*callbacks.OnRunEnd)(configIndex, cfg.name, dataIndex, dataPath, resultFolderPath)
	}

	return nil
}

// resultFolder returns <results>/<config>[/<range>]/<data file>, dropping extensions.
func (b *BacktestEngineV1) resultFolder(configName string, dataPath string) string {
	trimExt := func(path string) string {
		base := filepath.Base(path)

		return strings.TrimSuffix(base, filepath.Ext(base))
	}

	return filepath.Join(b.resultsFolder, trimExt(configName), b.config.rangeLabel(), trimExt(dataPath))
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

func (b *BacktestEngineV1) writeResults(summary types.Summary, dataPath string, resultFolderPath string) error {
	if err := os.MkdirAll(resultFolderPath, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create result folder", err)
	}

	if err := b.store.Save(summary.ID, summary.Fills, summary.Trades); err != nil {
		return err
	}

	tradesPath, fillsPath, err := b.store.Write(summary.ID, resultFolderPath)
	if err != nil {
		return err
	}

	report := summary.Report()
	report.DataPath = dataPath
	report.TradesFilePath = tradesPath
	report.FillsFilePath = fillsPath

	if err := types.WriteSummaryReports(filepath.Join(resultFolderPath, StatsFileName), []types.SummaryReport{report}); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to write stats", err)
	}

	return nil
}

func (b *BacktestEngineV1) loadConfigs() ([]namedConfig, error) {
	var configs []namedConfig

	if len(b.strategyConfigs) > 0 {
		for i, content := range b.strategyConfigs {
			config, err := ParseConfig(content)
			if err != nil {
				return nil, err
			}

			if err := applyEnvOverrides(&config); err != nil {
				return nil, err
			}

			configs = append(configs, namedConfig{name: fmt.Sprintf("config_%d", i), config: config})
		}

		return configs, nil
	}

	for _, configPath := range b.strategyConfigPaths {
		config, err := LoadConfigFile(configPath)
		if err != nil {
			b.log.Error("Failed to read config",
				zap.String("config", configPath),
				zap.Error(err),
			)

			return nil, err
		}

		configs = append(configs, namedConfig{name: configPath, config: config})
	}

	return configs, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.log == nil || b.store == nil {
		return errors.New(errors.ErrCodeBacktestConfigError, "engine is not initialized")
	}

	if len(b.strategyConfigPaths) == 0 && len(b.strategyConfigs) == 0 {
		b.log.Error("No strategy configs loaded")

		return errors.New(errors.ErrCodeBacktestNoConfigs, "no strategy configs loaded")
	}

	if len(b.dataPaths) == 0 {
		b.log.Error("No data paths loaded")

		return errors.New(errors.ErrCodeBacktestNoDataPaths, "no data paths loaded")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	if b.datasource == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	return nil
}
