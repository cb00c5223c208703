package engine

import (
	"context"

	"github.com/rxtech-lab/argo-hybrid/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

// ErrStopRun can be returned by OnProcessDataCallback to end a run early. The bars processed
// so far are still summarized and no error is reported.
var ErrStopRun = errors.New(errors.ErrCodeRunStopped, "run stopped by callback")

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnBacktestStartCallback is called when the entire backtest begins.
type OnBacktestStartCallback func(totalConfigs int, totalDataFiles int) error

// OnBacktestEndCallback is called when the entire backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnRunStartCallback is called when processing of a config+data file combination begins.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, configIndex int, configName string, dataFileIndex int, dataFilePath string, totalBars int) error

// OnRunEndCallback is called when processing of a config+data file combination ends.
type OnRunEndCallback func(configIndex int, configName string, dataFileIndex int, dataFilePath string, resultFolderPath string)

// OnProcessDataCallback is called after each bar is processed.
type OnProcessDataCallback func(current int, total int) error

// OnTradeCallback is called when a position goes flat.
type OnTradeCallback func(trade types.Trade)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
	OnProcessData   *OnProcessDataCallback
	OnTrade         *OnTradeCallback
}

type Engine interface {
	// Initialize the engine with the given engine configuration (YAML).
	Initialize(config string) error
	// SetConfigPath sets the path to the strategy configuration files. Accepts glob patterns.
	SetConfigPath(path string) error
	// SetConfigContent sets strategy configurations directly from string content.
	// This is an alternative to SetConfigPath for programmatic API usage.
	SetConfigContent(configs []string) error
	// SetDataPath sets the path to the bar data files (CSV or Parquet).
	// Accepts glob patterns for batch loading (e.g., "data/*.parquet")
	SetDataPath(path string) error
	// SetResultsFolder sets the output directory for saving backtest results.
	// The results folder will be structured as: <results>/<config_name>/<data_file_name>
	SetResultsFolder(folder string) error
	// SetDataSource sets the data source for the engine.
	SetDataSource(dataSource datasource.DataSource) error
	// Run runs every strategy configuration against every data file.
	// The context can be used to cancel the backtest operation.
	// Use LifecycleCallbacks to receive notifications at different phases of the backtest.
	Run(ctx context.Context, callbacks LifecycleCallbacks) error
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
