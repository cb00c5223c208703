package engine

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rxtech-lab/argo-hybrid/internal/backtest/engine"
	"github.com/rxtech-lab/argo-hybrid/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-hybrid/internal/logger"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/mocks"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type BacktestEngineV1TestSuite struct {
	suite.Suite
	tmpDir string
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

func (suite *BacktestEngineV1TestSuite) SetupTest() {
	suite.tmpDir = suite.T().TempDir()
}

const sweepStrategyConfig = `
use_macd_filter: false
stop_loss_points: 300
take_profit_points: 600
martingale_multiplier: 2
max_martingale_levels: 3
`

func writeBarsCSV(path string, bars []types.Bar) error {
	var builder strings.Builder

	builder.WriteString("time,open,high,low,close,volume\n")

	for _, bar := range bars {
		fmt.Fprintf(&builder, "%s,%g,%g,%g,%g,%g\n",
			bar.Time.Format("2006-01-02 15:04:05"), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	return os.WriteFile(path, []byte(builder.String()), 0o600)
}

func barIterator(bars []types.Bar) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		for _, bar := range bars {
			if !yield(bar, nil) {
				return
			}
		}
	}
}

func (suite *BacktestEngineV1TestSuite) newEngine(configs ...string) *BacktestEngineV1 {
	backtest, ok := NewBacktestEngineV1().(*BacktestEngineV1)
	suite.Require().True(ok)
	suite.Require().NoError(backtest.Initialize("log_level: error\n"))
	suite.Require().NoError(backtest.SetConfigContent(configs))
	suite.Require().NoError(backtest.SetResultsFolder(filepath.Join(suite.tmpDir, "results")))

	return backtest
}

func (suite *BacktestEngineV1TestSuite) TestRunWritesResults() {
	dataPath := filepath.Join(suite.tmpDir, "gold.csv")
	suite.Require().NoError(writeBarsCSV(dataPath, generatedBars(13, 600)))

	backtest := suite.newEngine(sweepStrategyConfig, sweepStrategyConfig+"exit_mode: range\n")
	suite.Require().NoError(backtest.SetDataPath(filepath.Join(suite.tmpDir, "*.csv")))

	source, err := datasource.NewDataSource(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)

	defer source.Close()

	suite.Require().NoError(backtest.SetDataSource(source))

	var (
		startArgs   []int
		runIDs      []string
		resultPaths []string
		endErr      error = errors.New(errors.ErrCodeUnknown, "not called")
	)

	onStart := engine.OnBacktestStartCallback(func(totalConfigs int, totalDataFiles int) error {
		startArgs = []int{totalConfigs, totalDataFiles}

		return nil
	})
	onEnd := engine.OnBacktestEndCallback(func(err error) {
		endErr = err
	})
	onRunStart := engine.OnRunStartCallback(func(runID string, configIndex int, configName string, dataFileIndex int, dataFilePath string, totalBars int) error {
		suite.Equal(600, totalBars)

		runIDs = append(runIDs, runID)

		return nil
	})
	onRunEnd := engine.OnRunEndCallback(func(configIndex int, configName string, dataFileIndex int, dataFilePath string, resultFolderPath string) {
		resultPaths = append(resultPaths, resultFolderPath)
	})

	err = backtest.Run(context.Background(), engine.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnBacktestEnd:   &onEnd,
		OnRunStart:      &onRunStart,
		OnRunEnd:        &onRunEnd,
	})
	suite.Require().NoError(err)
	suite.NoError(endErr)
	suite.Equal([]int{2, 1}, startArgs)
	suite.Require().Len(runIDs, 2)
	suite.Require().Len(resultPaths, 2)
	suite.Equal(filepath.Join(suite.tmpDir, "results", "config_0", "gold"), resultPaths[0])

	for i, resultPath := range resultPaths {
		reports, err := types.ReadSummaryReports(filepath.Join(resultPath, StatsFileName))
		suite.Require().NoError(err)
		suite.Require().Len(reports, 1)

		report := reports[0]
		suite.Equal(runIDs[i], report.ID)
		suite.Equal(600, report.BarsProcessed)
		suite.Equal(dataPath, report.DataPath)
		suite.FileExists(report.TradesFilePath)
		suite.FileExists(report.FillsFilePath)
		suite.Equal(report.Performance.TradeResult.NumberOfTrades, countParquetRows(suite, report.TradesFilePath))
	}
}

func countParquetRows(suite *BacktestEngineV1TestSuite, path string) int {
	db, err := sql.Open("duckdb", ":memory:")
	suite.Require().NoError(err)

	defer db.Close()

	var count int

	suite.Require().NoError(db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM read_parquet('%s')", path)).Scan(&count))

	return count
}

func (suite *BacktestEngineV1TestSuite) TestRunWithMockDataSource() {
	dataPath := filepath.Join(suite.tmpDir, "feed.parquet")
	suite.Require().NoError(os.WriteFile(dataPath, nil, 0o600))

	bars := generatedBars(17, 300)

	ctrl := gomock.NewController(suite.T())
	source := mocks.NewMockDataSource(ctrl)
	source.EXPECT().Initialize(dataPath).Return(nil)
	source.EXPECT().ReadAll(gomock.Any()).Return(barIterator(bars))

	backtest := suite.newEngine(sweepStrategyConfig)
	suite.Require().NoError(backtest.SetDataPath(dataPath))
	suite.Require().NoError(backtest.SetDataSource(source))

	stop := engine.OnProcessDataCallback(func(current int, total int) error {
		if current == 150 {
			return engine.ErrStopRun
		}

		return nil
	})

	var resultPath string

	onRunEnd := engine.OnRunEndCallback(func(configIndex int, configName string, dataFileIndex int, dataFilePath string, resultFolderPath string) {
		resultPath = resultFolderPath
	})

	err := backtest.Run(context.Background(), engine.LifecycleCallbacks{
		OnProcessData: &stop,
		OnRunEnd:      &onRunEnd,
	})
	suite.Require().NoError(err)

	reports, err := types.ReadSummaryReports(filepath.Join(resultPath, StatsFileName))
	suite.Require().NoError(err)
	suite.Require().Len(reports, 1)
	suite.Equal(150, reports[0].BarsProcessed)
}

func (suite *BacktestEngineV1TestSuite) TestDataSourceErrorIsReported() {
	dataPath := filepath.Join(suite.tmpDir, "broken.csv")
	suite.Require().NoError(os.WriteFile(dataPath, nil, 0o600))

	readErr := errors.New(errors.ErrCodeQueryFailed, "disk gone")

	ctrl := gomock.NewController(suite.T())
	source := mocks.NewMockDataSource(ctrl)
	source.EXPECT().Initialize(dataPath).Return(nil)
	source.EXPECT().ReadAll(gomock.Any()).Return(func(yield func(types.Bar, error) bool) {
		yield(types.Bar{}, readErr)
	})

	backtest := suite.newEngine(sweepStrategyConfig)
	suite.Require().NoError(backtest.SetDataPath(dataPath))
	suite.Require().NoError(backtest.SetDataSource(source))

	var endErr error

	onEnd := engine.OnBacktestEndCallback(func(err error) {
		endErr = err
	})

	err := backtest.Run(context.Background(), engine.LifecycleCallbacks{OnBacktestEnd: &onEnd})
	suite.Error(err)
	suite.ErrorIs(err, readErr)
	suite.ErrorIs(endErr, readErr)
}

func (suite *BacktestEngineV1TestSuite) TestInvalidStrategyConfig() {
	dataPath := filepath.Join(suite.tmpDir, "bars.csv")
	suite.Require().NoError(os.WriteFile(dataPath, nil, 0o600))

	ctrl := gomock.NewController(suite.T())
	source := mocks.NewMockDataSource(ctrl)
	source.EXPECT().Initialize(dataPath).Return(nil)
	source.EXPECT().ReadAll(gomock.Any()).Return(barIterator(generatedBars(1, 100)))

	backtest := suite.newEngine("point_size: 0\n")
	suite.Require().NoError(backtest.SetDataPath(dataPath))
	suite.Require().NoError(backtest.SetDataSource(source))

	err := backtest.Run(context.Background(), engine.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPointSize))
}

func (suite *BacktestEngineV1TestSuite) TestPreRunCheck() {
	dataPath := filepath.Join(suite.tmpDir, "bars.csv")
	suite.Require().NoError(os.WriteFile(dataPath, nil, 0o600))

	tests := []struct {
		name         string
		setup        func(b *BacktestEngineV1)
		expectedCode errors.ErrorCode
	}{
		{
			name:         "no configs",
			setup:        func(b *BacktestEngineV1) { b.strategyConfigs = nil },
			expectedCode: errors.ErrCodeBacktestNoConfigs,
		},
		{
			name:         "no data paths",
			setup:        func(b *BacktestEngineV1) { b.dataPaths = nil },
			expectedCode: errors.ErrCodeBacktestNoDataPaths,
		},
		{
			name:         "no results folder",
			setup:        func(b *BacktestEngineV1) { b.resultsFolder = "" },
			expectedCode: errors.ErrCodeBacktestNoResultsDir,
		},
		{
			name:         "no datasource",
			setup:        func(b *BacktestEngineV1) { b.datasource = nil },
			expectedCode: errors.ErrCodeBacktestNoDatasource,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			backtest := suite.newEngine(sweepStrategyConfig)
			suite.Require().NoError(backtest.SetDataPath(dataPath))
			suite.Require().NoError(backtest.SetDataSource(datasource.NewInMemoryDataSource(nil)))

			tc.setup(backtest)

			err := backtest.Run(context.Background(), engine.LifecycleCallbacks{})
			suite.True(errors.HasCode(err, tc.expectedCode), "got %v", err)
		})
	}
}

func (suite *BacktestEngineV1TestSuite) TestCancelledContext() {
	dataPath := filepath.Join(suite.tmpDir, "bars.csv")
	suite.Require().NoError(os.WriteFile(dataPath, nil, 0o600))

	backtest := suite.newEngine(sweepStrategyConfig)
	suite.Require().NoError(backtest.SetDataPath(dataPath))
	suite.Require().NoError(backtest.SetDataSource(datasource.NewInMemoryDataSource(nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := backtest.Run(ctx, engine.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeRunCancelled))
}

func (suite *BacktestEngineV1TestSuite) TestGetConfigSchema() {
	backtest := suite.newEngine()

	schema, err := backtest.GetConfigSchema()
	suite.Require().NoError(err)
	suite.Contains(schema, "backtest-engine-v1-config")
	suite.Contains(schema, "log_level")
}
