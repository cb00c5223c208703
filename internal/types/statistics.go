package types

import (
	"fmt"
	"os"
	"time"

	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// EquityPoint is one point of the equity curve.
type EquityPoint struct {
	Time   time.Time `yaml:"time" json:"time"`
	Equity float64   `yaml:"equity" json:"equity"`
}

type TradeResult struct {
	// Count of all closed trades.
	NumberOfTrades int `yaml:"number_of_trades"`
	// Count of winning trades that has positive pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Count of losing trades that has negative pnl.
	NumberOfLosingTrades int `yaml:"number_of_losing_trades"`
	// Count of trades closed by the stop-loss threshold.
	StopLossExits int `yaml:"stop_loss_exits"`
	// Count of trades closed by the take-profit threshold.
	TakeProfitExits int `yaml:"take_profit_exits"`
	// Win rate.
	WinRate float64 `yaml:"win_rate"`
}

type TradePnl struct {
	// Realized PnL. Sum of all closed trades' pnl.
	RealizedPnL float64 `yaml:"realized_pnl"`
	// Unrealized PnL of the position still open at the last bar, marked at its close.
	UnrealizedPnL float64 `yaml:"unrealized_pnl"`
	// Total PnL. RealizedPnL plus UnrealizedPnL.
	TotalPnL float64 `yaml:"total_pnl"`
	// Maximum loss. Minimum realized pnl over all trades, zero when no trade lost.
	MaximumLoss float64 `yaml:"maximum_loss"`
	// Maximum profit. Maximum realized pnl over all trades, zero when no trade won.
	MaximumProfit float64 `yaml:"maximum_profit"`
	// Average realized pnl per trade.
	AveragePnL float64 `yaml:"average_pnl"`
}

// Performance holds the statistics derived from the ledger.
type Performance struct {
	StartingCash float64 `yaml:"starting_cash"`
	// FinalCash is starting cash plus realized pnl.
	FinalCash float64 `yaml:"final_cash"`
	// FinalValue is FinalCash plus the mark of any open position.
	FinalValue     float64 `yaml:"final_value"`
	TotalReturnPct float64 `yaml:"total_return_pct"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`
	// SharpeRatio is None when there are fewer than two returns or they have zero variance.
	SharpeRatio optional.Option[float64] `yaml:"-"`
	TradeResult TradeResult              `yaml:"trade_result"`
	TradePnl    TradePnl                 `yaml:"trade_pnl"`
	EquityCurve []EquityPoint            `yaml:"-"`
}

// Summary is the outcome of one simulation run.
type Summary struct {
	// ID is the unique identifier for this run.
	ID string
	// Timestamp is when this run was executed.
	Timestamp time.Time
	// Symbol is a label for the simulated instrument.
	Symbol string
	// BarsProcessed is the number of bars the run loop consumed.
	BarsProcessed int
	// BuySignals counts enter-long signals acted upon.
	BuySignals int
	// SellSignals counts enter-short signals acted upon.
	SellSignals int
	Trades      []Trade
	Fills       []Fill
	// OpenPosition is the position still open after the last processed bar.
	OpenPosition optional.Option[Position]
	Staking      StakingState
	Performance  Performance
}

// SummaryReport is the on-disk form of a Summary.
type SummaryReport struct {
	ID              string      `yaml:"id"`
	Timestamp       time.Time   `yaml:"timestamp"`
	Symbol          string      `yaml:"symbol"`
	BarsProcessed   int         `yaml:"bars_processed"`
	BuySignals      int         `yaml:"buy_signals"`
	SellSignals     int         `yaml:"sell_signals"`
	Performance     Performance `yaml:"performance"`
	SharpeRatio     *float64    `yaml:"sharpe_ratio"`
	HasOpenPosition bool        `yaml:"has_open_position"`
	// DataPath is the market data file used for this run.
	DataPath string `yaml:"data_path,omitempty"`
	// TradesFilePath is the path to the trades parquet file.
	TradesFilePath string `yaml:"trades_file_path,omitempty"`
	// FillsFilePath is the path to the fills parquet file.
	FillsFilePath string `yaml:"fills_file_path,omitempty"`
}

// Report converts the summary into its on-disk form. A missing Sharpe ratio becomes null.
func (s Summary) Report() SummaryReport {
	report := SummaryReport{
		ID:              s.ID,
		Timestamp:       s.Timestamp,
		Symbol:          s.Symbol,
		BarsProcessed:   s.BarsProcessed,
		BuySignals:      s.BuySignals,
		SellSignals:     s.SellSignals,
		Performance:     s.Performance,
		SharpeRatio:     nil,
		HasOpenPosition: s.OpenPosition.IsSome(),
	}

	if s.Performance.SharpeRatio.IsSome() {
		sharpe := s.Performance.SharpeRatio.Unwrap()
		report.SharpeRatio = &sharpe
	}

	return report
}

func WriteSummaryReports(path string, reports []SummaryReport) error {
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("failed to marshal summary to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary to file: %w", err)
	}

	return nil
}

// ReadSummaryReports reads a stats file written by WriteSummaryReports.
func ReadSummaryReports(path string) ([]SummaryReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary file: %w", err)
	}

	var reports []SummaryReport
	if err := yaml.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}

	return reports, nil
}
