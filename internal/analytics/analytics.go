// Package analytics derives performance statistics from a run's closed trades.
// Nothing in this package returns an error: statistics that cannot be computed are None.
package analytics

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/shopspring/decimal"
)

// DefaultAnnualization is the number of periods per year used to scale the Sharpe ratio.
const DefaultAnnualization = 252

// Mark is the valuation of a position still open at the end of a run.
type Mark struct {
	Time          time.Time
	UnrealizedPnL float64
}

// Config controls how the statistics are computed.
type Config struct {
	// StartTime is the time of the first bar; it anchors the equity curve at starting cash
	StartTime time.Time
	// Annualization scales the per-trade Sharpe ratio by its square root. Zero uses DefaultAnnualization.
	Annualization float64
}

// Compute derives the performance of a run from its trades, which must be in exit order.
func Compute(trades []types.Trade, startingCash float64, openMark optional.Option[Mark], config Config) types.Performance {
	curve := EquityCurve(trades, startingCash, openMark, config.StartTime)

	realized := decimal.Zero
	for _, trade := range trades {
		realized = realized.Add(decimal.NewFromFloat(trade.PnL))
	}

	finalCash, _ := decimal.NewFromFloat(startingCash).Add(realized).Float64()
	realizedPnL, _ := realized.Float64()

	unrealizedPnL := 0.0
	if openMark.IsSome() {
		unrealizedPnL = openMark.Unwrap().UnrealizedPnL
	}

	finalValue, _ := decimal.NewFromFloat(finalCash).Add(decimal.NewFromFloat(unrealizedPnL)).Float64()

	annualization := config.Annualization
	if annualization <= 0 {
		annualization = DefaultAnnualization
	}

	pnl := tradePnl(trades)
	pnl.RealizedPnL = realizedPnL
	pnl.UnrealizedPnL = unrealizedPnL
	pnl.TotalPnL, _ = realized.Add(decimal.NewFromFloat(unrealizedPnL)).Float64()

	return types.Performance{
		StartingCash:   startingCash,
		FinalCash:      finalCash,
		FinalValue:     finalValue,
		TotalReturnPct: TotalReturnPct(startingCash, finalCash),
		MaxDrawdownPct: MaxDrawdownPct(curve),
		SharpeRatio:    SharpeRatio(TradeReturns(trades, startingCash), annualization),
		TradeResult:    tradeResult(trades),
		TradePnl:       pnl,
		EquityCurve:    curve,
	}
}

// TotalReturnPct is (finalCash/startingCash - 1) * 100.
func TotalReturnPct(startingCash, finalCash float64) float64 {
	if startingCash <= 0 {
		return 0
	}

	return (finalCash/startingCash - 1) * 100
}

// EquityCurve returns starting cash at startTime, the cumulative cash after each trade at its
// exit time and, when a position is open, a final point including its unrealized pnl.
func EquityCurve(trades []types.Trade, startingCash float64, openMark optional.Option[Mark], startTime time.Time) []types.EquityPoint {
	curve := make([]types.EquityPoint, 0, len(trades)+2)
	curve = append(curve, types.EquityPoint{Time: startTime, Equity: startingCash})

	cash := decimal.NewFromFloat(startingCash)
	for _, trade := range trades {
		cash = cash.Add(decimal.NewFromFloat(trade.PnL))
		equity, _ := cash.Float64()
		curve = append(curve, types.EquityPoint{Time: trade.ExitTime, Equity: equity})
	}

	if openMark.IsSome() {
		mark := openMark.Unwrap()
		equity, _ := cash.Add(decimal.NewFromFloat(mark.UnrealizedPnL)).Float64()
		curve = append(curve, types.EquityPoint{Time: mark.Time, Equity: equity})
	}

	return curve
}

// MaxDrawdownPct returns the largest decline from a running peak, as a percentage of that
// peak, clamped to [0, 100].
func MaxDrawdownPct(curve []types.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0].Equity
	maxDrawdown := 0.0

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		var drawdown float64
		if peak <= 0 {
			drawdown = 100
		} else {
			drawdown = (peak - point.Equity) / peak * 100
		}

		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return math.Min(math.Max(maxDrawdown, 0), 100)
}

// TradeReturns returns the return of each trade relative to the equity before it. Returns
// stop once equity is exhausted.
func TradeReturns(trades []types.Trade, startingCash float64) []float64 {
	returns := make([]float64, 0, len(trades))
	equity := startingCash

	for _, trade := range trades {
		if equity <= 0 {
			break
		}

		returns = append(returns, trade.PnL/equity)
		equity += trade.PnL
	}

	return returns
}

// SharpeRatio returns mean/stddev of returns scaled by sqrt(annualization), using the sample
// standard deviation. It is None with fewer than two returns or zero variance.
func SharpeRatio(returns []float64, annualization float64) optional.Option[float64] {
	if len(returns) < 2 {
		return optional.None[float64]()
	}

	sum := 0.0
	for _, r := range returns {
		sum += r
	}

	mean := sum / float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	// identical returns leave only rounding noise
	if stdDev <= 1e-12*math.Max(1, math.Abs(mean)) {
		return optional.None[float64]()
	}

	return optional.Some(mean / stdDev * math.Sqrt(annualization))
}

func tradeResult(trades []types.Trade) types.TradeResult {
	result := types.TradeResult{NumberOfTrades: len(trades)}

	for _, trade := range trades {
		switch {
		case trade.PnL > 0:
			result.NumberOfWinningTrades++
		case trade.PnL < 0:
			result.NumberOfLosingTrades++
		}

		if trade.IsStopLoss() {
			result.StopLossExits++
		} else {
			result.TakeProfitExits++
		}
	}

	if len(trades) > 0 {
		result.WinRate = float64(result.NumberOfWinningTrades) / float64(len(trades))
	}

	return result
}

func tradePnl(trades []types.Trade) types.TradePnl {
	var pnl types.TradePnl

	if len(trades) == 0 {
		return pnl
	}

	total := decimal.Zero

	for _, trade := range trades {
		total = total.Add(decimal.NewFromFloat(trade.PnL))

		if trade.PnL < pnl.MaximumLoss {
			pnl.MaximumLoss = trade.PnL
		}

		if trade.PnL > pnl.MaximumProfit {
			pnl.MaximumProfit = trade.PnL
		}
	}

	pnl.AveragePnL, _ = total.Div(decimal.NewFromInt(int64(len(trades)))).Float64()

	return pnl
}
