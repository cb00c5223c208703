// Package ledger records the fills and closed trades of a simulation run.
package ledger

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
	"github.com/shopspring/decimal"
)

// Ledger is an append-only record of fills and trades. It is owned by a single run and is
// not safe for concurrent use.
type Ledger struct {
	fills  []types.Fill
	trades []types.Trade
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		fills:  make([]types.Fill, 0),
		trades: make([]types.Trade, 0),
	}
}

// RecordFill appends a fill.
func (l *Ledger) RecordFill(fill types.Fill) {
	l.fills = append(l.fills, fill)
}

// RecordTrade appends a closed trade. Trades must not overlap: a trade has to be entered
// after the previous trade was exited.
func (l *Ledger) RecordTrade(trade types.Trade) error {
	if trade.ExitIndex < trade.EntryIndex {
		return errors.Newf(errors.ErrCodeOverlappingTrade,
			"trade %d exits at bar %d before its entry at bar %d", trade.ID, trade.ExitIndex, trade.EntryIndex)
	}

	if last := l.Last(); last.IsSome() {
		previous := last.Unwrap()
		if trade.EntryIndex <= previous.ExitIndex || !trade.EntryTime.After(previous.ExitTime) {
			return errors.Newf(errors.ErrCodeOverlappingTrade,
				"trade %d entered at bar %d overlaps trade %d exited at bar %d",
				trade.ID, trade.EntryIndex, previous.ID, previous.ExitIndex)
		}
	}

	l.trades = append(l.trades, trade)

	return nil
}

// Trades returns a copy of the closed trades in exit order.
func (l *Ledger) Trades() []types.Trade {
	trades := make([]types.Trade, len(l.trades))
	copy(trades, l.trades)

	return trades
}

// Fills returns a copy of the fills in execution order.
func (l *Ledger) Fills() []types.Fill {
	fills := make([]types.Fill, len(l.fills))
	copy(fills, l.fills)

	return fills
}

// Last returns the most recent trade.
func (l *Ledger) Last() optional.Option[types.Trade] {
	if len(l.trades) == 0 {
		return optional.None[types.Trade]()
	}

	return optional.Some(l.trades[len(l.trades)-1])
}

// Len returns the number of closed trades.
func (l *Ledger) Len() int {
	return len(l.trades)
}

// RealizedPnL returns the sum of realized pnl over all trades.
func (l *Ledger) RealizedPnL() float64 {
	total := decimal.Zero
	for _, trade := range l.trades {
		total = total.Add(decimal.NewFromFloat(trade.PnL))
	}

	result, _ := total.Float64()

	return result
}
