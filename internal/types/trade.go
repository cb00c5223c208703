package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseType string

type PositionSide string

type ExitReason string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	PositionSideFlat  PositionSide = "FLAT"
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

const (
	ExitReasonStopLoss   ExitReason = "stop_loss"
	ExitReasonTakeProfit ExitReason = "take_profit"
)

// FillReasonEntry marks the fill that opened a position.
const FillReasonEntry = "entry"

// Position is the single open position of a run.
type Position struct {
	Side       PositionSide `yaml:"side" json:"side" csv:"side"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	EntryTime  time.Time    `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	EntryIndex int          `yaml:"entry_index" json:"entry_index" csv:"entry_index"`
	// Stake is the martingale multiplier in force when the position was opened.
	Stake float64 `yaml:"stake" json:"stake" csv:"stake"`
	// Quantity is base stake times Stake.
	Quantity float64 `yaml:"quantity" json:"quantity" csv:"quantity"`
}

// IsFlat reports whether there is no open position.
func (p Position) IsFlat() bool {
	return p.Side == PositionSideFlat || p.Side == ""
}

// PnLAt returns the profit or loss of the position if it were closed at price.
// For example, a long of 2 units entered at 100.00 and closed at 101.50 yields 3.00.
// A short is the mirror image: a higher exit price is a loss.
func (p Position) PnLAt(price float64) float64 {
	if p.IsFlat() {
		return 0
	}

	qty := decimal.NewFromFloat(p.Quantity)
	entryDec := qty.Mul(decimal.NewFromFloat(p.EntryPrice))
	exitDec := qty.Mul(decimal.NewFromFloat(price))

	var resultDec decimal.Decimal
	if p.Side == PositionSideLong {
		resultDec = exitDec.Sub(entryDec)
	} else {
		resultDec = entryDec.Sub(exitDec)
	}

	result, _ := resultDec.Float64()

	return result
}

// StakingState tracks the martingale sizing between trades.
type StakingState struct {
	ConsecutiveLosses int     `yaml:"consecutive_losses" json:"consecutive_losses"`
	Multiplier        float64 `yaml:"multiplier" json:"multiplier"`
}

// NewStakingState returns the state at the start of a run.
func NewStakingState() StakingState {
	return StakingState{ConsecutiveLosses: 0, Multiplier: 1}
}

// Fill is one simulated execution.
type Fill struct {
	Time         time.Time    `yaml:"time" json:"time" csv:"time"`
	Index        int          `yaml:"index" json:"index" csv:"index"`
	Side         PurchaseType `yaml:"side" json:"side" csv:"side"`
	PositionSide PositionSide `yaml:"position_side" json:"position_side" csv:"position_side"`
	Quantity     float64      `yaml:"quantity" json:"quantity" csv:"quantity"`
	Price        float64      `yaml:"price" json:"price" csv:"price"`
	// Reason is "entry" for opening fills and the exit reason for closing fills
	Reason string `yaml:"reason" json:"reason" csv:"reason"`
}

// Trade is the immutable record of a position that went back to flat.
type Trade struct {
	ID         int          `yaml:"id" json:"id" csv:"id"`
	Side       PositionSide `yaml:"side" json:"side" csv:"side"`
	EntryTime  time.Time    `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	ExitTime   time.Time    `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	EntryIndex int          `yaml:"entry_index" json:"entry_index" csv:"entry_index"`
	ExitIndex  int          `yaml:"exit_index" json:"exit_index" csv:"exit_index"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice  float64      `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	Stake      float64      `yaml:"stake" json:"stake" csv:"stake"`
	Quantity   float64      `yaml:"quantity" json:"quantity" csv:"quantity"`
	// PnL is the realized profit and loss of the trade
	PnL        float64    `yaml:"pnl" json:"pnl" csv:"pnl"`
	ExitReason ExitReason `yaml:"exit_reason" json:"exit_reason" csv:"exit_reason"`
}

// IsStopLoss reports whether the trade was closed by its stop-loss threshold.
func (t Trade) IsStopLoss() bool {
	return t.ExitReason == ExitReasonStopLoss
}
