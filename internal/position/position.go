// Package position owns the single position of a simulation run and the martingale staking
// state that sizes it.
package position

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
	"github.com/shopspring/decimal"
)

// ExitMode selects which prices of a bar are checked against the exit thresholds.
type ExitMode string

const (
	// ExitModeClose checks the bar close and exits at the close.
	ExitModeClose ExitMode = "close"
	// ExitModeRange checks the bar low and high and exits at the threshold level.
	ExitModeRange ExitMode = "range"
)

// AllExitModes lists the supported exit modes.
var AllExitModes = []any{ExitModeClose, ExitModeRange}

// Config holds the exit thresholds and sizing parameters.
type Config struct {
	StopLossPoints       float64
	TakeProfitPoints     float64
	PointSize            float64
	MartingaleMultiplier float64
	MaxMartingaleLevels  int
	BaseStake            float64
	ExitMode             ExitMode
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.PointSize <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPointSize, "point size must be positive, got %g", c.PointSize)
	}

	if c.StopLossPoints < 0 || c.TakeProfitPoints < 0 {
		return errors.Newf(errors.ErrCodeInvalidThreshold,
			"stop loss and take profit points must not be negative, got %g and %g", c.StopLossPoints, c.TakeProfitPoints)
	}

	if c.MartingaleMultiplier <= 0 {
		return errors.Newf(errors.ErrCodeInvalidMultiplier, "martingale multiplier must be positive, got %g", c.MartingaleMultiplier)
	}

	if c.MaxMartingaleLevels < 0 {
		return errors.Newf(errors.ErrCodeInvalidMultiplier, "max martingale levels must not be negative, got %d", c.MaxMartingaleLevels)
	}

	if c.BaseStake <= 0 {
		return errors.Newf(errors.ErrCodeInvalidStake, "base stake must be positive, got %g", c.BaseStake)
	}

	switch c.ExitMode {
	case ExitModeClose, ExitModeRange:
	default:
		return errors.Newf(errors.ErrCodeInvalidExitMode, "exit mode must be %q or %q, got %q", ExitModeClose, ExitModeRange, c.ExitMode)
	}

	return nil
}

// Exit is the outcome of a position going flat.
type Exit struct {
	Trade types.Trade
	Fill  types.Fill
}

// StateMachine moves the position between FLAT, LONG and SHORT. It allows at most one
// transition per bar when driven by the simulation loop: exits are checked while a position
// is open and entries are only accepted while flat.
type StateMachine struct {
	config   Config
	position types.Position
	staking  types.StakingState
	tradeID  int
}

// NewStateMachine creates a flat state machine with a stake multiplier of 1.
func NewStateMachine(config Config) (*StateMachine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &StateMachine{
		config:   config,
		position: types.Position{Side: types.PositionSideFlat},
		staking:  types.NewStakingState(),
		tradeID:  0,
	}, nil
}

// Position returns the current position.
func (m *StateMachine) Position() types.Position {
	return m.position
}

// OpenPosition returns the current position, or None when flat.
func (m *StateMachine) OpenPosition() optional.Option[types.Position] {
	if m.position.IsFlat() {
		return optional.None[types.Position]()
	}

	return optional.Some(m.position)
}

// Staking returns the current staking state.
func (m *StateMachine) Staking() types.StakingState {
	return m.staking
}

// IsFlat reports whether no position is open.
func (m *StateMachine) IsFlat() bool {
	return m.position.IsFlat()
}

// Enter opens a position at the bar close sized by the current stake multiplier.
func (m *StateMachine) Enter(bar types.Bar, index int, signalType types.SignalType) (types.Fill, error) {
	if !m.IsFlat() {
		return types.Fill{}, errors.Newf(errors.ErrCodePositionNotFlat,
			"cannot enter at bar %d: %s position opened at bar %d is still open", index, m.position.Side, m.position.EntryIndex)
	}

	var side types.PositionSide

	var purchase types.PurchaseType

	switch signalType {
	case types.SignalTypeBuyLong:
		side, purchase = types.PositionSideLong, types.PurchaseTypeBuy
	case types.SignalTypeSellShort:
		side, purchase = types.PositionSideShort, types.PurchaseTypeSell
	default:
		return types.Fill{}, errors.Newf(errors.ErrCodeInvalidParameter, "cannot enter on signal %s", signalType)
	}

	stake := m.staking.Multiplier
	quantity, _ := decimal.NewFromFloat(m.config.BaseStake).Mul(decimal.NewFromFloat(stake)).Float64()

	m.position = types.Position{
		Side:       side,
		EntryPrice: bar.Close,
		EntryTime:  bar.Time,
		EntryIndex: index,
		Stake:      stake,
		Quantity:   quantity,
	}

	return types.Fill{
		Time:         bar.Time,
		Index:        index,
		Side:         purchase,
		PositionSide: side,
		Quantity:     quantity,
		Price:        bar.Close,
		Reason:       types.FillReasonEntry,
	}, nil
}

// CheckExit closes the position when the bar reaches the stop-loss or take-profit level.
// When both levels are reached on the same bar the stop-loss wins. It returns None when flat
// or when neither level is reached.
func (m *StateMachine) CheckExit(bar types.Bar, index int) optional.Option[Exit] {
	if m.IsFlat() {
		return optional.None[Exit]()
	}

	reason, price, ok := m.exitTrigger(bar)
	if !ok {
		return optional.None[Exit]()
	}

	return optional.Some(m.close(bar, index, reason, price))
}

// Mark returns the unrealized pnl of the open position at the bar close, zero when flat.
func (m *StateMachine) Mark(bar types.Bar) float64 {
	return m.position.PnLAt(bar.Close)
}

// levels returns the stop-loss and take-profit prices of the open position.
func (m *StateMachine) levels() (stop, target float64) {
	entry := decimal.NewFromFloat(m.position.EntryPrice)
	point := decimal.NewFromFloat(m.config.PointSize)
	sl := decimal.NewFromFloat(m.config.StopLossPoints).Mul(point)
	tp := decimal.NewFromFloat(m.config.TakeProfitPoints).Mul(point)

	if m.position.Side == types.PositionSideLong {
		stop, _ = entry.Sub(sl).Float64()
		target, _ = entry.Add(tp).Float64()
	} else {
		stop, _ = entry.Add(sl).Float64()
		target, _ = entry.Sub(tp).Float64()
	}

	return stop, target
}

func (m *StateMachine) exitTrigger(bar types.Bar) (types.ExitReason, float64, bool) {
	stop, target := m.levels()
	long := m.position.Side == types.PositionSideLong

	var stopHit, targetHit bool

	switch m.config.ExitMode {
	case ExitModeRange:
		if long {
			stopHit, targetHit = bar.Low <= stop, bar.High >= target
		} else {
			stopHit, targetHit = bar.High >= stop, bar.Low <= target
		}

		switch {
		case stopHit:
			return types.ExitReasonStopLoss, stop, true
		case targetHit:
			return types.ExitReasonTakeProfit, target, true
		}
	default:
		if long {
			stopHit, targetHit = bar.Close <= stop, bar.Close >= target
		} else {
			stopHit, targetHit = bar.Close >= stop, bar.Close <= target
		}

		switch {
		case stopHit:
			return types.ExitReasonStopLoss, bar.Close, true
		case targetHit:
			return types.ExitReasonTakeProfit, bar.Close, true
		}
	}

	return "", 0, false
}

func (m *StateMachine) close(bar types.Bar, index int, reason types.ExitReason, price float64) Exit {
	m.tradeID++

	position := m.position
	trade := types.Trade{
		ID:         m.tradeID,
		Side:       position.Side,
		EntryTime:  position.EntryTime,
		ExitTime:   bar.Time,
		EntryIndex: position.EntryIndex,
		ExitIndex:  index,
		EntryPrice: position.EntryPrice,
		ExitPrice:  price,
		Stake:      position.Stake,
		Quantity:   position.Quantity,
		PnL:        position.PnLAt(price),
		ExitReason: reason,
	}

	purchase := types.PurchaseTypeSell
	if position.Side == types.PositionSideShort {
		purchase = types.PurchaseTypeBuy
	}

	fill := types.Fill{
		Time:         bar.Time,
		Index:        index,
		Side:         purchase,
		PositionSide: position.Side,
		Quantity:     position.Quantity,
		Price:        price,
		Reason:       string(reason),
	}

	m.position = types.Position{Side: types.PositionSideFlat}
	m.staking = nextStaking(m.staking, reason, m.config.MartingaleMultiplier, m.config.MaxMartingaleLevels)

	return Exit{Trade: trade, Fill: fill}
}
