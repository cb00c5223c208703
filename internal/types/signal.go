package types

import "time"

type SignalType string

const (
	// SignalTypeBuyLong tells the position state machine to open a long position
	SignalTypeBuyLong SignalType = "buy_long"
	// SignalTypeSellShort tells the position state machine to open a short position
	SignalTypeSellShort SignalType = "sell_short"
	// SignalTypeNoAction means no entry on this bar
	SignalTypeNoAction SignalType = "no_action"
)

type Signal struct {
	// Time is the time of the bar the signal was evaluated on
	Time time.Time
	// Index is the bar index the signal was evaluated on
	Index int
	// Type is the type of the signal
	Type SignalType
	// Reason is a human readable explanation of which condition fired
	Reason string
	// RawValue holds the indicator values the decision was based on
	RawValue map[string]float64
}

// IsEntry reports whether the signal opens a position.
func (s Signal) IsEntry() bool {
	return s.Type == SignalTypeBuyLong || s.Type == SignalTypeSellShort
}
