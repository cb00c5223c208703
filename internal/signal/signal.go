// Package signal decides whether a flat position should enter long, enter short or stay flat
// on a given bar, based on the indicator series computed up to and including that bar.
package signal

import (
	"fmt"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/indicator"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
)

// IndicatorView gives read access to the indicator series by name.
// *indicator.Pipeline implements it.
type IndicatorView interface {
	Series(name string) (*indicator.Series, error)
}

// SeriesNames maps each input of the rule set to a series name in the IndicatorView.
type SeriesNames struct {
	RSI        string
	EMA        string
	ATR        string
	MACD       string
	MACDSignal string
	SMAFast    string
	SMASlow    string
}

// DefaultSeriesNames returns the names used by the simulation pipeline.
func DefaultSeriesNames() SeriesNames {
	return SeriesNames{
		RSI:        "rsi",
		EMA:        "ema",
		ATR:        "atr",
		MACD:       "macd." + indicator.MACDOutputLine,
		MACDSignal: "macd." + indicator.MACDOutputSignal,
		SMAFast:    "sma_fast",
		SMASlow:    "sma_slow",
	}
}

// Config holds the entry thresholds.
type Config struct {
	RSIOversold   float64
	RSIOverbought float64
	MinATR        float64
	UseMACDFilter bool
}

// Evaluator evaluates the entry rules. It holds no state between bars.
type Evaluator struct {
	config Config
	names  SeriesNames
}

// NewEvaluator creates an Evaluator reading the default series names.
func NewEvaluator(config Config) *Evaluator {
	return NewEvaluatorWithNames(config, DefaultSeriesNames())
}

// NewEvaluatorWithNames creates an Evaluator reading custom series names.
func NewEvaluatorWithNames(config Config, names SeriesNames) *Evaluator {
	return &Evaluator{
		config: config,
		names:  names,
	}
}

// snapshot holds the inputs for one bar. Undefined inputs stay None and make every
// condition using them false.
type snapshot struct {
	rsi         optional.Option[float64]
	ema         optional.Option[float64]
	atr         optional.Option[float64]
	macd        optional.Option[float64]
	macdSignal  optional.Option[float64]
	smaFast     optional.Option[float64]
	smaSlow     optional.Option[float64]
	prevSMAFast optional.Option[float64]
	prevSMASlow optional.Option[float64]
}

// Evaluate returns the entry decision for the bar at index. The volatility filter runs first,
// then the long rules, then the short rules; long wins when both would fire.
func (e *Evaluator) Evaluate(index int, view IndicatorView) types.Signal {
	s := e.read(index, view)

	signal := types.Signal{
		Index:    index,
		Type:     types.SignalTypeNoAction,
		Reason:   "No signal",
		RawValue: s.rawValues(),
	}

	if s.atr.IsNone() {
		signal.Reason = "ATR undefined"

		return signal
	}

	if s.atr.Unwrap() < e.config.MinATR {
		signal.Reason = fmt.Sprintf("ATR below minimum (value=%.4f, min=%.4f)", s.atr.Unwrap(), e.config.MinATR)

		return signal
	}

	if reasons := e.longReasons(s); len(reasons) > 0 {
		signal.Type = types.SignalTypeBuyLong
		signal.Reason = strings.Join(reasons, ", ")

		return signal
	}

	if reasons := e.shortReasons(s); len(reasons) > 0 {
		signal.Type = types.SignalTypeSellShort
		signal.Reason = strings.Join(reasons, ", ")

		return signal
	}

	return signal
}

func (e *Evaluator) longReasons(s snapshot) []string {
	var reasons []string

	if lessThan(s.rsi, e.config.RSIOversold) {
		reasons = append(reasons, fmt.Sprintf("RSI oversold (value=%.2f)", s.rsi.Unwrap()))
	}

	if crossedAbove(s.prevSMAFast, s.prevSMASlow, s.smaFast, s.smaSlow) {
		reasons = append(reasons, "fast SMA crossed above slow SMA")
	}

	if len(reasons) == 0 {
		return nil
	}

	if e.config.UseMACDFilter {
		if !greater(s.macd, s.macdSignal) {
			return nil
		}

		reasons = append(reasons, "MACD above signal")
	}

	return reasons
}

func (e *Evaluator) shortReasons(s snapshot) []string {
	var reasons []string

	if greaterThan(s.rsi, e.config.RSIOverbought) {
		reasons = append(reasons, fmt.Sprintf("RSI overbought (value=%.2f)", s.rsi.Unwrap()))
	}

	if crossedBelow(s.prevSMAFast, s.prevSMASlow, s.smaFast, s.smaSlow) {
		reasons = append(reasons, "fast SMA crossed below slow SMA")
	}

	if len(reasons) == 0 {
		return nil
	}

	if e.config.UseMACDFilter {
		if !greater(s.macdSignal, s.macd) {
			return nil
		}

		reasons = append(reasons, "MACD below signal")
	}

	return reasons
}

func (e *Evaluator) read(index int, view IndicatorView) snapshot {
	at := func(name string, i int) optional.Option[float64] {
		series, err := view.Series(name)
		if err != nil {
			return optional.None[float64]()
		}

		return series.At(i)
	}

	return snapshot{
		rsi:         at(e.names.RSI, index),
		ema:         at(e.names.EMA, index),
		atr:         at(e.names.ATR, index),
		macd:        at(e.names.MACD, index),
		macdSignal:  at(e.names.MACDSignal, index),
		smaFast:     at(e.names.SMAFast, index),
		smaSlow:     at(e.names.SMASlow, index),
		prevSMAFast: at(e.names.SMAFast, index-1),
		prevSMASlow: at(e.names.SMASlow, index-1),
	}
}

func (s snapshot) rawValues() map[string]float64 {
	values := make(map[string]float64)

	for name, value := range map[string]optional.Option[float64]{
		"rsi":         s.rsi,
		"ema":         s.ema,
		"atr":         s.atr,
		"macd":        s.macd,
		"macd_signal": s.macdSignal,
		"sma_fast":    s.smaFast,
		"sma_slow":    s.smaSlow,
	} {
		if value.IsSome() {
			values[name] = value.Unwrap()
		}
	}

	return values
}

func lessThan(value optional.Option[float64], threshold float64) bool {
	return value.IsSome() && value.Unwrap() < threshold
}

func greaterThan(value optional.Option[float64], threshold float64) bool {
	return value.IsSome() && value.Unwrap() > threshold
}

func greater(a, b optional.Option[float64]) bool {
	return a.IsSome() && b.IsSome() && a.Unwrap() > b.Unwrap()
}

// crossedAbove reports fast <= slow on the previous bar and fast > slow on the current one.
func crossedAbove(prevFast, prevSlow, fast, slow optional.Option[float64]) bool {
	if prevFast.IsNone() || prevSlow.IsNone() || fast.IsNone() || slow.IsNone() {
		return false
	}

	return prevFast.Unwrap() <= prevSlow.Unwrap() && fast.Unwrap() > slow.Unwrap()
}

// crossedBelow reports fast >= slow on the previous bar and fast < slow on the current one.
func crossedBelow(prevFast, prevSlow, fast, slow optional.Option[float64]) bool {
	if prevFast.IsNone() || prevSlow.IsNone() || fast.IsNone() || slow.IsNone() {
		return false
	}

	return prevFast.Unwrap() >= prevSlow.Unwrap() && fast.Unwrap() < slow.Unwrap()
}
