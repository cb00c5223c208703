package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

// ATR represents the Average True Range indicator using Wilder's smoothing.
type ATR struct {
	period    int
	prevClose optional.Option[float64]
	avgTR     wilderState
}

// NewATR creates a new ATR indicator with default configuration.
func NewATR() Indicator {
	atr := &ATR{
		period: 14, // Default period
	}
	atr.Reset()

	return atr
}

// Name returns the name of the indicator.
func (a *ATR) Name() types.IndicatorType {
	return types.IndicatorTypeATR
}

// Config configures the ATR indicator. Expected parameters: period (int).
func (a *ATR) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := periodParam("period", params[0])
	if err != nil {
		return err
	}

	a.period = period
	a.Reset()

	return nil
}

// Lookback implements Indicator. True range needs the previous close.
func (a *ATR) Lookback() int {
	return a.period + 1
}

// Outputs implements Indicator.
func (a *ATR) Outputs() []string {
	return []string{string(types.IndicatorTypeATR)}
}

// Update implements Indicator.
func (a *ATR) Update(bar types.Bar) []optional.Option[float64] {
	if a.prevClose.IsNone() {
		a.prevClose = optional.Some(bar.Close)

		return single(optional.None[float64]())
	}

	tr := trueRange(bar, a.prevClose.Unwrap())
	a.prevClose = optional.Some(bar.Close)

	return single(a.avgTR.update(tr))
}

// Reset implements Indicator.
func (a *ATR) Reset() {
	a.prevClose = optional.None[float64]()
	a.avgTR = newWilderState(a.period)
}

// trueRange is the largest of the bar's range and the gaps from the previous close.
func trueRange(bar types.Bar, prevClose float64) float64 {
	return math.Max(
		bar.High-bar.Low,
		math.Max(
			math.Abs(bar.High-prevClose),
			math.Abs(bar.Low-prevClose),
		),
	)
}
