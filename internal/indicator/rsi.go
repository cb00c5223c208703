package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

// RSI represents the Relative Strength Index indicator using Wilder's smoothing.
type RSI struct {
	period    int
	prevClose optional.Option[float64]
	avgGain   wilderState
	avgLoss   wilderState
}

// NewRSI creates a new RSI indicator with default configuration.
func NewRSI() Indicator {
	rsi := &RSI{
		period: 14, // Default period
	}
	rsi.Reset()

	return rsi
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Config configures the RSI indicator. Expected parameters: period (int).
func (r *RSI) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := periodParam("period", params[0])
	if err != nil {
		return err
	}

	r.period = period
	r.Reset()

	return nil
}

// Lookback implements Indicator. The first bar has no price change.
func (r *RSI) Lookback() int {
	return r.period + 1
}

// Outputs implements Indicator.
func (r *RSI) Outputs() []string {
	return []string{string(types.IndicatorTypeRSI)}
}

// Update implements Indicator.
func (r *RSI) Update(bar types.Bar) []optional.Option[float64] {
	if r.prevClose.IsNone() {
		r.prevClose = optional.Some(bar.Close)

		return single(optional.None[float64]())
	}

	change := bar.Close - r.prevClose.Unwrap()
	r.prevClose = optional.Some(bar.Close)

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	avgGain := r.avgGain.update(gain)
	avgLoss := r.avgLoss.update(loss)

	if avgGain.IsNone() || avgLoss.IsNone() {
		return single(optional.None[float64]())
	}

	return single(optional.Some(relativeStrengthIndex(avgGain.Unwrap(), avgLoss.Unwrap())))
}

// Reset implements Indicator.
func (r *RSI) Reset() {
	r.prevClose = optional.None[float64]()
	r.avgGain = newWilderState(r.period)
	r.avgLoss = newWilderState(r.period)
}

func relativeStrengthIndex(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // No movement at all
		}

		return 100 // Perfect uptrend
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}
