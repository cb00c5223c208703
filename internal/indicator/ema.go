package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

// EMA indicator implements Exponential Moving Average calculation over closes.
type EMA struct {
	period int
	state  emaState
}

// NewEMA creates a new EMA indicator with default configuration.
func NewEMA() Indicator {
	return &EMA{
		period: 20, // Default period
		state:  newEMAState(20),
	}
}

// Name returns the name of the indicator.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Config configures the EMA indicator. Expected parameters: period (int).
func (e *EMA) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := periodParam("period", params[0])
	if err != nil {
		return err
	}

	e.period = period
	e.Reset()

	return nil
}

// Lookback implements Indicator.
func (e *EMA) Lookback() int {
	return e.period
}

// Outputs implements Indicator.
func (e *EMA) Outputs() []string {
	return []string{string(types.IndicatorTypeEMA)}
}

// Update implements Indicator.
// The first value is the SMA of the first period closes, then
// EMA = close * alpha + EMA_prev * (1 - alpha) with alpha = 2/(period+1).
func (e *EMA) Update(bar types.Bar) []optional.Option[float64] {
	return single(e.state.update(bar.Close))
}

// Reset implements Indicator.
func (e *EMA) Reset() {
	e.state = newEMAState(e.period)
}
