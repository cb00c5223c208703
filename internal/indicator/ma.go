package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

// MA indicator implements Simple Moving Average calculation over closes.
type MA struct {
	period int
	window []float64
	next   int
	count  int
	sum    float64
}

// NewMA creates a new MA indicator with default configuration.
func NewMA() Indicator {
	ma := &MA{
		period: 20, // Default period
	}
	ma.Reset()

	return ma
}

// Name returns the name of the indicator.
func (m *MA) Name() types.IndicatorType {
	return types.IndicatorTypeMA
}

// Config configures the MA indicator. Expected parameters: period (int).
func (m *MA) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := periodParam("period", params[0])
	if err != nil {
		return err
	}

	m.period = period
	m.Reset()

	return nil
}

// Lookback implements Indicator.
func (m *MA) Lookback() int {
	return m.period
}

// Outputs implements Indicator.
func (m *MA) Outputs() []string {
	return []string{string(types.IndicatorTypeMA)}
}

// Update implements Indicator. The window is a ring buffer so each bar costs O(1).
func (m *MA) Update(bar types.Bar) []optional.Option[float64] {
	if m.count == m.period {
		m.sum -= m.window[m.next]
	} else {
		m.count++
	}

	m.window[m.next] = bar.Close
	m.sum += bar.Close
	m.next = (m.next + 1) % m.period

	if m.count < m.period {
		return single(optional.None[float64]())
	}

	return single(optional.Some(m.sum / float64(m.period)))
}

// Reset implements Indicator.
func (m *MA) Reset() {
	m.window = make([]float64, m.period)
	m.next = 0
	m.count = 0
	m.sum = 0
}
