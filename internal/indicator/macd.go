package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

const (
	// MACDOutputLine is the fast EMA minus the slow EMA
	MACDOutputLine = "macd"
	// MACDOutputSignal is the EMA of the MACD line
	MACDOutputSignal = "signal"
	// MACDOutputHistogram is the MACD line minus the signal line
	MACDOutputHistogram = "histogram"
)

// MACD represents the Moving Average Convergence Divergence indicator.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
	fast         emaState
	slow         emaState
	signal       emaState
}

// NewMACD creates a new MACD indicator with default configuration.
func NewMACD() Indicator {
	macd := &MACD{
		fastPeriod:   12, // Default fast period
		slowPeriod:   26, // Default slow period
		signalPeriod: 9,  // Default signal period
	}
	macd.Reset()

	return macd
}

// Name returns the name of the indicator.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// Config configures the MACD indicator. Expected parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int).
func (m *MACD) Config(params ...any) error {
	if len(params) != 3 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 3 parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int)")
	}

	fastPeriod, err := periodParam("fastPeriod", params[0])
	if err != nil {
		return err
	}

	slowPeriod, err := periodParam("slowPeriod", params[1])
	if err != nil {
		return err
	}

	signalPeriod, err := periodParam("signalPeriod", params[2])
	if err != nil {
		return err
	}

	if fastPeriod >= slowPeriod {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "fastPeriod must be less than slowPeriod, got %d and %d", fastPeriod, slowPeriod)
	}

	m.fastPeriod = fastPeriod
	m.slowPeriod = slowPeriod
	m.signalPeriod = signalPeriod
	m.Reset()

	return nil
}

// Lookback implements Indicator. The signal line needs signalPeriod MACD values,
// the first of which appears once the slow EMA is seeded.
func (m *MACD) Lookback() int {
	return m.slowPeriod + m.signalPeriod - 1
}

// Outputs implements Indicator.
func (m *MACD) Outputs() []string {
	return []string{MACDOutputLine, MACDOutputSignal, MACDOutputHistogram}
}

// Update implements Indicator.
func (m *MACD) Update(bar types.Bar) []optional.Option[float64] {
	fastValue := m.fast.update(bar.Close)
	slowValue := m.slow.update(bar.Close)

	if fastValue.IsNone() || slowValue.IsNone() {
		return []optional.Option[float64]{optional.None[float64](), optional.None[float64](), optional.None[float64]()}
	}

	line := fastValue.Unwrap() - slowValue.Unwrap()

	signalValue := m.signal.update(line)
	if signalValue.IsNone() {
		return []optional.Option[float64]{optional.Some(line), optional.None[float64](), optional.None[float64]()}
	}

	signal := signalValue.Unwrap()

	return []optional.Option[float64]{optional.Some(line), optional.Some(signal), optional.Some(line - signal)}
}

// Reset implements Indicator.
func (m *MACD) Reset() {
	m.fast = newEMAState(m.fastPeriod)
	m.slow = newEMAState(m.slowPeriod)
	m.signal = newEMAState(m.signalPeriod)
}
