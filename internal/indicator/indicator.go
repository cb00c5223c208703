package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

// Indicator is an incremental technical indicator. Each call to Update consumes the next bar
// of the series and returns the indicator values for that bar, so the value at index i only
// depends on bars[0..i] and the state carried forward from previous bars.
type Indicator interface {
	// Name returns the kind of the indicator
	Name() types.IndicatorType
	// Config configures the indicator periods. It resets any carried state.
	Config(params ...any) error
	// Lookback returns the number of bars consumed before the first defined value
	Lookback() int
	// Outputs names the values returned by Update, in order
	Outputs() []string
	// Update feeds the next bar and returns one value per output, None during warm-up
	Update(bar types.Bar) []optional.Option[float64]
	// Reset clears the carried state, keeping the configuration
	Reset()
}

// emaState carries an exponential moving average seeded by the simple average of the
// first period inputs, with smoothing factor alpha = 2/(period+1).
type emaState struct {
	period  int
	alpha   float64
	count   int
	seedSum float64
	value   float64
}

func newEMAState(period int) emaState {
	return emaState{
		period:  period,
		alpha:   2.0 / float64(period+1),
		count:   0,
		seedSum: 0,
		value:   0,
	}
}

func (s *emaState) update(x float64) optional.Option[float64] {
	s.count++

	switch {
	case s.count < s.period:
		s.seedSum += x

		return optional.None[float64]()
	case s.count == s.period:
		s.seedSum += x
		s.value = s.seedSum / float64(s.period)
	default:
		s.value = (x * s.alpha) + (s.value * (1 - s.alpha))
	}

	return optional.Some(s.value)
}

// wilderState carries Wilder's smoothed average: the first value is the simple average of
// the first period inputs, then avg = (avg*(period-1) + x) / period.
type wilderState struct {
	period  int
	count   int
	seedSum float64
	value   float64
}

func newWilderState(period int) wilderState {
	return wilderState{period: period, count: 0, seedSum: 0, value: 0}
}

func (s *wilderState) update(x float64) optional.Option[float64] {
	s.count++

	switch {
	case s.count < s.period:
		s.seedSum += x

		return optional.None[float64]()
	case s.count == s.period:
		s.seedSum += x
		s.value = s.seedSum / float64(s.period)
	default:
		s.value = (s.value*float64(s.period-1) + x) / float64(s.period)
	}

	return optional.Some(s.value)
}

func single(value optional.Option[float64]) []optional.Option[float64] {
	return []optional.Option[float64]{value}
}

// periodParam reads a period from a Config parameter. YAML and JSON decoding produce
// float64 for numbers, so integral floats are accepted as well as ints.
func periodParam(name string, value any) (int, error) {
	var period int

	switch p := value.(type) {
	case int:
		period = p
	case float64:
		if p != float64(int(p)) {
			return 0, errors.Newf(errors.ErrCodeInvalidType, "invalid value for %s parameter, expected an integer, got %g", name, p)
		}

		period = int(p)
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidType, "invalid type for %s parameter, expected int", name)
	}

	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "%s must be a positive integer, got %d", name, period)
	}

	return period, nil
}
