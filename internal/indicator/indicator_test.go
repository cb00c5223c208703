package indicator

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/mocks"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

// expectSeries compares the first output of an indicator against expected values,
// where nil means undefined.
func (suite *IndicatorTestSuite) expectSeries(indicator Indicator, bars []types.Bar, expected []*float64) {
	suite.Require().Len(bars, len(expected))

	for i, bar := range bars {
		value := indicator.Update(bar)[0]
		if expected[i] == nil {
			suite.True(value.IsNone(), "index %d should be undefined", i)

			continue
		}

		suite.Require().True(value.IsSome(), "index %d should be defined", i)
		suite.InDelta(*expected[i], value.Unwrap(), 1e-9, "index %d", i)
	}
}

func f(v float64) *float64 {
	return &v
}

func (suite *IndicatorTestSuite) TestMA() {
	ma := NewMA()
	suite.Require().NoError(ma.Config(3))
	suite.Equal(3, ma.Lookback())

	bars := mocks.BarsFromCloses([]float64{1, 2, 3, 4, 5, 9}, 0)
	suite.expectSeries(ma, bars, []*float64{nil, nil, f(2), f(3), f(4), f(6)})
}

func (suite *IndicatorTestSuite) TestEMA() {
	ema := NewEMA()
	suite.Require().NoError(ema.Config(3))
	suite.Equal(3, ema.Lookback())

	// seeded with the SMA of the first three closes, then alpha = 0.5
	bars := mocks.BarsFromCloses([]float64{1, 2, 3, 10, 4}, 0)
	suite.expectSeries(ema, bars, []*float64{nil, nil, f(2), f(6), f(5)})
}

func (suite *IndicatorTestSuite) TestRSI() {
	tests := []struct {
		name     string
		period   int
		closes   []float64
		expected []*float64
	}{
		{
			name:     "alternating closes use wilder smoothing",
			period:   2,
			closes:   []float64{10, 11, 10, 11, 10},
			expected: []*float64{nil, nil, f(50), f(75), f(37.5)},
		},
		{
			name:     "only gains",
			period:   3,
			closes:   []float64{10, 11, 12, 13},
			expected: []*float64{nil, nil, nil, f(100)},
		},
		{
			name:     "flat market",
			period:   3,
			closes:   []float64{10, 10, 10, 10, 10},
			expected: []*float64{nil, nil, nil, f(50), f(50)},
		},
		{
			name:     "only losses",
			period:   2,
			closes:   []float64{13, 12, 11},
			expected: []*float64{nil, nil, f(0)},
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			rsi := NewRSI()
			suite.Require().NoError(rsi.Config(tc.period))
			suite.Equal(tc.period+1, rsi.Lookback())
			suite.expectSeries(rsi, mocks.BarsFromCloses(tc.closes, 0), tc.expected)
		})
	}
}

func (suite *IndicatorTestSuite) TestATR() {
	atr := NewATR()
	suite.Require().NoError(atr.Config(2))
	suite.Equal(3, atr.Lookback())

	bars := []types.Bar{
		{Open: 10, High: 11, Low: 9, Close: 10},
		{Open: 11, High: 12, Low: 10, Close: 11},     // TR 2
		{Open: 14, High: 15, Low: 11, Close: 14},     // TR 4
		{Open: 13.5, High: 14, Low: 13, Close: 13.5}, // TR 1 from the gap to the previous close
	}

	suite.expectSeries(atr, bars, []*float64{nil, nil, f(3), f(2)})
}

func (suite *IndicatorTestSuite) TestMACD() {
	macd := NewMACD()
	suite.Require().NoError(macd.Config(2, 3, 2))
	suite.Equal(4, macd.Lookback())
	suite.Equal([]string{MACDOutputLine, MACDOutputSignal, MACDOutputHistogram}, macd.Outputs())

	// on a linear ramp the fast EMA trails by 0.5 and the slow EMA by 1
	bars := mocks.BarsFromCloses([]float64{1, 2, 3, 4, 5, 6}, 0)

	var values [][]optional.Option[float64]
	for _, bar := range bars {
		values = append(values, macd.Update(bar))
	}

	suite.True(values[1][0].IsNone())
	suite.InDelta(0.5, values[2][0].Unwrap(), 1e-9)
	suite.True(values[2][1].IsNone())
	suite.True(values[2][2].IsNone())

	for i := 3; i < len(values); i++ {
		suite.InDelta(0.5, values[i][0].Unwrap(), 1e-9)
		suite.InDelta(0.5, values[i][1].Unwrap(), 1e-9)
		suite.InDelta(0.0, values[i][2].Unwrap(), 1e-9)
	}
}

func (suite *IndicatorTestSuite) TestConfigErrors() {
	tests := []struct {
		name      string
		indicator Indicator
		params    []any
		code      errors.ErrorCode
	}{
		{name: "ma without params", indicator: NewMA(), params: nil, code: errors.ErrCodeMissingParameter},
		{name: "ma zero period", indicator: NewMA(), params: []any{0}, code: errors.ErrCodeInvalidPeriod},
		{name: "ema negative period", indicator: NewEMA(), params: []any{-3}, code: errors.ErrCodeInvalidPeriod},
		{name: "rsi string period", indicator: NewRSI(), params: []any{"14"}, code: errors.ErrCodeInvalidType},
		{name: "atr fractional period", indicator: NewATR(), params: []any{2.5}, code: errors.ErrCodeInvalidType},
		{name: "macd two params", indicator: NewMACD(), params: []any{12, 26}, code: errors.ErrCodeMissingParameter},
		{name: "macd fast not below slow", indicator: NewMACD(), params: []any{26, 12, 9}, code: errors.ErrCodeInvalidPeriod},
		{name: "macd zero signal", indicator: NewMACD(), params: []any{12, 26, 0}, code: errors.ErrCodeInvalidPeriod},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			err := tc.indicator.Config(tc.params...)
			suite.Error(err)
			suite.Equal(tc.code, errors.GetCode(err))
			suite.True(errors.IsConfigurationError(err))
		})
	}
}

func (suite *IndicatorTestSuite) TestConfigAcceptsIntegralFloats() {
	ema := NewEMA()
	suite.NoError(ema.Config(21.0))
	suite.Equal(21, ema.Lookback())
}

func (suite *IndicatorTestSuite) TestDefaults() {
	suite.Equal(20, NewMA().Lookback())
	suite.Equal(20, NewEMA().Lookback())
	suite.Equal(15, NewRSI().Lookback())
	suite.Equal(15, NewATR().Lookback())
	suite.Equal(34, NewMACD().Lookback())
}

func (suite *IndicatorTestSuite) TestResetRestartsWarmUp() {
	for _, factory := range []Factory{NewMA, NewEMA, NewRSI, NewATR, NewMACD} {
		indicator := factory()
		suite.Require().NoError(indicator.Config(map[types.IndicatorType][]any{
			types.IndicatorTypeMA:   {3},
			types.IndicatorTypeEMA:  {3},
			types.IndicatorTypeRSI:  {3},
			types.IndicatorTypeATR:  {3},
			types.IndicatorTypeMACD: {2, 3, 2},
		}[indicator.Name()]...))

		bars := mocks.Generate10K()[:20]

		first := make([][]optional.Option[float64], 0, len(bars))
		for _, bar := range bars {
			first = append(first, indicator.Update(bar))
		}

		indicator.Reset()

		for i, bar := range bars {
			suite.Equal(first[i], indicator.Update(bar), "%s index %d", indicator.Name(), i)
		}
	}
}

func (suite *IndicatorTestSuite) TestWarmUpMatchesLookback() {
	bars := mocks.Generate10K()[:100]

	for _, factory := range []Factory{NewMA, NewEMA, NewRSI, NewATR, NewMACD} {
		indicator := factory()
		lookback := indicator.Lookback()

		for i, bar := range bars {
			values := indicator.Update(bar)
			last := values[len(values)-1]

			if i < lookback-1 {
				suite.True(last.IsNone(), "%s index %d", indicator.Name(), i)
			} else {
				suite.True(last.IsSome(), "%s index %d", indicator.Name(), i)
			}
		}
	}
}
