package types

type IndicatorType string

const (
	IndicatorTypeRSI  IndicatorType = "rsi"
	IndicatorTypeMACD IndicatorType = "macd"
	IndicatorTypeEMA  IndicatorType = "ema"
	IndicatorTypeATR  IndicatorType = "atr"
	IndicatorTypeMA   IndicatorType = "ma"
)

// AllIndicatorTypes lists every indicator kind the pipeline can build.
var AllIndicatorTypes = []any{
	IndicatorTypeMA,
	IndicatorTypeEMA,
	IndicatorTypeRSI,
	IndicatorTypeATR,
	IndicatorTypeMACD,
}
