package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-hybrid/internal/types"
)

// DataGenerator generates realistic bar series for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical move per bar)
	Volatility float64
	// Trend is the drift factor (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration, roughly an hour of gold prices
// on a 1 minute timeframe.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          10000,
		InitialPrice:   2000.0,
		Volatility:     0.002, // 0.2% per bar
		Trend:          0.0,   // neutral
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates a bar series based on the configuration.
// The generated data follows a geometric Brownian motion model for realistic price movements.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normal sample
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(1-u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Bar{
			Time:   currentTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: roundToDecimals(volume, 2),
		}

		currentPrice = bars[i].Close
		currentTime = currentTime.Add(config.Interval)
	}

	return bars
}

// Generate10K is a convenience function to generate 10,000 bars
// with default settings for benchmarking.
func Generate10K() []types.Bar {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Count = 10000

	return gen.Generate(config)
}

// BarsFromCloses builds one bar per close, one minute apart starting at StartTime of the
// default config. Each bar opens at the previous close and its range extends spread beyond
// the open/close body on both sides.
func BarsFromCloses(closes []float64, spread float64) []types.Bar {
	config := DefaultConfig()
	bars := make([]types.Bar, len(closes))
	currentTime := config.StartTime

	for i, close := range closes {
		open := close
		if i > 0 {
			open = closes[i-1]
		}

		bars[i] = types.Bar{
			Time:   currentTime,
			Open:   open,
			High:   math.Max(open, close) + spread,
			Low:    math.Min(open, close) - spread,
			Close:  close,
			Volume: config.VolumeBase,
		}

		currentTime = currentTime.Add(config.Interval)
	}

	return bars
}

// FlatBars returns count identical bars closing at price with no range.
func FlatBars(count int, price float64) []types.Bar {
	closes := make([]float64, count)
	for i := range closes {
		closes[i] = price
	}

	return BarsFromCloses(closes, 0)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
