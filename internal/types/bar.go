package types

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

// Bar is one OHLCV price observation for a fixed time interval.
type Bar struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Validate checks the price invariants of a single bar. The index is only used for error reporting.
func (b Bar) Validate(index int) error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewDataIntegrityErrorf(errors.ErrCodeNonFiniteValue, index,
				"values must be finite (open=%g high=%g low=%g close=%g volume=%g)", b.Open, b.High, b.Low, b.Close, b.Volume)
		}
	}

	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return errors.NewDataIntegrityErrorf(errors.ErrCodeNonPositivePrice, index,
			"prices must be positive (open=%g high=%g low=%g close=%g)", b.Open, b.High, b.Low, b.Close)
	}

	if b.Volume < 0 {
		return errors.NewDataIntegrityErrorf(errors.ErrCodeNegativeVolume, index, "volume must not be negative, got %g", b.Volume)
	}

	if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
		return errors.NewDataIntegrityErrorf(errors.ErrCodeInvalidBarRange, index,
			"expected low <= open, close <= high (open=%g high=%g low=%g close=%g)", b.Open, b.High, b.Low, b.Close)
	}

	return nil
}

// ValidateBars checks every bar and that timestamps are strictly increasing.
// It fails on the first violation found.
func ValidateBars(bars []Bar) error {
	if len(bars) == 0 {
		return errors.New(errors.ErrCodeEmptyBarSeries, "bar series is empty")
	}

	for i, bar := range bars {
		if err := bar.Validate(i); err != nil {
			return err
		}

		if i > 0 && !bar.Time.After(bars[i-1].Time) {
			return errors.NewDataIntegrityErrorf(errors.ErrCodeNonIncreasingTime, i,
				"timestamp %s is not after previous timestamp %s",
				bar.Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339))
		}
	}

	return nil
}
