package datasource

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// AllIntervals lists the supported resampling intervals.
var AllIntervals = []any{
	Interval1m, Interval5m, Interval15m, Interval30m, Interval1h, Interval4h,
	Interval6h, Interval8h, Interval12h, Interval1d, Interval1w,
}

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval6h:  6 * time.Hour,
	Interval8h:  8 * time.Hour,
	Interval12h: 12 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval1w:  7 * 24 * time.Hour,
}

// Duration returns the bucket size of the interval.
func (i Interval) Duration() (time.Duration, error) {
	d, ok := intervalDurations[i]
	if !ok {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported interval: %s", i)
	}

	return d, nil
}

// Format is the file format of a bar data file.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// DetectFormat returns the format of a data file from its extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", errors.Newf(errors.ErrCodeUnsupportedFormat, "unsupported data file %s, expected .csv or .parquet", path)
	}
}

// ReadOptions restricts and resamples the bars returned by ReadAll.
type ReadOptions struct {
	Start optional.Option[time.Time]
	End   optional.Option[time.Time]
	// Interval aggregates bars into buckets of this size. None keeps the file's bars.
	Interval optional.Option[Interval]
}

// DataSource supplies the bar series of a simulation run.
type DataSource interface {
	// Initialize loads the data file at path, replacing any previously loaded data
	Initialize(path string) error
	// ReadAll reads the bars in ascending time order and yields them to the caller
	ReadAll(options ReadOptions) func(yield func(types.Bar, error) bool)
	// Count returns the number of bars ReadAll would yield
	Count(options ReadOptions) (int, error)
	// Close closes the data source and releases any resources
	Close() error
}

// Collect reads every bar from the data source.
func Collect(source DataSource, options ReadOptions) ([]types.Bar, error) {
	bars := make([]types.Bar, 0)

	for bar, err := range source.ReadAll(options) {
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	return bars, nil
}
