package datasource

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

// InMemoryDataSource serves preloaded bar series keyed by path. It behaves like the DuckDB
// source without touching the filesystem, and is used by tests and parameter sweeps that
// reuse one series many times.
type InMemoryDataSource struct {
	datasets map[string][]types.Bar
	current  []types.Bar
	loaded   bool
	mu       sync.RWMutex
}

// NewInMemoryDataSource creates a data source over the given datasets. The bars are copied.
func NewInMemoryDataSource(datasets map[string][]types.Bar) *InMemoryDataSource {
	copied := make(map[string][]types.Bar, len(datasets))
	for path, bars := range datasets {
		copied[path] = append([]types.Bar(nil), bars...)
	}

	return &InMemoryDataSource{
		datasets: copied,
		current:  nil,
		loaded:   false,
		mu:       sync.RWMutex{},
	}
}

// Add registers a dataset under path, replacing any previous one.
func (ds *InMemoryDataSource) Add(path string, bars []types.Bar) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.datasets[path] = append([]types.Bar(nil), bars...)
}

// Initialize implements DataSource.
func (ds *InMemoryDataSource) Initialize(path string) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	bars, ok := ds.datasets[path]
	if !ok {
		return errors.Newf(errors.ErrCodeDataNotFound, "no bars registered for %s", path)
	}

	ds.current = bars
	ds.loaded = true

	return nil
}

// Count implements DataSource.
func (ds *InMemoryDataSource) Count(options ReadOptions) (int, error) {
	bars, err := ds.selectBars(options)
	if err != nil {
		return 0, err
	}

	return len(bars), nil
}

// ReadAll implements DataSource.
func (ds *InMemoryDataSource) ReadAll(options ReadOptions) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		bars, err := ds.selectBars(options)
		if err != nil {
			yield(types.Bar{}, err)

			return
		}

		for _, bar := range bars {
			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Close implements DataSource.
func (ds *InMemoryDataSource) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.current = nil
	ds.loaded = false

	return nil
}

func (ds *InMemoryDataSource) selectBars(options ReadOptions) ([]types.Bar, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	if !ds.loaded {
		return nil, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	selected := make([]types.Bar, 0, len(ds.current))

	for _, bar := range ds.current {
		if options.Start.IsSome() && bar.Time.Before(options.Start.Unwrap()) {
			continue
		}

		if options.End.IsSome() && bar.Time.After(options.End.Unwrap()) {
			continue
		}

		selected = append(selected, bar)
	}

	if options.Interval.IsNone() {
		return selected, nil
	}

	size, err := options.Interval.Unwrap().Duration()
	if err != nil {
		return nil, err
	}

	return resample(selected, size), nil
}

// resample aggregates time-ordered bars into buckets aligned to multiples of size since the
// zero time, which puts daily buckets on UTC midnight and weekly buckets on Mondays.
func resample(bars []types.Bar, size time.Duration) []types.Bar {
	result := make([]types.Bar, 0)

	for _, bar := range bars {
		bucket := bar.Time.UTC().Truncate(size)

		if len(result) == 0 || !result[len(result)-1].Time.Equal(bucket) {
			result = append(result, types.Bar{
				Time:   bucket,
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: bar.Volume,
			})

			continue
		}

		last := &result[len(result)-1]
		last.High = max(last.High, bar.High)
		last.Low = min(last.Low, bar.Low)
		last.Close = bar.Close
		last.Volume += bar.Volume
	}

	return result
}

var _ DataSource = (*InMemoryDataSource)(nil)
