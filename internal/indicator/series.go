package indicator

import "github.com/moznion/go-optional"

// Series is a named, append-only sequence of indicator values aligned with the bar series
// by index. Values before the indicator's warm-up are None.
type Series struct {
	name   string
	values []optional.Option[float64]
}

// NewSeries creates an empty series.
func NewSeries(name string, capacity int) *Series {
	return &Series{
		name:   name,
		values: make([]optional.Option[float64], 0, capacity),
	}
}

// NewSeriesFromValues creates a series holding a copy of values.
func NewSeriesFromValues(name string, values []optional.Option[float64]) *Series {
	series := NewSeries(name, len(values))
	series.values = append(series.values, values...)

	return series
}

// Name returns the name of the series.
func (s *Series) Name() string {
	return s.name
}

// Len returns the number of values appended so far.
func (s *Series) Len() int {
	return len(s.values)
}

// At returns the value at index i, or None when i is out of range or still in warm-up.
func (s *Series) At(i int) optional.Option[float64] {
	if i < 0 || i >= len(s.values) {
		return optional.None[float64]()
	}

	return s.values[i]
}

// Last returns the most recent value.
func (s *Series) Last() optional.Option[float64] {
	return s.At(len(s.values) - 1)
}

// Values returns a copy of all values.
func (s *Series) Values() []optional.Option[float64] {
	values := make([]optional.Option[float64], len(s.values))
	copy(values, s.values)

	return values
}

func (s *Series) append(value optional.Option[float64]) {
	s.values = append(s.values, value)
}

func (s *Series) reset() {
	s.values = s.values[:0]
}
