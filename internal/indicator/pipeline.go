package indicator

import (
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
)

// Config describes one named indicator in a pipeline.
type Config struct {
	// Name is the series name used to read values back, e.g. "rsi" or "sma_fast"
	Name string
	// Kind selects the registered indicator implementation
	Kind types.IndicatorType
	// Params are passed to Indicator.Config. Empty keeps the indicator defaults.
	Params []any
}

type pipelineEntry struct {
	config    Config
	indicator Indicator
	outputs   []*Series
}

// Pipeline advances a fixed set of named indicators over a bar series in a single forward
// pass. Each Push appends exactly one value to every output series, so all series stay
// aligned with the bars by index.
type Pipeline struct {
	entries []pipelineEntry
	series  map[string]*Series
	bars    int
}

// NewPipeline builds a pipeline from the given configurations using the registry to
// create the indicators.
func NewPipeline(registry IndicatorRegistry, configs []Config) (*Pipeline, error) {
	pipeline := &Pipeline{
		entries: make([]pipelineEntry, 0, len(configs)),
		series:  make(map[string]*Series),
		bars:    0,
	}

	for _, config := range configs {
		if config.Name == "" {
			return nil, errors.Newf(errors.ErrCodeMissingParameter, "indicator of kind %s has no name", config.Kind)
		}

		if _, exists := pipeline.series[config.Name]; exists {
			return nil, errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %s is configured twice", config.Name)
		}

		indicator, err := registry.GetIndicator(config.Kind)
		if err != nil {
			return nil, err
		}

		if len(config.Params) > 0 {
			if err := indicator.Config(config.Params...); err != nil {
				return nil, errors.Wrapf(errors.GetCode(err), err, "failed to configure indicator %s", config.Name)
			}
		}

		entry := pipelineEntry{
			config:    config,
			indicator: indicator,
			outputs:   make([]*Series, 0, len(indicator.Outputs())),
		}

		outputs := indicator.Outputs()
		for i, output := range outputs {
			name := config.Name
			if len(outputs) > 1 {
				name = config.Name + "." + output
			}

			series := NewSeries(name, 0)
			entry.outputs = append(entry.outputs, series)
			pipeline.series[name] = series

			// the bare name reads the first output of a multi-output indicator
			if i == 0 && name != config.Name {
				pipeline.series[config.Name] = series
			}
		}

		pipeline.entries = append(pipeline.entries, entry)
	}

	return pipeline, nil
}

// Lookback returns the largest lookback across all indicators.
func (p *Pipeline) Lookback() int {
	lookback := 0

	for _, entry := range p.entries {
		if l := entry.indicator.Lookback(); l > lookback {
			lookback = l
		}
	}

	return lookback
}

// Validate checks that barCount bars are enough to warm up every indicator.
func (p *Pipeline) Validate(barCount int) error {
	for _, entry := range p.entries {
		lookback := entry.indicator.Lookback()
		if lookback > barCount {
			return &errors.InsufficientDataError{
				Required:  lookback,
				Actual:    barCount,
				Indicator: entry.config.Name,
				Message:   "period exceeds the number of bars",
			}
		}
	}

	return nil
}

// Push feeds the next bar to every indicator.
func (p *Pipeline) Push(bar types.Bar) {
	for _, entry := range p.entries {
		values := entry.indicator.Update(bar)
		for i, series := range entry.outputs {
			series.append(values[i])
		}
	}

	p.bars++
}

// Run pushes every bar in order.
func (p *Pipeline) Run(bars []types.Bar) {
	for _, bar := range bars {
		p.Push(bar)
	}
}

// Len returns the number of bars pushed so far.
func (p *Pipeline) Len() int {
	return p.bars
}

// Series returns the named series. Multi-output indicators expose "name.output" series
// and "name" for their first output.
func (p *Pipeline) Series(name string) (*Series, error) {
	series, exists := p.series[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeSeriesNotFound, "series %s not found", name)
	}

	return series, nil
}

// SeriesNames returns the names of all output series in configuration order.
func (p *Pipeline) SeriesNames() []string {
	names := make([]string, 0, len(p.series))

	for _, entry := range p.entries {
		for _, series := range entry.outputs {
			names = append(names, series.Name())
		}
	}

	return names
}

// Reset clears every indicator and series so the pipeline can process a new bar series.
func (p *Pipeline) Reset() {
	for _, entry := range p.entries {
		entry.indicator.Reset()

		for _, series := range entry.outputs {
			series.reset()
		}
	}

	p.bars = 0
}

// Compute runs a single indicator over the bars and returns its first output series.
func Compute(registry IndicatorRegistry, kind types.IndicatorType, bars []types.Bar, params ...any) (*Series, error) {
	pipeline, err := NewPipeline(registry, []Config{{Name: string(kind), Kind: kind, Params: params}})
	if err != nil {
		return nil, err
	}

	if err := pipeline.Validate(len(bars)); err != nil {
		return nil, err
	}

	pipeline.Run(bars)

	return pipeline.Series(string(kind))
}
