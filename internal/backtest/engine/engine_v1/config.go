package engine

import (
	"encoding/json"
	"os"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-hybrid/internal/backtest/engine/engine_v1/datasource"
)

type BacktestEngineV1Config struct {
	StartTime optional.Option[time.Time]           `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start time of the simulated bar range"`
	EndTime   optional.Option[time.Time]           `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end time of the simulated bar range"`
	Interval  optional.Option[datasource.Interval] `yaml:"interval" json:"interval" jsonschema:"title=Interval,description=Optional bar size the data files are resampled to"`
	LogLevel  string                               `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

// engineConfigYAML is the on-disk form of BacktestEngineV1Config. Unset options are omitted.
type engineConfigYAML struct {
	StartTime *time.Time           `yaml:"start_time,omitempty"`
	EndTime   *time.Time           `yaml:"end_time,omitempty"`
	Interval  *datasource.Interval `yaml:"interval,omitempty"`
	LogLevel  string               `yaml:"log_level"`
}

// MarshalYAML implements custom marshaling for BacktestEngineV1Config
func (c BacktestEngineV1Config) MarshalYAML() (any, error) {
	config := engineConfigYAML{LogLevel: c.LogLevel}

	if c.StartTime.IsSome() {
		startTime := c.StartTime.Unwrap()
		config.StartTime = &startTime
	}

	if c.EndTime.IsSome() {
		endTime := c.EndTime.Unwrap()
		config.EndTime = &endTime
	}

	if c.Interval.IsSome() {
		interval := c.Interval.Unwrap()
		config.Interval = &interval
	}

	return config, nil
}

// UnmarshalYAML implements custom unmarshaling for BacktestEngineV1Config
func (c *BacktestEngineV1Config) UnmarshalYAML(unmarshal func(any) error) error {
	var config engineConfigYAML
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.StartTime = optional.None[time.Time]()
	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	c.EndTime = optional.None[time.Time]()
	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	c.Interval = optional.None[datasource.Interval]()
	if config.Interval != nil {
		c.Interval = optional.Some(*config.Interval)
	}

	c.LogLevel = config.LogLevel
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	return nil
}

// ReadOptions returns the data source options selecting the configured bar range.
func (c BacktestEngineV1Config) ReadOptions() datasource.ReadOptions {
	return datasource.ReadOptions{
		Start:    c.StartTime,
		End:      c.EndTime,
		Interval: c.Interval,
	}
}

// rangeLabel names the configured bar range as <start>_<end> with dates formatted
// 20060102 and an open side written as "all". It is empty when no range is set.
func (c BacktestEngineV1Config) rangeLabel() string {
	if c.StartTime.IsNone() && c.EndTime.IsNone() {
		return ""
	}

	label := func(t optional.Option[time.Time]) string {
		if t.IsNone() {
			return "all"
		}

		return t.Unwrap().Format("20060102")
	}

	return label(c.StartTime) + "_" + label(c.EndTime)
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t {
			case reflect.TypeOf(optional.Option[time.Time]{}):
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			case reflect.TypeOf(optional.Option[datasource.Interval]{}):
				return &jsonschema.Schema{
					Type: "string",
					Enum: datasource.AllIntervals,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

func TestConfig(startTime time.Time, endTime time.Time) BacktestEngineV1Config {
	return BacktestEngineV1Config{
		StartTime: optional.Some(startTime),
		EndTime:   optional.Some(endTime),
		Interval:  optional.None[datasource.Interval](),
		LogLevel:  "info",
	}
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		StartTime: optional.None[time.Time](),
		EndTime:   optional.None[time.Time](),
		Interval:  optional.None[datasource.Interval](),
		LogLevel:  "info",
	}
}

// logLevel returns the configured log level, overridden by the environment when set.
func (c BacktestEngineV1Config) logLevel() string {
	if v := os.Getenv(EnvLogLevel); v != "" {
		return v
	}

	return c.LogLevel
}
