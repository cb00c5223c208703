package engine

import (
	"encoding/json"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/argo-hybrid/internal/analytics"
	"github.com/rxtech-lab/argo-hybrid/internal/indicator"
	"github.com/rxtech-lab/argo-hybrid/internal/position"
	"github.com/rxtech-lab/argo-hybrid/internal/signal"
	"github.com/rxtech-lab/argo-hybrid/internal/types"
	"github.com/rxtech-lab/argo-hybrid/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values read from a strategy configuration file.
const (
	EnvStartingCash = "ARGO_STARTING_CASH"
	EnvLogLevel     = "ARGO_LOG_LEVEL"
)

// Indicator series names used by the simulation pipeline.
const (
	seriesRSI     = "rsi"
	seriesEMA     = "ema"
	seriesATR     = "atr"
	seriesMACD    = "macd"
	seriesSMAFast = "sma_fast"
	seriesSMASlow = "sma_slow"
)

// Config is the parameter set of one simulation run.
type Config struct {
	Symbol string `yaml:"symbol" json:"symbol,omitempty" jsonschema:"title=Symbol,description=Label of the simulated instrument"`

	RSIPeriod     int     `yaml:"rsi_period" json:"rsi_period" jsonschema:"title=RSI Period,minimum=1,default=14" validate:"gt=0"`
	EMAPeriod     int     `yaml:"ema_period" json:"ema_period" jsonschema:"title=EMA Period,minimum=1,default=21" validate:"gt=0"`
	RSIOversold   float64 `yaml:"rsi_oversold" json:"rsi_oversold" jsonschema:"title=RSI Oversold,description=Enter long when RSI is below this level,minimum=0,maximum=100,default=35" validate:"gte=0,lte=100"`
	RSIOverbought float64 `yaml:"rsi_overbought" json:"rsi_overbought" jsonschema:"title=RSI Overbought,description=Enter short when RSI is above this level,minimum=0,maximum=100,default=65" validate:"gte=0,lte=100"`
	ATRPeriod     int     `yaml:"atr_period" json:"atr_period" jsonschema:"title=ATR Period,minimum=1,default=14" validate:"gt=0"`
	MinATR        float64 `yaml:"min_atr" json:"min_atr" jsonschema:"title=Minimum ATR,description=No entries while ATR is below this value,minimum=0,default=0" validate:"gte=0"`

	MACDFast      int  `yaml:"macd_fast" json:"macd_fast" jsonschema:"title=MACD Fast Period,minimum=1,default=12" validate:"gt=0"`
	MACDSlow      int  `yaml:"macd_slow" json:"macd_slow" jsonschema:"title=MACD Slow Period,minimum=1,default=26" validate:"gt=0"`
	MACDSignal    int  `yaml:"macd_signal" json:"macd_signal" jsonschema:"title=MACD Signal Period,minimum=1,default=9" validate:"gt=0"`
	UseMACDFilter bool `yaml:"use_macd_filter" json:"use_macd_filter" jsonschema:"title=Use MACD Filter,description=Require MACD to agree with the entry direction,default=true"`

	SMAFast int `yaml:"sma_fast" json:"sma_fast" jsonschema:"title=Fast SMA Period,minimum=1,default=10" validate:"gt=0"`
	SMASlow int `yaml:"sma_slow" json:"sma_slow" jsonschema:"title=Slow SMA Period,minimum=1,default=20" validate:"gt=0"`

	StopLossPoints   float64 `yaml:"stop_loss_points" json:"stop_loss_points" jsonschema:"title=Stop Loss Points,minimum=0,default=30" validate:"gte=0"`
	TakeProfitPoints float64 `yaml:"take_profit_points" json:"take_profit_points" jsonschema:"title=Take Profit Points,minimum=0,default=180" validate:"gte=0"`
	PointSize        float64 `yaml:"point_size" json:"point_size" jsonschema:"title=Point Size,description=Price value of one point,exclusiveMinimum=0,default=0.01" validate:"gt=0"`

	MartingaleMultiplier float64 `yaml:"martingale_multiplier" json:"martingale_multiplier" jsonschema:"title=Martingale Multiplier,description=Stake multiplier applied after a stop-loss,exclusiveMinimum=0,default=1" validate:"gt=0"`
	MaxMartingaleLevels  int     `yaml:"max_martingale_levels" json:"max_martingale_levels" jsonschema:"title=Max Martingale Levels,description=Consecutive losses before the stake resets,minimum=0,default=0" validate:"gte=0"`

	StartingCash float64           `yaml:"starting_cash" json:"starting_cash" jsonschema:"title=Starting Cash,exclusiveMinimum=0,default=500" validate:"gt=0"`
	BaseStake    float64           `yaml:"base_stake" json:"base_stake" jsonschema:"title=Base Stake,description=Position size at stake multiplier 1,exclusiveMinimum=0,default=0.05" validate:"gt=0"`
	ExitMode     position.ExitMode `yaml:"exit_mode" json:"exit_mode" jsonschema:"title=Exit Mode,description=close checks thresholds against the bar close and range against the bar high and low,default=close" validate:"oneof=close range"`

	SharpeAnnualization float64 `yaml:"sharpe_annualization" json:"sharpe_annualization" jsonschema:"title=Sharpe Annualization,description=Periods per year used to scale the Sharpe ratio,exclusiveMinimum=0,default=252" validate:"gt=0"`
	MaxBars             int     `yaml:"max_bars" json:"max_bars" jsonschema:"title=Max Bars,description=Stop after this many bars. 0 processes every bar,minimum=0,default=0" validate:"gte=0"`
}

// DefaultConfig returns the stock parameters tuned for gold (point size 0.01).
func DefaultConfig() Config {
	return Config{
		Symbol:               "",
		RSIPeriod:            14,
		EMAPeriod:            21,
		RSIOversold:          35,
		RSIOverbought:        65,
		ATRPeriod:            14,
		MinATR:               0,
		MACDFast:             12,
		MACDSlow:             26,
		MACDSignal:           9,
		UseMACDFilter:        true,
		SMAFast:              10,
		SMASlow:              20,
		StopLossPoints:       30,
		TakeProfitPoints:     180,
		PointSize:            0.01,
		MartingaleMultiplier: 1.0,
		MaxMartingaleLevels:  0,
		StartingCash:         500,
		BaseStake:            0.05,
		ExitMode:             position.ExitModeClose,
		SharpeAnnualization:  analytics.DefaultAnnualization,
		MaxBars:              0,
	}
}

// fieldErrorCodes maps struct fields to the error code reported when they fail validation.
var fieldErrorCodes = map[string]errors.ErrorCode{
	"RSIPeriod":            errors.ErrCodeInvalidPeriod,
	"EMAPeriod":            errors.ErrCodeInvalidPeriod,
	"ATRPeriod":            errors.ErrCodeInvalidPeriod,
	"MACDFast":             errors.ErrCodeInvalidPeriod,
	"MACDSlow":             errors.ErrCodeInvalidPeriod,
	"MACDSignal":           errors.ErrCodeInvalidPeriod,
	"SMAFast":              errors.ErrCodeInvalidPeriod,
	"SMASlow":              errors.ErrCodeInvalidPeriod,
	"RSIOversold":          errors.ErrCodeInvalidThreshold,
	"RSIOverbought":        errors.ErrCodeInvalidThreshold,
	"MinATR":               errors.ErrCodeInvalidThreshold,
	"StopLossPoints":       errors.ErrCodeInvalidThreshold,
	"TakeProfitPoints":     errors.ErrCodeInvalidThreshold,
	"PointSize":            errors.ErrCodeInvalidPointSize,
	"MartingaleMultiplier": errors.ErrCodeInvalidMultiplier,
	"MaxMartingaleLevels":  errors.ErrCodeInvalidMultiplier,
	"StartingCash":         errors.ErrCodeInvalidStartingCash,
	"BaseStake":            errors.ErrCodeInvalidStake,
	"ExitMode":             errors.ErrCodeInvalidExitMode,
}

// Validate checks every parameter. The returned error carries the code of the first invalid field.
func (c Config) Validate() error {
	validate := validator.New()

	err := validate.Struct(c)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			first := validationErrors[0]

			code, ok := fieldErrorCodes[first.StructField()]
			if !ok {
				code = errors.ErrCodeInvalidConfiguration
			}

			return errors.Wrapf(code, err, "invalid %s: %v", first.StructField(), first.Value())
		}

		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if c.MACDFast >= c.MACDSlow {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "macd_fast (%d) must be less than macd_slow (%d)", c.MACDFast, c.MACDSlow)
	}

	return nil
}

// IndicatorConfigs returns the pipeline configuration of the indicators the rules read.
func (c Config) IndicatorConfigs() []indicator.Config {
	return []indicator.Config{
		{Name: seriesRSI, Kind: types.IndicatorTypeRSI, Params: []any{c.RSIPeriod}},
		{Name: seriesEMA, Kind: types.IndicatorTypeEMA, Params: []any{c.EMAPeriod}},
		{Name: seriesATR, Kind: types.IndicatorTypeATR, Params: []any{c.ATRPeriod}},
		{Name: seriesMACD, Kind: types.IndicatorTypeMACD, Params: []any{c.MACDFast, c.MACDSlow, c.MACDSignal}},
		{Name: seriesSMAFast, Kind: types.IndicatorTypeMA, Params: []any{c.SMAFast}},
		{Name: seriesSMASlow, Kind: types.IndicatorTypeMA, Params: []any{c.SMASlow}},
	}
}

// SignalConfig returns the entry rule thresholds.
func (c Config) SignalConfig() signal.Config {
	return signal.Config{
		RSIOversold:   c.RSIOversold,
		RSIOverbought: c.RSIOverbought,
		MinATR:        c.MinATR,
		UseMACDFilter: c.UseMACDFilter,
	}
}

// PositionConfig returns the exit and staking parameters.
func (c Config) PositionConfig() position.Config {
	return position.Config{
		StopLossPoints:       c.StopLossPoints,
		TakeProfitPoints:     c.TakeProfitPoints,
		PointSize:            c.PointSize,
		MartingaleMultiplier: c.MartingaleMultiplier,
		MaxMartingaleLevels:  c.MaxMartingaleLevels,
		BaseStake:            c.BaseStake,
		ExitMode:             c.ExitMode,
	}
}

// AnalyticsConfig returns the performance analytics parameters for a run starting at startTime.
func (c Config) AnalyticsConfig(startTime time.Time) analytics.Config {
	return analytics.Config{
		StartTime:     startTime,
		Annualization: c.SharpeAnnualization,
	}
}

// ParseConfig reads a YAML strategy configuration. Keys that are absent keep their default value.
func ParseConfig(content string) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse strategy config", err)
	}

	return config, nil
}

// LoadConfigFile reads a strategy configuration file, loading a .env file from the working
// directory first when one exists, and applies environment overrides.
func LoadConfigFile(path string) (Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read strategy config %s", path)
	}

	config, err := ParseConfig(string(data))
	if err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}

// loadEnvFile loads path into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to load env file %s", path)
}

func applyEnvOverrides(config *Config) error {
	if v := os.Getenv(EnvStartingCash); v != "" {
		cash, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidStartingCash, err, "invalid %s: %s", EnvStartingCash, v)
		}

		config.StartingCash = cash
	}

	return nil
}

// GenerateSchema generates a JSON schema for the strategy Config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(position.ExitMode("")) {
				return &jsonschema.Schema{
					Type:    "string",
					Enum:    position.AllExitModes,
					Default: string(position.ExitModeClose),
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "hybrid-strategy-config"
	schema.Description = "Configuration schema for the hybrid RSI and SMA crossover strategy"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the strategy Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
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
