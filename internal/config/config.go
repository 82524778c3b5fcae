// Package config loads the command line configuration from a yaml file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	seqforecaster "github.com/aouyang1/go-seqforecaster"
	"github.com/aouyang1/go-seqforecaster/timedataset"
	"github.com/spf13/viper"
)

const EnvPrefix = "SEQFORECAST"

var ErrInvalidDelimiter = errors.New("csv delimiter must be a single character")

type Config struct {
	LogLevel   string                `mapstructure:"log_level"`
	Data       DataConfig            `mapstructure:"data"`
	Forecaster seqforecaster.Options `mapstructure:"forecaster"`
	Output     OutputConfig          `mapstructure:"output"`
}

type DataConfig struct {
	Path        string   `mapstructure:"path"`
	TimeColumn  string   `mapstructure:"time_column"`
	ValueColumn string   `mapstructure:"value_column"`
	TimeFormat  string   `mapstructure:"time_format"`
	Missing     []string `mapstructure:"missing"`
	Delimiter   string   `mapstructure:"delimiter"`
}

type OutputConfig struct {
	Report string `mapstructure:"report"`
	Plot   string `mapstructure:"plot"`
}

// CSVOptions converts the data section into csv loading options
func (d DataConfig) CSVOptions() (*timedataset.CSVOptions, error) {
	opt := &timedataset.CSVOptions{
		TimeColumn:  d.TimeColumn,
		ValueColumn: d.ValueColumn,
		TimeFormat:  d.TimeFormat,
		Missing:     d.Missing,
	}
	if d.Delimiter != "" {
		if utf8.RuneCountInString(d.Delimiter) != 1 {
			return nil, fmt.Errorf("got %q, %w", d.Delimiter, ErrInvalidDelimiter)
		}
		opt.Delimiter, _ = utf8.DecodeRuneInString(d.Delimiter)
	}
	return opt.Validate(), nil
}

// Load reads the yaml file at path, or seqforecast.yaml in the working directory when path
// is empty, on top of the defaults. Any key can be overridden by an environment variable
// prefixed with SEQFORECAST_ such as SEQFORECAST_FORECASTER_MODEL_EPOCHS.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("seqforecast")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config, %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config, %w", err)
	}

	opt, err := cfg.Forecaster.Validate()
	if err != nil {
		return nil, err
	}
	cfg.Forecaster = *opt
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	csv := timedataset.NewDefaultCSVOptions()
	v.SetDefault("data.path", "")
	v.SetDefault("data.time_column", csv.TimeColumn)
	v.SetDefault("data.value_column", csv.ValueColumn)
	v.SetDefault("data.time_format", csv.TimeFormat)
	v.SetDefault("data.missing", []string{})
	v.SetDefault("data.delimiter", string(csv.Delimiter))

	opt := seqforecaster.NewDefaultOptions()
	v.SetDefault("forecaster.horizon", opt.Horizon)
	v.SetDefault("forecaster.scale", opt.Scale)
	v.SetDefault("forecaster.workers", opt.Workers)

	v.SetDefault("forecaster.window.series_length", opt.Window.SeriesLength)
	v.SetDefault("forecaster.window.input_length", opt.Window.InputLength)
	v.SetDefault("forecaster.window.test_length", opt.Window.TestLength)
	v.SetDefault("forecaster.window.sample_gap", opt.Window.SampleGap)

	v.SetDefault("forecaster.model.layer", string(opt.Model.Layer))
	v.SetDefault("forecaster.model.units", opt.Model.Units)
	v.SetDefault("forecaster.model.epochs", opt.Model.Epochs)
	v.SetDefault("forecaster.model.batch_size", opt.Model.BatchSize)
	v.SetDefault("forecaster.model.optimizer", opt.Model.Optimizer)
	v.SetDefault("forecaster.model.loss", opt.Model.Loss)
	v.SetDefault("forecaster.model.learning_rate", opt.Model.LearningRate)
	v.SetDefault("forecaster.model.clip_norm", opt.Model.ClipNorm)
	v.SetDefault("forecaster.model.regularization", opt.Model.Regularization)
	v.SetDefault("forecaster.model.seed", opt.Model.Seed)

	v.SetDefault("forecaster.outlier_options.upper_percentile", opt.OutlierOptions.UpperPercentile)
	v.SetDefault("forecaster.outlier_options.lower_percentile", opt.OutlierOptions.LowerPercentile)
	v.SetDefault("forecaster.outlier_options.tukey_factor", opt.OutlierOptions.TukeyFactor)

	v.SetDefault("output.report", "")
	v.SetDefault("output.plot", "")
}
