package seqforecaster

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-seqforecaster/models"
	"github.com/aouyang1/go-seqforecaster/stats"
	"github.com/aouyang1/go-seqforecaster/window"
)

var (
	ErrNegativeHorizon = fmt.Errorf("horizon must not be negative, %w", window.ErrInvalidParameter)
	ErrNoHorizon       = fmt.Errorf("test length leaves no values after the seed window to forecast, %w", window.ErrInvalidParameter)
	ErrNegativeWorkers = errors.New("workers must not be negative")

	ErrPercentileRange    = errors.New("outlier percentiles must be within [0, 1]")
	ErrPercentileOrder    = errors.New("lower outlier percentile must not exceed the upper percentile")
	ErrNegativeTukeyScale = errors.New("tukey factor must not be negative")
)

// OutlierOptions flags training values outside of the percentile range widened by the
// tukey factor. Flagged values are only reported, never removed.
type OutlierOptions struct {
	UpperPercentile float64 `json:"upper_percentile" mapstructure:"upper_percentile"`
	LowerPercentile float64 `json:"lower_percentile" mapstructure:"lower_percentile"`
	TukeyFactor     float64 `json:"tukey_factor" mapstructure:"tukey_factor"`
}

// Validate checks the percentile range and tukey factor. A nil options disables outlier
// detection and is valid.
func (o *OutlierOptions) Validate() (*OutlierOptions, error) {
	if o == nil {
		return nil, nil
	}
	for _, p := range []float64{o.LowerPercentile, o.UpperPercentile} {
		if !(p >= 0 && p <= 1) {
			return nil, fmt.Errorf("got %f, %w", p, ErrPercentileRange)
		}
	}
	if o.LowerPercentile > o.UpperPercentile {
		return nil, fmt.Errorf("lower %f, upper %f, %w", o.LowerPercentile, o.UpperPercentile, ErrPercentileOrder)
	}
	if !(o.TukeyFactor >= 0) {
		return nil, fmt.Errorf("got %f, %w", o.TukeyFactor, ErrNegativeTukeyScale)
	}
	res := *o
	return &res, nil
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// Options configures the full pipeline from windowing through forecasting
type Options struct {
	Window *window.Options `json:"window" mapstructure:"window"`
	Model  *models.Config  `json:"model" mapstructure:"model"`

	// Horizon is the number of steps forecast from the seed window. 0 forecasts the rest of
	// the test suffix, test length minus input length.
	Horizon int `json:"horizon" mapstructure:"horizon"`

	// Scale fits a min/max scaler on the training prefix and trains the model on scaled
	// values. Forecasts are always returned in the original units.
	Scale bool `json:"scale" mapstructure:"scale"`

	// Workers bounds the number of concurrent rollouts during a backtest. 0 uses GOMAXPROCS.
	Workers int `json:"workers" mapstructure:"workers"`

	OutlierOptions *OutlierOptions `json:"outlier_options" mapstructure:"outlier_options"`
}

// NewDefaultOptions returns a scaled LSTM pipeline over the default window
func NewDefaultOptions() *Options {
	return &Options{
		Window:         window.NewDefaultOptions(),
		Model:          models.NewDefaultConfig(),
		Scale:          true,
		OutlierOptions: NewOutlierOptions(),
	}
}

// Validate checks every nested option and resolves the horizon. A nil options returns the
// defaults. The receiver is not modified and the result shares no nested options with it.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	res := *o

	win, err := o.Window.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid window options, %w", err)
	}
	winCopy := *win
	res.Window = &winCopy

	model, err := o.Model.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid model config, %w", err)
	}
	modelCopy := *model
	res.Model = &modelCopy

	res.OutlierOptions, err = o.OutlierOptions.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid outlier options, %w", err)
	}

	if res.Horizon < 0 {
		return nil, fmt.Errorf("got %d, %w", res.Horizon, ErrNegativeHorizon)
	}
	if res.Horizon == 0 {
		res.Horizon = res.Window.TestLength - res.Window.InputLength
		if res.Horizon == 0 {
			return nil, ErrNoHorizon
		}
	}
	if res.Workers < 0 {
		return nil, fmt.Errorf("got %d, %w", res.Workers, ErrNegativeWorkers)
	}
	return &res, nil
}

func (o *OutlierOptions) detect(y []float64) []int {
	if o == nil {
		return nil
	}
	return stats.DetectOutliers(y, o.LowerPercentile, o.UpperPercentile, o.TukeyFactor)
}
