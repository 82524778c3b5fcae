// Package seqforecaster trains a one step sequence model on the most recent window of a
// univariate time series and forecasts further ahead by feeding predictions back into the
// model input.
package seqforecaster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/aouyang1/go-seqforecaster/models"
	"github.com/aouyang1/go-seqforecaster/rollout"
	"github.com/aouyang1/go-seqforecaster/stats"
	"github.com/aouyang1/go-seqforecaster/timedataset"
	"github.com/aouyang1/go-seqforecaster/window"
	"github.com/go-echarts/go-echarts/v2/components"
)

var (
	ErrNotFit              = errors.New("forecaster has not been fit")
	ErrInvalidOrigin       = fmt.Errorf("backtest origin leaves no room for a seed window and an observation, %w", window.ErrInvalidParameter)
	ErrCannotInferInterval = errors.New("cannot infer interval from training data time")
)

// Forecaster fits a sequence model and can be used to generate forecasts
type Forecaster struct {
	opt *Options

	model  models.Model
	scaler *stats.MinMaxScaler

	// data is the gap filled training data and raw its windowing in original units
	data         *timedataset.TimeDataset
	interval     time.Duration
	interpolated int
	raw          *window.Dataset
	scaled       *window.Dataset
	outliers     []int

	fitResults *Results
}

// New creates a new instance of a Forecaster using the provided options. If no options are
// provided a default is used.
func New(opt *Options) (*Forecaster, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Forecaster{opt: opt}, nil
}

// Fit indexes the observations on their estimated sampling interval, fills any gaps, windows
// the most recent samples and trains the model on the training prefix. Refitting discards
// the previous model.
func (f *Forecaster) Fit(t []time.Time, y []float64) error {
	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return fmt.Errorf("unable to create training dataset, %w", err)
	}

	interval, err := timedataset.TimeSlice(td.T).EstimateFreq()
	if err != nil {
		return fmt.Errorf("%w, %w", ErrCannotInferInterval, err)
	}

	td, inserted, err := td.Regularize(interval)
	if err != nil {
		return fmt.Errorf("unable to index training data every %s, %w", interval, err)
	}
	if inserted > 0 {
		slog.Info("inserted missing time points", "count", inserted, "interval", interval)
	}

	interpolated := td.Missing()
	if interpolated > 0 {
		td, err = td.Interpolate()
		if err != nil {
			return fmt.Errorf("unable to fill missing observations, %w", err)
		}
		slog.Info("interpolated missing observations", "count", interpolated, "total", td.Len())
	}

	raw, err := window.Extract(td.Y, f.opt.Window)
	if err != nil {
		return fmt.Errorf("unable to extract training windows, %w", err)
	}

	scaled := raw
	var scaler *stats.MinMaxScaler
	if f.opt.Scale {
		scaler = &stats.MinMaxScaler{}
		if err := scaler.Fit(raw.Train); err != nil {
			return fmt.Errorf("unable to fit scaler, %w", err)
		}
		scaledY, err := scaler.Transform(td.Y)
		if err != nil {
			return fmt.Errorf("unable to scale observations, %w", err)
		}
		scaled, err = window.Extract(scaledY, f.opt.Window)
		if err != nil {
			return fmt.Errorf("unable to extract scaled training windows, %w", err)
		}
	}

	model, err := models.New(f.opt.Model)
	if err != nil {
		return fmt.Errorf("unable to initialize model, %w", err)
	}
	if err := model.Fit(scaled.Windows, scaled.Targets); err != nil {
		return fmt.Errorf("unable to fit model, %w, %w", models.ErrModelInference, err)
	}
	slog.Info("fit sequence model",
		"layer", f.opt.Model.Layer,
		"examples", scaled.Len(),
		"input_length", f.opt.Window.InputLength,
	)

	f.model = model
	f.scaler = scaler
	f.data = td
	f.interval = interval
	f.interpolated = interpolated
	f.raw = raw
	f.scaled = scaled
	f.outliers = f.opt.OutlierOptions.detect(raw.Train)

	f.fitResults, err = f.oneStepFit()
	if err != nil {
		return err
	}
	return nil
}

// oneStepFit predicts every training target from its own observed window
func (f *Forecaster) oneStepFit() (*Results, error) {
	pred, err := f.model.Predict(f.scaled.Windows)
	if err != nil {
		return nil, fmt.Errorf("unable to predict training windows, %w, %w", models.ErrModelInference, err)
	}
	pred, err = f.inverse(pred)
	if err != nil {
		return nil, err
	}

	gap := f.opt.Window.SampleGap
	t := make([]time.Time, len(pred))
	for i := range t {
		t[i] = f.data.T[f.raw.Offset+i*gap+f.opt.Window.InputLength]
	}
	actual := make([]float64, len(f.raw.Targets))
	copy(actual, f.raw.Targets)

	scores, err := stats.NewScores(pred, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to score training fit, %w", err)
	}
	return &Results{
		T:        t,
		Forecast: pred,
		Actual:   actual,
		Scores:   scores,
	}, nil
}

// Forecast rolls the model forward from the seed window at the start of the test suffix for
// the configured horizon and compares the result against the held out observations.
func (f *Forecaster) Forecast() (*Results, error) {
	if f.model == nil {
		return nil, ErrNotFit
	}
	return f.forecastAt(0, f.opt.Horizon)
}

// forecastAt forecasts horizon steps from the seed starting origin samples into the test
// suffix
func (f *Forecaster) forecastAt(origin, horizon int) (*Results, error) {
	seed := f.raw.Test[origin : origin+f.opt.Window.InputLength]
	fcast, err := f.ForecastFrom(seed, horizon)
	if err != nil {
		return nil, err
	}
	return f.results(origin, fcast)
}

// results aligns a forecast starting right after the seed at origin with its time points
// and observations
func (f *Forecaster) results(origin int, fcast []float64) (*Results, error) {
	start := f.raw.Offset + len(f.raw.Train) + origin + f.opt.Window.InputLength
	n := len(fcast)

	t := make([]time.Time, 0, n)
	actual := make([]float64, 0, n)
	for i := start; i < len(f.data.T) && len(t) < n; i++ {
		t = append(t, f.data.T[i])
		actual = append(actual, f.data.Y[i])
	}
	observed := len(t)
	t = append(t, timedataset.TimeSlice(f.data.T).Extend(n-observed, f.interval)...)
	for len(actual) < n {
		actual = append(actual, math.NaN())
	}

	res := &Results{
		T:        t,
		Forecast: fcast,
		Actual:   actual,
	}
	if observed > 0 {
		scores, err := stats.NewScores(fcast, actual)
		if err != nil {
			return nil, fmt.Errorf("unable to score forecast, %w", err)
		}
		res.Scores = scores
	}
	return res, nil
}

// ForecastFrom rolls the model forward horizon steps from any seed window given in the
// original units of the series. The seed must have the trained input length.
func (f *Forecaster) ForecastFrom(seed []float64, horizon int) ([]float64, error) {
	if f.model == nil {
		return nil, ErrNotFit
	}
	scaledSeed, err := f.transform(seed)
	if err != nil {
		return nil, err
	}
	fcast, err := rollout.Forecast(scaledSeed, horizon, f.model)
	if err != nil {
		return nil, err
	}
	return f.inverse(fcast)
}

// Backtest forecasts the configured horizon from several seeds within the test suffix.
// Each origin is the offset of a seed window into the test suffix, and a nil origins
// evaluates every origin that leaves at least one observation after its seed. Rollouts run
// concurrently and results are returned in origin order.
func (f *Forecaster) Backtest(ctx context.Context, origins []int) ([]*Results, error) {
	if f.model == nil {
		return nil, ErrNotFit
	}
	inputLen := f.opt.Window.InputLength
	maxOrigin := len(f.raw.Test) - inputLen - 1
	if origins == nil {
		for o := 0; o <= maxOrigin; o++ {
			origins = append(origins, o)
		}
	}

	seeds := make([][]float64, 0, len(origins))
	for _, o := range origins {
		if o < 0 || o > maxOrigin {
			return nil, fmt.Errorf("got origin %d with maximum %d, %w", o, maxOrigin, ErrInvalidOrigin)
		}
		seeds = append(seeds, f.scaled.Test[o:o+inputLen])
	}

	fcasts, err := rollout.ForecastMany(ctx, seeds, f.opt.Horizon, f.model, f.opt.Workers)
	if err != nil {
		return nil, fmt.Errorf("unable to backtest, %w", err)
	}

	res := make([]*Results, 0, len(origins))
	for i, o := range origins {
		fcast, err := f.inverse(fcasts[i])
		if err != nil {
			return nil, err
		}
		r, err := f.results(o, fcast)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}

func (f *Forecaster) transform(y []float64) ([]float64, error) {
	if f.scaler == nil {
		res := make([]float64, len(y))
		copy(res, y)
		return res, nil
	}
	return f.scaler.Transform(y)
}

func (f *Forecaster) inverse(y []float64) ([]float64, error) {
	if f.scaler == nil {
		return y, nil
	}
	return f.scaler.Inverse(y)
}

// Model returns the trained sequence model
func (f *Forecaster) Model() models.Model {
	return f.model
}

// TrainingData returns the gap filled training data used to fit the current model
func (f *Forecaster) TrainingData() *timedataset.TimeDataset {
	return f.data
}

// Dataset returns the windowing of the training data in its original units
func (f *Forecaster) Dataset() *window.Dataset {
	return f.raw
}

// FitResults returns the one step predictions over every training window
func (f *Forecaster) FitResults() *Results {
	return f.fitResults
}

// Loss returns the per epoch training loss for models that record one
func (f *Forecaster) Loss() []float64 {
	if lr, ok := f.model.(interface{ Loss() []float64 }); ok {
		return lr.Loss()
	}
	return nil
}

// PlotFit uses the Apache Echarts library to generate an html file showing the one step
// training fit, the forecast against the held out observations and the training loss
func (f *Forecaster) PlotFit(path string) error {
	res, err := f.Forecast()
	if err != nil {
		return fmt.Errorf("unable to forecast for plot, %w", err)
	}

	page := components.NewPage()
	page.AddCharts(
		LineForecast("Training Fit", f.fitResults),
		LineForecast("Forecast", res),
	)
	if loss := f.Loss(); len(loss) > 0 {
		page.AddCharts(LineLoss(loss))
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return page.Render(file)
}
