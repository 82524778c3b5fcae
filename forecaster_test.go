package seqforecaster

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-seqforecaster/models"
	"github.com/aouyang1/go-seqforecaster/rollout"
	"github.com/aouyang1/go-seqforecaster/timedataset"
	"github.com/aouyang1/go-seqforecaster/window"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nowFunc() time.Time {
	return time.Date(1970, 2, 1, 0, 0, 0, 0, time.UTC)
}

// generateDailyWave returns an hourly daily sine wave around 50 with one missing value
// well before the retained window
func generateDailyWave(n int) ([]time.Time, []float64) {
	t := timedataset.GenerateT(n, time.Hour, nowFunc)
	y := timedataset.GenerateConstY(n, 50.0).
		Add(timedataset.GenerateWaveY(t, 10.0, 86400.0, 1.0, 0))
	y[10] = math.NaN()
	return t, y
}

func linearOptions() *Options {
	return &Options{
		Window: &window.Options{
			SeriesLength: 200,
			InputLength:  2,
			TestLength:   26,
			SampleGap:    1,
		},
		Model: &models.Config{Layer: models.LayerLinear},
		Scale: true,
	}
}

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt     *Options
		horizon int
		err     error
	}{
		"nil": {nil, 72 - 24, nil},
		"default horizon": {
			&Options{Window: &window.Options{SeriesLength: 20, InputLength: 3, TestLength: 5, SampleGap: 1}},
			2, nil,
		},
		"explicit horizon": {
			&Options{Window: &window.Options{SeriesLength: 20, InputLength: 3, TestLength: 5, SampleGap: 1}, Horizon: 10},
			10, nil,
		},
		"negative horizon": {&Options{Horizon: -1}, 0, ErrNegativeHorizon},
		"no horizon left": {
			&Options{Window: &window.Options{SeriesLength: 20, InputLength: 3, TestLength: 3, SampleGap: 1}},
			0, ErrNoHorizon,
		},
		"invalid window": {
			&Options{Window: &window.Options{SeriesLength: 20, InputLength: 3, TestLength: 5}},
			0, window.ErrNonPositiveGap,
		},
		"invalid model": {&Options{Model: &models.Config{Layer: "gru"}}, 0, models.ErrUnknownLayer},
		"negative workers": {&Options{Workers: -1}, 0, ErrNegativeWorkers},
		"no outlier detection": {&Options{OutlierOptions: nil}, 72 - 24, nil},
		"lower percentile above one": {
			&Options{OutlierOptions: &OutlierOptions{LowerPercentile: 1.5, UpperPercentile: 0.9}},
			0, ErrPercentileRange,
		},
		"upper percentile below zero": {
			&Options{OutlierOptions: &OutlierOptions{LowerPercentile: 0.1, UpperPercentile: -0.5}},
			0, ErrPercentileRange,
		},
		"nan percentile": {
			&Options{OutlierOptions: &OutlierOptions{LowerPercentile: math.NaN(), UpperPercentile: 0.9}},
			0, ErrPercentileRange,
		},
		"lower percentile above upper": {
			&Options{OutlierOptions: &OutlierOptions{LowerPercentile: 0.9, UpperPercentile: 0.1}},
			0, ErrPercentileOrder,
		},
		"negative tukey factor": {
			&Options{OutlierOptions: &OutlierOptions{LowerPercentile: 0.1, UpperPercentile: 0.9, TukeyFactor: -1}},
			0, ErrNegativeTukeyScale,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.horizon, res.Horizon)
			if td.opt != nil {
				assert.Equal(t, 0, td.opt.Horizon)
			}
		})
	}
}

func TestOptionsValidateCopiesNested(t *testing.T) {
	opt := linearOptions()
	opt.OutlierOptions = NewOutlierOptions()

	res, err := opt.Validate()
	require.Nil(t, err)
	f, err := New(opt)
	require.Nil(t, err)

	opt.Window.InputLength = 50
	opt.Model.Regularization = 3
	opt.OutlierOptions.TukeyFactor = 7

	assert.Equal(t, 2, res.Window.InputLength)
	assert.Equal(t, 0.0, res.Model.Regularization)
	assert.Equal(t, 1.0, res.OutlierOptions.TukeyFactor)
	assert.Equal(t, 2, f.opt.Window.InputLength)
	assert.Equal(t, 0.0, f.opt.Model.Regularization)
}

func TestForecasterLinear(t *testing.T) {
	n := 300
	tSeries, y := generateDailyWave(n)

	f, err := New(linearOptions())
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))

	assert.Equal(t, 1, f.interpolated)
	assert.Equal(t, 0, f.TrainingData().Missing())
	assert.Equal(t, 172, f.Dataset().Len())

	fit := f.FitResults()
	require.Len(t, fit.Forecast, 172)
	assert.InDeltaSlice(t, fit.Actual, fit.Forecast, 1e-6)
	assert.Equal(t, tSeries[n-200+2], fit.T[0])

	res, err := f.Forecast()
	require.Nil(t, err)
	require.Len(t, res.Forecast, 24)
	assert.Equal(t, tSeries[n-24:], res.T)
	assert.InDeltaSlice(t, y[n-24:], res.Forecast, 1e-6)
	assert.InDeltaSlice(t, y[n-24:], res.Actual, 1e-12)
	require.NotNil(t, res.Scores)
	assert.InDelta(t, 1.0, res.Scores.R2, 1e-6)

	// the first forecast is the model prediction on the seed and the rest follow by rollout
	seed := f.Dataset().Seed
	assert.Equal(t, y[n-26:n-24], seed)
	direct, err := rollout.Forecast(mustScale(t, f, seed), 1, f.Model())
	require.Nil(t, err)
	first, err := f.inverse(direct)
	require.Nil(t, err)
	assert.InDelta(t, first[0], res.Forecast[0], 1e-12)
}

func mustScale(t *testing.T, f *Forecaster, y []float64) []float64 {
	res, err := f.transform(y)
	require.Nil(t, err)
	return res
}

func TestForecasterMissingTimePoints(t *testing.T) {
	n := 300
	tSeries, y := generateDailyWave(n)

	// drop two hourly rows inside the retained window
	var tGap []time.Time
	var yGap []float64
	for i := range tSeries {
		if i == 150 || i == 151 {
			continue
		}
		tGap = append(tGap, tSeries[i])
		yGap = append(yGap, y[i])
	}

	f, err := New(linearOptions())
	require.Nil(t, err)
	require.Nil(t, f.Fit(tGap, yGap))

	assert.Equal(t, tSeries, f.TrainingData().T)
	assert.Equal(t, 3, f.interpolated)
	assert.Equal(t, 0, f.TrainingData().Missing())
	assert.InDelta(t, y[149]+(y[152]-y[149])/3.0, f.TrainingData().Y[150], 1e-12)
	assert.Equal(t, 172, f.Dataset().Len())

	res, err := f.Forecast()
	require.Nil(t, err)
	assert.Equal(t, tSeries[n-24:], res.T)
	assert.InDeltaSlice(t, y[n-24:], res.Actual, 1e-12)
}

func TestForecasterForecastFrom(t *testing.T) {
	tSeries, y := generateDailyWave(300)

	f, err := New(linearOptions())
	require.Nil(t, err)

	_, err = f.ForecastFrom([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, ErrNotFit)
	_, err = f.Forecast()
	assert.ErrorIs(t, err, ErrNotFit)

	require.Nil(t, f.Fit(tSeries, y))

	seed := []float64{y[100], y[101]}
	res, err := f.ForecastFrom(seed, 48)
	require.Nil(t, err)
	assert.InDeltaSlice(t, y[102:150], res, 1e-6)
	assert.Equal(t, []float64{y[100], y[101]}, seed)

	testData := map[string]struct {
		seed    []float64
		horizon int
		err     error
	}{
		"zero horizon": {seed, 0, rollout.ErrInvalidHorizon},
		"short seed":   {seed[:1], 2, rollout.ErrSeedLenMismatch},
		"long seed":    {y[:3], 2, window.ErrInvalidParameter},
		"missing seed": {nil, 2, window.ErrInvalidParameter},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := f.ForecastFrom(td.seed, td.horizon)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestForecasterBacktest(t *testing.T) {
	n := 300
	tSeries, y := generateDailyWave(n)

	opt := linearOptions()
	opt.Workers = 4
	f, err := New(opt)
	require.Nil(t, err)

	_, err = f.Backtest(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotFit)

	require.Nil(t, f.Fit(tSeries, y))

	all, err := f.Backtest(context.Background(), nil)
	require.Nil(t, err)
	require.Len(t, all, 24)

	res, err := f.Backtest(context.Background(), []int{23, 0})
	require.Nil(t, err)
	require.Len(t, res, 2)

	// last origin has a single observation after its seed
	last := res[0]
	require.Len(t, last.T, 24)
	assert.Equal(t, tSeries[n-1], last.T[0])
	assert.Equal(t, tSeries[n-1].Add(time.Hour), last.T[1])
	assert.Equal(t, tSeries[n-1].Add(23*time.Hour), last.T[23])
	assert.InDelta(t, y[n-1], last.Actual[0], 1e-12)
	for _, v := range last.Actual[1:] {
		assert.True(t, math.IsNaN(v))
	}
	require.NotNil(t, last.Scores)
	assert.InDelta(t, 0.0, last.Scores.MSE, 1e-9)

	expected, err := f.Forecast()
	require.Nil(t, err)
	assert.Equal(t, expected, res[1])
	assert.Equal(t, expected, all[0])

	// every origin, including the last with a single observation, encodes to json
	b, err := json.Marshal(all)
	require.Nil(t, err)
	var decoded []*Results
	require.Nil(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded, 24)
	require.NotNil(t, decoded[23].Scores)
	assert.False(t, math.IsInf(all[23].Scores.R2, 0))
	assert.False(t, math.IsNaN(decoded[23].Scores.R2))

	_, err = f.Backtest(context.Background(), []int{24})
	assert.ErrorIs(t, err, ErrInvalidOrigin)
	assert.ErrorIs(t, err, window.ErrInvalidParameter)

	_, err = f.Backtest(context.Background(), []int{-1})
	assert.ErrorIs(t, err, ErrInvalidOrigin)
}

func TestForecasterFitErrors(t *testing.T) {
	tSeries, y := generateDailyWave(300)

	testData := map[string]struct {
		t   []time.Time
		y   []float64
		opt *Options
		err error
	}{
		"length mismatch": {
			tSeries, y[:10], linearOptions(), timedataset.ErrDatasetLenMismatch,
		},
		"insufficient data": {
			tSeries[:150], y[:150], linearOptions(), window.ErrInsufficientData,
		},
		"insufficient data class": {
			tSeries[:150], y[:150], linearOptions(), window.ErrInvalidParameter,
		},
		"all missing": {
			tSeries[:3], []float64{math.NaN(), math.NaN(), math.NaN()}, linearOptions(), timedataset.ErrNoValidData,
		},
		"singular design": {
			tSeries, timedataset.GenerateConstY(300, 5.0), func() *Options {
				opt := linearOptions()
				opt.Scale = false
				return opt
			}(),
			models.ErrModelInference,
		},
		"single point": {
			tSeries[:1], y[:1], linearOptions(), ErrCannotInferInterval,
		},
		"off interval time point": {
			func() []time.Time {
				shifted := append([]time.Time(nil), tSeries...)
				shifted[150] = shifted[150].Add(30 * time.Minute)
				return shifted
			}(),
			y, linearOptions(), timedataset.ErrIrregularInterval,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := New(td.opt)
			require.Nil(t, err)
			err = f.Fit(td.t, td.y)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestForecasterRecurrent(t *testing.T) {
	n := 24 * 12
	tSeries, y := generateDailyWave(n)

	opt := &Options{
		Window: &window.Options{
			SeriesLength: 24 * 10,
			InputLength:  12,
			TestLength:   48,
			SampleGap:    3,
		},
		Model: &models.Config{
			Layer:        models.LayerLSTM,
			Units:        8,
			Epochs:       5,
			BatchSize:    8,
			Optimizer:    models.OptimizerAdam,
			Loss:         models.LossMSE,
			LearningRate: 0.01,
			ClipNorm:     1.0,
			Seed:         11,
		},
		Scale:          true,
		OutlierOptions: NewOutlierOptions(),
	}

	f, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tSeries, y))
	assert.Len(t, f.Loss(), 5)

	res, err := f.Forecast()
	require.Nil(t, err)
	require.Len(t, res.Forecast, 36)
	for _, v := range res.Forecast {
		assert.False(t, math.IsNaN(v))
	}

	path := filepath.Join(t.TempDir(), "fit.html")
	require.Nil(t, f.PlotFit(path))
	page, err := os.ReadFile(path)
	require.Nil(t, err)
	assert.Contains(t, string(page), "Training Loss")
	assert.Contains(t, string(page), "Forecast")
}

func TestSummary(t *testing.T) {
	tSeries, y := generateDailyWave(300)

	f, err := New(linearOptions())
	require.Nil(t, err)

	_, err = f.Summary()
	assert.ErrorIs(t, err, ErrNotFit)

	require.Nil(t, f.Fit(tSeries, y))
	s, err := f.Summary()
	require.Nil(t, err)

	assert.Equal(t, 172, s.Examples)
	assert.Equal(t, 1, s.Interpolated)
	assert.Equal(t, 24, s.Horizon)
	assert.Equal(t, "1h0m0s", s.Interval)
	assert.Equal(t, tSeries[100], s.TrainStart)
	assert.Equal(t, tSeries[273], s.TrainEnd)
	assert.True(t, s.Scaled)
	require.NotNil(t, s.ForecastScores)
	assert.InDelta(t, 1.0, s.ForecastScores.R2, 1e-6)

	var buf bytes.Buffer
	require.Nil(t, s.TablePrint(&buf, "", "  "))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Forecaster:\n"))
	assert.Contains(t, out, "  Model: linear\n")
	assert.Contains(t, out, "Forecast Scores:\n")

	buf.Reset()
	require.Nil(t, s.TablePrint(&buf, "> ", "\t"))
	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.True(t, strings.HasPrefix(line, "> "))
	}

	b, err := json.Marshal(s)
	require.Nil(t, err)

	var decoded Summary
	require.Nil(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, s.Examples, decoded.Examples)
	assert.Equal(t, *s.Window, *decoded.Window)
	assert.Equal(t, s.Model.Layer, decoded.Model.Layer)
}
