package models

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/aouyang1/go-seqforecaster/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineWindows(t *testing.T, n, steps int) (*array.Array, []float64) {
	series := make([]float64, n+steps)
	for i := range series {
		series[i] = math.Sin(2.0 * math.Pi * float64(i) / 12.0)
	}
	windows := make([][]float64, n)
	targets := make([]float64, n)
	for i := 0; i < n; i++ {
		windows[i] = series[i : i+steps]
		targets[i] = series[i+steps]
	}
	x, err := array.NewUnivariate(windows)
	require.Nil(t, err)
	return x, targets
}

func TestRecurrentGradients(t *testing.T) {
	testData := map[string]struct {
		layer    LayerType
		features int
		loss     lossFunc
	}{
		"simple rnn":            {LayerSimpleRecurrent, 1, squaredError},
		"simple rnn multivalue": {LayerSimpleRecurrent, 2, squaredError},
		"lstm":                  {LayerLSTM, 1, squaredError},
		"lstm multivalue":       {LayerLSTM, 2, squaredError},
	}

	steps := 4
	examples := 3
	eps := 1e-5

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Layer = td.layer
			cfg.Units = 3
			r, err := NewRecurrent(cfg)
			require.Nil(t, err)

			rng := rand.New(rand.NewPCG(1, 2))
			r.initialize(steps, td.features, rng)

			x, err := array.Zeros(examples, steps, td.features)
			require.Nil(t, err)
			for i := 0; i < examples; i++ {
				for s := 0; s < steps; s++ {
					for f := 0; f < td.features; f++ {
						require.Nil(t, x.Set(i, s, f, rng.Float64()*2.0-1.0))
					}
				}
			}
			y := []float64{0.5, -0.25, 0.1}
			batch := []int{0, 1, 2}

			meanLoss := func() float64 {
				var total float64
				for _, idx := range batch {
					ex, err := x.Example(idx)
					require.Nil(t, err)
					yhat, _ := r.forwardOne(ex)
					l, _ := td.loss(yhat, y[idx])
					total += l
				}
				return total / float64(len(batch))
			}

			_, err = r.accumulate(x, y, batch, td.loss)
			require.Nil(t, err)

			for _, p := range r.params() {
				analytic := append([]float64(nil), p.g...)
				for j := range p.w {
					orig := p.w[j]
					p.w[j] = orig + eps
					up := meanLoss()
					p.w[j] = orig - eps
					down := meanLoss()
					p.w[j] = orig

					numeric := (up - down) / (2.0 * eps)
					tol := 1e-6 + 1e-4*math.Abs(numeric)
					assert.InDelta(t, numeric, analytic[j], tol, "%s[%d]", p.name, j)
				}
			}
		})
	}
}

func TestRecurrentFitReducesLoss(t *testing.T) {
	testData := map[string]struct {
		layer     LayerType
		optimizer string
		loss      string
	}{
		"simple rnn adam mse": {LayerSimpleRecurrent, OptimizerAdam, LossMSE},
		"simple rnn sgd mse":  {LayerSimpleRecurrent, OptimizerSGD, LossMSE},
		"lstm adam mse":       {LayerLSTM, OptimizerAdam, LossMSE},
		"lstm adam mae":       {LayerLSTM, OptimizerAdam, LossMAE},
	}

	x, y := sineWindows(t, 60, 6)

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			cfg := &Config{
				Layer:        td.layer,
				Units:        8,
				Epochs:       40,
				BatchSize:    8,
				Optimizer:    td.optimizer,
				Loss:         td.loss,
				LearningRate: 0.01,
				ClipNorm:     1.0,
				Seed:         3,
			}
			if td.optimizer == OptimizerSGD {
				cfg.LearningRate = 0.1
			}
			r, err := NewRecurrent(cfg)
			require.Nil(t, err)
			require.Nil(t, r.Fit(x, y))

			hist := r.Loss()
			require.Len(t, hist, cfg.Epochs)
			assert.Less(t, hist[len(hist)-1], hist[0])
			assert.Equal(t, 6, r.InputLength())
			assert.Equal(t, *cfg, r.Config())

			res, err := r.Predict(x)
			require.Nil(t, err)
			assert.Len(t, res, len(y))
			for _, v := range res {
				assert.False(t, math.IsNaN(v))
			}
		})
	}
}

func TestRecurrentDeterministic(t *testing.T) {
	x, y := sineWindows(t, 30, 5)

	cfg := NewDefaultConfig()
	cfg.Units = 4
	cfg.Epochs = 5

	predict := func() []float64 {
		r, err := NewRecurrent(cfg)
		require.Nil(t, err)
		require.Nil(t, r.Fit(x, y))
		res, err := r.Predict(array.NewWindow([]float64{0.1, 0.2, 0.3, 0.4, 0.5}))
		require.Nil(t, err)
		return res
	}

	assert.Equal(t, predict(), predict())
}

func TestRecurrentRefitResets(t *testing.T) {
	x, y := sineWindows(t, 20, 4)

	cfg := NewDefaultConfig()
	cfg.Units = 4
	cfg.Epochs = 3

	r, err := NewRecurrent(cfg)
	require.Nil(t, err)
	require.Nil(t, r.Fit(x, y))
	first := r.Loss()
	require.Nil(t, r.Fit(x, y))
	assert.Equal(t, first, r.Loss())
}

func TestRecurrentPredictConcurrent(t *testing.T) {
	x, y := sineWindows(t, 20, 4)

	cfg := NewDefaultConfig()
	cfg.Units = 4
	cfg.Epochs = 2

	r, err := NewRecurrent(cfg)
	require.Nil(t, err)
	require.Nil(t, r.Fit(x, y))

	expected, err := r.Predict(x)
	require.Nil(t, err)

	var wg sync.WaitGroup
	results := make([][]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Predict(x)
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.Equal(t, expected, res)
	}
}

func TestRecurrentErrors(t *testing.T) {
	x, y := sineWindows(t, 10, 4)

	cfg := NewDefaultConfig()
	cfg.Units = 2
	cfg.Epochs = 1

	r, err := NewRecurrent(cfg)
	require.Nil(t, err)
	assert.Equal(t, 0, r.InputLength())

	_, err = r.Predict(x)
	assert.ErrorIs(t, err, ErrUntrained)

	err = r.Fit(x, y[:3])
	assert.ErrorIs(t, err, ErrTargetLenMismatch)

	bad := append([]float64(nil), y...)
	bad[2] = math.NaN()
	err = r.Fit(x, bad)
	assert.ErrorIs(t, err, ErrNonFiniteInput)

	require.Nil(t, r.Fit(x, y))
	_, err = r.Predict(array.NewWindow([]float64{1, 2, 3}))
	assert.ErrorIs(t, err, ErrInputShape)

	_, err = r.Predict(nil)
	assert.ErrorIs(t, err, ErrNoDesignMatrix)
}

func TestClipGradients(t *testing.T) {
	a := &param{w: make([]float64, 2), g: []float64{3, 0}}
	b := &param{w: make([]float64, 1), g: []float64{4}}

	clipGradients([]*param{a, b}, 1.0)
	assert.InDeltaSlice(t, []float64{0.6, 0}, a.g, 1e-12)
	assert.InDeltaSlice(t, []float64{0.8}, b.g, 1e-12)

	clipGradients([]*param{a, b}, 10.0)
	assert.InDeltaSlice(t, []float64{0.6, 0}, a.g, 1e-12)

	clipGradients([]*param{a, b}, 0)
	assert.InDeltaSlice(t, []float64{0.8}, b.g, 1e-12)
}

func TestLosses(t *testing.T) {
	testData := map[string]struct {
		loss         lossFunc
		predicted    float64
		actual       float64
		expectedLoss float64
		expectedGrad float64
	}{
		"squared over":   {squaredError, 3, 1, 4, 4},
		"squared under":  {squaredError, 1, 3, 4, -4},
		"absolute over":  {absoluteError, 3, 1, 2, 1},
		"absolute under": {absoluteError, 1, 3, 2, -1},
		"absolute equal": {absoluteError, 1, 1, 0, 0},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			l, g := td.loss(td.predicted, td.actual)
			assert.Equal(t, td.expectedLoss, l)
			assert.Equal(t, td.expectedGrad, g)
		})
	}
}
