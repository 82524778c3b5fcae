package models

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/aouyang1/go-seqforecaster/array"
	"gonum.org/v1/gonum/floats"
)

// Recurrent is a single recurrent layer, either a simple tanh cell or an LSTM, whose
// final hidden state feeds a dense layer with one output. It is trained with minibatch
// backpropagation through time.
type Recurrent struct {
	mu sync.RWMutex

	cfg *Config

	cell cell
	wOut *param
	bOut *param

	steps    int
	features int
	trained  bool
	history  []float64
}

// NewRecurrent initializes an untrained recurrent model. Weights are allocated on Fit once
// the input shape is known.
func NewRecurrent(cfg *Config) (*Recurrent, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if cfg.Layer != LayerSimpleRecurrent && cfg.Layer != LayerLSTM {
		return nil, fmt.Errorf("%q is not recurrent, %w", cfg.Layer, ErrUnknownLayer)
	}
	return &Recurrent{cfg: cfg}, nil
}

func (r *Recurrent) initialize(steps, features int, rng *rand.Rand) {
	r.steps = steps
	r.features = features
	r.cell = newCell(r.cfg.Layer, r.cfg.Units, features, rng)
	r.wOut = newParam("dense/kernel", r.cfg.Units)
	r.wOut.glorotUniform(r.cfg.Units, 1, rng)
	r.bOut = newParam("dense/bias", 1)
	r.history = nil
}

func (r *Recurrent) params() []*param {
	return append(r.cell.params(), r.wOut, r.bOut)
}

// forwardOne runs a single example through the network and returns the prediction along
// with the function to backpropagate the gradient of the loss with respect to it
func (r *Recurrent) forwardOne(x []float64) (float64, func(dy float64)) {
	h, backward := r.cell.forward(x, r.steps, r.features)
	yhat := floats.Dot(r.wOut.w, h) + r.bOut.w[0]

	return yhat, func(dy float64) {
		floats.AddScaled(r.wOut.g, dy, h)
		r.bOut.g[0] += dy

		dh := make([]float64, len(h))
		floats.AddScaled(dh, dy, r.wOut.w)
		backward(dh)
	}
}

// accumulate zeroes the gradients, then accumulates the gradient of the mean loss over the
// batch of example indexes. Returns the summed loss of the batch.
func (r *Recurrent) accumulate(x *array.Array, y []float64, batch []int, loss lossFunc) (float64, error) {
	params := r.params()
	for _, p := range params {
		p.zeroGrad()
	}

	var total float64
	scale := 1.0 / float64(len(batch))
	for _, idx := range batch {
		ex, err := x.Example(idx)
		if err != nil {
			return 0, err
		}
		yhat, backward := r.forwardOne(ex)
		l, dl := loss(yhat, y[idx])
		total += l
		backward(dl * scale)
	}
	return total, nil
}

// Fit trains the network on windows shaped (examples, steps, features). Refitting
// reinitializes all weights from the configured seed.
func (r *Recurrent) Fit(x *array.Array, y []float64) error {
	n, s, f, err := validateTraining(x, y)
	if err != nil {
		return err
	}
	loss, err := newLoss(r.cfg.Loss)
	if err != nil {
		return err
	}
	opt, err := newOptimizer(r.cfg.Optimizer, r.cfg.LearningRate)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rng := rand.New(rand.NewPCG(r.cfg.Seed, r.cfg.Seed+1))
	r.trained = false
	r.initialize(s, f, rng)
	params := r.params()

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < r.cfg.Epochs; epoch++ {
		rng.Shuffle(n, func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		var epochLoss float64
		for start := 0; start < n; start += r.cfg.BatchSize {
			end := min(start+r.cfg.BatchSize, n)
			batchLoss, err := r.accumulate(x, y, order[start:end], loss)
			if err != nil {
				return err
			}
			clipGradients(params, r.cfg.ClipNorm)
			opt.step(params)
			epochLoss += batchLoss
		}
		epochLoss /= float64(n)

		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			return fmt.Errorf("at epoch %d, %w", epoch+1, ErrNonFiniteLoss)
		}
		r.history = append(r.history, epochLoss)
		slog.Debug("completed training epoch",
			"layer", r.cfg.Layer,
			"epoch", epoch+1,
			"epochs", r.cfg.Epochs,
			"loss", epochLoss,
		)
	}
	r.trained = true
	return nil
}

// Predict returns one value per example. Inputs must have the trained number of steps and
// features.
func (r *Recurrent) Predict(x *array.Array) ([]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.trained {
		return nil, ErrUntrained
	}
	if err := validateInference(x, r.steps, r.features); err != nil {
		return nil, err
	}

	n, _, _ := x.Shape()
	res := make([]float64, n)
	for i := 0; i < n; i++ {
		ex, err := x.Example(i)
		if err != nil {
			return nil, err
		}
		res[i], _ = r.forwardOne(ex)
	}
	return res, nil
}

// InputLength returns the window length the model was trained on, 0 when untrained
func (r *Recurrent) InputLength() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.trained {
		return 0
	}
	return r.steps
}

// Loss returns the mean training loss of each completed epoch
func (r *Recurrent) Loss() []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]float64, len(r.history))
	copy(res, r.history)
	return res
}

// Config returns the configuration the model was built with
func (r *Recurrent) Config() Config {
	return *r.cfg
}
