// Package models holds the trainable sequence models used to predict the next value of a
// univariate series from a fixed length window. All models share the Model interface and
// are built from a single Config.
package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-seqforecaster/array"
)

// Model is a one step ahead sequence regressor. Fit receives windows shaped
// (examples, steps, features) with one target per example, and Predict returns one value
// per example. Predict must be safe to call concurrently once Fit has returned.
type Model interface {
	Fit(x *array.Array, y []float64) error
	Predict(x *array.Array) ([]float64, error)
	InputLength() int
}

// LayerType selects the model variant
type LayerType string

const (
	LayerSimpleRecurrent LayerType = "simple_rnn"
	LayerLSTM            LayerType = "lstm"
	LayerLinear          LayerType = "linear"
)

const (
	OptimizerSGD  = "sgd"
	OptimizerAdam = "adam"

	LossMSE = "mse"
	LossMAE = "mae"
)

const (
	DefaultUnits        = 32
	DefaultEpochs       = 20
	DefaultBatchSize    = 16
	DefaultLearningRate = 0.005
	DefaultClipNorm     = 1.0
	DefaultSeed         = 7
)

var (
	ErrNonPositiveUnits     = errors.New("units must be positive")
	ErrNonPositiveEpochs    = errors.New("epochs must be positive")
	ErrNonPositiveBatchSize = errors.New("batch size must be positive")
	ErrNonPositiveRate      = errors.New("learning rate must be positive")
	ErrNegativeClipNorm     = errors.New("clip norm must be non-negative")
	ErrNegativeRegularize   = errors.New("regularization must be non-negative")
)

// Config enumerates everything needed to construct and train a model. There are no
// other hidden settings.
type Config struct {
	// Layer selects a simple recurrent, LSTM or linear autoregressive model
	Layer LayerType `json:"layer" mapstructure:"layer"`

	// Units is the hidden state size of a recurrent layer
	Units int `json:"units" mapstructure:"units"`

	// Epochs is the number of passes over the training set
	Epochs int `json:"epochs" mapstructure:"epochs"`

	// BatchSize is the number of examples per gradient update
	BatchSize int `json:"batch_size" mapstructure:"batch_size"`

	// Optimizer is one of sgd or adam
	Optimizer string `json:"optimizer" mapstructure:"optimizer"`

	// Loss is one of mse or mae
	Loss string `json:"loss" mapstructure:"loss"`

	LearningRate float64 `json:"learning_rate" mapstructure:"learning_rate"`

	// ClipNorm rescales a batch gradient whose l2 norm exceeds it. 0 disables clipping.
	ClipNorm float64 `json:"clip_norm" mapstructure:"clip_norm"`

	// Regularization is the L1 penalty of the linear model. 0 fits ordinary least squares.
	Regularization float64 `json:"regularization" mapstructure:"regularization"`

	// Seed drives weight initialization and minibatch shuffling
	Seed uint64 `json:"seed" mapstructure:"seed"`
}

// NewDefaultConfig returns an LSTM trained with adam on mean squared error
func NewDefaultConfig() *Config {
	return &Config{
		Layer:        LayerLSTM,
		Units:        DefaultUnits,
		Epochs:       DefaultEpochs,
		BatchSize:    DefaultBatchSize,
		Optimizer:    OptimizerAdam,
		Loss:         LossMSE,
		LearningRate: DefaultLearningRate,
		ClipNorm:     DefaultClipNorm,
		Seed:         DefaultSeed,
	}
}

// Validate checks the configuration. A nil config returns the defaults.
func (c *Config) Validate() (*Config, error) {
	if c == nil {
		c = NewDefaultConfig()
	}

	switch c.Layer {
	case LayerLinear:
		if c.Regularization < 0 || math.IsNaN(c.Regularization) {
			return nil, ErrNegativeRegularize
		}
		return c, nil
	case LayerSimpleRecurrent, LayerLSTM:
	default:
		return nil, fmt.Errorf("%q, %w", c.Layer, ErrUnknownLayer)
	}

	if c.Units <= 0 {
		return nil, ErrNonPositiveUnits
	}
	if c.Epochs <= 0 {
		return nil, ErrNonPositiveEpochs
	}
	if c.BatchSize <= 0 {
		return nil, ErrNonPositiveBatchSize
	}
	if !(c.LearningRate > 0) {
		return nil, ErrNonPositiveRate
	}
	if c.ClipNorm < 0 || math.IsNaN(c.ClipNorm) {
		return nil, ErrNegativeClipNorm
	}
	if _, err := newOptimizer(c.Optimizer, c.LearningRate); err != nil {
		return nil, err
	}
	if _, err := newLoss(c.Loss); err != nil {
		return nil, err
	}
	return c, nil
}

// New constructs an untrained model for the configured layer type
func New(cfg *Config) (Model, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	switch cfg.Layer {
	case LayerLinear:
		return NewLinear(cfg.Regularization)
	default:
		return NewRecurrent(cfg)
	}
}

// validateTraining checks the training array against the targets and returns its shape
func validateTraining(x *array.Array, y []float64) (int, int, int, error) {
	if x == nil {
		return 0, 0, 0, ErrNoTrainingMatrix
	}
	if y == nil {
		return 0, 0, 0, ErrNoTargetMatrix
	}
	n, s, f := x.Shape()
	if n == 0 || s == 0 || f == 0 {
		return 0, 0, 0, fmt.Errorf("got shape (%d, %d, %d), %w", n, s, f, ErrNoTrainingData)
	}
	if len(y) != n {
		return 0, 0, 0, fmt.Errorf("training data has %d examples and target has %d values, %w", n, len(y), ErrTargetLenMismatch)
	}
	for _, v := range x.Flatten() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, ErrNonFiniteInput
		}
	}
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, ErrNonFiniteInput
		}
	}
	return n, s, f, nil
}

// validateInference checks an inference array against the trained steps and features
func validateInference(x *array.Array, steps, features int) error {
	if x == nil {
		return ErrNoDesignMatrix
	}
	_, s, f := x.Shape()
	if s != steps || f != features {
		return fmt.Errorf("got (%d steps, %d features), trained on (%d steps, %d features), %w", s, f, steps, features, ErrInputShape)
	}
	return nil
}
