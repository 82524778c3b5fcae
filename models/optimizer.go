package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

// optimizer applies the accumulated gradients of every param to its weights
type optimizer interface {
	step(params []*param)
}

func newOptimizer(name string, rate float64) (optimizer, error) {
	switch name {
	case OptimizerSGD:
		return &sgd{rate: rate}, nil
	case OptimizerAdam:
		return &adam{rate: rate}, nil
	default:
		return nil, fmt.Errorf("%q, %w", name, ErrUnknownOptimizer)
	}
}

type sgd struct {
	rate float64
}

func (s *sgd) step(params []*param) {
	for _, p := range params {
		floats.AddScaled(p.w, -s.rate, p.g)
	}
}

// adam keeps first and second moment estimates per weight in the same order as the
// params slice it is stepped with.
type adam struct {
	rate float64
	t    int
	m    [][]float64
	v    [][]float64
}

func (a *adam) step(params []*param) {
	if a.m == nil {
		a.m = make([][]float64, len(params))
		a.v = make([][]float64, len(params))
		for i, p := range params {
			a.m[i] = make([]float64, len(p.w))
			a.v[i] = make([]float64, len(p.w))
		}
	}
	a.t++
	rate := a.rate * math.Sqrt(1.0-math.Pow(adamBeta2, float64(a.t))) / (1.0 - math.Pow(adamBeta1, float64(a.t)))

	for i, p := range params {
		m, v := a.m[i], a.v[i]
		for j, g := range p.g {
			m[j] = adamBeta1*m[j] + (1.0-adamBeta1)*g
			v[j] = adamBeta2*v[j] + (1.0-adamBeta2)*g*g
			p.w[j] -= rate * m[j] / (math.Sqrt(v[j]) + adamEpsilon)
		}
	}
}

// clipGradients rescales all gradients together when their global l2 norm exceeds maxNorm
func clipGradients(params []*param, maxNorm float64) {
	if maxNorm <= 0 {
		return
	}
	var sq float64
	for _, p := range params {
		sq += floats.Dot(p.g, p.g)
	}
	norm := math.Sqrt(sq)
	if norm <= maxNorm {
		return
	}
	scale := maxNorm / norm
	for _, p := range params {
		floats.Scale(scale, p.g)
	}
}

// lossFunc returns the loss of a single prediction and its derivative with respect to
// the prediction
type lossFunc func(predicted, actual float64) (float64, float64)

func newLoss(name string) (lossFunc, error) {
	switch name {
	case LossMSE:
		return squaredError, nil
	case LossMAE:
		return absoluteError, nil
	default:
		return nil, fmt.Errorf("%q, %w", name, ErrUnknownLoss)
	}
}

func squaredError(predicted, actual float64) (float64, float64) {
	d := predicted - actual
	return d * d, 2.0 * d
}

func absoluteError(predicted, actual float64) (float64, float64) {
	d := predicted - actual
	switch {
	case d > 0:
		return d, 1.0
	case d < 0:
		return -d, -1.0
	default:
		return 0, 0
	}
}
