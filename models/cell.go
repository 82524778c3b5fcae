package models

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// param is a flat block of trainable weights with its accumulated gradient. Matrix and
// vector views built over w and g share their backing slices.
type param struct {
	name string
	w    []float64
	g    []float64
}

func newParam(name string, size int) *param {
	return &param{
		name: name,
		w:    make([]float64, size),
		g:    make([]float64, size),
	}
}

func (p *param) zeroGrad() {
	for i := range p.g {
		p.g[i] = 0
	}
}

// glorotUniform fills w from U(-limit, limit) with limit = sqrt(6 / (fanIn + fanOut))
func (p *param) glorotUniform(fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range p.w {
		p.w[i] = (2.0*rng.Float64() - 1.0) * limit
	}
}

// cell is a recurrent layer. forward consumes one example of steps*features values and
// returns the final hidden state along with a function that backpropagates a gradient
// with respect to that hidden state through every step, accumulating into the cell
// parameter gradients. forward only reads weights.
type cell interface {
	params() []*param
	units() int
	forward(x []float64, steps, features int) ([]float64, func(dh []float64))
}

func newCell(layer LayerType, units, features int, rng *rand.Rand) cell {
	if layer == LayerSimpleRecurrent {
		return newSimpleCell(units, features, rng)
	}
	return newLSTMCell(units, features, rng)
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// stepInput returns a vector view of the features at one step
func stepInput(x []float64, step, features int) *mat.VecDense {
	return mat.NewVecDense(features, x[step*features:(step+1)*features:(step+1)*features])
}
