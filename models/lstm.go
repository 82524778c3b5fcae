package models

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// lstmCell is a long short-term memory cell. The four gates are stacked in the kernels in
// the order input, forget, candidate, output.
//
//	i = sigmoid(z_i), f = sigmoid(z_f), g = tanh(z_g), o = sigmoid(z_o)
//	c_t = f*c_{t-1} + i*g
//	h_t = o*tanh(c_t)
type lstmCell struct {
	n  int
	wx *param
	wh *param
	b  *param

	wxMx *mat.Dense
	whMx *mat.Dense
	bVec *mat.VecDense

	dwxMx *mat.Dense
	dwhMx *mat.Dense
	dbVec *mat.VecDense
}

func newLSTMCell(units, features int, rng *rand.Rand) *lstmCell {
	c := &lstmCell{
		n:  units,
		wx: newParam("lstm/kernel", 4*units*features),
		wh: newParam("lstm/recurrent_kernel", 4*units*units),
		b:  newParam("lstm/bias", 4*units),
	}
	c.wx.glorotUniform(features, 4*units, rng)
	c.wh.glorotUniform(units, 4*units, rng)

	// forget gate starts open
	for i := units; i < 2*units; i++ {
		c.b.w[i] = 1.0
	}

	c.wxMx = mat.NewDense(4*units, features, c.wx.w)
	c.whMx = mat.NewDense(4*units, units, c.wh.w)
	c.bVec = mat.NewVecDense(4*units, c.b.w)
	c.dwxMx = mat.NewDense(4*units, features, c.wx.g)
	c.dwhMx = mat.NewDense(4*units, units, c.wh.g)
	c.dbVec = mat.NewVecDense(4*units, c.b.g)
	return c
}

func (c *lstmCell) params() []*param {
	return []*param{c.wx, c.wh, c.b}
}

func (c *lstmCell) units() int {
	return c.n
}

func (c *lstmCell) forward(x []float64, steps, features int) ([]float64, func(dh []float64)) {
	n := c.n
	xs := make([]*mat.VecDense, steps)
	hs := make([]*mat.VecDense, steps+1)
	hs[0] = mat.NewVecDense(n, nil)

	// per step activated gates, cell state and tanh of the cell state
	gates := make([][]float64, steps)
	cs := make([][]float64, steps+1)
	tcs := make([][]float64, steps)
	cs[0] = make([]float64, n)

	var rec mat.VecDense
	for t := 0; t < steps; t++ {
		xs[t] = stepInput(x, t, features)

		z := mat.NewVecDense(4*n, nil)
		z.MulVec(c.wxMx, xs[t])
		rec.MulVec(c.whMx, hs[t])
		z.AddVec(z, &rec)
		z.AddVec(z, c.bVec)

		g := z.RawVector().Data
		for k := 0; k < n; k++ {
			g[k] = sigmoid(g[k])
			g[n+k] = sigmoid(g[n+k])
			g[2*n+k] = math.Tanh(g[2*n+k])
			g[3*n+k] = sigmoid(g[3*n+k])
		}

		ct := make([]float64, n)
		tc := make([]float64, n)
		h := make([]float64, n)
		for k := 0; k < n; k++ {
			ct[k] = g[n+k]*cs[t][k] + g[k]*g[2*n+k]
			tc[k] = math.Tanh(ct[k])
			h[k] = g[3*n+k] * tc[k]
		}
		gates[t] = g
		cs[t+1] = ct
		tcs[t] = tc
		hs[t+1] = mat.NewVecDense(n, h)
	}

	last := make([]float64, n)
	copy(last, hs[steps].RawVector().Data)

	backward := func(dh []float64) {
		grad := make([]float64, n)
		copy(grad, dh)
		dc := make([]float64, n)

		dz := mat.NewVecDense(4*n, nil)
		dzRaw := dz.RawVector().Data
		for t := steps; t >= 1; t-- {
			g := gates[t-1]
			tc := tcs[t-1]
			cPrev := cs[t-1]
			for k := 0; k < n; k++ {
				i, f, cand, o := g[k], g[n+k], g[2*n+k], g[3*n+k]

				dOut := grad[k] * tc[k]
				dCell := dc[k] + grad[k]*o*(1.0-tc[k]*tc[k])

				dzRaw[k] = dCell * cand * i * (1.0 - i)
				dzRaw[n+k] = dCell * cPrev[k] * f * (1.0 - f)
				dzRaw[2*n+k] = dCell * i * (1.0 - cand*cand)
				dzRaw[3*n+k] = dOut * o * (1.0 - o)

				dc[k] = dCell * f
			}
			c.dwxMx.RankOne(c.dwxMx, 1.0, dz, xs[t-1])
			c.dwhMx.RankOne(c.dwhMx, 1.0, dz, hs[t-1])
			c.dbVec.AddVec(c.dbVec, dz)

			prev := mat.NewVecDense(n, grad)
			prev.MulVec(c.whMx.T(), dz)
		}
	}
	return last, backward
}
