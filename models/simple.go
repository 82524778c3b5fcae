package models

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// simpleCell is a fully connected recurrent cell, h_t = tanh(Wx x_t + Wh h_{t-1} + b)
type simpleCell struct {
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

func newSimpleCell(units, features int, rng *rand.Rand) *simpleCell {
	c := &simpleCell{
		n:  units,
		wx: newParam("simple_rnn/kernel", units*features),
		wh: newParam("simple_rnn/recurrent_kernel", units*units),
		b:  newParam("simple_rnn/bias", units),
	}
	c.wx.glorotUniform(features, units, rng)
	c.wh.glorotUniform(units, units, rng)

	c.wxMx = mat.NewDense(units, features, c.wx.w)
	c.whMx = mat.NewDense(units, units, c.wh.w)
	c.bVec = mat.NewVecDense(units, c.b.w)
	c.dwxMx = mat.NewDense(units, features, c.wx.g)
	c.dwhMx = mat.NewDense(units, units, c.wh.g)
	c.dbVec = mat.NewVecDense(units, c.b.g)
	return c
}

func (c *simpleCell) params() []*param {
	return []*param{c.wx, c.wh, c.b}
}

func (c *simpleCell) units() int {
	return c.n
}

func (c *simpleCell) forward(x []float64, steps, features int) ([]float64, func(dh []float64)) {
	xs := make([]*mat.VecDense, steps)
	hs := make([]*mat.VecDense, steps+1)
	hs[0] = mat.NewVecDense(c.n, nil)

	var rec mat.VecDense
	for t := 0; t < steps; t++ {
		xs[t] = stepInput(x, t, features)

		h := mat.NewVecDense(c.n, nil)
		h.MulVec(c.wxMx, xs[t])
		rec.MulVec(c.whMx, hs[t])
		h.AddVec(h, &rec)
		h.AddVec(h, c.bVec)

		raw := h.RawVector().Data
		for i := range raw {
			raw[i] = math.Tanh(raw[i])
		}
		hs[t+1] = h
	}

	last := make([]float64, c.n)
	copy(last, hs[steps].RawVector().Data)

	backward := func(dh []float64) {
		grad := make([]float64, c.n)
		copy(grad, dh)

		da := mat.NewVecDense(c.n, nil)
		for t := steps; t >= 1; t-- {
			h := hs[t].RawVector().Data
			for i := 0; i < c.n; i++ {
				da.SetVec(i, grad[i]*(1.0-h[i]*h[i]))
			}
			c.dwxMx.RankOne(c.dwxMx, 1.0, da, xs[t-1])
			c.dwhMx.RankOne(c.dwhMx, 1.0, da, hs[t-1])
			c.dbVec.AddVec(c.dbVec, da)

			prev := mat.NewVecDense(c.n, grad)
			prev.MulVec(c.whMx.T(), da)
		}
	}
	return last, backward
}
