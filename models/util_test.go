package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testRegressor(t *testing.T, model regressor, x, y mat.Matrix, intercept float64, coef []float64, tol float64) {
	err := model.Fit(x, y)
	require.Nil(t, err)

	assert.InDelta(t, intercept, model.Intercept(), tol)

	c := model.Coef()
	assert.InDeltaSlice(t, coef, c, tol)

	r2, err := model.Score(x, y)
	require.Nil(t, err)
	assert.InDelta(t, 1.0, r2, tol)
}

func newDenseFromRows(t testing.TB, x [][]float64) *mat.Dense {
	require.NotEmpty(t, x)
	data := make([]float64, 0, len(x)*len(x[0]))
	for _, row := range x {
		require.Len(t, row, len(x[0]))
		data = append(data, row...)
	}
	return mat.NewDense(len(x), len(x[0]), data)
}

func generateBenchData(nObs, nFeat int) (mat.Matrix, mat.Matrix) {
	data := make([]float64, 0, nObs*nFeat)
	for i := 0; i < nObs; i++ {
		for j := 0; j < nFeat; j++ {
			val := float64(i*nFeat + j)
			if j == 0 {
				val = 1.0
			}
			data = append(data, val)
		}
	}

	data2 := make([]float64, 0, nObs)
	for i := 0; i < cap(data2); i++ {
		data2 = append(data2, float64(i))
	}

	return mat.NewDense(nObs, nFeat, data), mat.NewDense(nObs, 1, data2)
}
