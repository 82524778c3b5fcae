package timedataset

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateT(t *testing.T) {
	nowFunc := func() time.Time {
		return time.Date(1970, 1, 8, 0, 0, 0, 0, time.UTC)
	}

	numPnts := 7
	res := GenerateT(numPnts, 24*time.Hour, nowFunc)
	assert.Len(t, res, numPnts)

	assert.Equal(t, res[0], time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, res[numPnts-1], time.Date(1970, 1, 7, 0, 0, 0, 0, time.UTC))
}

func TestSeries(t *testing.T) {
	numPnts := 7
	s := Series(GenerateConstY(numPnts, 1))

	res := s.Add(GenerateConstY(numPnts, 2))
	require.Equal(t, Series([]float64{3, 3, 3, 3, 3, 3, 3}), res)

	nowFunc := func() time.Time {
		return time.Date(1970, 1, 8, 0, 0, 0, 0, time.UTC)
	}

	tSeries := GenerateT(numPnts, 24*time.Hour, nowFunc)
	s.SetConst(tSeries, 2.0,
		time.Date(1970, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 5, 0, 0, 0, 0, time.UTC),
	)
	assert.Equal(t, Series([]float64{3, 3, 2, 2, 3, 3, 3}), s)

	s.SetConst(tSeries, math.NaN(),
		time.Date(1970, 1, 6, 0, 0, 0, 0, time.UTC),
		time.Date(1970, 1, 7, 0, 0, 0, 0, time.UTC),
	)
	assert.True(t, math.IsNaN(s[5]))
	assert.Equal(t, 3.0, s[6])
}

func TestGenerateWaveY(t *testing.T) {
	tSeries := GenerateT(4, 6*time.Hour, func() time.Time {
		return time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)
	})

	res := GenerateWaveY(tSeries, 2.0, 86400.0, 1.0, 0)
	assert.InDeltaSlice(t, []float64{0, 2, 0, -2}, res, 1e-9)
}

func TestGenerateNoise(t *testing.T) {
	tSeries := GenerateT(100, time.Hour, time.Now)

	a := GenerateNoise(tSeries, rand.New(rand.NewPCG(1, 2)), 1.0, 0, 86400.0, 1.0, 0)
	b := GenerateNoise(tSeries, rand.New(rand.NewPCG(1, 2)), 1.0, 0, 86400.0, 1.0, 0)
	assert.Equal(t, a, b)
	assert.Len(t, a, 100)

	zero := GenerateNoise(tSeries, nil, 0, 0, 86400.0, 1.0, 0)
	for _, v := range zero {
		assert.Equal(t, 0.0, math.Abs(v))
	}
}

func TestGenerateTrend(t *testing.T) {
	tSeries := GenerateT(3, time.Hour, time.Now)

	res := GenerateTrend(tSeries, 1.0, 0.5)
	assert.InDeltaSlice(t, []float64{1.0, 1.5, 2.0}, res, 1e-12)

	assert.Empty(t, GenerateTrend(nil, 1.0, 0.5))
}
