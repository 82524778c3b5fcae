package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateT returns n time points spaced by interval ending one interval before the minute
// truncated result of nowFunc.
func GenerateT(n int, interval time.Duration, nowFunc func() time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := time.Unix(nowFunc().Unix()/60*60, 0).Add(-time.Duration(n) * interval).UTC()
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(interval*time.Duration(i)))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// SetConst sets every value whose time falls in [start, end) to val. Setting NaN simulates
// a gap in the observations.
func (s Series) SetConst(t []time.Time, val float64, start, end time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		if (t[i].After(start) || t[i].Equal(start)) && t[i].Before(end) {
			s[i] = val
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise returns gaussian noise whose scale is noiseScale modulated by a wave. A
// nil rng uses the global source.
func GenerateNoise(t []time.Time, rng *rand.Rand, noiseScale, amp, periodSec, order, timeOffset float64) Series {
	norm := rand.NormFloat64
	if rng != nil {
		norm = rng.NormFloat64
	}

	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		scale := (noiseScale + amp*math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset)))
		y = append(y, norm()*scale)
	}
	return Series(y)
}

// GenerateTrend returns a line starting at bias at the first time point and growing by
// slope per hour.
func GenerateTrend(t []time.Time, bias, slope float64) Series {
	n := len(t)
	y := make([]float64, n)
	if n == 0 {
		return Series(y)
	}
	for i := 0; i < n; i++ {
		y[i] = bias + slope*t[i].Sub(t[0]).Hours()
	}
	return Series(y)
}
