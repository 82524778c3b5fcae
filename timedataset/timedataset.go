// Package timedataset holds the time indexed observations a forecaster is trained on,
// along with loading, gap filling and synthetic series generation.
package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoTrainingData     = errors.New("no training data")
	ErrNonMontonic        = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrNoValidData        = errors.New("no valid observations to interpolate from")
	ErrCannotInferFreq    = errors.New("cannot infer frequency from fewer than two time points")
	ErrIrregularInterval  = errors.New("time point does not fall on the sampling interval")
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length. Missing observations are stored as NaN.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoTrainingData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if i > 0 && !currT.After(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMontonic)
		}
		lastT = currT
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	td := &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}

	return td, nil
}

// Len returns the number of observations
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.Y)
}

// Copy returns a deep copy of the dataset
func (td *TimeDataset) Copy() *TimeDataset {
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.T))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// Missing returns the number of NaN or infinite observations
func (td *TimeDataset) Missing() int {
	var cnt int
	for _, v := range td.Y {
		if isMissing(v) {
			cnt++
		}
	}
	return cnt
}

// Interpolate returns a copy of the dataset with every missing observation filled in. Interior
// gaps are filled linearly by sample index between the surrounding valid observations, and
// leading or trailing gaps take the nearest valid observation.
func (td *TimeDataset) Interpolate() (*TimeDataset, error) {
	res := td.Copy()
	y := res.Y

	prev := -1
	for i, v := range y {
		if isMissing(v) {
			continue
		}
		switch {
		case prev == -1:
			for j := 0; j < i; j++ {
				y[j] = v
			}
		case i-prev > 1:
			slope := (v - y[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				y[j] = y[prev] + slope*float64(j-prev)
			}
		}
		prev = i
	}
	if prev == -1 {
		return nil, ErrNoValidData
	}
	for j := prev + 1; j < len(y); j++ {
		y[j] = y[prev]
	}
	return res, nil
}

// Regularize returns a copy of the dataset indexed on every interval from the start time to
// the end time, along with the number of time points inserted. Inserted time points hold NaN
// so they can be filled by Interpolate. Time points off the interval grid are rejected.
func (td *TimeDataset) Regularize(interval time.Duration) (*TimeDataset, int, error) {
	if interval <= 0 {
		return nil, 0, fmt.Errorf("got interval %s, %w", interval, ErrIrregularInterval)
	}
	if td.Len() == 0 {
		return nil, 0, ErrNoTrainingData
	}

	start := td.T[0]
	idx := make([]int, len(td.T))
	for i, t := range td.T {
		offset := t.Sub(start)
		if offset%interval != 0 {
			return nil, 0, fmt.Errorf("at %s with interval %s, %w", t, interval, ErrIrregularInterval)
		}
		idx[i] = int(offset / interval)
	}

	n := idx[len(idx)-1] + 1
	res := &TimeDataset{
		T: make([]time.Time, n),
		Y: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		res.T[i] = start.Add(interval * time.Duration(i))
		res.Y[i] = math.NaN()
	}
	for i, j := range idx {
		res.Y[j] = td.Y[i]
	}
	return res, n - len(td.T), nil
}

func isMissing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
