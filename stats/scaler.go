package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var ErrUnfitScaler = errors.New("scaler has not been fit")

// MinMaxScaler maps values linearly so the fitted minimum becomes 0 and the fitted maximum
// becomes 1. A constant series maps to 0.
type MinMaxScaler struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`

	fit bool
}

// Fit records the range of the non NaN values of y
func (s *MinMaxScaler) Fit(y []float64) error {
	valid := make([]float64, 0, len(y))
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		valid = append(valid, v)
	}
	if len(valid) == 0 {
		return ErrNoValidPairs
	}
	s.Min = floats.Min(valid)
	s.Max = floats.Max(valid)
	s.fit = true
	return nil
}

// Transform returns a scaled copy of y
func (s *MinMaxScaler) Transform(y []float64) ([]float64, error) {
	if !s.fit {
		return nil, ErrUnfitScaler
	}
	res := make([]float64, len(y))
	span := s.Max - s.Min
	for i, v := range y {
		if span == 0 {
			res[i] = v - s.Min
			continue
		}
		res[i] = (v - s.Min) / span
	}
	return res, nil
}

// Inverse maps scaled values back to the original range
func (s *MinMaxScaler) Inverse(y []float64) ([]float64, error) {
	if !s.fit {
		return nil, ErrUnfitScaler
	}
	res := make([]float64, len(y))
	span := s.Max - s.Min
	for i, v := range y {
		if span == 0 {
			res[i] = v + s.Min
			continue
		}
		res[i] = v*span + s.Min
	}
	return res, nil
}
