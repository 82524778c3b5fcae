// Package stats scores forecasts against observations and prepares series for training.
package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrResLenMismatch = errors.New("predicted and actual have different lengths")
	ErrNoValidPairs   = errors.New("no pair of predicted and actual values without a NaN")
)

// Scores tracks the fit scores
type Scores struct {
	MSE  float64 `json:"mean_squared_error"`
	RMSE float64 `json:"root_mean_squared_error"`
	MAPE float64 `json:"mean_average_percent_error"`
	R2   float64 `json:"r_squared"`
}

// NewScores calculates the fit scores given the predicted and actual input slice values.
// Pairs where either value is NaN are skipped.
func NewScores(predicted, actual []float64) (*Scores, error) {
	mse, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, err := MAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean average percent error, %w", err)
	}
	rs, err := RSquared(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute r-squared, %w", err)
	}

	return &Scores{
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		MAPE: mape,
		R2:   rs,
	}, nil
}

// validPairs returns the predicted and actual values where neither is NaN
func validPairs(predicted, actual []float64) ([]float64, []float64, error) {
	if len(predicted) != len(actual) {
		return nil, nil, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}

	predictCopy := make([]float64, 0, len(predicted))
	actualCopy := make([]float64, 0, len(actual))
	for i := 0; i < len(predicted); i++ {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		predictCopy = append(predictCopy, predicted[i])
		actualCopy = append(actualCopy, actual[i])
	}
	if len(actualCopy) == 0 {
		return nil, nil, ErrNoValidPairs
	}
	return predictCopy, actualCopy, nil
}

// MSE computes the mean squared error. This is the same as sum((y-yhat)^2)/n.
// A score of 0 means a perfect match with no errors.
func MSE(predicted, actual []float64) (float64, error) {
	predicted, actual, err := validPairs(predicted, actual)
	if err != nil {
		return 0, err
	}

	mse := 0.0
	for i := 0; i < len(actual); i++ {
		mse += math.Pow(actual[i]-predicted[i], 2.0)
	}
	mse /= float64(len(actual))
	return mse, nil
}

// MAPE calculates the mean average percent error. This is the same as sum(abs((y-yhat)/y))/n.
// Actual values of 0 are skipped. A score of 0 means a perfect match with no errors.
func MAPE(predicted, actual []float64) (float64, error) {
	predicted, actual, err := validPairs(predicted, actual)
	if err != nil {
		return 0, err
	}

	mape := 0.0
	var n int
	for i := 0; i < len(actual); i++ {
		if actual[i] == 0 {
			continue
		}
		mape += math.Abs((actual[i] - predicted[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0, nil
	}
	mape /= float64(n)
	return mape, nil
}

// RSquared computes the r squared value between the predicted and actual where 1.0 means perfect
// fit and 0 represents no relationship. Actual values without any variance, such as a single
// observation, score 1 on an exact match and 0 otherwise.
func RSquared(predicted, actual []float64) (float64, error) {
	predicted, actual, err := validPairs(predicted, actual)
	if err != nil {
		return 0, err
	}

	r2 := stat.RSquaredFrom(predicted, actual, nil)
	switch {
	case math.IsNaN(r2):
		return 1.0, nil
	case math.IsInf(r2, -1):
		return 0.0, nil
	}
	return r2, nil
}

type scoresJSON struct {
	MSE  *float64 `json:"mean_squared_error"`
	RMSE *float64 `json:"root_mean_squared_error"`
	MAPE *float64 `json:"mean_average_percent_error"`
	R2   *float64 `json:"r_squared"`
}

// MarshalJSON encodes NaN and infinite scores, as left by a diverged forecast, as null
func (s Scores) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoresJSON{
		MSE:  finiteOrNil(s.MSE),
		RMSE: finiteOrNil(s.RMSE),
		MAPE: finiteOrNil(s.MAPE),
		R2:   finiteOrNil(s.R2),
	})
}

// UnmarshalJSON decodes null scores as NaN
func (s *Scores) UnmarshalJSON(b []byte) error {
	var res scoresJSON
	if err := json.Unmarshal(b, &res); err != nil {
		return err
	}
	s.MSE = valueOrNaN(res.MSE)
	s.RMSE = valueOrNaN(res.RMSE)
	s.MAPE = valueOrNaN(res.MAPE)
	s.R2 = valueOrNaN(res.R2)
	return nil
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
