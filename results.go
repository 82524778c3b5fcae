package seqforecaster

import (
	"math"
	"time"

	"github.com/aouyang1/go-seqforecaster/stats"
	"github.com/goccy/go-json"
)

// Results pairs a forecast with the observations at the same time points. Actual is NaN
// past the end of the observations and Scores is nil when there is nothing to compare.
type Results struct {
	T        []time.Time   `json:"time"`
	Forecast []float64     `json:"forecast"`
	Actual   []float64     `json:"actual"`
	Scores   *stats.Scores `json:"scores,omitempty"`
}

type resultsJSON struct {
	T        []time.Time   `json:"time"`
	Forecast []*float64    `json:"forecast"`
	Actual   []*float64    `json:"actual"`
	Scores   *stats.Scores `json:"scores,omitempty"`
}

// MarshalJSON encodes NaN values as null
func (r Results) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultsJSON{
		T:        r.T,
		Forecast: toNullable(r.Forecast),
		Actual:   toNullable(r.Actual),
		Scores:   r.Scores,
	})
}

// UnmarshalJSON decodes null values as NaN
func (r *Results) UnmarshalJSON(b []byte) error {
	var res resultsJSON
	if err := json.Unmarshal(b, &res); err != nil {
		return err
	}
	r.T = res.T
	r.Forecast = fromNullable(res.Forecast)
	r.Actual = fromNullable(res.Actual)
	r.Scores = res.Scores
	return nil
}

func toNullable(y []float64) []*float64 {
	if y == nil {
		return nil
	}
	res := make([]*float64, len(y))
	for i := range y {
		if math.IsNaN(y[i]) {
			continue
		}
		res[i] = &y[i]
	}
	return res
}

func fromNullable(y []*float64) []float64 {
	if y == nil {
		return nil
	}
	res := make([]float64, len(y))
	for i, v := range y {
		if v == nil {
			res[i] = math.NaN()
			continue
		}
		res[i] = *v
	}
	return res
}
