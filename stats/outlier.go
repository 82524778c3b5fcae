package stats

import (
	"math"
	"sort"
)

// DetectOutliers returns the indexes of values outside of the percentile range widened by
// tukeyFactor times its width on both sides. NaN values are never outliers. Percentiles are
// clamped to [0, 1] and a lower percentile above the upper one is lowered to match it.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = clampUnit(lowerPerc, 0.0)
	upperPerc = clampUnit(upperPerc, 1.0)
	lowerPerc = math.Min(lowerPerc, upperPerc)
	if !(tukeyFactor > 0) {
		tukeyFactor = 0.0
	}

	yCopy := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			yCopy = append(yCopy, v)
		}
	}
	if len(yCopy) == 0 {
		return nil
	}
	sort.Float64s(yCopy)
	lowerIdx := int(math.Floor(float64(len(yCopy)-1) * lowerPerc))
	upperIdx := int(math.Ceil(float64(len(yCopy)-1) * upperPerc))

	lower := yCopy[lowerIdx]
	upper := yCopy[upperIdx]
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if y[i] > upper || y[i] < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}

// clampUnit limits v to [0, 1], replacing NaN with def
func clampUnit(v, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return math.Min(math.Max(v, 0.0), 1.0)
}
