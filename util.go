package seqforecaster

import (
	"math"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. The input
// y is a slice of series that must have the same length as the input time slice. NaN values are
// drawn as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	line = line.SetXAxis(t)
	for i, series := range seriesName {
		line = line.AddSeries(series, lineData(y[i]))
	}
	return line
}

// LineForecast generates an echart line chart of a forecast result plotting the actual values
// along with the forecasted values.
func LineForecast(title string, res *Results) *charts.Line {
	return LineTSeries(title, []string{"Actual", "Forecast"}, res.T, [][]float64{res.Actual, res.Forecast})
}

// LineLoss generates an echart line chart of the training loss per epoch
func LineLoss(loss []float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Training Loss",
			},
		),
		charts.WithXAxisOpts(opts.XAxis{Name: "epoch"}),
	)

	epochs := make([]string, len(loss))
	for i := range loss {
		epochs[i] = strconv.Itoa(i + 1)
	}
	line.SetXAxis(epochs).AddSeries("Loss", lineData(loss))
	return line
}

func lineData(y []float64) []opts.LineData {
	data := make([]opts.LineData, 0, len(y))
	for _, v := range y {
		if math.IsNaN(v) {
			data = append(data, opts.LineData{Value: nil})
			continue
		}
		data = append(data, opts.LineData{Value: v})
	}
	return data
}

func indentExpand(indent string, growth int) string {
	indentByte := []byte(indent)
	out := make([]byte, 0, len(indent)*growth)
	for i := 0; i < growth; i++ {
		out = append(out, indentByte...)
	}
	return string(out)
}
