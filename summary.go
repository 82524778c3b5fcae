package seqforecaster

import (
	"fmt"
	"io"
	"time"

	"github.com/aouyang1/go-seqforecaster/models"
	"github.com/aouyang1/go-seqforecaster/stats"
	"github.com/aouyang1/go-seqforecaster/window"
)

// Summary is a serializable description of a fit forecaster and how well it scores on its
// training windows and held out observations
type Summary struct {
	Window *window.Options `json:"window"`
	Model  *models.Config  `json:"model"`

	Horizon      int       `json:"horizon"`
	Scaled       bool      `json:"scaled"`
	TrainStart   time.Time `json:"train_start"`
	TrainEnd     time.Time `json:"train_end"`
	Interval     string    `json:"interval"`
	Examples     int       `json:"examples"`
	Interpolated int       `json:"interpolated"`
	Outliers     []int     `json:"outliers,omitempty"`

	FinalLoss      float64       `json:"final_loss,omitempty"`
	FitScores      *stats.Scores `json:"fit_scores"`
	ForecastScores *stats.Scores `json:"forecast_scores,omitempty"`
}

// Summary describes the fit model along with its one step and forecast scores
func (f *Forecaster) Summary() (*Summary, error) {
	if f.model == nil {
		return nil, ErrNotFit
	}
	res, err := f.Forecast()
	if err != nil {
		return nil, err
	}

	trainStart := f.raw.Offset
	trainEnd := f.raw.Offset + len(f.raw.Train) - 1
	s := &Summary{
		Window:         f.opt.Window,
		Model:          f.opt.Model,
		Horizon:        f.opt.Horizon,
		Scaled:         f.scaler != nil,
		TrainStart:     f.data.T[trainStart],
		TrainEnd:       f.data.T[trainEnd],
		Interval:       f.interval.String(),
		Examples:       f.raw.Len(),
		Interpolated:   f.interpolated,
		FitScores:      f.fitResults.Scores,
		ForecastScores: res.Scores,
	}
	for _, idx := range f.outliers {
		s.Outliers = append(s.Outliers, trainStart+idx)
	}
	if loss := f.Loss(); len(loss) > 0 {
		s.FinalLoss = loss[len(loss)-1]
	}
	return s, nil
}

// TablePrint writes a human readable summary with every line starting with prefix and nested
// sections indented by indent
func (s *Summary) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecaster:\n", prefix, indentExpand(indent, 0)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sTraining: %s to %s every %s\n",
		prefix, indentExpand(indent, 1),
		s.TrainStart.Format(time.RFC3339), s.TrainEnd.Format(time.RFC3339), s.Interval,
	); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sExamples: %d    Interpolated: %d    Outliers: %d    Scaled: %t\n",
		prefix, indentExpand(indent, 1),
		s.Examples, s.Interpolated, len(s.Outliers), s.Scaled,
	); err != nil {
		return err
	}

	if s.Window != nil {
		if _, err := fmt.Fprintf(w, "%s%sWindow:\n", prefix, indentExpand(indent, 1)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sSeries: %d    Input: %d    Test: %d    Gap: %d    Horizon: %d\n",
			prefix, indentExpand(indent, 2),
			s.Window.SeriesLength, s.Window.InputLength, s.Window.TestLength, s.Window.SampleGap, s.Horizon,
		); err != nil {
			return err
		}
	}

	if s.Model != nil {
		if _, err := fmt.Fprintf(w, "%s%sModel: %s\n", prefix, indentExpand(indent, 1), s.Model.Layer); err != nil {
			return err
		}
		if s.Model.Layer == models.LayerLinear {
			if _, err := fmt.Fprintf(w, "%s%sRegularization: %.3f\n",
				prefix, indentExpand(indent, 2), s.Model.Regularization,
			); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, "%s%sUnits: %d    Epochs: %d    Batch: %d    Optimizer: %s    Loss: %s    Rate: %.4f\n",
				prefix, indentExpand(indent, 2),
				s.Model.Units, s.Model.Epochs, s.Model.BatchSize, s.Model.Optimizer, s.Model.Loss, s.Model.LearningRate,
			); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s%sFinal Loss: %.5f\n", prefix, indentExpand(indent, 2), s.FinalLoss); err != nil {
				return err
			}
		}
	}

	if err := printScores(w, prefix, indent, "Fit Scores", s.FitScores); err != nil {
		return err
	}
	return printScores(w, prefix, indent, "Forecast Scores", s.ForecastScores)
}

func printScores(w io.Writer, prefix, indent, title string, scores *stats.Scores) error {
	if scores == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s%s%s:\n", prefix, indentExpand(indent, 0), title); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s%sMAPE: %.3f    MSE: %.3f    RMSE: %.3f    R2: %.3f\n",
		prefix, indentExpand(indent, 1),
		scores.MAPE,
		scores.MSE,
		scores.RMSE,
		scores.R2,
	)
	return err
}
