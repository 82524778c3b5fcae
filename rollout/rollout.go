// Package rollout turns a one step ahead model into a multi step forecaster. Each
// prediction is fed back into the input window to condition the next one, so errors may
// compound over the horizon.
package rollout

import (
	"context"
	"fmt"
	"iter"
	"runtime"

	"github.com/aouyang1/go-seqforecaster/array"
	"github.com/aouyang1/go-seqforecaster/models"
	"github.com/aouyang1/go-seqforecaster/window"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidHorizon  = fmt.Errorf("horizon must be positive, %w", window.ErrInvalidParameter)
	ErrSeedLenMismatch = fmt.Errorf("seed length does not match the model input length, %w", window.ErrInvalidParameter)
	ErrNoModel         = fmt.Errorf("no model to roll forward, %w", window.ErrInvalidParameter)
)

// Predictor is a trained one step model. Predict receives a single window shaped
// (1, input length, 1) and must return exactly one value.
type Predictor interface {
	InputLength() int
	Predict(x *array.Array) ([]float64, error)
}

// Forecast returns horizon predictions in chronological order starting right after the
// seed window. The seed is never modified.
func Forecast(seed []float64, horizon int, model Predictor) ([]float64, error) {
	if err := validate(seed, horizon, model); err != nil {
		return nil, err
	}

	res := make([]float64, 0, horizon)
	for val, err := range Steps(seed, horizon, model) {
		if err != nil {
			return nil, err
		}
		res = append(res, val)
	}
	return res, nil
}

// Steps yields the same predictions as Forecast one at a time. Breaking out of the range
// loop stops the rollout without further calls to the model. An error is yielded at most
// once and ends the sequence.
func Steps(seed []float64, horizon int, model Predictor) iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		if err := validate(seed, horizon, model); err != nil {
			yield(0, err)
			return
		}

		buf := shift(seed, nil)
		for step := 0; step < horizon; step++ {
			next, err := predictNext(buf, model)
			if err != nil {
				yield(0, fmt.Errorf("at step %d of %d, %w", step+1, horizon, err))
				return
			}
			if !yield(next, nil) {
				return
			}
			buf = shift(buf, &next)
		}
	}
}

// ForecastMany runs one independent rollout per seed with at most workers running at a
// time. Results are in seed order. The first failure cancels the remaining rollouts. A
// non-positive workers value uses GOMAXPROCS.
func ForecastMany(ctx context.Context, seeds [][]float64, horizon int, model Predictor, workers int) ([][]float64, error) {
	for i, seed := range seeds {
		if err := validate(seed, horizon, model); err != nil {
			return nil, fmt.Errorf("seed %d, %w", i, err)
		}
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	res := make([][]float64, len(seeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seed := range seeds {
		g.Go(func() error {
			fcast := make([]float64, 0, horizon)
			for val, err := range Steps(seed, horizon, model) {
				if err != nil {
					return fmt.Errorf("seed %d, %w", i, err)
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				fcast = append(fcast, val)
			}
			res[i] = fcast
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func validate(seed []float64, horizon int, model Predictor) error {
	if horizon <= 0 {
		return fmt.Errorf("got %d, %w", horizon, ErrInvalidHorizon)
	}
	if model == nil {
		return ErrNoModel
	}
	if l := model.InputLength(); len(seed) == 0 || len(seed) != l {
		return fmt.Errorf("seed has %d values and model expects %d, %w", len(seed), l, ErrSeedLenMismatch)
	}
	return nil
}

func predictNext(buf []float64, model Predictor) (float64, error) {
	res, err := model.Predict(array.NewWindow(buf))
	if err != nil {
		return 0, fmt.Errorf("%w, %w", models.ErrModelInference, err)
	}
	if len(res) != 1 {
		return 0, fmt.Errorf("model returned %d values for one window, %w", len(res), models.ErrModelInference)
	}
	return res[0], nil
}

// shift returns a new buffer holding buf without its oldest value followed by next. A
// nil next returns a plain copy of buf.
func shift(buf []float64, next *float64) []float64 {
	if next == nil {
		res := make([]float64, len(buf))
		copy(res, buf)
		return res
	}
	res := make([]float64, len(buf))
	copy(res, buf[1:])
	res[len(res)-1] = *next
	return res
}
