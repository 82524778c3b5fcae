package models

import (
	"fmt"
	"sync"

	"github.com/aouyang1/go-seqforecaster/array"
	"gonum.org/v1/gonum/mat"
)

// regressor is satisfied by the OLS and Lasso regressions
type regressor interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}

// Linear is an autoregressive baseline that regresses the next value on every value of
// the flattened input window.
type Linear struct {
	mu sync.RWMutex

	reg      regressor
	steps    int
	features int
	trained  bool
	r2       float64
}

// NewLinear returns an ordinary least squares model when lambda is 0, otherwise a lasso
// model with lambda as the L1 penalty.
func NewLinear(lambda float64) (*Linear, error) {
	var reg regressor
	var err error
	if lambda == 0 {
		reg, err = NewOLSRegression(nil)
	} else {
		opt := NewDefaultLassoOptions()
		opt.Lambda = lambda
		reg, err = NewLassoRegression(opt)
	}
	if err != nil {
		return nil, err
	}
	return &Linear{reg: reg}, nil
}

// Fit regresses the targets on the flattened windows
func (l *Linear) Fit(x *array.Array, y []float64) error {
	_, s, f, err := validateTraining(x, y)
	if err != nil {
		return err
	}

	xMx := x.Matrix()
	yMx := mat.NewDense(len(y), 1, append([]float64(nil), y...))

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.reg.Fit(xMx, yMx); err != nil {
		return fmt.Errorf("unable to fit linear model, %w", err)
	}
	r2, err := l.reg.Score(xMx, yMx)
	if err != nil {
		return fmt.Errorf("unable to score linear model, %w", err)
	}

	l.steps = s
	l.features = f
	l.r2 = r2
	l.trained = true
	return nil
}

// Predict returns one value per input window
func (l *Linear) Predict(x *array.Array) ([]float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.trained {
		return nil, ErrUntrained
	}
	if err := validateInference(x, l.steps, l.features); err != nil {
		return nil, err
	}
	n, _, _ := x.Shape()
	if n == 0 {
		return []float64{}, nil
	}
	return l.reg.Predict(x.Matrix())
}

// InputLength returns the window length the model was trained on, 0 when untrained
func (l *Linear) InputLength() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.steps
}

// Intercept returns the fitted bias
func (l *Linear) Intercept() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.Intercept()
}

// Coef returns one weight per flattened window position, oldest first
func (l *Linear) Coef() []float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reg.Coef()
}

// Score returns the r squared of the fit on its training data
func (l *Linear) Score() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.r2
}
