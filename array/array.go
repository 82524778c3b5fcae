package array

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrNegativeDim        = errors.New("negative dimensions not allowed")
	ErrStepMismatch       = errors.New("time step size mismatch")
	ErrFeatureMismatch    = errors.New("feature size mismatch")
	ErrUninitializedArray = errors.New("uninitialized array")
	ErrExampleOutOfBounds = errors.New("example is out of bounds")
	ErrStepOutOfBounds    = errors.New("time step is out of bounds")
	ErrFeatureOutOfBounds = errors.New("feature is out of bounds")
)

// Array contains a 3D block of data shaped as (example, time step, feature) stored
// in row major order, so each example is one contiguous run of steps*features values.
// e.g. two univariate windows {{1, 2}, {3, 4}} are stored as {1, 2, 3, 4} with a
// shape of (2, 2, 1).
type Array struct {
	arr []float64
	n   int
	s   int
	f   int
}

// Zeros returns an array of the given shape filled with zeros
func Zeros(examples, steps, features int) (*Array, error) {
	if examples < 0 || steps < 0 || features < 0 {
		return nil, ErrNegativeDim
	}
	return &Array{
		arr: make([]float64, examples*steps*features),
		n:   examples,
		s:   steps,
		f:   features,
	}, nil
}

// NewUnivariate builds an array with a trailing feature dimension of 1 from a set of
// equal length windows. Each window is copied.
func NewUnivariate(windows [][]float64) (*Array, error) {
	n := len(windows)
	s := -1
	for i, w := range windows {
		if s >= 0 && len(w) != s {
			return nil, fmt.Errorf("at example %d, %w", i, ErrStepMismatch)
		}
		if s < 0 {
			s = len(w)
		}
	}
	if s < 0 {
		s = 0
	}

	arr := make([]float64, 0, n*s)
	for _, w := range windows {
		arr = append(arr, w...)
	}
	return &Array{arr: arr, n: n, s: s, f: 1}, nil
}

// NewWindow returns a single example univariate array of shape (1, len(w), 1)
func NewWindow(w []float64) *Array {
	arr := make([]float64, len(w))
	copy(arr, w)
	return &Array{arr: arr, n: 1, s: len(w), f: 1}
}

// Shape returns the number of examples, time steps and features
func (a *Array) Shape() (int, int, int) {
	if a == nil {
		return 0, 0, 0
	}
	return a.n, a.s, a.f
}

// Size returns the total number of values stored
func (a *Array) Size() int {
	if a == nil {
		return 0
	}
	return len(a.arr)
}

// At retrieves a single value
func (a *Array) At(example, step, feature int) (float64, error) {
	if a == nil {
		return 0.0, ErrUninitializedArray
	}
	if example < 0 || example >= a.n {
		return 0.0, ErrExampleOutOfBounds
	}
	if step < 0 || step >= a.s {
		return 0.0, ErrStepOutOfBounds
	}
	if feature < 0 || feature >= a.f {
		return 0.0, ErrFeatureOutOfBounds
	}
	return a.arr[(example*a.s+step)*a.f+feature], nil
}

// Set writes a single value
func (a *Array) Set(example, step, feature int, val float64) error {
	if a == nil {
		return ErrUninitializedArray
	}
	if example < 0 || example >= a.n {
		return ErrExampleOutOfBounds
	}
	if step < 0 || step >= a.s {
		return ErrStepOutOfBounds
	}
	if feature < 0 || feature >= a.f {
		return ErrFeatureOutOfBounds
	}
	a.arr[(example*a.s+step)*a.f+feature] = val
	return nil
}

// Example returns a read only view of one example laid out as steps*features values
// with the features of a step adjacent.
func (a *Array) Example(i int) ([]float64, error) {
	if a == nil {
		return nil, ErrUninitializedArray
	}
	if i < 0 || i >= a.n {
		return nil, ErrExampleOutOfBounds
	}
	width := a.s * a.f
	return a.arr[i*width : (i+1)*width : (i+1)*width], nil
}

// Flatten returns a copy of the underlying row major data
func (a *Array) Flatten() []float64 {
	if a == nil {
		return nil
	}
	res := make([]float64, len(a.arr))
	copy(res, a.arr)
	return res
}

// Matrix returns a design matrix with one row per example and steps*features columns
func (a *Array) Matrix() *mat.Dense {
	if a == nil || a.n == 0 || a.s*a.f == 0 {
		return nil
	}
	return mat.NewDense(a.n, a.s*a.f, a.Flatten())
}

// Copy returns a deep copy of the array
func (a *Array) Copy() *Array {
	if a == nil {
		return nil
	}
	return &Array{arr: a.Flatten(), n: a.n, s: a.s, f: a.f}
}

// Append stacks the examples of the second array after the first and returns a new array
func Append(a, b *Array) (*Array, error) {
	if a == nil {
		return nil, fmt.Errorf("first array argument, %w", ErrUninitializedArray)
	}
	if b == nil {
		return nil, fmt.Errorf("second array argument, %w", ErrUninitializedArray)
	}
	if a.s != b.s {
		return nil, fmt.Errorf("first array with %d steps, and second array with %d steps, %w", a.s, b.s, ErrStepMismatch)
	}
	if a.f != b.f {
		return nil, fmt.Errorf("first array with %d features, and second array with %d features, %w", a.f, b.f, ErrFeatureMismatch)
	}

	arr := make([]float64, 0, a.Size()+b.Size())
	arr = append(arr, a.arr...)
	arr = append(arr, b.arr...)
	return &Array{arr: arr, n: a.n + b.n, s: a.s, f: a.f}, nil
}
