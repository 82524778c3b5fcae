// Package window frames a univariate time series as a supervised learning problem. The
// most recent samples are split into a training prefix and a held out test suffix, and
// the training prefix is cut into overlapping fixed length windows each paired with the
// sample that immediately follows it.
package window

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-seqforecaster/array"
)

const DefaultSampleGap = 3

var (
	ErrInvalidParameter = errors.New("invalid parameter")

	ErrNonPositiveLength = fmt.Errorf("lengths must be positive, %w", ErrInvalidParameter)
	ErrNonPositiveGap    = fmt.Errorf("sample gap must be positive, %w", ErrInvalidParameter)
	ErrTestTooLong       = fmt.Errorf("test length must be less than series length, %w", ErrInvalidParameter)
	ErrInputTooLong      = fmt.Errorf("input length leaves no room for a training example, %w", ErrInvalidParameter)
	ErrSeedTooShort      = fmt.Errorf("test length is shorter than the input length, %w", ErrInvalidParameter)
	ErrMissingValue      = fmt.Errorf("series contains a missing or non-finite value, %w", ErrInvalidParameter)
	ErrInsufficientData  = fmt.Errorf("series is shorter than the series length, %w", ErrInvalidParameter)
)

// Options configures how a series is split and windowed
type Options struct {
	// SeriesLength is the number of most recent samples retained from the series
	SeriesLength int `json:"series_length" mapstructure:"series_length"`

	// InputLength is the number of samples in each window
	InputLength int `json:"input_length" mapstructure:"input_length"`

	// TestLength is the number of samples held out at the end of the retained series
	TestLength int `json:"test_length" mapstructure:"test_length"`

	// SampleGap is the stride between the start offsets of consecutive training windows
	SampleGap int `json:"sample_gap" mapstructure:"sample_gap"`
}

// NewDefaultOptions returns a week of hourly samples with a day long input window and
// a three day test suffix.
func NewDefaultOptions() *Options {
	return &Options{
		SeriesLength: 24 * 7 * 4,
		InputLength:  24,
		TestLength:   24 * 3,
		SampleGap:    DefaultSampleGap,
	}
}

// Validate checks the structural preconditions between the lengths. Nothing is ever
// clamped, a nil options returns the defaults.
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}

	if o.SeriesLength <= 0 || o.InputLength <= 0 || o.TestLength <= 0 {
		return nil, fmt.Errorf(
			"series length %d, input length %d, test length %d, %w",
			o.SeriesLength, o.InputLength, o.TestLength, ErrNonPositiveLength,
		)
	}
	if o.SampleGap <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.SampleGap, ErrNonPositiveGap)
	}
	if o.TestLength >= o.SeriesLength {
		return nil, fmt.Errorf("test length %d, series length %d, %w", o.TestLength, o.SeriesLength, ErrTestTooLong)
	}
	if o.InputLength >= o.SeriesLength-o.TestLength {
		return nil, fmt.Errorf(
			"input length %d with %d training samples, %w",
			o.InputLength, o.SeriesLength-o.TestLength, ErrInputTooLong,
		)
	}
	if o.TestLength < o.InputLength {
		return nil, fmt.Errorf("test length %d, input length %d, %w", o.TestLength, o.InputLength, ErrSeedTooShort)
	}
	return o, nil
}

// Window is a contiguous copy of a slice of the training prefix
type Window struct {
	Start  int       `json:"start"`
	Values []float64 `json:"values"`
}

// Len returns the number of samples in the window
func (w Window) Len() int {
	return len(w.Values)
}

// Example pairs a window with the sample immediately following it
type Example struct {
	Window Window  `json:"window"`
	Target float64 `json:"target"`
}

// Dataset is the result of windowing a series
type Dataset struct {
	// Offset is the index in the source series where the retained tail begins
	Offset int

	// Train and Test partition the retained tail
	Train []float64
	Test  []float64

	// Windows is shaped (examples, input length, 1) with Targets holding the next value
	// for each window.
	Windows *array.Array
	Targets []float64

	// Seed is the first input length samples of Test and Truth is the remainder
	Seed  []float64
	Truth []float64

	gap int
}

// NumExamples returns the number of training windows produced from a training prefix of
// trainLen samples.
func NumExamples(trainLen, inputLen, gap int) int {
	if inputLen <= 0 || gap <= 0 || inputLen >= trainLen {
		return 0
	}
	return (trainLen-inputLen-1)/gap + 1
}

// Extract takes the most recent SeriesLength samples of the series, splits them into a
// training prefix and a test suffix of TestLength samples, then builds one training
// example at every SampleGap offset of the training prefix. The input series is not
// modified and every returned slice is independently allocated.
func Extract(series []float64, opt *Options) (*Dataset, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	if len(series) < opt.SeriesLength {
		return nil, fmt.Errorf("got %d samples, need %d, %w", len(series), opt.SeriesLength, ErrInsufficientData)
	}

	offset := len(series) - opt.SeriesLength
	tail := series[offset:]
	for i, v := range tail {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("at index %d, %w", offset+i, ErrMissingValue)
		}
	}

	trainLen := opt.SeriesLength - opt.TestLength
	train := copySlice(tail[:trainLen])
	test := copySlice(tail[trainLen:])

	n := NumExamples(trainLen, opt.InputLength, opt.SampleGap)
	windows := make([][]float64, 0, n)
	targets := make([]float64, 0, n)
	for start := 0; start+opt.InputLength < trainLen; start += opt.SampleGap {
		windows = append(windows, train[start:start+opt.InputLength])
		targets = append(targets, train[start+opt.InputLength])
	}

	// NewUnivariate copies each window out of the training prefix
	arr, err := array.NewUnivariate(windows)
	if err != nil {
		return nil, fmt.Errorf("unable to lay out training windows, %w", err)
	}

	return &Dataset{
		Offset:  offset,
		Train:   train,
		Test:    test,
		Windows: arr,
		Targets: targets,
		Seed:    copySlice(test[:opt.InputLength]),
		Truth:   copySlice(test[opt.InputLength:]),
		gap:     opt.SampleGap,
	}, nil
}

// Len returns the number of training examples
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Targets)
}

// Examples returns the training set as independent window and target pairs
func (d *Dataset) Examples() []Example {
	if d == nil {
		return nil
	}
	examples := make([]Example, 0, len(d.Targets))
	for i, target := range d.Targets {
		// windows and targets are built together so the index is always in range
		values, _ := d.Windows.Example(i)
		examples = append(examples, Example{
			Window: Window{
				Start:  i * d.gap,
				Values: copySlice(values),
			},
			Target: target,
		})
	}
	return examples
}

func copySlice(x []float64) []float64 {
	res := make([]float64, len(x))
	copy(res, x)
	return res
}
