package timedataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoHeader      = errors.New("csv has no header row")
	ErrColumnMissing = errors.New("column not found in csv header")
	ErrParseTime     = errors.New("unable to parse time")
	ErrParseValue    = errors.New("unable to parse value")
)

// CSVOptions selects the columns and formats of a csv source
type CSVOptions struct {
	// TimeColumn holds the timestamp of each row
	TimeColumn string `json:"time_column" mapstructure:"time_column"`

	// ValueColumn holds the observation of each row
	ValueColumn string `json:"value_column" mapstructure:"value_column"`

	// TimeFormat is a Go reference time layout
	TimeFormat string `json:"time_format" mapstructure:"time_format"`

	// Missing lists additional cell values treated as a gap besides an empty cell,
	// NA and NaN, e.g. a sensor sentinel such as -200.
	Missing []string `json:"missing" mapstructure:"missing"`

	Delimiter rune `json:"delimiter" mapstructure:"delimiter"`
}

// NewDefaultCSVOptions reads a "ds" RFC3339 time column and a "y" value column
func NewDefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		TimeColumn:  "ds",
		ValueColumn: "y",
		TimeFormat:  time.RFC3339,
		Delimiter:   ',',
	}
}

// Validate fills in empty fields with defaults. A nil options returns the defaults.
func (c *CSVOptions) Validate() *CSVOptions {
	def := NewDefaultCSVOptions()
	if c == nil {
		return def
	}
	res := *c
	if res.TimeColumn == "" {
		res.TimeColumn = def.TimeColumn
	}
	if res.ValueColumn == "" {
		res.ValueColumn = def.ValueColumn
	}
	if res.TimeFormat == "" {
		res.TimeFormat = def.TimeFormat
	}
	if res.Delimiter == 0 {
		res.Delimiter = def.Delimiter
	}
	return &res
}

// LoadCSV reads a header row followed by one observation per row. Missing values are kept
// as NaN so they can be interpolated afterwards.
func LoadCSV(r io.Reader, opt *CSVOptions) (*TimeDataset, error) {
	opt = opt.Validate()

	reader := csv.NewReader(r)
	reader.Comma = opt.Delimiter
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read csv header, %w", err)
	}

	tIdx, yIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case opt.TimeColumn:
			tIdx = i
		case opt.ValueColumn:
			yIdx = i
		}
	}
	if tIdx == -1 {
		return nil, fmt.Errorf("%q, %w", opt.TimeColumn, ErrColumnMissing)
	}
	if yIdx == -1 {
		return nil, fmt.Errorf("%q, %w", opt.ValueColumn, ErrColumnMissing)
	}

	missing := map[string]struct{}{"": {}, "na": {}, "nan": {}}
	for _, m := range opt.Missing {
		missing[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}

	var t []time.Time
	var y []float64
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read csv line %d, %w", line, err)
		}

		ts, err := time.Parse(opt.TimeFormat, strings.TrimSpace(record[tIdx]))
		if err != nil {
			return nil, fmt.Errorf("line %d, %w, %w", line, ErrParseTime, err)
		}

		cell := strings.TrimSpace(record[yIdx])
		val := math.NaN()
		if _, ok := missing[strings.ToLower(cell)]; !ok {
			val, err = strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, %w, %w", line, ErrParseValue, err)
			}
		}

		t = append(t, ts)
		y = append(y, val)
	}

	return NewUnivariateDataset(t, y)
}
