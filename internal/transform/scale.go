package transform

import (
	"fmt"
	"math"
	"strconv"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// Valid values for the scale "method" parameter.
const (
	scaleMinMax = "minmax"
	scaleZScore = "zscore"
)

// scale rescales numeric columns: minmax to [0, 1] or zscore to zero mean
// and unit variance. Zero-variance columns map to 0. Defaults to every
// numeric column when none are named.
type scale struct {
	columns []string
	method  string
}

type scaleParams struct {
	Method string `param:"method"`
}

func newScale(columns []string, params map[string]any) (*scale, error) {
	var p scaleParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Method == "" {
		p.Method = scaleMinMax
	}
	switch p.Method {
	case scaleMinMax, scaleZScore:
	default:
		return nil, &ParamError{Field: "method", Reason: fmt.Sprintf("must be one of minmax, zscore; got %q", p.Method)}
	}
	return &scale{columns: columns, method: p.Method}, nil
}

func (s *scale) Type() Type { return TypeScale }

func (s *scale) AffectedColumns(t *table.Table) []string {
	if len(s.columns) > 0 {
		return s.columns
	}
	return t.NumericColumnNames()
}

func (s *scale) ValidateData(t *table.Table) error {
	if t.NumRows() == 0 {
		return &DataError{Reason: "dataset is empty"}
	}
	for _, name := range s.columns {
		col, ok := t.Column(name)
		if !ok {
			continue
		}
		if !col.Type.IsNumeric() {
			return &DataError{Reason: fmt.Sprintf("scale requires numeric columns, but column %q is %s", name, col.Type)}
		}
	}
	return nil
}

func (s *scale) Apply(t *table.Table) (*table.Table, error) {
	out := t.Clone()
	for _, name := range s.AffectedColumns(t) {
		col, ok := out.Column(name)
		if !ok || !col.Type.IsNumeric() {
			continue
		}
		scaleColumn(col, s.method)
	}
	return out, nil
}

func (s *scale) Preview(t *table.Table, n int) (*table.Table, error) {
	return s.Apply(t.Head(n))
}

func scaleColumn(col *table.Column, method string) {
	var nums []float64
	for _, c := range col.Cells {
		if c.Null {
			continue
		}
		if v, err := strconv.ParseFloat(c.Value, 64); err == nil {
			nums = append(nums, v)
		}
	}
	if len(nums) == 0 {
		return
	}

	var transformCell func(v float64) float64
	if method == scaleZScore {
		mean := 0.0
		for _, v := range nums {
			mean += v
		}
		mean /= float64(len(nums))
		variance := 0.0
		for _, v := range nums {
			variance += (v - mean) * (v - mean)
		}
		std := math.Sqrt(variance / float64(len(nums)))
		transformCell = func(v float64) float64 {
			if std == 0 {
				return 0
			}
			return (v - mean) / std
		}
	} else {
		lo, hi := nums[0], nums[0]
		for _, v := range nums {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		transformCell = func(v float64) float64 {
			if hi == lo {
				return 0
			}
			return (v - lo) / (hi - lo)
		}
	}

	for i := range col.Cells {
		if col.Cells[i].Null {
			continue
		}
		v, err := strconv.ParseFloat(col.Cells[i].Value, 64)
		if err != nil {
			continue
		}
		col.Cells[i].Value = strconv.FormatFloat(transformCell(v), 'g', -1, 64)
	}
	col.Type = table.DTypeFloat
}
