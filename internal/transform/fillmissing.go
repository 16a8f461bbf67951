package transform

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// Valid values for the fill_missing "method" parameter.
const (
	fillMean   = "mean"
	fillMedian = "median"
	fillMode   = "mode"
	fillFfill  = "ffill"
	fillBfill  = "bfill"
)

// fillMissing replaces missing values in the target columns with either a
// literal value or a computed one (mean/median/mode) or a sequential fill
// (ffill/bfill). Exactly one of value and method must be supplied.
type fillMissing struct {
	columns []string
	value   *string
	method  string
}

type fillMissingParams struct {
	Value  any    `param:"value"`
	Method string `param:"method"`
}

func newFillMissing(columns []string, params map[string]any) (*fillMissing, error) {
	var p fillMissingParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	hasValue := p.Value != nil
	if hasValue && p.Method != "" {
		return nil, &ParamError{Field: "method", Reason: "value and method are mutually exclusive"}
	}
	if !hasValue && p.Method == "" {
		return nil, &ParamError{Field: "value", Reason: "either value or method is required"}
	}

	f := &fillMissing{columns: columns}
	if hasValue {
		v := fmt.Sprintf("%v", p.Value)
		f.value = &v
		return f, nil
	}

	switch p.Method {
	case fillMean, fillMedian, fillMode, fillFfill, fillBfill:
		f.method = p.Method
	default:
		return nil, &ParamError{Field: "method", Reason: fmt.Sprintf("must be one of mean, median, mode, ffill, bfill; got %q", p.Method)}
	}
	return f, nil
}

func (f *fillMissing) Type() Type { return TypeFillMissing }

func (f *fillMissing) AffectedColumns(_ *table.Table) []string {
	return f.columns
}

// ValidateData enforces the numeric restriction for mean and median.
func (f *fillMissing) ValidateData(t *table.Table) error {
	if t.NumRows() == 0 {
		return &DataError{Reason: "dataset is empty"}
	}
	if f.method == fillMean || f.method == fillMedian {
		for _, name := range f.columns {
			col, ok := t.Column(name)
			if !ok {
				continue
			}
			if !col.Type.IsNumeric() {
				return &DataError{Reason: fmt.Sprintf("method %s requires numeric columns, but column %q is %s", f.method, name, col.Type)}
			}
		}
	}
	return nil
}

func (f *fillMissing) Apply(t *table.Table) (*table.Table, error) {
	out := t.Clone()
	for _, name := range f.columns {
		col, ok := out.Column(name)
		if !ok {
			continue
		}
		switch {
		case f.value != nil:
			fillLiteral(col, *f.value)
		case f.method == fillFfill:
			forwardFill(col)
		case f.method == fillBfill:
			backwardFill(col)
		case f.method == fillMode:
			if mode, ok := columnMode(col); ok {
				fillLiteral(col, mode)
			}
		default: // mean or median
			if v, ok := columnAggregate(col, f.method); ok {
				fillLiteral(col, strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
	}
	return out, nil
}

func (f *fillMissing) Preview(t *table.Table, n int) (*table.Table, error) {
	return f.Apply(t.Head(n))
}

func fillLiteral(col *table.Column, value string) {
	for i := range col.Cells {
		if col.Cells[i].Null {
			col.Cells[i] = table.Cell{Value: value}
		}
	}
}

// forwardFill carries the last observed value forward. Leading nulls stay
// null.
func forwardFill(col *table.Column) {
	var last *string
	for i := range col.Cells {
		if col.Cells[i].Null {
			if last != nil {
				col.Cells[i] = table.Cell{Value: *last}
			}
		} else {
			v := col.Cells[i].Value
			last = &v
		}
	}
}

// backwardFill carries the next observed value backward. Trailing nulls
// stay null.
func backwardFill(col *table.Column) {
	var next *string
	for i := len(col.Cells) - 1; i >= 0; i-- {
		if col.Cells[i].Null {
			if next != nil {
				col.Cells[i] = table.Cell{Value: *next}
			}
		} else {
			v := col.Cells[i].Value
			next = &v
		}
	}
}

// columnMode returns the most frequent non-missing value. Ties break by
// lexical order for determinism.
func columnMode(col *table.Column) (string, bool) {
	counts := make(map[string]int)
	for _, c := range col.Cells {
		if !c.Null {
			counts[c.Value]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	best, bestCount := "", -1
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best, bestCount = v, n
		}
	}
	return best, true
}

// columnAggregate computes mean or median over the non-missing numeric
// values of a column.
func columnAggregate(col *table.Column, method string) (float64, bool) {
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
		return 0, false
	}
	if method == fillMean {
		sum := 0.0
		for _, v := range nums {
			sum += v
		}
		return sum / float64(len(nums)), true
	}
	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		return nums[mid], true
	}
	return (nums[mid-1] + nums[mid]) / 2, true
}
