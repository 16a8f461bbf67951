package transform

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// Valid values for the remove_duplicates "keep" parameter.
const (
	keepFirst = "first"
	keepLast  = "last"
	keepNone  = "false"
)

// removeDuplicates drops rows whose values repeat an earlier (or later)
// row. An optional column subset restricts which columns participate in
// the comparison; other columns are ignored.
type removeDuplicates struct {
	columns []string
	keep    string
}

type removeDuplicatesParams struct {
	Keep string `param:"keep"`
}

func newRemoveDuplicates(columns []string, params map[string]any) (*removeDuplicates, error) {
	// Accept a literal boolean false for keep, pandas-style.
	if v, ok := params["keep"]; ok {
		if b, isBool := v.(bool); isBool && !b {
			params = cloneParams(params)
			params["keep"] = keepNone
		}
	}

	var p removeDuplicatesParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Keep == "" {
		p.Keep = keepFirst
	}
	switch p.Keep {
	case keepFirst, keepLast, keepNone:
	default:
		return nil, &ParamError{Field: "keep", Reason: fmt.Sprintf("must be one of first, last, false; got %q", p.Keep)}
	}

	return &removeDuplicates{columns: columns, keep: p.Keep}, nil
}

func (r *removeDuplicates) Type() Type { return TypeRemoveDuplicates }

func (r *removeDuplicates) AffectedColumns(t *table.Table) []string {
	if len(r.columns) > 0 {
		return r.columns
	}
	return t.ColumnNames()
}

func (r *removeDuplicates) ValidateData(t *table.Table) error {
	if t.NumRows() == 0 {
		return &DataError{Reason: "dataset is empty"}
	}
	return nil
}

func (r *removeDuplicates) Apply(t *table.Table) (*table.Table, error) {
	keys := r.rowKeys(t)

	keep := make([]bool, t.NumRows())
	switch r.keep {
	case keepFirst:
		seen := make(map[uint64]struct{}, t.NumRows())
		for i, k := range keys {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				keep[i] = true
			}
		}
	case keepLast:
		seen := make(map[uint64]struct{}, t.NumRows())
		for i := len(keys) - 1; i >= 0; i-- {
			if _, dup := seen[keys[i]]; !dup {
				seen[keys[i]] = struct{}{}
				keep[i] = true
			}
		}
	case keepNone:
		counts := make(map[uint64]int, t.NumRows())
		for _, k := range keys {
			counts[k]++
		}
		for i, k := range keys {
			keep[i] = counts[k] == 1
		}
	}

	return t.SelectRows(keep)
}

func (r *removeDuplicates) Preview(t *table.Table, n int) (*table.Table, error) {
	return r.Apply(t.Head(n))
}

// rowKeys hashes the comparison-column values of each row. Null cells
// hash distinctly from empty strings.
func (r *removeDuplicates) rowKeys(t *table.Table) []uint64 {
	cols := r.AffectedColumns(t)
	keys := make([]uint64, t.NumRows())
	var buf []byte
	for row := 0; row < t.NumRows(); row++ {
		buf = buf[:0]
		for _, name := range cols {
			col, ok := t.Column(name)
			if !ok {
				continue
			}
			cell := col.Cells[row]
			if cell.Null {
				buf = append(buf, 0x00)
			} else {
				buf = append(buf, 0x01)
				buf = append(buf, cell.Value...)
			}
			buf = append(buf, 0x1f)
		}
		keys[row] = xxh3.Hash(buf)
	}
	return keys
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
