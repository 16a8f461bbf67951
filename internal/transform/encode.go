package transform

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// encode maps categorical values to integer labels. Labels are assigned
// over the sorted distinct values of each column so the encoding is
// deterministic across runs. Missing values stay missing.
type encode struct {
	columns []string
	method  string
}

type encodeParams struct {
	Method string `param:"method"`
}

func newEncode(columns []string, params map[string]any) (*encode, error) {
	var p encodeParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Method == "" {
		p.Method = "label"
	}
	if p.Method != "label" {
		return nil, &ParamError{Field: "method", Reason: fmt.Sprintf("must be label; got %q", p.Method)}
	}
	return &encode{columns: columns, method: p.Method}, nil
}

func (e *encode) Type() Type { return TypeEncode }

func (e *encode) AffectedColumns(_ *table.Table) []string {
	return e.columns
}

func (e *encode) ValidateData(t *table.Table) error {
	if t.NumRows() == 0 {
		return &DataError{Reason: "dataset is empty"}
	}
	return nil
}

func (e *encode) Apply(t *table.Table) (*table.Table, error) {
	out := t.Clone()
	for _, name := range e.columns {
		col, ok := out.Column(name)
		if !ok {
			continue
		}

		distinct := make(map[string]struct{})
		for _, c := range col.Cells {
			if !c.Null {
				distinct[c.Value] = struct{}{}
			}
		}
		values := make([]string, 0, len(distinct))
		for v := range distinct {
			values = append(values, v)
		}
		sort.Strings(values)
		labels := make(map[string]int, len(values))
		for i, v := range values {
			labels[v] = i
		}

		for i := range col.Cells {
			if col.Cells[i].Null {
				continue
			}
			col.Cells[i].Value = strconv.Itoa(labels[col.Cells[i].Value])
		}
		col.Type = table.DTypeInt
	}
	return out, nil
}

func (e *encode) Preview(t *table.Table, n int) (*table.Table, error) {
	return e.Apply(t.Head(n))
}
