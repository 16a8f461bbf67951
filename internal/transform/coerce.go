package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// coerceTypes converts columns to requested dtypes. Uncoercible cells
// become missing; with strict=true the data validation rejects the
// transformation instead, naming the first offending column.
type coerceTypes struct {
	types  map[string]string
	strict bool
}

type coerceTypesParams struct {
	Types  map[string]string `param:"types"`
	Strict bool              `param:"strict"`
}

func newCoerceTypes(params map[string]any) (*coerceTypes, error) {
	var p coerceTypesParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if len(p.Types) == 0 {
		return nil, &ParamError{Field: "types", Reason: "a column to dtype map is required"}
	}
	for col, dtype := range p.Types {
		switch table.DType(dtype) {
		case table.DTypeString, table.DTypeInt, table.DTypeFloat, table.DTypeBool:
		default:
			return nil, &ParamError{Field: "types", Reason: fmt.Sprintf("unknown dtype %q for column %q", dtype, col)}
		}
	}
	return &coerceTypes{types: p.Types, strict: p.Strict}, nil
}

func (c *coerceTypes) Type() Type { return TypeCoerceTypes }

func (c *coerceTypes) AffectedColumns(t *table.Table) []string {
	var names []string
	for _, name := range t.ColumnNames() {
		if _, ok := c.types[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (c *coerceTypes) ValidateData(t *table.Table) error {
	if t.NumRows() == 0 {
		return &DataError{Reason: "dataset is empty"}
	}
	if !c.strict {
		return nil
	}
	for _, name := range t.ColumnNames() {
		target, ok := c.types[name]
		if !ok {
			continue
		}
		col, _ := t.Column(name)
		for _, cell := range col.Cells {
			if cell.Null {
				continue
			}
			if _, ok := coerceValue(cell.Value, table.DType(target)); !ok {
				return &DataError{Reason: fmt.Sprintf("column %q contains values not coercible to %s", name, target)}
			}
		}
	}
	return nil
}

func (c *coerceTypes) Apply(t *table.Table) (*table.Table, error) {
	out := t.Clone()
	for _, name := range out.ColumnNames() {
		target, ok := c.types[name]
		if !ok {
			continue
		}
		col, _ := out.Column(name)
		dtype := table.DType(target)
		for i := range col.Cells {
			if col.Cells[i].Null {
				continue
			}
			if v, ok := coerceValue(col.Cells[i].Value, dtype); ok {
				col.Cells[i].Value = v
			} else {
				col.Cells[i] = table.Cell{Null: true}
			}
		}
		col.Type = dtype
	}
	return out, nil
}

func (c *coerceTypes) Preview(t *table.Table, n int) (*table.Table, error) {
	return c.Apply(t.Head(n))
}

// coerceValue converts a raw value to the canonical form of the target
// dtype. The second return is false when the value cannot be represented.
func coerceValue(v string, target table.DType) (string, bool) {
	switch target {
	case table.DTypeString:
		return v, true
	case table.DTypeInt:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return strconv.FormatInt(n, 10), true
		}
		// Accept floats with no fractional part, e.g. "3.0".
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10), true
		}
		return "", false
	case table.DTypeFloat:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64), true
		}
		return "", false
	case table.DTypeBool:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return "true", true
		case "false", "0", "no":
			return "false", true
		}
		return "", false
	}
	return "", false
}
