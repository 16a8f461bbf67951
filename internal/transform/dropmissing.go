package transform

import (
	"fmt"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// Valid values for the drop_missing "how" parameter.
const (
	howAny = "any"
	howAll = "all"
)

// maxDropLossPercent is the row-loss ceiling above which a drop_missing
// is rejected outright rather than applied.
const maxDropLossPercent = 50.0

// dropMissing removes rows containing missing values, either row-wise
// (how=any/all) or by a percent-of-row-missing threshold. A threshold,
// when present, takes precedence over how.
type dropMissing struct {
	how       string
	threshold *float64
}

type dropMissingParams struct {
	How       string   `param:"how"`
	Threshold *float64 `param:"threshold"`
}

func newDropMissing(params map[string]any) (*dropMissing, error) {
	var p dropMissingParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Threshold != nil {
		if *p.Threshold < 0 || *p.Threshold > 100 {
			return nil, &ParamError{Field: "threshold", Reason: fmt.Sprintf("must be in [0, 100]; got %v", *p.Threshold)}
		}
	}
	if p.How == "" {
		p.How = howAny
	}
	switch p.How {
	case howAny, howAll:
	default:
		return nil, &ParamError{Field: "how", Reason: fmt.Sprintf("must be one of any, all; got %q", p.How)}
	}
	return &dropMissing{how: p.How, threshold: p.Threshold}, nil
}

func (d *dropMissing) Type() Type { return TypeDropMissing }

func (d *dropMissing) AffectedColumns(t *table.Table) []string {
	return t.ColumnNames()
}

// ValidateData rejects drops that would remove more than half the rows,
// and drops that would remove every row, before Apply is ever invoked.
func (d *dropMissing) ValidateData(t *table.Table) error {
	if t.NumRows() == 0 {
		return &DataError{Reason: "dataset is empty"}
	}
	loss := d.ProjectedLoss(t)
	if loss >= 100 {
		return &DataError{Reason: "drop_missing would remove all rows"}
	}
	if loss > maxDropLossPercent {
		return &DataError{Reason: fmt.Sprintf("drop_missing would remove %.1f%% of rows, exceeding the %.0f%% safety threshold", loss, maxDropLossPercent)}
	}
	return nil
}

// ProjectedLoss returns the percentage of rows the drop would remove.
func (d *dropMissing) ProjectedLoss(t *table.Table) float64 {
	if t.NumRows() == 0 {
		return 0
	}
	keep := d.keepMask(t)
	dropped := 0
	for _, k := range keep {
		if !k {
			dropped++
		}
	}
	return float64(dropped) / float64(t.NumRows()) * 100
}

func (d *dropMissing) Apply(t *table.Table) (*table.Table, error) {
	return t.SelectRows(d.keepMask(t))
}

func (d *dropMissing) Preview(t *table.Table, n int) (*table.Table, error) {
	return d.Apply(t.Head(n))
}

func (d *dropMissing) keepMask(t *table.Table) []bool {
	keep := make([]bool, t.NumRows())
	cols := t.NumColumns()
	for row := range keep {
		missing := t.MissingInRow(row)
		switch {
		case d.threshold != nil:
			pct := 0.0
			if cols > 0 {
				pct = float64(missing) / float64(cols) * 100
			}
			keep[row] = pct < *d.threshold
		case d.how == howAll:
			keep[row] = missing < cols
		default: // any
			keep[row] = missing == 0
		}
	}
	return keep
}
