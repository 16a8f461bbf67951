package transform

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// trimWhitespace strips leading and trailing whitespace from text columns.
// With no explicit columns it targets every string-typed column. The
// optional normalize parameter additionally applies unicode NFC
// normalization to the trimmed values.
type trimWhitespace struct {
	columns   []string
	normalize bool
}

type trimWhitespaceParams struct {
	Normalize bool `param:"normalize"`
}

func newTrimWhitespace(columns []string, params map[string]any) (*trimWhitespace, error) {
	var p trimWhitespaceParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return &trimWhitespace{columns: columns, normalize: p.Normalize}, nil
}

func (tr *trimWhitespace) Type() Type { return TypeTrimWhitespace }

func (tr *trimWhitespace) AffectedColumns(t *table.Table) []string {
	if len(tr.columns) > 0 {
		return tr.columns
	}
	return t.TextColumnNames()
}

func (tr *trimWhitespace) ValidateData(t *table.Table) error {
	if t.NumRows() == 0 {
		return &DataError{Reason: "dataset is empty"}
	}
	return nil
}

func (tr *trimWhitespace) Apply(t *table.Table) (*table.Table, error) {
	out := t.Clone()
	for _, name := range tr.AffectedColumns(t) {
		col, ok := out.Column(name)
		if !ok {
			continue
		}
		for i := range col.Cells {
			if col.Cells[i].Null {
				continue
			}
			v := strings.TrimSpace(col.Cells[i].Value)
			if tr.normalize {
				v = norm.NFC.String(v)
			}
			col.Cells[i].Value = v
		}
	}
	return out, nil
}

func (tr *trimWhitespace) Preview(t *table.Table, n int) (*table.Table, error) {
	return tr.Apply(t.Head(n))
}
