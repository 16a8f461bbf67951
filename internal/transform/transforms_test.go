package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// csvTable builds a test table from inline CSV.
func csvTable(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.ReadCSVBytes([]byte(csv))
	require.NoError(t, err)
	return tbl
}

func build(t *testing.T, typ Type, columns []string, params map[string]any) Transformation {
	t.Helper()
	step, err := NewStep(typ, columns, params)
	require.NoError(t, err)
	tr, err := New(step)
	require.NoError(t, err)
	return tr
}

func cellValues(t *testing.T, tbl *table.Table, name string) []string {
	t.Helper()
	col, ok := tbl.Column(name)
	require.True(t, ok, "column %s", name)
	out := make([]string, len(col.Cells))
	for i, c := range col.Cells {
		if c.Null {
			out[i] = "<null>"
		} else {
			out[i] = c.Value
		}
	}
	return out
}

func TestNewStep(t *testing.T) {
	_, err := NewStep("uppercase", nil, nil)
	assert.ErrorContains(t, err, "unknown transformation type")

	_, err = NewStep(TypeFillMissing, nil, map[string]any{"method": "mean"})
	assert.ErrorContains(t, err, "requires at least one column")

	step, err := NewStep(TypeTrimWhitespace, nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, step.ID)
	assert.NotNil(t, step.Parameters)
}

func TestRemoveDuplicates(t *testing.T) {
	src := "name,city\nalice,nyc\nbob,sf\nalice,nyc\n"

	t.Run("keep first", func(t *testing.T) {
		tr := build(t, TypeRemoveDuplicates, nil, nil)
		out, err := tr.Apply(csvTable(t, src))
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, cellValues(t, out, "name"))
	})

	t.Run("keep last", func(t *testing.T) {
		tr := build(t, TypeRemoveDuplicates, nil, map[string]any{"keep": "last"})
		out, err := tr.Apply(csvTable(t, src))
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "alice"}, cellValues(t, out, "name"))
	})

	t.Run("keep none drops every duplicated row", func(t *testing.T) {
		tr := build(t, TypeRemoveDuplicates, nil, map[string]any{"keep": "false"})
		out, err := tr.Apply(csvTable(t, src))
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, cellValues(t, out, "name"))
	})

	t.Run("boolean false accepted for keep", func(t *testing.T) {
		params := map[string]any{"keep": false}
		tr := build(t, TypeRemoveDuplicates, nil, params)
		out, err := tr.Apply(csvTable(t, src))
		require.NoError(t, err)
		assert.Equal(t, 1, out.NumRows())
		// The caller's map is not mutated.
		assert.Equal(t, false, params["keep"])
	})

	t.Run("column subset", func(t *testing.T) {
		tr := build(t, TypeRemoveDuplicates, []string{"name"}, nil)
		out, err := tr.Apply(csvTable(t, "name,city\nalice,nyc\nalice,sf\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"nyc"}, cellValues(t, out, "city"))
	})

	t.Run("null distinct from empty-like values", func(t *testing.T) {
		tr := build(t, TypeRemoveDuplicates, nil, nil)
		out, err := tr.Apply(csvTable(t, "v\nNA\nNA\nx\n"))
		require.NoError(t, err)
		assert.Equal(t, 2, out.NumRows())
	})

	t.Run("invalid keep", func(t *testing.T) {
		step, err := NewStep(TypeRemoveDuplicates, nil, map[string]any{"keep": "middle"})
		require.NoError(t, err)
		_, err = New(step)
		var perr *ParamError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "keep", perr.Field)
	})
}

func TestTrimWhitespace(t *testing.T) {
	t.Run("defaults to text columns", func(t *testing.T) {
		tbl := csvTable(t, "name,age\n  alice ,30\n\tbob,25\n")
		tr := build(t, TypeTrimWhitespace, nil, nil)
		out, err := tr.Apply(tbl)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, cellValues(t, out, "name"))
		// Numeric column untouched.
		assert.Equal(t, []string{"30", "25"}, cellValues(t, out, "age"))
	})

	t.Run("source table not mutated", func(t *testing.T) {
		tbl := csvTable(t, "name\n  alice \n")
		tr := build(t, TypeTrimWhitespace, nil, nil)
		_, err := tr.Apply(tbl)
		require.NoError(t, err)
		assert.Equal(t, []string{"  alice "}, cellValues(t, tbl, "name"))
	})

	t.Run("unicode normalization", func(t *testing.T) {
		// e + combining acute normalizes to the precomposed form.
		tbl := csvTable(t, "name\ncafé\n")
		tr := build(t, TypeTrimWhitespace, nil, map[string]any{"normalize": true})
		out, err := tr.Apply(tbl)
		require.NoError(t, err)
		assert.Equal(t, []string{"café"}, cellValues(t, out, "name"))
	})
}

func TestDropMissing(t *testing.T) {
	src := "a,b\n1,x\n2,NA\nNA,NA\n3,y\n"

	t.Run("how any", func(t *testing.T) {
		tr := build(t, TypeDropMissing, nil, nil)
		out, err := tr.Apply(csvTable(t, src))
		require.NoError(t, err)
		assert.Equal(t, 2, out.NumRows())
	})

	t.Run("how all", func(t *testing.T) {
		tr := build(t, TypeDropMissing, nil, map[string]any{"how": "all"})
		out, err := tr.Apply(csvTable(t, src))
		require.NoError(t, err)
		assert.Equal(t, 3, out.NumRows())
	})

	t.Run("threshold overrides how", func(t *testing.T) {
		// Keep rows with under 60% of cells missing: drops only the
		// fully missing row.
		tr := build(t, TypeDropMissing, nil, map[string]any{"how": "any", "threshold": 60.0})
		out, err := tr.Apply(csvTable(t, src))
		require.NoError(t, err)
		assert.Equal(t, 3, out.NumRows())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		step, err := NewStep(TypeDropMissing, nil, map[string]any{"threshold": 150.0})
		require.NoError(t, err)
		_, err = New(step)
		var perr *ParamError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "threshold", perr.Field)
	})

	t.Run("rejects loss above safety threshold", func(t *testing.T) {
		tr := build(t, TypeDropMissing, nil, nil)
		// 3 of 4 rows have a missing cell: 75% loss.
		err := tr.ValidateData(csvTable(t, "a\n1\nNA\nNA\nNA\n"))
		var derr *DataError
		require.ErrorAs(t, err, &derr)
		assert.Contains(t, derr.Reason, "75.0%")
	})

	t.Run("rejects total loss", func(t *testing.T) {
		tr := build(t, TypeDropMissing, nil, nil)
		err := tr.ValidateData(csvTable(t, "a,b\nNA,1\n2,NA\n"))
		require.ErrorContains(t, err, "would remove all rows")
	})

	t.Run("projected loss", func(t *testing.T) {
		d := build(t, TypeDropMissing, nil, nil).(*dropMissing)
		assert.InDelta(t, 50.0, d.ProjectedLoss(csvTable(t, "a\n1\nNA\n")), 0.001)
	})
}

func TestFillMissing(t *testing.T) {
	t.Run("literal value", func(t *testing.T) {
		tr := build(t, TypeFillMissing, []string{"city"}, map[string]any{"value": "unknown"})
		out, err := tr.Apply(csvTable(t, "city\nnyc\nNA\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"nyc", "unknown"}, cellValues(t, out, "city"))
	})

	t.Run("mean", func(t *testing.T) {
		tr := build(t, TypeFillMissing, []string{"age"}, map[string]any{"method": "mean"})
		out, err := tr.Apply(csvTable(t, "age\n10\nNA\n20\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"10", "15", "20"}, cellValues(t, out, "age"))
	})

	t.Run("median even count", func(t *testing.T) {
		tr := build(t, TypeFillMissing, []string{"age"}, map[string]any{"method": "median"})
		out, err := tr.Apply(csvTable(t, "age\n1\n2\n10\n40\nNA\n"))
		require.NoError(t, err)
		assert.Equal(t, "6", cellValues(t, out, "age")[4])
	})

	t.Run("mode with lexical tiebreak", func(t *testing.T) {
		tr := build(t, TypeFillMissing, []string{"c"}, map[string]any{"method": "mode"})
		out, err := tr.Apply(csvTable(t, "c\nb\na\nNA\n"))
		require.NoError(t, err)
		assert.Equal(t, "a", cellValues(t, out, "c")[2])
	})

	t.Run("ffill leaves leading nulls", func(t *testing.T) {
		tr := build(t, TypeFillMissing, []string{"c"}, map[string]any{"method": "ffill"})
		out, err := tr.Apply(csvTable(t, "c\nNA\nx\nNA\ny\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"<null>", "x", "x", "y"}, cellValues(t, out, "c"))
	})

	t.Run("bfill leaves trailing nulls", func(t *testing.T) {
		tr := build(t, TypeFillMissing, []string{"c"}, map[string]any{"method": "bfill"})
		out, err := tr.Apply(csvTable(t, "c\nNA\nx\nNA\nNA\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "x", "<null>", "<null>"}, cellValues(t, out, "c"))
	})

	t.Run("value and method are mutually exclusive", func(t *testing.T) {
		step, err := NewStep(TypeFillMissing, []string{"c"}, map[string]any{"value": "x", "method": "mean"})
		require.NoError(t, err)
		_, err = New(step)
		var perr *ParamError
		require.ErrorAs(t, err, &perr)
	})

	t.Run("one of value or method is required", func(t *testing.T) {
		step, err := NewStep(TypeFillMissing, []string{"c"}, nil)
		require.NoError(t, err)
		_, err = New(step)
		require.Error(t, err)
	})

	t.Run("mean rejects non-numeric columns", func(t *testing.T) {
		tr := build(t, TypeFillMissing, []string{"city"}, map[string]any{"method": "mean"})
		err := tr.ValidateData(csvTable(t, "city\nnyc\nNA\n"))
		var derr *DataError
		require.ErrorAs(t, err, &derr)
		assert.Contains(t, derr.Reason, "city")
	})
}

func TestScale(t *testing.T) {
	t.Run("minmax", func(t *testing.T) {
		tr := build(t, TypeScale, nil, nil)
		out, err := tr.Apply(csvTable(t, "v\n0\n5\n10\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "0.5", "1"}, cellValues(t, out, "v"))
		col, _ := out.Column("v")
		assert.Equal(t, table.DTypeFloat, col.Type)
	})

	t.Run("zscore", func(t *testing.T) {
		tr := build(t, TypeScale, []string{"v"}, map[string]any{"method": "zscore"})
		out, err := tr.Apply(csvTable(t, "v\n1\n3\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"-1", "1"}, cellValues(t, out, "v"))
	})

	t.Run("zero variance maps to zero", func(t *testing.T) {
		tr := build(t, TypeScale, []string{"v"}, nil)
		out, err := tr.Apply(csvTable(t, "v\n7\n7\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "0"}, cellValues(t, out, "v"))
	})

	t.Run("rejects named non-numeric column", func(t *testing.T) {
		tr := build(t, TypeScale, []string{"city"}, nil)
		err := tr.ValidateData(csvTable(t, "city\nnyc\n"))
		require.Error(t, err)
	})

	t.Run("nulls stay null", func(t *testing.T) {
		tr := build(t, TypeScale, nil, nil)
		out, err := tr.Apply(csvTable(t, "v\n0\nNA\n10\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"0", "<null>", "1"}, cellValues(t, out, "v"))
	})
}

func TestEncode(t *testing.T) {
	t.Run("labels over sorted distinct values", func(t *testing.T) {
		tr := build(t, TypeEncode, []string{"city"}, nil)
		out, err := tr.Apply(csvTable(t, "city\nsf\nnyc\nsf\nNA\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "0", "1", "<null>"}, cellValues(t, out, "city"))
		col, _ := out.Column("city")
		assert.Equal(t, table.DTypeInt, col.Type)
	})

	t.Run("unknown method", func(t *testing.T) {
		step, err := NewStep(TypeEncode, []string{"city"}, map[string]any{"method": "onehot"})
		require.NoError(t, err)
		_, err = New(step)
		require.Error(t, err)
	})
}

func TestCoerceTypes(t *testing.T) {
	t.Run("coerces and nulls failures", func(t *testing.T) {
		tr := build(t, TypeCoerceTypes, nil, map[string]any{
			"types": map[string]string{"v": "int"},
		})
		out, err := tr.Apply(csvTable(t, "v\n3.0\nx\n7\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"3", "<null>", "7"}, cellValues(t, out, "v"))
		col, _ := out.Column("v")
		assert.Equal(t, table.DTypeInt, col.Type)
	})

	t.Run("bool coercion", func(t *testing.T) {
		tr := build(t, TypeCoerceTypes, nil, map[string]any{
			"types": map[string]string{"v": "bool"},
		})
		out, err := tr.Apply(csvTable(t, "v\nyes\n0\nmaybe\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"true", "false", "<null>"}, cellValues(t, out, "v"))
	})

	t.Run("strict mode rejects uncoercible data", func(t *testing.T) {
		tr := build(t, TypeCoerceTypes, nil, map[string]any{
			"types":  map[string]string{"v": "int"},
			"strict": true,
		})
		err := tr.ValidateData(csvTable(t, "v\n1\nx\n"))
		var derr *DataError
		require.ErrorAs(t, err, &derr)
		assert.Contains(t, derr.Reason, `"v"`)
	})

	t.Run("types map required", func(t *testing.T) {
		step, err := NewStep(TypeCoerceTypes, nil, nil)
		require.NoError(t, err)
		_, err = New(step)
		require.Error(t, err)
	})

	t.Run("unknown dtype rejected", func(t *testing.T) {
		step, err := NewStep(TypeCoerceTypes, nil, map[string]any{
			"types": map[string]string{"v": "decimal"},
		})
		require.NoError(t, err)
		_, err = New(step)
		require.Error(t, err)
	})
}
