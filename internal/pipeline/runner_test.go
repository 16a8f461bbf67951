package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepflow-labs/prepflow/internal/blob"
	"github.com/prepflow-labs/prepflow/internal/state"
	"github.com/prepflow-labs/prepflow/internal/table"
	"github.com/prepflow-labs/prepflow/internal/testutil"
	"github.com/prepflow-labs/prepflow/internal/transform"
	"github.com/prepflow-labs/prepflow/internal/version"
	"github.com/prepflow-labs/prepflow/pkg/core"
)

func newTestRunner(t *testing.T) (*Runner, *version.Service) {
	t.Helper()

	store := state.NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { store.Close() })

	blobs, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)

	logger := testutil.NewTestLogger(t)
	versions := version.NewService(store, blobs, logger)
	engine := transform.NewEngine(logger)
	return NewRunner(engine, versions, logger), versions
}

func seedBase(t *testing.T, versions *version.Service, content string) *core.DatasetVersion {
	t.Helper()
	tbl, err := table.ReadCSVBytes([]byte(content))
	require.NoError(t, err)

	meta := &core.DatasetMeta{
		DatasetID:  "customers",
		FileName:   "customers.csv",
		NumRows:    tbl.NumRows(),
		NumColumns: tbl.NumColumns(),
		Columns:    tbl.ColumnNames(),
		Schema:     tbl.Schema(),
	}
	v, err := versions.CreateBaseVersion(context.Background(), meta, []byte(content), "alice", "")
	require.NoError(t, err)
	return v
}

func TestParse(t *testing.T) {
	t.Run("valid definition", func(t *testing.T) {
		def, err := Parse([]byte(`
name: clean
description: basic cleanup
steps:
  - type: trim_whitespace
  - type: drop_missing
    parameters:
      how: any
`))
		require.NoError(t, err)
		assert.Equal(t, "clean", def.Name)
		require.Len(t, def.Steps, 2)
		assert.Equal(t, "drop_missing", def.Steps[1].Type)
		assert.Equal(t, "any", def.Steps[1].Parameters["how"])
	})

	t.Run("empty pipeline rejected", func(t *testing.T) {
		_, err := Parse([]byte("name: empty\nsteps: []\n"))
		require.ErrorContains(t, err, "no steps")
	})

	t.Run("unknown step type rejected with position", func(t *testing.T) {
		_, err := Parse([]byte("name: bad\nsteps:\n  - type: trim_whitespace\n  - type: explode\n"))
		require.ErrorContains(t, err, "step 2")
	})

	t.Run("missing required columns rejected", func(t *testing.T) {
		_, err := Parse([]byte("name: bad\nsteps:\n  - type: fill_missing\n    parameters:\n      method: mean\n"))
		require.ErrorContains(t, err, "requires at least one column")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Parse([]byte("name: [broken\n"))
		require.Error(t, err)
	})
}

func TestRunner_Run(t *testing.T) {
	runner, versions := newTestRunner(t)
	ctx := context.Background()

	base := seedBase(t, versions, "name,age\n alice ,30\nbob,NA\n carol ,40\n")

	def, err := Parse([]byte(`
name: clean
steps:
  - type: trim_whitespace
  - type: drop_missing
    parameters:
      how: any
`))
	require.NoError(t, err)

	result, err := runner.Run(ctx, def, base.VersionID, "alice")
	require.NoError(t, err)
	require.Len(t, result.Steps, 2)

	// Step one: trim only, no rows lost.
	assert.Equal(t, transform.TypeTrimWhitespace, result.Steps[0].Type)
	assert.Equal(t, 3, result.Steps[0].RowsBefore)
	assert.Equal(t, 3, result.Steps[0].RowsAfter)

	// Step two: the row with the missing age is dropped.
	assert.Equal(t, 3, result.Steps[1].RowsBefore)
	assert.Equal(t, 2, result.Steps[1].RowsAfter)
	assert.Equal(t, result.Steps[1].VersionID, result.FinalVersionID)

	// The final version's content is trimmed and complete.
	content, err := versions.GetVersionContent(ctx, result.FinalVersionID)
	require.NoError(t, err)
	assert.Equal(t, "name,age\nalice,30\ncarol,40\n", string(content))

	// Each step produced a version chained to the previous one.
	final, err := versions.GetVersion(ctx, result.FinalVersionID, false)
	require.NoError(t, err)
	assert.Equal(t, 3, final.VersionNumber)
	assert.Equal(t, result.Steps[0].VersionID, final.ParentVersionID)

	chain, err := versions.GetLineageChain(ctx, result.FinalVersionID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "trim_whitespace", chain[0].Steps[0].StepType)
	assert.Equal(t, "drop_missing", chain[1].Steps[0].StepType)
}

func TestRunner_Run_StopsOnFailure(t *testing.T) {
	runner, versions := newTestRunner(t)
	ctx := context.Background()

	// Most rows have a missing cell, so drop_missing fails validation.
	base := seedBase(t, versions, "name,age\n alice ,30\nbob,NA\nNA,NA\nNA,50\n")

	def, err := Parse([]byte(`
name: clean
steps:
  - type: trim_whitespace
  - type: drop_missing
  - type: remove_duplicates
`))
	require.NoError(t, err)

	result, err := runner.Run(ctx, def, base.VersionID, "alice")
	require.ErrorContains(t, err, "step 2 (drop_missing) failed")

	// The first step's version survives the failure.
	require.NotNil(t, result)
	require.Len(t, result.Steps, 1)
	v, gerr := versions.GetVersion(ctx, result.Steps[0].VersionID, false)
	require.NoError(t, gerr)
	require.NotNil(t, v)
	assert.Equal(t, 2, v.VersionNumber)
}

func TestRunner_Run_UnknownVersion(t *testing.T) {
	runner, _ := newTestRunner(t)

	def, err := Parse([]byte("name: clean\nsteps:\n  - type: trim_whitespace\n"))
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), def, "ghost", "alice")
	require.ErrorIs(t, err, core.ErrVersionNotFound)
}
