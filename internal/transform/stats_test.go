package transform

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepflow-labs/prepflow/internal/table"
)

func TestComputeStats(t *testing.T) {
	tbl := csvTable(t, "age,city\n10,nyc\n20,NA\n30,sf\n")

	stats := ComputeStats(tbl)
	assert.Equal(t, 3, stats.RowCount)
	assert.Equal(t, 2, stats.ColumnCount)
	assert.Equal(t, 1, stats.MissingCells)
	require.Len(t, stats.Columns, 2)

	age := stats.Columns[0]
	require.Equal(t, "age", age.Name)
	require.NotNil(t, age.Min)
	assert.Equal(t, 10.0, *age.Min)
	assert.Equal(t, 30.0, *age.Max)
	assert.Equal(t, 20.0, *age.Mean)
	assert.InDelta(t, 8.1649, *age.StdDev, 0.001)

	city := stats.Columns[1]
	assert.Equal(t, 1, city.MissingCount)
	assert.Nil(t, city.Mean)
}

func TestStatsCache_HitAndMiss(t *testing.T) {
	c := newStatsCache()
	tbl := csvTable(t, "a\n1\n2\n")

	_, ok := c.get(tbl)
	require.False(t, ok)

	s := ComputeStats(tbl)
	c.put(tbl, s)

	got, ok := c.get(tbl)
	require.True(t, ok)
	assert.Same(t, s, got)

	// Equal content parsed separately still hits.
	same := csvTable(t, "a\n1\n2\n")
	_, ok = c.get(same)
	assert.True(t, ok)

	// Different content misses.
	other := csvTable(t, "a\n1\n3\n")
	_, ok = c.get(other)
	assert.False(t, ok)
}

func TestStatsCache_SkipsLargeTables(t *testing.T) {
	c := newStatsCache()

	cells := make([]table.Cell, statsCacheMaxRows+1)
	for i := range cells {
		cells[i] = table.Cell{Value: "1"}
	}
	big, err := table.New([]table.Column{{Name: "a", Type: table.DTypeInt, Cells: cells}})
	require.NoError(t, err)

	c.put(big, ComputeStats(big))
	_, ok := c.get(big)
	assert.False(t, ok)
}

func TestStatsCache_EvictsOldest(t *testing.T) {
	c := newStatsCache()

	first := csvTable(t, "a\n0\n")
	c.put(first, ComputeStats(first))

	for i := 1; i <= statsCacheMaxEntries; i++ {
		tbl := csvTable(t, fmt.Sprintf("a\n%d\n", i))
		c.put(tbl, ComputeStats(tbl))
	}

	_, ok := c.get(first)
	assert.False(t, ok, "oldest entry should be evicted")
	assert.LessOrEqual(t, len(c.entries), statsCacheMaxEntries)
}
