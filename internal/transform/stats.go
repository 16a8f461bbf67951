package transform

import (
	"math"
	"strconv"

	"github.com/zeebo/xxh3"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// ColumnStats summarizes one column. The numeric fields are only set for
// numeric columns.
type ColumnStats struct {
	Name         string
	DType        string
	MissingCount int

	Min    *float64
	Max    *float64
	Mean   *float64
	StdDev *float64
}

// TableStats is the describe()-style summary attached to preview and
// apply results.
type TableStats struct {
	RowCount     int
	ColumnCount  int
	MissingCells int
	Columns      []ColumnStats
}

// ComputeStats builds a TableStats for the table.
func ComputeStats(t *table.Table) *TableStats {
	stats := &TableStats{
		RowCount:    t.NumRows(),
		ColumnCount: t.NumColumns(),
	}
	for i := 0; i < t.NumColumns(); i++ {
		col := t.ColumnAt(i)
		cs := ColumnStats{Name: col.Name, DType: string(col.Type)}

		var nums []float64
		for _, c := range col.Cells {
			if c.Null {
				cs.MissingCount++
				continue
			}
			if col.Type.IsNumeric() {
				if v, err := strconv.ParseFloat(c.Value, 64); err == nil {
					nums = append(nums, v)
				}
			}
		}
		stats.MissingCells += cs.MissingCount

		if len(nums) > 0 {
			lo, hi, sum := nums[0], nums[0], 0.0
			for _, v := range nums {
				if v < lo {
					lo = v
				}
				if v > hi {
					hi = v
				}
				sum += v
			}
			mean := sum / float64(len(nums))
			variance := 0.0
			for _, v := range nums {
				variance += (v - mean) * (v - mean)
			}
			std := math.Sqrt(variance / float64(len(nums)))
			cs.Min, cs.Max, cs.Mean, cs.StdDev = &lo, &hi, &mean, &std
		}

		stats.Columns = append(stats.Columns, cs)
	}
	return stats
}

// Stats caching. Preview recomputes identical statistics repeatedly for
// the same sample, so small tables are cached under a shape fingerprint.
const (
	statsCacheMaxRows    = 1000
	statsCacheMaxEntries = 32
)

type statsCache struct {
	entries map[uint64]*TableStats
	order   []uint64
}

func newStatsCache() *statsCache {
	return &statsCache{entries: make(map[uint64]*TableStats)}
}

// key fingerprints a table by shape and content so two equal sample
// slices share one stats computation.
func (c *statsCache) key(t *table.Table) uint64 {
	var buf []byte
	buf = strconv.AppendInt(buf, int64(t.NumRows()), 10)
	buf = append(buf, ':')
	for i := 0; i < t.NumColumns(); i++ {
		col := t.ColumnAt(i)
		buf = append(buf, col.Name...)
		buf = append(buf, '=')
		buf = append(buf, string(col.Type)...)
		buf = append(buf, ';')
		for _, cell := range col.Cells {
			if cell.Null {
				buf = append(buf, 0x00)
			} else {
				buf = append(buf, cell.Value...)
			}
			buf = append(buf, 0x1f)
		}
	}
	return xxh3.Hash(buf)
}

func (c *statsCache) get(t *table.Table) (*TableStats, bool) {
	if t.NumRows() > statsCacheMaxRows {
		return nil, false
	}
	s, ok := c.entries[c.key(t)]
	return s, ok
}

func (c *statsCache) put(t *table.Table, s *TableStats) {
	if t.NumRows() > statsCacheMaxRows {
		return
	}
	k := c.key(t)
	if _, exists := c.entries[k]; exists {
		return
	}
	// Evict oldest entry once full.
	if len(c.order) >= statsCacheMaxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[k] = s
	c.order = append(c.order, k)
}
