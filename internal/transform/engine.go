package transform

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prepflow-labs/prepflow/internal/table"
)

// dropLossWarnPercent is the projected row-loss level at which validation
// attaches a warning to drop_missing results.
const dropLossWarnPercent = 25.0

// DefaultPreviewRows is the sample size used when a preview does not
// specify one.
const DefaultPreviewRows = 100

// Result is the outcome of a validate, preview, or apply call. Failures
// are reported here; no error escapes the engine as a panic or return.
type Result struct {
	Success bool

	// Transformed holds the full result, set only by Apply.
	Transformed *table.Table
	// Preview holds the transformed sample, set only by Preview.
	Preview *table.Table

	AffectedRows    int
	AffectedColumns []string

	StatsBefore *TableStats
	StatsAfter  *TableStats

	Error    string
	Warnings []string
}

// HistoryEntry records one applied transformation.
type HistoryEntry struct {
	Timestamp       time.Time
	Type            Type
	Parameters      map[string]any
	RowsAffected    int
	AffectedColumns []string
}

// Engine validates, previews, and applies transformations. History and
// the stats cache are per-instance state; an Engine is not safe for
// concurrent mutation, the expected pattern is one engine per pipeline
// execution.
type Engine struct {
	logger  *slog.Logger
	history []HistoryEntry
	cache   *statsCache
}

// NewEngine creates an engine. A nil logger discards output.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{logger: logger, cache: newStatsCache()}
}

// History returns the applied-transformation log, oldest first.
func (e *Engine) History() []HistoryEntry {
	return e.history
}

// Validate checks a requested transformation against a table without
// applying it: parameter validation, column existence, and the
// data-dependent precondition. A projected drop_missing row loss above
// 25% yields a warning; above 50% the data validation itself fails.
func (e *Engine) Validate(tbl *table.Table, typ Type, columns []string, params map[string]any) *Result {
	tr, res := e.build(tbl, typ, columns, params)
	if res != nil {
		return res
	}

	result := &Result{Success: true, AffectedColumns: tr.AffectedColumns(tbl)}
	if d, ok := tr.(*dropMissing); ok {
		if loss := d.ProjectedLoss(tbl); loss > dropLossWarnPercent {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("drop_missing would remove %.1f%% of rows", loss))
		}
	}
	return result
}

// Preview validates, then applies the transformation to the first n rows
// only, returning before/after statistics and the transformed sample.
// The source table is never mutated.
func (e *Engine) Preview(tbl *table.Table, typ Type, columns []string, params map[string]any, n int) *Result {
	if n <= 0 {
		n = DefaultPreviewRows
	}

	tr, res := e.build(tbl, typ, columns, params)
	if res != nil {
		return res
	}

	sample := tbl.Head(n)
	before := e.stats(sample)

	preview, err := tr.Preview(tbl, n)
	if err != nil {
		e.logger.Error("preview failed", "type", typ, "error", err)
		return failure(fmt.Sprintf("preview failed: %v", err))
	}

	return &Result{
		Success:         true,
		Preview:         preview,
		AffectedRows:    sample.NumRows() - preview.NumRows(),
		AffectedColumns: tr.AffectedColumns(tbl),
		StatsBefore:     before,
		StatsAfter:      e.stats(preview),
	}
}

// Apply validates, then applies the transformation to the full table.
// An empty input fails immediately; a transformation that would empty a
// non-empty table is aborted and reported as a failure rather than
// returned.
func (e *Engine) Apply(tbl *table.Table, typ Type, columns []string, params map[string]any) *Result {
	if tbl.NumRows() == 0 {
		return failure("dataset is empty")
	}

	tr, res := e.build(tbl, typ, columns, params)
	if res != nil {
		return res
	}

	before := e.stats(tbl)
	transformed, err := tr.Apply(tbl)
	if err != nil {
		e.logger.Error("apply failed", "type", typ, "error", err)
		return failure(fmt.Sprintf("apply failed: %v", err))
	}

	if transformed.NumRows() == 0 {
		e.logger.Warn("transformation aborted: result is empty", "type", typ)
		return failure(fmt.Sprintf("transformation %s would remove all rows; aborted", typ))
	}

	affected := tr.AffectedColumns(tbl)
	rowsAffected := tbl.NumRows() - transformed.NumRows()
	e.history = append(e.history, HistoryEntry{
		Timestamp:       time.Now().UTC(),
		Type:            typ,
		Parameters:      params,
		RowsAffected:    rowsAffected,
		AffectedColumns: affected,
	})
	e.logger.Info("transformation applied",
		"type", typ,
		"rows_before", tbl.NumRows(),
		"rows_after", transformed.NumRows(),
		"affected_columns", len(affected))

	return &Result{
		Success:         true,
		Transformed:     transformed,
		AffectedRows:    rowsAffected,
		AffectedColumns: affected,
		StatsBefore:     before,
		StatsAfter:      e.stats(transformed),
	}
}

// build constructs the transformation and runs the shared validation
// steps. On failure it returns a non-nil failure Result; parameter and
// data errors are distinguished in the message but reported the same way.
func (e *Engine) build(tbl *table.Table, typ Type, columns []string, params map[string]any) (Transformation, *Result) {
	step, err := NewStep(typ, columns, params)
	if err != nil {
		return nil, failure(err.Error())
	}

	tr, err := New(step)
	if err != nil {
		var perr *ParamError
		if errors.As(err, &perr) {
			return nil, failure(fmt.Sprintf("invalid parameters: %v", perr))
		}
		return nil, failure(err.Error())
	}

	if missing := missingColumns(tbl, columns); len(missing) > 0 {
		return nil, failure(fmt.Sprintf("columns not found in dataset: %v", missing))
	}

	if err := tr.ValidateData(tbl); err != nil {
		return nil, failure(fmt.Sprintf("data validation failed: %v", err))
	}
	return tr, nil
}

// stats computes table statistics through the bounded cache.
func (e *Engine) stats(t *table.Table) *TableStats {
	if s, ok := e.cache.get(t); ok {
		return s
	}
	s := ComputeStats(t)
	e.cache.put(t, s)
	return s
}

func failure(msg string) *Result {
	return &Result{Success: false, Error: msg}
}
