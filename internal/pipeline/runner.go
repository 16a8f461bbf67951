package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prepflow-labs/prepflow/internal/table"
	"github.com/prepflow-labs/prepflow/internal/transform"
	"github.com/prepflow-labs/prepflow/internal/version"
	"github.com/prepflow-labs/prepflow/pkg/core"
)

// StepResult records the outcome of one executed pipeline step.
type StepResult struct {
	Type        transform.Type
	VersionID   string
	LineageID   string
	RowsBefore  int
	RowsAfter   int
	ExecutionMS int64
	Warnings    []string
}

// RunResult summarizes a pipeline execution.
type RunResult struct {
	FinalVersionID string
	Steps          []StepResult
}

// Runner executes pipeline definitions: each step is validated and
// applied through the engine, and the result is versioned with a lineage
// edge before the next step runs.
type Runner struct {
	engine   *transform.Engine
	versions *version.Service
	logger   *slog.Logger
}

// NewRunner creates a pipeline runner. A nil logger discards output.
func NewRunner(engine *transform.Engine, versions *version.Service, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{engine: engine, versions: versions, logger: logger}
}

// Run executes the pipeline starting from the content of
// parentVersionID. Execution stops at the first failing step; versions
// minted by completed steps remain.
func (r *Runner) Run(ctx context.Context, def *Definition, parentVersionID, userID string) (*RunResult, error) {
	parent, err := r.versions.GetVersion(ctx, parentVersionID, false)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("version %s: %w", parentVersionID, core.ErrVersionNotFound)
	}

	content, err := r.versions.GetVersionContent(ctx, parentVersionID)
	if err != nil {
		return nil, err
	}
	tbl, err := table.ReadCSVBytes(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version content: %w", err)
	}

	result := &RunResult{FinalVersionID: parentVersionID}
	fileName := versionFileName(parent)

	for i, sd := range def.Steps {
		typ := transform.Type(sd.Type)
		r.logger.Info("running pipeline step", "step", i+1, "type", typ)

		started := time.Now()
		res := r.engine.Apply(tbl, typ, sd.Columns, sd.Parameters)
		execMS := time.Since(started).Milliseconds()
		if !res.Success {
			return result, fmt.Errorf("step %d (%s) failed: %s", i+1, typ, res.Error)
		}

		out, err := table.WriteCSVBytes(res.Transformed)
		if err != nil {
			return result, fmt.Errorf("step %d (%s): failed to serialize result: %w", i+1, typ, err)
		}

		meta := &core.DatasetMeta{
			DatasetID:  parent.DatasetID,
			FileName:   fileName,
			NumRows:    res.Transformed.NumRows(),
			NumColumns: res.Transformed.NumColumns(),
			Columns:    res.Transformed.ColumnNames(),
			Schema:     res.Transformed.Schema(),
		}
		step := core.LineageStep{
			StepType:        string(typ),
			Parameters:      sd.Parameters,
			AffectedColumns: res.AffectedColumns,
			RowsAffected:    res.AffectedRows,
			ExecutionMS:     execMS,
		}

		v, lineage, err := r.versions.CreateTransformationVersion(
			ctx, result.FinalVersionID, out, []core.LineageStep{step}, meta, userID,
			fmt.Sprintf("%s: %s", def.Name, typ))
		if err != nil {
			return result, fmt.Errorf("step %d (%s): %w", i+1, typ, err)
		}

		result.Steps = append(result.Steps, StepResult{
			Type:        typ,
			VersionID:   v.VersionID,
			LineageID:   lineage.LineageID,
			RowsBefore:  tbl.NumRows(),
			RowsAfter:   res.Transformed.NumRows(),
			ExecutionMS: execMS,
			Warnings:    res.Warnings,
		})
		result.FinalVersionID = v.VersionID
		tbl = res.Transformed
	}

	r.logger.Info("pipeline completed",
		"name", def.Name, "steps", len(result.Steps), "final_version", result.FinalVersionID)
	return result, nil
}

// versionFileName derives the stored file name from the parent's path.
func versionFileName(v *core.DatasetVersion) string {
	for i := len(v.FilePath) - 1; i >= 0; i-- {
		if v.FilePath[i] == '/' {
			return v.FilePath[i+1:]
		}
	}
	if v.FilePath != "" {
		return v.FilePath
	}
	return "data.csv"
}
