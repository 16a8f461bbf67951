package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	ttable "github.com/prepflow-labs/prepflow/internal/table"
	"github.com/prepflow-labs/prepflow/internal/transform"
	"github.com/prepflow-labs/prepflow/pkg/core"
)

// TransformOptions holds the shared options of the transform subcommands.
type TransformOptions struct {
	Columns     []string
	Params      []string
	Rows        int
	User        string
	Description string
}

func newTransformCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Validate, preview, and apply transformations",
		Long: `Transformations follow a three-phase protocol: validate checks the
request without touching data, preview shows the effect on a sample, and
apply executes it and records the result as a new dataset version.`,
	}
	cmd.AddCommand(newTransformValidateCommand())
	cmd.AddCommand(newTransformPreviewCommand())
	cmd.AddCommand(newTransformApplyCommand())
	return cmd
}

func transformFlags(cmd *cobra.Command, opts *TransformOptions) {
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "Columns to transform (default: all applicable)")
	cmd.Flags().StringArrayVar(&opts.Params, "param", nil, "Transformation parameter as key=value (repeatable)")
}

func newTransformValidateCommand() *cobra.Command {
	opts := &TransformOptions{}

	cmd := &cobra.Command{
		Use:   "validate <version-id> <type>",
		Short: "Check a transformation without touching data",
		Example: `  prepflow transform validate 2f9c... remove_duplicates
  prepflow transform validate 2f9c... fill_missing --columns age --param method=mean`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransformValidate(cmd, args[0], args[1], opts)
		},
	}
	transformFlags(cmd, opts)
	return cmd
}

func newTransformPreviewCommand() *cobra.Command {
	opts := &TransformOptions{}

	cmd := &cobra.Command{
		Use:   "preview <version-id> <type>",
		Short: "Show the effect of a transformation on a sample",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransformPreview(cmd, args[0], args[1], opts)
		},
	}
	transformFlags(cmd, opts)
	cmd.Flags().IntVar(&opts.Rows, "rows", 0, "Sample size (default: preview_rows from config)")
	return cmd
}

func newTransformApplyCommand() *cobra.Command {
	opts := &TransformOptions{}

	cmd := &cobra.Command{
		Use:   "apply <version-id> <type>",
		Short: "Apply a transformation and record a new version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransformApply(cmd, args[0], args[1], opts)
		},
	}
	transformFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.User, "user", "", "Owner recorded as created_by")
	cmd.Flags().StringVar(&opts.Description, "description", "", "Version description")
	return cmd
}

func runTransformValidate(cmd *cobra.Command, versionID, typ string, opts *TransformOptions) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	tbl, err := loadVersionTable(cmd, a, versionID)
	if err != nil {
		return err
	}
	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}

	res := a.engine.Validate(tbl, transform.Type(typ), opts.Columns, params)
	if !res.Success {
		return fmt.Errorf("validation failed: %s", res.Error)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Validation passed")
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}
	return nil
}

func runTransformPreview(cmd *cobra.Command, versionID, typ string, opts *TransformOptions) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	tbl, err := loadVersionTable(cmd, a, versionID)
	if err != nil {
		return err
	}
	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}

	rows := opts.Rows
	if rows <= 0 {
		rows = cfg.PreviewRows
	}

	res := a.engine.Preview(tbl, transform.Type(typ), opts.Columns, params, rows)
	if !res.Success {
		return fmt.Errorf("preview failed: %s", res.Error)
	}

	out := cmd.OutOrStdout()
	renderTable(out, res.Preview)
	fmt.Fprintf(out, "Sample: %d rows in, %d rows out, %d affected\n",
		res.StatsBefore.RowCount, res.StatsAfter.RowCount, res.AffectedRows)
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}
	return nil
}

func runTransformApply(cmd *cobra.Command, versionID, typ string, opts *TransformOptions) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	parent, err := a.versions.GetVersion(cmd.Context(), versionID, false)
	if err != nil {
		return err
	}
	if parent == nil {
		return fmt.Errorf("version %s: %w", versionID, core.ErrVersionNotFound)
	}

	tbl, err := loadVersionTable(cmd, a, versionID)
	if err != nil {
		return err
	}
	params, err := parseParams(opts.Params)
	if err != nil {
		return err
	}

	started := time.Now()
	res := a.engine.Apply(tbl, transform.Type(typ), opts.Columns, params)
	if !res.Success {
		return fmt.Errorf("apply failed: %s", res.Error)
	}

	content, err := ttable.WriteCSVBytes(res.Transformed)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	meta := &core.DatasetMeta{
		DatasetID:  parent.DatasetID,
		FileName:   "data.csv",
		NumRows:    res.Transformed.NumRows(),
		NumColumns: res.Transformed.NumColumns(),
		Columns:    res.Transformed.ColumnNames(),
		Schema:     res.Transformed.Schema(),
	}
	step := core.LineageStep{
		StepType:        typ,
		Parameters:      params,
		AffectedColumns: res.AffectedColumns,
		RowsAffected:    res.AffectedRows,
		ExecutionMS:     time.Since(started).Milliseconds(),
	}

	v, lineage, err := a.versions.CreateTransformationVersion(
		cmd.Context(), versionID, content, []core.LineageStep{step}, meta, opts.User, opts.Description)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created version %s (v%d): %d rows, %d columns (data loss %.1f%%)\n",
		v.VersionID, v.VersionNumber, v.NumRows, v.NumColumns, lineage.DataLossPercentage)
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", w)
	}
	return nil
}

// loadVersionTable fetches a version's content and parses it.
func loadVersionTable(cmd *cobra.Command, a *app, versionID string) (*ttable.Table, error) {
	content, err := a.versions.GetVersionContent(cmd.Context(), versionID)
	if err != nil {
		return nil, err
	}
	tbl, err := ttable.ReadCSVBytes(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version content: %w", err)
	}
	return tbl, nil
}

// parseParams converts repeated key=value flags into a parameter map.
// Values that look like bools or numbers are typed accordingly.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: expected key=value", pair)
		}
		params[key] = typedValue(value)
	}
	return params, nil
}

func typedValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// renderTable prints a dataset sample using go-pretty.
func renderTable(w io.Writer, tbl *ttable.Table) {
	if tbl == nil || tbl.NumRows() == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	cols := tbl.ColumnNames()
	headerRow := make(table.Row, len(cols))
	for i, col := range cols {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for r := 0; r < tbl.NumRows(); r++ {
		row := make(table.Row, len(cols))
		for c := 0; c < tbl.NumColumns(); c++ {
			cell := tbl.ColumnAt(c).Cells[r]
			if cell.Null {
				row[c] = "NULL"
			} else {
				row[c] = cell.Value
			}
		}
		t.AppendRow(row)
	}

	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", tbl.NumRows())
}
