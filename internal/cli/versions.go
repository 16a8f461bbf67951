package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/prepflow-labs/prepflow/pkg/core"
)

// VersionsListOptions holds options for the versions list command.
type VersionsListOptions struct {
	User  string
	Limit int
	Skip  int
}

// CleanupOptions holds options for the versions cleanup command.
type CleanupOptions struct {
	KeepCount     int
	RetentionDays int
}

func newVersionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Inspect and manage dataset versions",
	}
	cmd.AddCommand(newVersionsListCommand())
	cmd.AddCommand(newVersionsShowCommand())
	cmd.AddCommand(newVersionsCompareCommand())
	cmd.AddCommand(newVersionsPinCommand())
	cmd.AddCommand(newVersionsUnpinCommand())
	cmd.AddCommand(newVersionsCleanupCommand())
	return cmd
}

func newVersionsListCommand() *cobra.Command {
	opts := &VersionsListOptions{}

	cmd := &cobra.Command{
		Use:   "list <dataset-id>",
		Short: "List versions of a dataset, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersionsList(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.User, "user", "", "Filter by owner")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Max versions to return (0 = all)")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "Versions to skip")
	return cmd
}

func newVersionsShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <version-id>",
		Short: "Show a version's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersionsShow(cmd, args[0])
		},
	}
	return cmd
}

func newVersionsCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <version-id-1> <version-id-2>",
		Short: "Compare two versions of the same dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersionsCompare(cmd, args[0], args[1])
		},
	}
	return cmd
}

func newVersionsPinCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <version-id>",
		Short: "Protect a version from cleanup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.versions.PinVersion(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pinned version %s\n", args[0])
			return nil
		},
	}
}

func newVersionsUnpinCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unpin <version-id>",
		Short: "Remove a version's cleanup protection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.versions.UnpinVersion(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unpinned version %s\n", args[0])
			return nil
		},
	}
}

func newVersionsCleanupCommand() *cobra.Command {
	opts := &CleanupOptions{}

	cmd := &cobra.Command{
		Use:   "cleanup <dataset-id>",
		Short: "Delete old, unprotected versions",
		Long: `Delete versions older than the retention window, keeping the newest
keep-count versions. Pinned versions, base versions, and versions used
in training runs are never deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersionsCleanup(cmd, args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.KeepCount, "keep", 0, "Newest versions to keep (default: keep_count from config)")
	cmd.Flags().IntVar(&opts.RetentionDays, "retention-days", 0, "Retention window in days (default: retention_days from config)")
	return cmd
}

func runVersionsList(cmd *cobra.Command, datasetID string, opts *VersionsListOptions) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	versions, err := a.versions.ListVersions(cmd.Context(), datasetID, opts.User, opts.Limit, opts.Skip)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(no versions)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Version", "ID", "Rows", "Columns", "Flags", "Created By", "Created At"})
	for _, v := range versions {
		t.AppendRow(table.Row{
			fmt.Sprintf("v%d", v.VersionNumber), v.VersionID, v.NumRows, v.NumColumns,
			versionFlags(v), v.CreatedBy, v.CreatedAt.Format(time.RFC3339),
		})
	}
	t.Render()
	return nil
}

func versionFlags(v *core.DatasetVersion) string {
	var flags []string
	if v.IsBaseVersion {
		flags = append(flags, "base")
	}
	if v.IsPinned {
		flags = append(flags, "pinned")
	}
	if len(v.UsedInTraining) > 0 {
		flags = append(flags, "training")
	}
	return strings.Join(flags, ",")
}

func runVersionsShow(cmd *cobra.Command, versionID string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	v, err := a.versions.GetVersion(cmd.Context(), versionID, true)
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("version %s: %w", versionID, core.ErrVersionNotFound)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Version:      %s (v%d)\n", v.VersionID, v.VersionNumber)
	fmt.Fprintf(out, "Dataset:      %s\n", v.DatasetID)
	fmt.Fprintf(out, "Content hash: %s\n", v.ContentHash)
	fmt.Fprintf(out, "Schema hash:  %s\n", v.SchemaHash)
	fmt.Fprintf(out, "Shape:        %d rows x %d columns\n", v.NumRows, v.NumColumns)
	fmt.Fprintf(out, "File:         %s (%d bytes)\n", v.FilePath, v.FileSize)
	if v.ParentVersionID != "" {
		fmt.Fprintf(out, "Parent:       %s\n", v.ParentVersionID)
	}
	if flags := versionFlags(v); flags != "" {
		fmt.Fprintf(out, "Flags:        %s\n", flags)
	}
	if v.CreatedBy != "" {
		fmt.Fprintf(out, "Created by:   %s\n", v.CreatedBy)
	}
	if v.Description != "" {
		fmt.Fprintf(out, "Description:  %s\n", v.Description)
	}
	fmt.Fprintf(out, "Created at:   %s\n", v.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Accessed:     %d times\n", v.AccessCount)
	return nil
}

func runVersionsCompare(cmd *cobra.Command, v1ID, v2ID string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	cmp, err := a.versions.CompareVersions(cmd.Context(), v1ID, v2ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Rows diff", cmp.RowsDiff})
	t.AppendRow(table.Row{"Columns diff", cmp.ColumnsDiff})
	t.AppendRow(table.Row{"Columns added", strings.Join(cmp.ColumnsAdded, ", ")})
	t.AppendRow(table.Row{"Columns removed", strings.Join(cmp.ColumnsRemoved, ", ")})
	t.AppendRow(table.Row{"Schema identical", cmp.SchemaIdentical})
	t.AppendRow(table.Row{"Content similarity", fmt.Sprintf("%.1f%%", cmp.ContentSimilarity)})
	t.AppendRow(table.Row{"Transformations", cmp.TransformationCount})
	t.Render()

	if len(cmp.LineagePath) > 0 {
		fmt.Fprintf(out, "Lineage path: %s\n", strings.Join(cmp.LineagePath, " -> "))
	}
	return nil
}

func runVersionsCleanup(cmd *cobra.Command, datasetID string, opts *CleanupOptions) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	keep := opts.KeepCount
	if keep <= 0 {
		keep = cfg.KeepCount
	}
	retention := opts.RetentionDays
	if retention <= 0 {
		retention = cfg.RetentionDays
	}

	deleted, err := a.versions.CleanupOldVersions(cmd.Context(), datasetID, retention, keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d versions of dataset %s\n", deleted, datasetID)
	return nil
}
