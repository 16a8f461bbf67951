package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepflow-labs/prepflow/internal/table"
	"github.com/prepflow-labs/prepflow/pkg/core"
)

// DatasetInitOptions holds options for the dataset init command.
type DatasetInitOptions struct {
	DatasetID   string
	User        string
	Description string
}

func newDatasetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage datasets",
	}
	cmd.AddCommand(newDatasetInitCommand())
	return cmd
}

func newDatasetInitCommand() *cobra.Command {
	opts := &DatasetInitOptions{}

	cmd := &cobra.Command{
		Use:   "init <csv-file>",
		Short: "Register a dataset and create its base version",
		Long: `Read a CSV file and record it as the immutable base version (v1) of a
dataset. All transformations branch off this version; a dataset can only
have one base version.`,
		Example: `  # Register a dataset, deriving the id from the file name
  prepflow dataset init data/customers.csv

  # Explicit dataset id and owner
  prepflow dataset init data/customers.csv --dataset-id customers --user alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasetInit(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.DatasetID, "dataset-id", "", "Dataset identifier (default: file name without extension)")
	cmd.Flags().StringVar(&opts.User, "user", "", "Owner recorded as created_by")
	cmd.Flags().StringVar(&opts.Description, "description", "", "Version description")

	return cmd
}

func runDatasetInit(cmd *cobra.Command, path string, opts *DatasetInitOptions) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read dataset file: %w", err)
	}

	tbl, err := table.ReadCSVBytes(content)
	if err != nil {
		return fmt.Errorf("failed to parse dataset file: %w", err)
	}

	fileName := filepath.Base(path)
	datasetID := opts.DatasetID
	if datasetID == "" {
		datasetID = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	meta := &core.DatasetMeta{
		DatasetID:  datasetID,
		FileName:   fileName,
		NumRows:    tbl.NumRows(),
		NumColumns: tbl.NumColumns(),
		Columns:    tbl.ColumnNames(),
		Schema:     tbl.Schema(),
	}
	v, err := a.versions.CreateBaseVersion(cmd.Context(), meta, content, opts.User, opts.Description)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created base version %s (v%d) for dataset %s: %d rows, %d columns\n",
		v.VersionID, v.VersionNumber, v.DatasetID, v.NumRows, v.NumColumns)
	return nil
}
