package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/prepflow-labs/prepflow/internal/pipeline"
)

// PipelineRunOptions holds options for the pipeline run command.
type PipelineRunOptions struct {
	VersionID string
	User      string
}

func newPipelineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run multi-step transformation pipelines",
	}
	cmd.AddCommand(newPipelineRunCommand())
	return cmd
}

func newPipelineRunCommand() *cobra.Command {
	opts := &PipelineRunOptions{}

	cmd := &cobra.Command{
		Use:   "run <pipeline-file>",
		Short: "Execute a pipeline definition against a version",
		Long: `Run the steps of a YAML pipeline definition in order, starting from the
content of the given version. Each step mints a new version with a
lineage edge; on failure, versions from completed steps remain.`,
		Example: `  prepflow pipeline run clean.yaml --version 2f9c... --user alice`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipelineRun(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.VersionID, "version", "", "Version id to start from")
	cmd.Flags().StringVar(&opts.User, "user", "", "Owner recorded as created_by")
	_ = cmd.MarkFlagRequired("version")

	return cmd
}

func runPipelineRun(cmd *cobra.Command, path string, opts *PipelineRunOptions) error {
	def, err := pipeline.Load(path)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	result, runErr := a.runner.Run(cmd.Context(), def, opts.VersionID, opts.User)
	if result != nil && len(result.Steps) > 0 {
		renderPipelineSteps(cmd, result)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %s completed, final version %s\n",
		def.Name, result.FinalVersionID)
	return nil
}

func renderPipelineSteps(cmd *cobra.Command, result *pipeline.RunResult) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Step", "Version", "Rows In", "Rows Out", "Time (ms)"})
	for i, step := range result.Steps {
		t.AppendRow(table.Row{i + 1, step.Type, step.VersionID, step.RowsBefore, step.RowsAfter, step.ExecutionMS})
	}
	t.Render()

	for _, step := range result.Steps {
		for _, w := range step.Warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "Warning (%s): %s\n", step.Type, w)
		}
	}
}
