package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLineageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lineage <version-id>",
		Short: "Show the transformation chain behind a version",
		Long: `Walk the lineage from the base version to the given version and print
every transformation edge in chronological order.`,
		Example: `  prepflow lineage 2f9c...`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0])
		},
	}
	return cmd
}

func runLineage(cmd *cobra.Command, versionID string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	chain, err := a.versions.GetLineageChain(cmd.Context(), versionID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(chain) == 0 {
		fmt.Fprintln(out, "(base version, no lineage)")
		return nil
	}

	fmt.Fprintf(out, "Lineage for version %s (%d transformations):\n\n", versionID, len(chain))
	for i, l := range chain {
		fmt.Fprintf(out, "%d. %s -> %s\n", i+1, l.ParentVersionID, l.ChildVersionID)
		for _, step := range l.Steps {
			fmt.Fprintf(out, "   - %s (rows affected: %d, %dms)\n",
				step.StepType, step.RowsAffected, step.ExecutionMS)
		}
		fmt.Fprintf(out, "   rows %d -> %d (loss %.1f%%)\n",
			l.RowsBefore, l.RowsAfter, l.DataLossPercentage)
	}
	return nil
}
