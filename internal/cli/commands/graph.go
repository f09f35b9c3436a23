package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/medallion/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Show the table dependency graph",
		Long: `Print the pipeline's tables in dependency order, with the inputs each
table is built from. Bronze tables are sources and have no inputs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			graph, err := pipeline.Graph()
			if err != nil {
				return err
			}
			sorted, err := graph.TopologicalSort()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, node := range sorted {
				step := node.Data.(pipeline.Step)
				if step.IsSource() {
					fmt.Fprintf(out, "%s (source)\n", node.ID)
					continue
				}
				inputs := make([]string, len(step.Inputs))
				for i, in := range step.Inputs {
					inputs[i] = in.Qualified()
				}
				fmt.Fprintf(out, "%s <- %s\n", node.ID, strings.Join(inputs, ", "))
			}
			return nil
		},
	}
}
