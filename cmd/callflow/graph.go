package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/callflow/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the flow graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the flow, with error and empty routes drawn dashed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		g := eng.Graph()
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g.Nodes(), g.InitialNode(), nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
