package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/callflow/pkg/graph"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the graph for consistency",
	Long: `Validates the flow definition: dangling routes, unknown handlers, duplicate action names
and a missing initial node are errors. Nodes no route can reach are reported as warnings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		eng, err := newEngine(cmd.Context())
		if err != nil {
			var verr *graph.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintln(out, "Validation failed:")
				for _, p := range verr.Problems {
					fmt.Fprintln(out, "  - "+p.String())
				}
				return errors.New("graph is invalid")
			}
			return err
		}

		g := eng.Graph()
		if unreachable := g.Unreachable(); len(unreachable) > 0 {
			fmt.Fprintf(out, "Warning: unreachable nodes: %s\n", strings.Join(unreachable, ", "))
		}
		fmt.Fprintf(out, "Graph %q is valid (%d nodes).\n", g.Name(), len(g.Nodes()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
