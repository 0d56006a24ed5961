package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/callflow/internal/presentation/graph"
	"github.com/aretw0/callflow/internal/presentation/tui"
	"github.com/aretw0/callflow/pkg/domain"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Describe the flow, or where a stored session stands in it",
	Long: `Renders every node of the flow with its task messages and routing table.
With --session, prints a Mermaid diagram highlighting the nodes the session visited
and the node it is on, read from the configured store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		out := cmd.OutOrStdout()

		eng, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		g := eng.Graph()

		if sessionID == "" {
			render := tui.NewRenderer()
			text, err := render(graph.GenerateMarkdown(g.Definition()))
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
			return nil
		}

		be, err := openBackend()
		if err != nil {
			return err
		}
		defer be.close()
		state, err := be.store.Load(cmd.Context(), sessionID)
		if err != nil {
			return fmt.Errorf("load session %q: %w", sessionID, err)
		}
		fmt.Fprint(out, graph.GenerateMermaid(g.Nodes(), g.InitialNode(), overlay(state)))
		return nil
	},
}

func overlay(state *domain.FlowState) *graph.GraphOverlay {
	o := &graph.GraphOverlay{CurrentNode: state.CurrentNode}
	seen := map[string]bool{}
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			o.VisitedNodes = append(o.VisitedNodes, id)
		}
	}
	for _, t := range state.History {
		add(t.From)
		add(t.To)
	}
	add(state.CurrentNode)
	return o
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().String("session", "", "Session ID to overlay on the graph")
}
