package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/callflow/pkg/domain"
)

// GenerateMarkdown describes every node, its messages and its routing as a markdown document.
func GenerateMarkdown(def *domain.Definition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", def.Name)
	fmt.Fprintf(&sb, "Initial node: `%s`\n\n", def.InitialNode)

	ids := def.NodeIDs()
	sort.SliceStable(ids, func(i, j int) bool { return ids[i] == def.InitialNode && ids[j] != def.InitialNode })

	for _, id := range ids {
		n := def.Nodes[id]
		fmt.Fprintf(&sb, "## %s\n\n", id)
		for _, m := range n.TaskMessages {
			fmt.Fprintf(&sb, "> %s\n\n", strings.ReplaceAll(strings.TrimSpace(m.Content), "\n", "\n> "))
		}
		if n.IsTerminal() {
			sb.WriteString("_terminal_\n\n")
		}
		if len(n.Actions) > 0 {
			sb.WriteString("| action | success | error | empty |\n|---|---|---|---|\n")
			for _, a := range n.Actions {
				success := a.Next
				for _, b := range sortedBranches(a.Branches) {
					success = strings.TrimPrefix(success+", "+b+" → "+a.Branches[b], ", ")
				}
				fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", a.Name, dash(success), dash(a.OnError), dash(a.OnEmpty))
			}
			sb.WriteString("\n")
		}
		for _, p := range n.PostActions {
			fmt.Fprintf(&sb, "- post-action `%s` on %s\n", p.Type, p.Phase())
		}
		if len(n.PostActions) > 0 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
