package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/callflow/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart from a list of nodes.
// Shapes:
//   - initial: ((Circle))
//   - terminal or ending: ([Stadium])
//   - default: [Rectangle]
//
// Success edges are solid and labelled with the action (and branch, if any);
// error and empty routes are dashed. Overlay styles are applied if provided.
func GenerateMermaid(nodes []domain.Node, initial string, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == initial:
			opener, closer = "((", "))"
		case node.IsTerminal() || ends(node):
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, node.ID, closer)

		for _, a := range node.Actions {
			label := escape(a.Name)
			if a.Next != "" {
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, label, sanitizeMermaidID(a.Next))
			}
			for _, branch := range sortedBranches(a.Branches) {
				fmt.Fprintf(&sb, "    %s -- \"%s: %s\" --> %s\n", safeID, label, escape(branch), sanitizeMermaidID(a.Branches[branch]))
			}
			if a.OnError != "" {
				fmt.Fprintf(&sb, "    %s -. \"%s: error\" .-> %s\n", safeID, label, sanitizeMermaidID(a.OnError))
			}
			if a.OnEmpty != "" {
				fmt.Fprintf(&sb, "    %s -. \"%s: empty\" .-> %s\n", safeID, label, sanitizeMermaidID(a.OnEmpty))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func ends(n domain.Node) bool {
	for _, p := range n.PostActions {
		if p.Type == domain.PostActionEndConversation {
			return true
		}
	}
	return false
}

func sortedBranches(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
