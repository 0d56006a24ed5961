package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/registry"
)

var (
	// ErrMissingDestination is reported for an action without a Next node outside a terminal node.
	ErrMissingDestination = errors.New("missing destination")
	// ErrDeadEnd is reported for a node with no actions that never ends the conversation.
	ErrDeadEnd = errors.New("dead end")
	// ErrUnknownPostAction is reported for an unsupported post-action type.
	ErrUnknownPostAction = errors.New("unknown post-action")
)

// Problem is one structural defect found during validation.
type Problem struct {
	Node   string
	Action string
	Err    error
}

func (p Problem) String() string {
	switch {
	case p.Node == "":
		return p.Err.Error()
	case p.Action == "":
		return fmt.Sprintf("node %q: %v", p.Node, p.Err)
	default:
		return fmt.Sprintf("node %q action %q: %v", p.Node, p.Action, p.Err)
	}
}

// ValidationError aggregates every problem in a definition.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = p.String()
	}
	return fmt.Sprintf("found %d errors:\n- %s", len(lines), strings.Join(lines, "\n- "))
}

// Unwrap exposes the individual causes to errors.Is.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Problems))
	for i, p := range e.Problems {
		errs[i] = p.Err
	}
	return errs
}

func validate(def *domain.Definition, reg *registry.Registry, cfg *config) error {
	var problems []Problem
	add := func(node, action string, err error) {
		problems = append(problems, Problem{Node: node, Action: action, Err: err})
	}

	if _, ok := def.Nodes[def.InitialNode]; !ok {
		add("", "", fmt.Errorf("initial node: %w", &domain.UnknownNodeError{Node: def.InitialNode}))
	}

	for _, id := range def.NodeIDs() {
		n := def.Nodes[id]
		if n.ID != "" && n.ID != id {
			add(id, "", fmt.Errorf("declared id %q does not match its key", n.ID))
		}

		ends := false
		for _, p := range n.PostActions {
			if !cfg.postActions[p.Type] {
				add(id, "", fmt.Errorf("%w: %q", ErrUnknownPostAction, p.Type))
			}
			if p.Phase() != domain.PhaseEnter && p.Phase() != domain.PhaseLeave {
				add(id, "", fmt.Errorf("post-action %q: unknown phase %q", p.Type, p.When))
			}
			if p.Type == domain.PostActionEndConversation {
				ends = true
			}
		}

		if n.IsTerminal() && !ends {
			add(id, "", fmt.Errorf("%w: no actions and no %s post-action", ErrDeadEnd, domain.PostActionEndConversation))
		}

		seen := make(map[string]bool, len(n.Actions))
		for _, a := range n.Actions {
			if a.Name == "" {
				add(id, "", errors.New("action without a name"))
				continue
			}
			if seen[a.Name] {
				add(id, a.Name, domain.ErrDuplicateAction)
			}
			seen[a.Name] = true

			if a.Next == "" && !ends {
				add(id, a.Name, ErrMissingDestination)
			}
			for _, dest := range a.Destinations() {
				if _, ok := def.Nodes[dest]; !ok {
					add(id, a.Name, &domain.UnknownNodeError{Node: dest})
				}
			}
			if _, ok := reg.Lookup(a.HandlerName()); !ok {
				add(id, a.Name, fmt.Errorf("%w: %q", domain.ErrUnknownHandler, a.HandlerName()))
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}

// reachable crawls the graph breadth-first from start.
func reachable(start string, nodes map[string]domain.Node) map[string]bool {
	visited := make(map[string]bool)
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		n, ok := nodes[current]
		if !ok {
			continue
		}
		visited[current] = true

		var next []string
		for _, a := range n.Actions {
			next = append(next, a.Destinations()...)
		}
		sort.Strings(next)
		for _, target := range next {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}
	return visited
}
