package graph

import (
	"fmt"
	"sort"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/registry"
)

// Graph is a validated, read-only table of nodes keyed by name.
type Graph struct {
	name     string
	initial  string
	nodes    map[string]domain.Node
	handlers map[string]ports.ActionHandler // keyed by node + "/" + action
}

type config struct {
	postActions map[domain.PostActionType]bool
}

// Option configures graph construction.
type Option func(*config)

// WithPostActionTypes extends the set of accepted post-action types.
func WithPostActionTypes(types ...domain.PostActionType) Option {
	return func(c *config) {
		for _, t := range types {
			c.postActions[t] = true
		}
	}
}

// New validates def against the registry and builds the graph.
// The returned error is a *ValidationError listing every problem found.
func New(def *domain.Definition, reg *registry.Registry, opts ...Option) (*Graph, error) {
	if def == nil {
		return nil, fmt.Errorf("graph definition is nil")
	}
	if reg == nil {
		reg = registry.NewRegistry()
	}

	cfg := &config{postActions: map[domain.PostActionType]bool{
		domain.PostActionEndConversation: true,
	}}
	for _, opt := range opts {
		opt(cfg)
	}

	if err := validate(def, reg, cfg); err != nil {
		return nil, err
	}

	g := &Graph{
		name:     def.Name,
		initial:  def.InitialNode,
		nodes:    make(map[string]domain.Node, len(def.Nodes)),
		handlers: make(map[string]ports.ActionHandler),
	}
	for id, n := range def.Nodes {
		n = n.Clone()
		n.ID = id
		g.nodes[id] = n
		for _, a := range n.Actions {
			h, _ := reg.Lookup(a.HandlerName())
			g.handlers[handlerKey(id, a.Name)] = h
		}
	}
	return g, nil
}

func handlerKey(node, action string) string {
	return node + "/" + action
}

// Name returns the definition name.
func (g *Graph) Name() string { return g.name }

// InitialNode returns the node every conversation starts on.
func (g *Graph) InitialNode() string { return g.initial }

// Node returns a copy of the named node.
func (g *Graph) Node(name string) (domain.Node, error) {
	n, ok := g.nodes[name]
	if !ok {
		return domain.Node{}, &domain.UnknownNodeError{Node: name}
	}
	return n.Clone(), nil
}

// Catalog returns the model-facing action specs of the named node only.
func (g *Graph) Catalog(name string) ([]domain.ActionSpec, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, &domain.UnknownNodeError{Node: name}
	}
	specs := make([]domain.ActionSpec, 0, len(n.Actions))
	for _, a := range n.Actions {
		specs = append(specs, a.Spec())
	}
	return specs, nil
}

// Resolve finds an action within the named node and its handler.
// An action declared on another node is not available.
func (g *Graph) Resolve(node, action string) (domain.ActionDef, ports.ActionHandler, error) {
	n, ok := g.nodes[node]
	if !ok {
		return domain.ActionDef{}, nil, &domain.UnknownNodeError{Node: node}
	}
	def, ok := n.Action(action)
	if !ok {
		return domain.ActionDef{}, nil, &domain.ActionNotAvailableError{
			Action:    action,
			Node:      node,
			Available: n.ActionNames(),
		}
	}
	return def.Clone(), g.handlers[handlerKey(node, action)], nil
}

// Nodes returns copies of all nodes, initial node first, then by name.
func (g *Graph) Nodes() []domain.Node {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		if id != g.initial {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]domain.Node, 0, len(g.nodes))
	out = append(out, g.nodes[g.initial].Clone())
	for _, id := range ids {
		out = append(out, g.nodes[id].Clone())
	}
	return out
}

// Definition returns a copy of the graph as plain data.
func (g *Graph) Definition() *domain.Definition {
	def := &domain.Definition{
		Name:        g.name,
		InitialNode: g.initial,
		Nodes:       make(map[string]domain.Node, len(g.nodes)),
	}
	for id, n := range g.nodes {
		def.Nodes[id] = n.Clone()
	}
	return def
}

// Unreachable lists nodes no path from the initial node leads to.
func (g *Graph) Unreachable() []string {
	seen := reachable(g.initial, g.nodes)
	var out []string
	for id := range g.nodes {
		if !seen[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
