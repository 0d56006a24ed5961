package dsl

import (
	"fmt"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/graph"
	"github.com/aretw0/callflow/pkg/registry"
)

// Builder manages the graph construction.
type Builder struct {
	name    string
	initial string
	order   []string
	nodes   map[string]*NodeBuilder
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
// The first node added is the initial node unless Start says otherwise.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	if b.initial == "" {
		b.initial = id
	}
	return nb
}

// Start sets the initial node.
func (b *Builder) Start(id string) *Builder {
	b.initial = id
	return b
}

// Build compiles the nodes into a definition.
func (b *Builder) Build() (*domain.Definition, error) {
	if len(b.nodes) == 0 {
		return nil, fmt.Errorf("graph %q has no nodes", b.name)
	}
	def := &domain.Definition{
		Name:        b.name,
		InitialNode: b.initial,
		Nodes:       make(map[string]domain.Node, len(b.nodes)),
	}
	for _, id := range b.order {
		def.Nodes[id] = b.nodes[id].Build()
	}
	return def, nil
}

// Graph builds the definition and validates it against reg.
func (b *Builder) Graph(reg *registry.Registry, opts ...graph.Option) (*graph.Graph, error) {
	def, err := b.Build()
	if err != nil {
		return nil, err
	}
	return graph.New(def, reg, opts...)
}
