package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/graph"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, call ports.ActionCall) (domain.ActionResult, error) {
	return domain.Success("ok", nil), nil
}

func newRegistry(names ...string) *registry.Registry {
	r := registry.NewRegistry()
	for _, n := range names {
		r.RegisterFunc(n, noop)
	}
	return r
}

func threeNodes() *domain.Definition {
	return &domain.Definition{
		Name:        "abc",
		InitialNode: "A",
		Nodes: map[string]domain.Node{
			"A": {
				RoleMessages: []domain.Message{domain.SystemMessage("persona")},
				TaskMessages: []domain.Message{domain.SystemMessage("task A")},
				Actions:      []domain.ActionDef{{Name: "actionX", Description: "go to B", Next: "B"}},
			},
			"B": {
				TaskMessages: []domain.Message{domain.SystemMessage("task B")},
				Actions:      []domain.ActionDef{{Name: "actionY", Next: "C"}},
			},
			"C": {
				TaskMessages: []domain.Message{domain.SystemMessage("bye")},
				PostActions:  []domain.PostAction{{Type: domain.PostActionEndConversation}},
			},
		},
	}
}

func TestNew_ValidGraph(t *testing.T) {
	g, err := graph.New(threeNodes(), newRegistry("actionX", "actionY"))
	require.NoError(t, err)

	assert.Equal(t, "A", g.InitialNode())
	assert.Equal(t, "abc", g.Name())

	n, err := g.Node("B")
	require.NoError(t, err)
	assert.Equal(t, "B", n.ID, "ID is filled from the map key")

	nodes := g.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "A", nodes[0].ID)
	assert.Empty(t, g.Unreachable())
}

func TestNew_EveryDestinationResolves(t *testing.T) {
	def := threeNodes()
	b := def.Nodes["B"]
	b.Actions[0].Next = "Z"
	b.Actions[0].OnError = "Y"
	def.Nodes["B"] = b

	_, err := graph.New(def, newRegistry("actionX", "actionY"))
	require.Error(t, err)

	var verr *graph.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Problems, 2)
	assert.ErrorIs(t, err, domain.ErrUnknownNode)
	assert.Contains(t, err.Error(), `"Z"`)
}

func TestNew_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Definition)
		handler []string
		wantErr error
	}{
		{
			name:    "missing initial node",
			mutate:  func(d *domain.Definition) { d.InitialNode = "nope" },
			handler: []string{"actionX", "actionY"},
			wantErr: domain.ErrUnknownNode,
		},
		{
			name: "duplicate action in node",
			mutate: func(d *domain.Definition) {
				a := d.Nodes["A"]
				a.Actions = append(a.Actions, domain.ActionDef{Name: "actionX", Next: "C"})
				d.Nodes["A"] = a
			},
			handler: []string{"actionX", "actionY"},
			wantErr: domain.ErrDuplicateAction,
		},
		{
			name:    "unregistered handler",
			mutate:  func(d *domain.Definition) {},
			handler: []string{"actionX"},
			wantErr: domain.ErrUnknownHandler,
		},
		{
			name: "unknown post-action",
			mutate: func(d *domain.Definition) {
				c := d.Nodes["C"]
				c.PostActions = append(c.PostActions, domain.PostAction{Type: "transfer_call"})
				d.Nodes["C"] = c
			},
			handler: []string{"actionX", "actionY"},
			wantErr: graph.ErrUnknownPostAction,
		},
		{
			name: "terminal node that never ends",
			mutate: func(d *domain.Definition) {
				c := d.Nodes["C"]
				c.PostActions = nil
				d.Nodes["C"] = c
			},
			handler: []string{"actionX", "actionY"},
			wantErr: graph.ErrDeadEnd,
		},
		{
			name: "action without destination",
			mutate: func(d *domain.Definition) {
				a := d.Nodes["A"]
				a.Actions[0].Next = ""
				d.Nodes["A"] = a
			},
			handler: []string{"actionX", "actionY"},
			wantErr: graph.ErrMissingDestination,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := threeNodes()
			tt.mutate(def)

			_, err := graph.New(def, newRegistry(tt.handler...))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNew_CustomPostActionType(t *testing.T) {
	def := threeNodes()
	c := def.Nodes["C"]
	c.PostActions = append(c.PostActions, domain.PostAction{Type: "transfer_call", When: domain.PhaseLeave})
	def.Nodes["C"] = c

	_, err := graph.New(def, newRegistry("actionX", "actionY"), graph.WithPostActionTypes("transfer_call"))
	assert.NoError(t, err)
}

func TestGraph_NodeUnknown(t *testing.T) {
	g, err := graph.New(threeNodes(), newRegistry("actionX", "actionY"))
	require.NoError(t, err)

	_, err = g.Node("ghost")
	assert.ErrorIs(t, err, domain.ErrUnknownNode)

	_, err = g.Catalog("ghost")
	assert.ErrorIs(t, err, domain.ErrUnknownNode)
}

func TestGraph_ResolveIsScopedToNode(t *testing.T) {
	g, err := graph.New(threeNodes(), newRegistry("actionX", "actionY"))
	require.NoError(t, err)

	def, h, err := g.Resolve("A", "actionX")
	require.NoError(t, err)
	assert.Equal(t, "B", def.Next)
	assert.NotNil(t, h)

	_, _, err = g.Resolve("A", "actionY")
	require.ErrorIs(t, err, domain.ErrActionNotAvailable)

	var nerr *domain.ActionNotAvailableError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, []string{"actionX"}, nerr.Available)
}

func TestGraph_IsImmutable(t *testing.T) {
	def := threeNodes()
	g, err := graph.New(def, newRegistry("actionX", "actionY"))
	require.NoError(t, err)

	// Mutating the source or returned copies must not leak into the graph.
	a := def.Nodes["A"]
	a.Actions[0].Next = "C"
	n, _ := g.Node("A")
	n.Actions[0].Next = "C"
	g.Definition().Nodes["A"].Actions[0].Name = "renamed"

	again, _ := g.Node("A")
	assert.Equal(t, "B", again.Actions[0].Next)
	assert.Equal(t, "actionX", again.Actions[0].Name)
}

func TestGraph_CatalogOnlyCurrentNode(t *testing.T) {
	g, err := graph.New(threeNodes(), newRegistry("actionX", "actionY"))
	require.NoError(t, err)

	specs, err := g.Catalog("A")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "actionX", specs[0].Name)
	assert.Equal(t, "go to B", specs[0].Description)
	assert.Equal(t, "object", specs[0].Parameters["type"])

	specs, err = g.Catalog("C")
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestGraph_Unreachable(t *testing.T) {
	def := threeNodes()
	def.Nodes["orphan"] = domain.Node{PostActions: []domain.PostAction{{Type: domain.PostActionEndConversation}}}

	g, err := graph.New(def, newRegistry("actionX", "actionY"))
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan"}, g.Unreachable())
}
