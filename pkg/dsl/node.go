package dsl

import "github.com/aretw0/callflow/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Role appends a persona message, emitted when the node is entered.
func (n *NodeBuilder) Role(content string) *NodeBuilder {
	n.node.RoleMessages = append(n.node.RoleMessages, domain.SystemMessage(content))
	return n
}

// Task appends an instruction for this node.
func (n *NodeBuilder) Task(content string) *NodeBuilder {
	n.node.TaskMessages = append(n.node.TaskMessages, domain.SystemMessage(content))
	return n
}

// Action declares an action callable from this node.
func (n *NodeBuilder) Action(name, description string) *ActionBuilder {
	n.node.Actions = append(n.node.Actions, domain.ActionDef{
		Name:        name,
		Description: description,
	})
	return &ActionBuilder{node: n, index: len(n.node.Actions) - 1}
}

// PostAction attaches a post-action firing on the given phase.
func (n *NodeBuilder) PostAction(t domain.PostActionType, when domain.PostActionPhase) *NodeBuilder {
	n.node.PostActions = append(n.node.PostActions, domain.PostAction{Type: t, When: when})
	return n
}

// EndOnLeave ends the conversation as soon as any action leaves this node.
func (n *NodeBuilder) EndOnLeave() *NodeBuilder {
	return n.PostAction(domain.PostActionEndConversation, domain.PhaseLeave)
}

// Terminal marks the node as the end of the flow: the conversation ends on entry.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	return n.PostAction(domain.PostActionEndConversation, domain.PhaseEnter)
}

// Add starts another node on the same builder.
func (n *NodeBuilder) Add(id string) *NodeBuilder {
	return n.builder.Add(id)
}

// Build returns the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	return n.node.Clone()
}
