package domain

// PostActionType names a side effect fired around node transitions.
type PostActionType string

const (
	// PostActionEndConversation asks the transport to hang up after the last queued message.
	PostActionEndConversation PostActionType = "end_conversation"
)

// PostActionPhase decides whether a post-action fires when entering or leaving its node.
type PostActionPhase string

const (
	PhaseEnter PostActionPhase = "enter"
	PhaseLeave PostActionPhase = "leave"
)

// PostAction is a side effect attached to a node.
type PostAction struct {
	Type PostActionType  `json:"type" yaml:"type"`
	When PostActionPhase `json:"when,omitempty" yaml:"when,omitempty"`
}

// Phase returns the phase the post-action fires on (enter when unset).
func (p PostAction) Phase() PostActionPhase {
	if p.When == "" {
		return PhaseEnter
	}
	return p.When
}

// Node represents one step of the conversation graph.
type Node struct {
	ID string `json:"id" yaml:"id"`

	// RoleMessages establish the persona. Usually only present on the initial node.
	RoleMessages []Message `json:"role_messages,omitempty" yaml:"role_messages,omitempty"`

	// TaskMessages are the instructions specific to this node.
	TaskMessages []Message `json:"task_messages" yaml:"task_messages"`

	Actions     []ActionDef  `json:"actions,omitempty" yaml:"actions,omitempty"`
	PostActions []PostAction `json:"post_actions,omitempty" yaml:"post_actions,omitempty"`
}

// IsTerminal reports whether the node exposes no actions.
func (n Node) IsTerminal() bool {
	return len(n.Actions) == 0
}

// Action looks up an action by name within this node only.
func (n Node) Action(name string) (ActionDef, bool) {
	for _, a := range n.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionDef{}, false
}

// ActionNames lists the names of the node's actions in declaration order.
func (n Node) ActionNames() []string {
	names := make([]string, 0, len(n.Actions))
	for _, a := range n.Actions {
		names = append(names, a.Name)
	}
	return names
}

// PostActionsFor returns the post-actions firing on the given phase.
func (n Node) PostActionsFor(phase PostActionPhase) []PostAction {
	var out []PostAction
	for _, p := range n.PostActions {
		if p.Phase() == phase {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	c := n
	c.RoleMessages = append([]Message(nil), n.RoleMessages...)
	c.TaskMessages = append([]Message(nil), n.TaskMessages...)
	c.PostActions = append([]PostAction(nil), n.PostActions...)
	if n.Actions != nil {
		c.Actions = make([]ActionDef, len(n.Actions))
		for i, a := range n.Actions {
			c.Actions[i] = a.Clone()
		}
	}
	return c
}
