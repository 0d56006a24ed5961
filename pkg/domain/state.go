package domain

import "time"

// ExecutionStatus defines whether a conversation can still accept invocations.
type ExecutionStatus string

const (
	StatusActive     ExecutionStatus = "active"     // Normal operation
	StatusTerminated ExecutionStatus = "terminated" // end_conversation fired
)

// FlowState is the snapshot of one conversation: where it is and what it has collected.
type FlowState struct {
	SessionID   string          `json:"session_id"`
	CurrentNode string          `json:"current_node"`
	Status      ExecutionStatus `json:"status"`

	// Collected accumulates the data payloads of every executed action.
	Collected map[string]any `json:"collected"`

	History []Transition `json:"history,omitempty"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFlowState creates a clean state positioned on the initial node.
func NewFlowState(sessionID, initialNode string) *FlowState {
	now := time.Now().UTC()
	return &FlowState{
		SessionID:   sessionID,
		CurrentNode: initialNode,
		Status:      StatusActive,
		Collected:   make(map[string]any),
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

// Terminated reports whether the conversation has ended.
func (s *FlowState) Terminated() bool {
	return s.Status == StatusTerminated
}

// Merge folds an action's data payload into the collected fields.
func (s *FlowState) Merge(data map[string]any) {
	if s.Collected == nil {
		s.Collected = make(map[string]any)
	}
	for k, v := range data {
		s.Collected[k] = v
	}
}

// Forget removes collected fields.
func (s *FlowState) Forget(keys ...string) {
	for _, k := range keys {
		delete(s.Collected, k)
	}
}

// Visited lists the nodes the conversation has been on, in order.
func (s *FlowState) Visited() []string {
	if len(s.History) == 0 {
		if s.CurrentNode == "" {
			return nil
		}
		return []string{s.CurrentNode}
	}
	out := []string{s.History[0].From}
	for _, t := range s.History {
		out = append(out, t.To)
	}
	return out
}

// Snapshot returns a deep copy safe to hand outside the dispatcher.
func (s *FlowState) Snapshot() *FlowState {
	if s == nil {
		return nil
	}
	c := *s
	c.Collected = CloneMap(s.Collected)
	if c.Collected == nil {
		c.Collected = make(map[string]any)
	}
	c.History = append([]Transition(nil), s.History...)
	return &c
}
