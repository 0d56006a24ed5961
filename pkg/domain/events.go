package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter       EventType = "node_enter"
	EventNodeLeave       EventType = "node_leave"
	EventActionCall      EventType = "action_call"
	EventActionReturn    EventType = "action_return"
	EventActionRejected  EventType = "action_rejected"
	EventConversationEnd EventType = "conversation_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID string `json:"node_id"`
}

// ActionEvent represents an action invocation and, on return, its result.
type ActionEvent struct {
	EventBase
	NodeID   string         `json:"node_id"`
	Action   string         `json:"action"`
	Params   map[string]any `json:"params,omitempty"`
	Result   *ActionResult  `json:"result,omitempty"`
	Duration time.Duration  `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously inside the dispatcher's critical section.
type LifecycleHooks struct {
	OnNodeEnter      func(context.Context, *NodeEvent)
	OnNodeLeave      func(context.Context, *NodeEvent)
	OnActionCall     func(context.Context, *ActionEvent)
	OnActionReturn   func(context.Context, *ActionEvent)
	OnActionRejected func(context.Context, *ActionEvent)
	OnEnd            func(context.Context, *NodeEvent)
}
