package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownNode is returned when a node name is not part of the graph.
var ErrUnknownNode = errors.New("unknown node")

// ErrActionNotAvailable is returned when an invoked action is not offered by the current node.
var ErrActionNotAvailable = errors.New("action not available")

// ErrAlreadyInitialized is returned when a conversation is initialized twice.
var ErrAlreadyInitialized = errors.New("conversation already initialized")

// ErrNotInitialized is returned when an action is invoked before initialization.
var ErrNotInitialized = errors.New("conversation not initialized")

// ErrConversationEnded is returned when an action is invoked after end_conversation fired.
var ErrConversationEnded = errors.New("conversation ended")

// ErrDuplicateAction is returned when a node declares the same action name twice.
var ErrDuplicateAction = errors.New("duplicate action")

// ErrUnknownHandler is returned when an action refers to an unregistered handler.
var ErrUnknownHandler = errors.New("unknown handler")

// ActionNotAvailableError carries the rejected invocation and what was actually offered.
type ActionNotAvailableError struct {
	Action    string
	Node      string
	Available []string
}

func (e *ActionNotAvailableError) Error() string {
	return fmt.Sprintf("action %q not available from node %q (available: %s)",
		e.Action, e.Node, strings.Join(e.Available, ", "))
}

func (e *ActionNotAvailableError) Unwrap() error {
	return ErrActionNotAvailable
}

// UnknownNodeError names the node that could not be resolved.
type UnknownNodeError struct {
	Node string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.Node)
}

func (e *UnknownNodeError) Unwrap() error {
	return ErrUnknownNode
}
