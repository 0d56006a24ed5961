package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/callflow/pkg/domain"
)

// HandlerError wraps a handler that failed to process an invocation at all.
// The conversation state is unchanged when it is returned.
type HandlerError struct {
	Node   string
	Action string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("action %q on node %q failed: %v", e.Action, e.Node, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// RejectionMessage renders the nudge fed back to the model when an invocation is refused.
func RejectionMessage(err error) string {
	var na *domain.ActionNotAvailableError
	switch {
	case errors.As(err, &na):
		if len(na.Available) == 0 {
			return fmt.Sprintf("The action %q is not available right now. No actions can be taken at this point.", na.Action)
		}
		return fmt.Sprintf("The action %q is not available right now. Available actions: %s.",
			na.Action, strings.Join(na.Available, ", "))
	case errors.Is(err, domain.ErrConversationEnded):
		return "The conversation has ended. No further actions can be taken."
	case errors.Is(err, domain.ErrNotInitialized):
		return "The conversation has not started yet."
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}

// IsProtocolError reports whether err is the model's fault: an action that was
// not offered, or an invocation outside the conversation's lifetime.
func IsProtocolError(err error) bool {
	return errors.Is(err, domain.ErrActionNotAvailable) ||
		errors.Is(err, domain.ErrConversationEnded) ||
		errors.Is(err, domain.ErrNotInitialized) ||
		errors.Is(err, domain.ErrAlreadyInitialized)
}
