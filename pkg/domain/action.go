package domain

import "sort"

// ActionDef declares an action the model may invoke from its owning node.
type ActionDef struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// Handler names the registered handler. Defaults to Name.
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty"`

	// Next is the destination after a successful execution.
	Next string `json:"next,omitempty" yaml:"next,omitempty"`
	// OnError is the destination after an unrecoverable external failure.
	OnError string `json:"on_error,omitempty" yaml:"on_error,omitempty"`
	// OnEmpty is the destination when the external service had nothing to offer.
	OnEmpty string `json:"on_empty,omitempty" yaml:"on_empty,omitempty"`

	// Branches maps a branch name a handler may pick on success to a destination.
	Branches map[string]string `json:"branches,omitempty" yaml:"branches,omitempty"`
}

// HandlerName resolves the handler key for this action.
func (a ActionDef) HandlerName() string {
	if a.Handler != "" {
		return a.Handler
	}
	return a.Name
}

// Destinations returns every node name this action can lead to.
func (a ActionDef) Destinations() []string {
	var out []string
	for _, d := range []string{a.Next, a.OnError, a.OnEmpty} {
		if d != "" {
			out = append(out, d)
		}
	}
	for _, name := range sortedKeys(a.Branches) {
		out = append(out, a.Branches[name])
	}
	return out
}

// Spec projects the definition into the model-facing catalog entry.
func (a ActionDef) Spec() ActionSpec {
	params := a.Parameters
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return ActionSpec{
		Name:        a.Name,
		Description: a.Description,
		Parameters:  CloneMap(params),
	}
}

// Clone returns a deep copy of the definition.
func (a ActionDef) Clone() ActionDef {
	c := a
	c.Parameters = CloneMap(a.Parameters)
	if a.Branches != nil {
		c.Branches = make(map[string]string, len(a.Branches))
		for k, v := range a.Branches {
			c.Branches[k] = v
		}
	}
	return c
}

// ActionSpec is what the model sees for one callable action.
type ActionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ResultStatus is the coarse outcome of a handler.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

// ErrorReason classifies an error result so the dispatcher can route it.
type ErrorReason string

const (
	// ReasonIncomplete means a required parameter was missing; the caller is re-prompted.
	ReasonIncomplete ErrorReason = "incomplete"
	// ReasonUnavailable means the external service failed after its retry.
	ReasonUnavailable ErrorReason = "unavailable"
	// ReasonEmpty means the service answered but had nothing to offer.
	ReasonEmpty ErrorReason = "empty"
)

// ActionResult is the outcome of executing a handler.
type ActionResult struct {
	Status  ResultStatus   `json:"status"`
	Reason  ErrorReason    `json:"reason,omitempty"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`

	// Branch selects one of the action's Branches instead of Next on success.
	Branch string `json:"branch,omitempty"`

	// Clears lists collected fields made stale by this result. They are removed before Data is merged.
	Clears []string `json:"clears,omitempty"`
}

// OK reports a success status.
func (r ActionResult) OK() bool {
	return r.Status == ResultSuccess
}

// Success builds a success result.
func Success(message string, data map[string]any) ActionResult {
	return ActionResult{Status: ResultSuccess, Message: message, Data: data}
}

// WithBranch returns a copy of the result routed to the named branch.
func (r ActionResult) WithBranch(name string) ActionResult {
	r.Branch = name
	return r
}

// Clearing returns a copy of the result that also removes the given collected fields.
func (r ActionResult) Clearing(keys ...string) ActionResult {
	r.Clears = append(append([]string(nil), r.Clears...), keys...)
	return r
}

// Incomplete builds a data-completeness error.
func Incomplete(message string, data map[string]any) ActionResult {
	return ActionResult{Status: ResultError, Reason: ReasonIncomplete, Message: message, Data: data}
}

// Unavailable builds a transient-failure error carrying the human fallback.
func Unavailable(message string, data map[string]any) ActionResult {
	return ActionResult{Status: ResultError, Reason: ReasonUnavailable, Message: message, Data: data}
}

// Empty builds an empty-result error.
func Empty(message string, data map[string]any) ActionResult {
	return ActionResult{Status: ResultError, Reason: ReasonEmpty, Message: message, Data: data}
}

// CloneMap deep-copies nested maps and slices of a JSON-like value tree.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
