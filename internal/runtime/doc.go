// Package runtime implements the flow dispatcher: the single authority that
// decides whether an action invocation is legal in the current node and what it causes.
//
// A Dispatcher owns one conversation. Every Initialize and Invoke runs inside
// its critical section, so concurrent invocations are serialized and each one
// observes the state left by the previous.
package runtime
