/*
Package domain contains the core domain models of the callflow engine.

It defines the conversation graph entities (nodes, actions, post-actions),
the outcome of running an action, and the per-conversation flow state. The
package is pure: no I/O, no persistence, no model calls.

# Key Entities

  - Node: one step of the conversation with its role/task messages and the actions the model may call from it.
  - ActionDef: a callable exposed to the model; names its destination nodes.
  - ActionResult: the status, spoken message and data produced by a handler.
  - FlowState: the mutable "current node + collected fields" record of one conversation.
  - BookingCandidate: a transient morning/afternoon offer for a single date.
*/
package domain
