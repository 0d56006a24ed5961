/*
Package callflow is a flow engine for voice assistants that qualify inbound leads and book demo calls.

A conversation is a walk over an immutable graph of nodes. Each node tells the model what to do
next and which functions it may call. The engine validates every call against the current node,
runs the handler, projects its result into the conversation context and routes to the next node.

# Concept

The model never owns the state. It only sees the task messages the engine injects and the
catalog of actions the current node allows. Calling anything else is rejected with a message
that steers the model back to the available actions, so a confused model cannot skip a step.

Booking handlers talk to a scheduling backend (Cal.com out of the box) through a retry guard.
Transient failures are retried; when the backend stays down the flow moves to a fallback node
that gives the caller a phone number instead of dropping the call.

# Usage

	eng, err := callflow.New(ctx, callflow.WithBookingService(calcom.New(apiKey, eventTypeID)))
	if err != nil {
		log.Fatal(err)
	}

	sessions := eng.Sessions(session.WithStore(memory.NewStore()))
	conv, msgs, err := sessions.Start(ctx)
	// Feed msgs to the model, then forward its function calls:
	out, err := sessions.Invoke(ctx, conv.ID, "collect_recording_consent",
		map[string]any{"recording_consent": true})

The same sessions can be exposed over HTTP (pkg/adapters/http), as MCP tools (pkg/adapters/mcp)
or driven directly by an OpenAI chat model (pkg/adapters/openai).
*/
package callflow
