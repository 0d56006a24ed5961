/*
Package ports defines the driven ports (interfaces) of the callflow engine.

These interfaces decouple the dispatcher from external implementations, so the
engine works with any scheduling backend, transcript aggregator, definition
source or snapshot store.

# Key Interfaces

  - ActionHandler: executes one action and produces an ActionResult.
  - BookingService: the external scheduling service (availability, slots, bookings).
  - ConversationContext: the aggregator receiving every injected message.
  - DefinitionLoader: loads a graph definition (YAML files, memory).
  - StateStore: persists flow-state snapshots for introspection across replicas.
  - DistributedLocker: serializes access to a session across replicas.
*/
package ports
