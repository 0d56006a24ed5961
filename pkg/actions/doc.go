/*
Package actions implements the handlers behind the lead-qualification graph.

Collect handlers validate and record caller-supplied fields. Booking handlers
talk to the external scheduling service through guard.Call, so each external
call is retried at most once and every exhausted failure turns into a message
offering a human fallback (callback or scheduling line).

Parameters are decoded with mapstructure in weakly typed mode: models send
"true" as often as true.
*/
package actions
