/*
Package session hosts many independent conversations behind one process.

Each session owns a dispatcher and its transcript. Access to a session is
serialized by a reference-counted local lock and, when configured, a distributed
lock so that replicas sharing a StateStore do not interleave invocations.
Flow-state snapshots are persisted after every invocation; stale sessions are
reaped after a period of inactivity.
*/
package session
