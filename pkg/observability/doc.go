/*
Package observability turns dispatcher lifecycle hooks into logs and metrics.

Hooks run synchronously inside a conversation's critical section, so every
hook here only records and returns.
*/
package observability
