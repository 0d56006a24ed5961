/*
Package graph holds the immutable conversation graph.

A Graph is built once from a domain.Definition and a handler registry. All
structural checks run at construction: destinations resolve, the initial node
exists, action names are unique per node, every action has a registered
handler and every post-action type is known. After New returns, the graph is
read-only and safe for concurrent use by any number of dispatchers.
*/
package graph
