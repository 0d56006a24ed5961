package domain

import "sort"

// Definition is the declarative source of a conversation graph.
// It is plain data: loaders produce it, the graph package validates it.
type Definition struct {
	Name        string          `json:"name" yaml:"name"`
	InitialNode string          `json:"initial_node" yaml:"initial_node"`
	Nodes       map[string]Node `json:"nodes" yaml:"nodes"`
}

// NodeIDs returns the node names in lexical order.
func (d *Definition) NodeIDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for id := range d.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
