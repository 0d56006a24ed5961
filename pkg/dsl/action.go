package dsl

import "github.com/aretw0/callflow/pkg/domain"

// ActionBuilder configures the most recently declared action of a node.
type ActionBuilder struct {
	node  *NodeBuilder
	index int
}

func (a *ActionBuilder) def() *domain.ActionDef {
	return &a.node.node.Actions[a.index]
}

// Handler binds the action to a registered handler with a different name.
func (a *ActionBuilder) Handler(name string) *ActionBuilder {
	a.def().Handler = name
	return a
}

// Param declares a JSON-schema property of the action's parameters.
func (a *ActionBuilder) Param(name, typ, description string, required bool) *ActionBuilder {
	return a.param(name, map[string]any{"type": typ, "description": description}, required)
}

// Enum declares a string property restricted to the given values.
func (a *ActionBuilder) Enum(name, description string, required bool, values ...string) *ActionBuilder {
	return a.param(name, map[string]any{
		"type":        "string",
		"description": description,
		"enum":        append([]string(nil), values...),
	}, required)
}

func (a *ActionBuilder) param(name string, prop map[string]any, required bool) *ActionBuilder {
	d := a.def()
	if d.Parameters == nil {
		d.Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	props := d.Parameters["properties"].(map[string]any)
	props[name] = prop
	if required {
		req, _ := d.Parameters["required"].([]string)
		d.Parameters["required"] = append(req, name)
	}
	return a
}

// Go sets the destination after success.
func (a *ActionBuilder) Go(target string) *ActionBuilder {
	a.def().Next = target
	return a
}

// Branch routes a success carrying the named branch to target instead of Next.
func (a *ActionBuilder) Branch(name, target string) *ActionBuilder {
	d := a.def()
	if d.Branches == nil {
		d.Branches = make(map[string]string)
	}
	d.Branches[name] = target
	return a
}

// Error sets the destination after an exhausted external failure.
func (a *ActionBuilder) Error(target string) *ActionBuilder {
	a.def().OnError = target
	return a
}

// Empty sets the destination when the external service had nothing to offer.
func (a *ActionBuilder) Empty(target string) *ActionBuilder {
	a.def().OnEmpty = target
	return a
}

// Action declares another action on the same node.
func (a *ActionBuilder) Action(name, description string) *ActionBuilder {
	return a.node.Action(name, description)
}

// Node returns to the owning node.
func (a *ActionBuilder) Node() *NodeBuilder {
	return a.node
}

// Add starts another node on the same builder.
func (a *ActionBuilder) Add(id string) *NodeBuilder {
	return a.node.builder.Add(id)
}
