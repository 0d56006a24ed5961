/*
Package dsl provides a Go DSL for programmatically constructing conversation graphs.

It lets flows be declared with a fluent builder instead of YAML files, which
keeps handler names and node names next to the code that registers them.

Example usage:

	b := dsl.New("demo")

	b.Add("greet").
		Role("You are a friendly scheduler.").
		Task("Greet the caller and ask for their name.").
		Action("collect_name", "Record the caller's name").
		Param("name", "string", "The caller's name", true).
		Go("goodbye")

	b.Add("goodbye").
		Task("Thank {{.Collected.name}} and end the call.").
		Terminal()

	def, err := b.Build()
	// ... pass def to graph.New with a registry holding collect_name
*/
package dsl
