// Package pattern is a small text template engine. A pattern is compiled
// once into a flat instruction sequence whose control flow is expressed as
// relative jump offsets, and can then be executed any number of times,
// concurrently, against per-execution frames.
//
// # Quick Start
//
//	tmpl, err := pattern.Compile("greeting", nil, "name", "Hello <&name>!")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	frame := tmpl.NewFrame()
//	frame.Set("name", "World")
//	fmt.Println(tmpl.Render(frame)) // Hello World!
//
// # Pattern Syntax
//
// Every marker starts with '<' followed by '&', ':' or '.'. Any other '<'
// is plain text.
//
//	<&PATH>                             - Output the value of PATH
//	<:if:COND> ... <:elsif:COND> ...
//	    <:else> ... <.if>               - Conditional chain
//	<:for:VAR:PATH> ... <.for>          - Loop; VAR and VAR_next are bound
//	<:call:PATH>                        - Call a template with the caller's variables
//	<:call:PATH:a='text',b=path>        - Call a template with arguments
//	<:debug:PATH:TEXT>                  - Fire the debug hook when PATH equals TEXT
//
// Paths are dotted names with optional index or key steps: customer.name,
// items[0], row['total'].
//
// A condition that is a single path is true unless its value is nil, false,
// a numeric zero or the end-of-loop marker. Anything else is an expression:
//
//	<:if:count \> 1 & more(item_next)>
//
// A '>' inside a condition must be escaped as '\>'.
//
// # Loops
//
// Inside <:for:item:list>, item holds the current element and item_next
// holds the following one. For the last element item_next is EndOfLoop,
// which is falsy and prints as nothing, so separators are written as:
//
//	<:for:item:list><&item><:if:item_next>, <.if><.for>
//
// Maps are iterated in key order and yield their values.
//
// # Names
//
// The variables listed at compile time, plus loop variables, live in frame
// slots. Any other name is looked up in the initial data root passed to
// Compile. A call whose target is a compiled template found in the root is
// static: its argument names are checked when the caller is compiled.
// Calls through variables are checked when they run.
//
// # Errors
//
// Compile returns a *CompileError for malformed patterns. Problems found
// while executing, such as a path that cannot be resolved, never stop
// execution: a marker of the form [template: expression: reason] is written
// into the output instead and the message is logged at warn level.
//
// # Concurrency
//
// A *Template is immutable and safe for concurrent use. A *Frame belongs to
// one execution at a time.
package pattern
