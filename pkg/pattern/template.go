package pattern

import (
	"bytes"
	"io"

	"github.com/benjaminschreck/go-pattern/pkg/pattern/path"
)

// Resolver looks up a path expression starting at root. Implementations
// return an error when any step of the path cannot be followed.
type Resolver interface {
	Resolve(root interface{}, expr path.Expr) (interface{}, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(root interface{}, expr path.Expr) (interface{}, error)

func (f ResolverFunc) Resolve(root interface{}, expr path.Expr) (interface{}, error) {
	return f(root, expr)
}

// DefaultResolver walks maps, slices, structs and the path.Getter interface.
var DefaultResolver Resolver = ResolverFunc(func(root interface{}, expr path.Expr) (interface{}, error) {
	return expr.Resolve(root)
})

// Probe describes a <:debug:...> marker whose value matched its comparison
// string.
type Probe struct {
	Template   string
	Position   int
	Expression string
	Value      interface{}
}

// DebugHook observes matching debug probes. It must not write to the output.
type DebugHook func(Probe)

func noopHook(Probe) {}

// Template is a compiled pattern. It is immutable and may be executed by any
// number of goroutines at once, each with its own Frame.
type Template struct {
	id       string
	source   string
	root     interface{}
	vars     *VarTable
	code     []Instruction
	calls    int
	resolver Resolver
	hook     DebugHook
	logger   *Logger
	maxDepth int
}

// ID returns the identifier the template was compiled with.
func (t *Template) ID() string {
	return t.id
}

// Source returns the pattern text.
func (t *Template) Source() string {
	return t.source
}

// Vars returns the variable table.
func (t *Template) Vars() *VarTable {
	return t.vars
}

// Instructions returns a copy of the compiled instruction sequence.
func (t *Template) Instructions() []Instruction {
	code := make([]Instruction, len(t.code))
	copy(code, t.code)
	return code
}

// CallSites returns the number of <:call:...> markers in the template.
func (t *Template) CallSites() int {
	return t.calls
}

// NewFrame creates an empty frame for this template.
func (t *Template) NewFrame() *Frame {
	return &Frame{
		tmpl:   t,
		values: make([]interface{}, t.vars.Len()),
		calls:  make([]*Frame, t.calls),
	}
}

// Execute runs the template against f and writes the result to w. Problems
// with the data are written inline and do not cause an error; the returned
// error only reports a failing writer or a frame from another template.
func (t *Template) Execute(f *Frame, w io.Writer) error {
	if f == nil {
		f = t.NewFrame()
	}
	if f.tmpl != t {
		return ErrFrameMismatch
	}

	st := &execState{
		out:      &sink{w: w},
		maxDepth: t.maxDepth,
	}
	t.run(0, len(t.code), f, st)
	return st.out.err
}

// Render executes the template and returns the output as a string.
func (t *Template) Render(f *Frame) string {
	var buf bytes.Buffer
	// bytes.Buffer never fails, so this is a frame mismatch
	if err := t.Execute(f, &buf); err != nil {
		return NewRuntimeError(t.id, "", err).Inline()
	}
	return buf.String()
}

// RenderMap fills a fresh frame from values and renders the template.
func (t *Template) RenderMap(values map[string]interface{}) (string, error) {
	f := t.NewFrame()
	if err := f.Fill(values); err != nil {
		return "", err
	}
	return t.Render(f), nil
}
