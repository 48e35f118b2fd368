package pattern

import (
	"bytes"
	"testing"
)

// newTestEngine returns an engine whose log output is kept in the returned
// buffer instead of going to stderr.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	all := append([]Option{WithLogger(NewLogger(&logs, LogDebug))}, opts...)
	return NewWithOptions(all...), &logs
}

// mustCompile compiles text with a quiet engine and fails the test on error.
func mustCompile(t *testing.T, id string, root interface{}, vars, text string) *Template {
	t.Helper()
	e, _ := newTestEngine(t)
	tmpl, err := e.Compile(id, root, vars, text)
	if err != nil {
		t.Fatalf("Compile(%q) error = %v", text, err)
	}
	return tmpl
}

// render fills a new frame from values and renders tmpl.
func render(t *testing.T, tmpl *Template, values map[string]interface{}) string {
	t.Helper()
	out, err := tmpl.RenderMap(values)
	if err != nil {
		t.Fatalf("RenderMap() error = %v", err)
	}
	return out
}
