// Package path implements the dotted/indexed path expressions used to reach
// into template data: name, name.field, name[0], name['key'] and any
// combination of these.
package path

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// StepKind identifies how a single path step is applied.
type StepKind int

const (
	// StepField is a dotted or leading name: a.b
	StepField StepKind = iota
	// StepIndex is a numeric bracket: a[0], a[-1]
	StepIndex
	// StepKey is a quoted bracket: a['key'], a["key"]
	StepKey
)

// Step is one component of a path expression.
type Step struct {
	Kind  StepKind
	Name  string
	Index int
}

func (s Step) String() string {
	switch s.Kind {
	case StepIndex:
		return fmt.Sprintf("[%d]", s.Index)
	case StepKey:
		return fmt.Sprintf("[%q]", s.Name)
	default:
		return "." + s.Name
	}
}

// Expr is a parsed path expression. The zero value is the identity path.
type Expr struct {
	src   string
	steps []Step
}

var (
	// Matches bracket access like [0], ['key'], ["key"]
	bracketRegex = regexp.MustCompile(`^\[\s*([^\]]+?)\s*\]`)
	// Matches a name, with or without a leading dot
	nameRegex = regexp.MustCompile(`^\.?([a-zA-Z_][a-zA-Z0-9_]*)`)
)

// Parse parses a path expression. An empty string yields the identity path.
func Parse(expr string) (Expr, error) {
	src := strings.TrimSpace(expr)
	remaining := src
	var steps []Step

	for remaining != "" {
		if strings.HasPrefix(remaining, "[") {
			matches := bracketRegex.FindStringSubmatch(remaining)
			if matches == nil {
				return Expr{}, &SyntaxError{Path: src, Reason: "invalid bracket notation"}
			}
			step, err := parseBracket(matches[1])
			if err != nil {
				return Expr{}, &SyntaxError{Path: src, Reason: err.Error()}
			}
			steps = append(steps, step)
			remaining = remaining[len(matches[0]):]
			continue
		}

		if len(steps) > 0 && !strings.HasPrefix(remaining, ".") {
			return Expr{}, &SyntaxError{Path: src, Reason: fmt.Sprintf("unexpected %q", remaining)}
		}
		matches := nameRegex.FindStringSubmatch(remaining)
		if matches == nil {
			return Expr{}, &SyntaxError{Path: src, Reason: fmt.Sprintf("invalid name at %q", remaining)}
		}
		steps = append(steps, Step{Kind: StepField, Name: matches[1]})
		remaining = remaining[len(matches[0]):]
	}

	return Expr{src: src, steps: steps}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level variables.
func MustParse(expr string) Expr {
	e, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return e
}

func parseBracket(content string) (Step, error) {
	if n, err := strconv.Atoi(content); err == nil {
		return Step{Kind: StepIndex, Index: n}, nil
	}
	if len(content) >= 2 {
		first, last := content[0], content[len(content)-1]
		if (first == '\'' || first == '"') && first == last {
			return Step{Kind: StepKey, Name: content[1 : len(content)-1]}, nil
		}
	}
	return Step{}, fmt.Errorf("bracket content %q is neither an index nor a quoted key", content)
}

// String returns the source text of the expression.
func (e Expr) String() string {
	if e.src != "" {
		return e.src
	}
	var b strings.Builder
	for _, s := range e.steps {
		b.WriteString(s.String())
	}
	return b.String()
}

// Steps returns the parsed steps.
func (e Expr) Steps() []Step {
	return e.steps
}

// IsEmpty reports whether the expression is the identity path.
func (e Expr) IsEmpty() bool {
	return len(e.steps) == 0
}

// Head returns the leading name when the expression starts with a field step.
func (e Expr) Head() (string, bool) {
	if len(e.steps) == 0 || e.steps[0].Kind != StepField {
		return "", false
	}
	return e.steps[0].Name, true
}

// Tail returns the expression without its first step.
func (e Expr) Tail() Expr {
	if len(e.steps) == 0 {
		return e
	}
	tail := Expr{steps: e.steps[1:]}
	tail.src = strings.TrimPrefix(tail.String(), ".")
	return tail
}

// Resolve walks the expression starting at root.
func (e Expr) Resolve(root interface{}) (interface{}, error) {
	current := root
	for i, step := range e.steps {
		var err error
		switch step.Kind {
		case StepField, StepKey:
			current, err = field(current, step.Name)
		case StepIndex:
			current, err = index(current, step.Index)
		}
		if err != nil {
			return nil, &LookupError{Path: e.String(), Step: i, Cause: err}
		}
	}
	return current, nil
}

// Resolve parses expr and resolves it against root in one step.
func Resolve(root interface{}, expr string) (interface{}, error) {
	e, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return e.Resolve(root)
}

// Field returns the single-step path that selects the named member.
func Field(name string) Expr {
	return Expr{src: name, steps: []Step{{Kind: StepKey, Name: name}}}
}

// Index returns the single-step path that selects element i.
func Index(i int) Expr {
	e := Expr{steps: []Step{{Kind: StepIndex, Index: i}}}
	e.src = e.String()
	return e
}
