package pattern

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/benjaminschreck/go-pattern/pkg/pattern/path"
)

// Function represents a callable function in condition expressions
type Function interface {
	// Call executes the function with the given arguments
	Call(args ...interface{}) (interface{}, error)

	// Name returns the function name
	Name() string

	// MinArgs returns the minimum number of arguments required
	MinArgs() int

	// MaxArgs returns the maximum number of arguments allowed (-1 for unlimited)
	MaxArgs() int
}

// FunctionRegistry manages available functions
type FunctionRegistry interface {
	// RegisterFunction adds a function to the registry
	RegisterFunction(fn Function) error

	// GetFunction retrieves a function by name
	GetFunction(name string) (Function, bool)

	// ListFunctions returns all registered function names
	ListFunctions() []string
}

// DefaultFunctionRegistry is the default implementation of FunctionRegistry
type DefaultFunctionRegistry struct {
	functions map[string]Function
	parent    FunctionRegistry
	mutex     sync.RWMutex
}

// NewFunctionRegistry creates a new, empty function registry
func NewFunctionRegistry() *DefaultFunctionRegistry {
	return &DefaultFunctionRegistry{
		functions: make(map[string]Function),
	}
}

// NewChildRegistry creates a registry that falls back to parent for names it
// does not define itself.
func NewChildRegistry(parent FunctionRegistry) *DefaultFunctionRegistry {
	r := NewFunctionRegistry()
	r.parent = parent
	return r
}

func (r *DefaultFunctionRegistry) RegisterFunction(fn Function) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := fn.Name()
	if name == "" {
		return fmt.Errorf("function name cannot be empty")
	}

	r.functions[name] = fn
	return nil
}

func (r *DefaultFunctionRegistry) GetFunction(name string) (Function, bool) {
	r.mutex.RLock()
	fn, exists := r.functions[name]
	r.mutex.RUnlock()

	if !exists && r.parent != nil {
		return r.parent.GetFunction(name)
	}
	return fn, exists
}

func (r *DefaultFunctionRegistry) ListFunctions() []string {
	r.mutex.RLock()
	seen := make(map[string]bool, len(r.functions))
	for name := range r.functions {
		seen[name] = true
	}
	r.mutex.RUnlock()

	if r.parent != nil {
		for _, name := range r.parent.ListFunctions() {
			seen[name] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	builtinRegistry *DefaultFunctionRegistry
	builtinOnce     sync.Once
)

// GetDefaultFunctionRegistry returns the shared registry of built-in functions
func GetDefaultFunctionRegistry() FunctionRegistry {
	builtinOnce.Do(func() {
		builtinRegistry = NewFunctionRegistry()
		registerBuiltins(builtinRegistry)
	})
	return builtinRegistry
}

// checkArity reports whether n arguments fit fn's declared range.
func checkArity(fn Function, n int) error {
	lo, hi := fn.MinArgs(), fn.MaxArgs()
	switch {
	case n < lo:
		return fmt.Errorf("function %s called with %d arguments, needs at least %d", fn.Name(), n, lo)
	case hi >= 0 && n > hi:
		return fmt.Errorf("function %s called with %d arguments, accepts at most %d", fn.Name(), n, hi)
	}
	return nil
}

type simpleFunction struct {
	name     string
	min, max int
	handler  func(args ...interface{}) (interface{}, error)
}

// NewSimpleFunction wraps handler as a Function taking between minArgs and
// maxArgs arguments. A negative maxArgs means no upper bound.
func NewSimpleFunction(name string, minArgs, maxArgs int, handler func(args ...interface{}) (interface{}, error)) Function {
	return &simpleFunction{name: name, min: minArgs, max: maxArgs, handler: handler}
}

func (f *simpleFunction) Call(args ...interface{}) (interface{}, error) {
	if err := checkArity(f, len(args)); err != nil {
		return nil, NewFunctionError(f.name, args, err.Error())
	}
	return f.handler(args...)
}

func (f *simpleFunction) Name() string { return f.name }
func (f *simpleFunction) MinArgs() int { return f.min }
func (f *simpleFunction) MaxArgs() int { return f.max }

type builtin struct {
	names    []string
	min, max int
	fn       func(args ...interface{}) (interface{}, error)
}

var builtins = []builtin{
	// true while a loop lookahead still holds an element
	{[]string{"more"}, 1, 1, func(args ...interface{}) (interface{}, error) {
		return !IsEndOfLoop(args[0]), nil
	}},
	// nil only; the end-of-loop marker is not null
	{[]string{"null"}, 1, 1, func(args ...interface{}) (interface{}, error) {
		return args[0] == nil, nil
	}},
	{[]string{"empty"}, 1, 1, func(args ...interface{}) (interface{}, error) {
		return isEmpty(args[0]), nil
	}},
	{[]string{"coalesce"}, 1, -1, func(args ...interface{}) (interface{}, error) {
		for _, arg := range args {
			if !isEmpty(arg) {
				return arg, nil
			}
		}
		return nil, nil
	}},
	{[]string{"str"}, 1, 1, func(args ...interface{}) (interface{}, error) {
		return FormatValue(args[0]), nil
	}},
	{[]string{"integer"}, 1, 1, func(args ...interface{}) (interface{}, error) {
		return toInteger(args[0])
	}},
	{[]string{"lowercase", "lower"}, 1, 1, func(args ...interface{}) (interface{}, error) {
		return strings.ToLower(FormatValue(args[0])), nil
	}},
	{[]string{"uppercase", "upper"}, 1, 1, func(args ...interface{}) (interface{}, error) {
		return strings.ToUpper(FormatValue(args[0])), nil
	}},
	{[]string{"length", "len"}, 1, 1, length},
	// contains(value, list) compares the printed forms
	{[]string{"contains"}, 2, 2, func(args ...interface{}) (interface{}, error) {
		search := FormatValue(args[0])
		found := false
		err := path.Range(args[1], func(item interface{}) bool {
			found = FormatValue(item) == search
			return !found
		})
		if err != nil {
			return nil, NewFunctionError("contains", args, err.Error())
		}
		return found, nil
	}},
	// join(list, separator?) skips nil elements
	{[]string{"join"}, 1, 2, join},
}

func registerBuiltins(registry *DefaultFunctionRegistry) {
	for _, b := range builtins {
		for _, name := range b.names {
			registry.RegisterFunction(NewSimpleFunction(name, b.min, b.max, b.fn))
		}
	}
}

func length(args ...interface{}) (interface{}, error) {
	if s, ok := args[0].(string); ok {
		return len([]rune(s)), nil
	}
	if n := path.Len(args[0]); n >= 0 {
		return n, nil
	}
	return nil, NewFunctionError("length", args, fmt.Sprintf("%T has no length", args[0]))
}

func join(args ...interface{}) (interface{}, error) {
	separator := ""
	if len(args) > 1 && args[1] != nil {
		sep, ok := args[1].(string)
		if !ok {
			return nil, NewFunctionError("join", args, "second parameter must be a string")
		}
		separator = sep
	}

	var parts []string
	err := path.Range(args[0], func(item interface{}) bool {
		if item != nil {
			parts = append(parts, FormatValue(item))
		}
		return true
	})
	if err != nil {
		return nil, NewFunctionError("join", args, err.Error())
	}
	return strings.Join(parts, separator), nil
}

// isEmpty is true for nil, EndOfLoop, false, "", numeric zero and
// containers without elements.
func isEmpty(val interface{}) bool {
	switch v := val.(type) {
	case nil, endOfLoop:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	}
	if n, ok := asNumber(val); ok {
		return n.f == 0
	}
	return path.Len(val) == 0
}

// toInteger truncates numbers and numeric strings; booleans map to 0 and 1.
func toInteger(val interface{}) (interface{}, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		text := strings.TrimSpace(v)
		if i, err := strconv.Atoi(text); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert string %q to integer", v)
		}
		return int(f), nil
	}
	if n, ok := asNumber(val); ok {
		if n.integral {
			return int(n.i), nil
		}
		return int(n.f), nil
	}
	return nil, fmt.Errorf("cannot convert %T to integer", val)
}
