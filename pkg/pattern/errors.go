package pattern

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoSuchArgument is matched by every NoSuchArgumentError.
var ErrNoSuchArgument = errors.New("no such argument")

// ErrFrameMismatch is returned when a frame is used with a template other
// than the one that created it.
var ErrFrameMismatch = errors.New("frame belongs to a different template")

// CompileError reports why a pattern could not be compiled. No template is
// produced when compilation fails.
type CompileError struct {
	Identifier string
	Position   int
	Line       int
	Column     int
	Reason     string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error in %q at line %d, column %d: %s", e.Identifier, e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("compile error in %q: %s", e.Identifier, e.Reason)
}

// RuntimeError describes a recoverable problem hit while executing a
// template. Runtime errors never stop execution; they are written inline to
// the output instead.
type RuntimeError struct {
	Identifier string
	Expression string
	Cause      error
}

func (e *RuntimeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("runtime error in %q evaluating '%s': %v", e.Identifier, e.Expression, e.Cause)
	}
	return fmt.Sprintf("runtime error in %q evaluating '%s'", e.Identifier, e.Expression)
}

func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// Inline returns the short marker written into the output.
func (e *RuntimeError) Inline() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s: %s: %v]", e.Identifier, e.Expression, e.Cause)
	}
	return fmt.Sprintf("[%s: %s]", e.Identifier, e.Expression)
}

func NewRuntimeError(identifier, expression string, cause error) *RuntimeError {
	return &RuntimeError{Identifier: identifier, Expression: expression, Cause: cause}
}

// NoSuchArgumentError reports a variable name that a template does not have.
type NoSuchArgumentError struct {
	Template string
	Name     string
}

func (e *NoSuchArgumentError) Error() string {
	return fmt.Sprintf("template %q has no argument %q", e.Template, e.Name)
}

func (e *NoSuchArgumentError) Is(target error) bool {
	return target == ErrNoSuchArgument
}

// FunctionError is returned by a condition function that rejects its
// arguments.
type FunctionError struct {
	Function string
	Args     []interface{}
	Message  string
}

func (e *FunctionError) Error() string {
	var b strings.Builder
	for i, arg := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprint(&b, arg)
	}
	return fmt.Sprintf("function error in '%s(%s)': %s", e.Function, b.String(), e.Message)
}

func NewFunctionError(function string, args []interface{}, message string) error {
	return &FunctionError{Function: function, Args: args, Message: message}
}

// MultiError collects the errors of an operation that keeps going after the
// first failure, such as filling every frame variable.
type MultiError struct {
	errs []error
}

func NewMultiError() *MultiError {
	return &MultiError{}
}

// Add records err; nil is ignored.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.errs = append(m.errs, err)
	}
}

func (m *MultiError) Len() int {
	return len(m.errs)
}

func (m *MultiError) Errors() []error {
	return m.errs
}

// Err returns nil for no errors, the error itself for one, and m otherwise.
func (m *MultiError) Err() error {
	switch len(m.errs) {
	case 0:
		return nil
	case 1:
		return m.errs[0]
	}
	return m
}

func (m *MultiError) Error() string {
	switch len(m.errs) {
	case 0:
		return "no errors"
	case 1:
		return m.errs[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors occurred:", len(m.errs))
	for i, err := range m.errs {
		fmt.Fprintf(&b, "\n  [%d] %v", i+1, err)
	}
	return b.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.errs
}

// ContextError names the operation that failed and the values it worked on.
type ContextError struct {
	Operation string
	Context   map[string]interface{}
	Cause     error
}

func (e *ContextError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, e.Context[k])
	}
	return fmt.Sprintf("%s [%s]: %v", e.Operation, strings.Join(pairs, ", "), e.Cause)
}

func (e *ContextError) Unwrap() error {
	return e.Cause
}

// WithContext wraps err with an operation name and context values. A nil err
// stays nil.
func WithContext(err error, operation string, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ContextError{Operation: operation, Context: context, Cause: err}
}

// IsCompileError checks if an error is or wraps a compile error
func IsCompileError(err error) bool {
	var target *CompileError
	return errors.As(err, &target)
}

// IsRuntimeError checks if an error is or wraps a runtime error
func IsRuntimeError(err error) bool {
	var target *RuntimeError
	return errors.As(err, &target)
}

// IsFunctionError checks if an error is or wraps a function error
func IsFunctionError(err error) bool {
	var target *FunctionError
	return errors.As(err, &target)
}
