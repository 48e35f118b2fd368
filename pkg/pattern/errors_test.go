package pattern

import (
	"errors"
	"strings"
	"testing"
)

func TestCompileErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *CompileError
		want string
	}{
		{
			name: "with position",
			err:  &CompileError{Identifier: "page", Position: 7, Line: 2, Column: 3, Reason: "unclosed <:if>"},
			want: `compile error in "page" at line 2, column 3: unclosed <:if>`,
		},
		{
			name: "without position",
			err:  &CompileError{Identifier: "page", Reason: "bad variable list"},
			want: `compile error in "page": bad variable list`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRuntimeError(t *testing.T) {
	cause := errors.New("no such key")
	err := NewRuntimeError("page", "user.name", cause)

	if got := err.Inline(); got != "[page: user.name: no such key]" {
		t.Errorf("Inline() = %q", got)
	}
	if !strings.Contains(err.Error(), `runtime error in "page" evaluating 'user.name'`) {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("RuntimeError does not unwrap to its cause")
	}
	if !IsRuntimeError(err) {
		t.Error("IsRuntimeError() = false")
	}
	if got := NewRuntimeError("p", "x", nil).Inline(); got != "[p: x]" {
		t.Errorf("Inline() without cause = %q", got)
	}
}

func TestMultiError(t *testing.T) {
	m := NewMultiError()
	if m.Err() != nil {
		t.Error("empty MultiError should yield nil")
	}

	first := errors.New("first")
	m.Add(nil)
	m.Add(first)
	if m.Err() != first {
		t.Error("a single error should be returned unchanged")
	}

	m.Add(&NoSuchArgumentError{Template: "t", Name: "x"})
	err := m.Err()
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if !strings.HasPrefix(err.Error(), "2 errors occurred:") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, first) || !errors.Is(err, ErrNoSuchArgument) {
		t.Error("MultiError does not expose its members to errors.Is")
	}
}

func TestWithContext(t *testing.T) {
	if WithContext(nil, "op", nil) != nil {
		t.Error("WithContext(nil) should be nil")
	}

	cause := &CompileError{Identifier: "a", Reason: "bad"}
	err := WithContext(cause, "compile template", map[string]interface{}{"path": "a.pat", "id": "a"})

	want := `compile template [id=a, path=a.pat]: compile error in "a": bad`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !IsCompileError(err) {
		t.Error("IsCompileError() = false for a wrapped compile error")
	}
}

func TestFunctionErrorMessage(t *testing.T) {
	err := NewFunctionError("join", []interface{}{1, "x"}, "bad separator")
	if err.Error() != "function error in 'join(1, x)': bad separator" {
		t.Errorf("Error() = %q", err.Error())
	}
	if IsFunctionError(errors.New("other")) {
		t.Error("IsFunctionError() = true for an unrelated error")
	}
}
