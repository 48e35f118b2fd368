package pattern

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestVarTable(t *testing.T) {
	vt := newVarTable()

	a, err := vt.Declare("a")
	if err != nil || a != 0 {
		t.Fatalf("Declare(a) = %d, %v", a, err)
	}
	if b := vt.Ensure("b"); b != 1 {
		t.Errorf("Ensure(b) = %d, want 1", b)
	}
	if again := vt.Ensure("a"); again != 0 {
		t.Errorf("Ensure(a) = %d, want existing slot 0", again)
	}
	if _, err := vt.Declare("b"); err == nil {
		t.Error("Declare(b) twice should fail")
	}

	if idx, ok := vt.Index("b"); !ok || idx != 1 {
		t.Errorf("Index(b) = %d, %v", idx, ok)
	}
	if _, ok := vt.Index("c"); ok {
		t.Error("Index(c) found an undeclared name")
	}
	if vt.Name(1) != "b" || vt.Name(5) != "" || vt.Name(-1) != "" {
		t.Errorf("Name() lookups wrong: %q %q", vt.Name(1), vt.Name(5))
	}

	names := vt.Names()
	names[0] = "mutated"
	if vt.Name(0) != "a" {
		t.Error("Names() exposed internal storage")
	}
	if vt.Len() != 2 {
		t.Errorf("Len() = %d, want 2", vt.Len())
	}
}

func TestParseVarList(t *testing.T) {
	tests := []struct {
		list    string
		want    []string
		wantErr bool
	}{
		{"", nil, false},
		{"   ", nil, false},
		{"a", []string{"a"}, false},
		{"a, b ,c", []string{"a", "b", "c"}, false},
		{"a,,b", nil, true},
		{"a b", nil, true},
		{"a,", nil, true},
		{"1a", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.list, func(t *testing.T) {
			got, err := parseVarList(tt.list)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVarList(%q) error = %v, wantErr %v", tt.list, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseVarList(%q) = %v, want %v", tt.list, got, tt.want)
			}
		})
	}
}

func TestFrameSetAndGet(t *testing.T) {
	tmpl := mustCompile(t, "T", nil, "a, b", "<&a><&b>")
	f := tmpl.NewFrame()

	if f.Template() != tmpl {
		t.Error("Template() does not return the owning template")
	}
	if err := f.Set("a", 1); err != nil {
		t.Fatal(err)
	}
	if err := f.SetIndex(1, "two"); err != nil {
		t.Fatal(err)
	}
	if v, err := f.Get("b"); err != nil || v != "two" {
		t.Errorf("Get(b) = %v, %v", v, err)
	}

	err := f.Set("c", 3)
	if !errors.Is(err, ErrNoSuchArgument) {
		t.Errorf("Set(c) error = %v, want ErrNoSuchArgument", err)
	}
	var nsa *NoSuchArgumentError
	if !errors.As(err, &nsa) || nsa.Template != "T" || nsa.Name != "c" {
		t.Errorf("Set(c) error = %#v", err)
	}
	if _, err := f.Get("c"); !errors.Is(err, ErrNoSuchArgument) {
		t.Errorf("Get(c) error = %v", err)
	}
	if err := f.SetIndex(2, nil); err == nil {
		t.Error("SetIndex(2) should be out of range")
	}
}

func TestFrameFillReportsEveryUnknownName(t *testing.T) {
	tmpl := mustCompile(t, "T", nil, "a", "<&a>")
	f := tmpl.NewFrame()

	err := f.Fill(map[string]interface{}{"a": "kept", "x": 1, "y": 2})
	var multi *MultiError
	if !errors.As(err, &multi) || multi.Len() != 2 {
		t.Fatalf("Fill() error = %v, want two errors", err)
	}
	if !errors.Is(err, ErrNoSuchArgument) {
		t.Error("Fill() error does not match ErrNoSuchArgument")
	}
	if v, _ := f.Get("a"); v != "kept" {
		t.Errorf("known name not stored, a = %v", v)
	}
}

func TestFrameReset(t *testing.T) {
	b := mustCompile(t, "B", nil, "x", "<&x>")
	a := mustCompile(t, "A", nil, "b, v", "<:call:b:x=v>")

	f := a.NewFrame()
	f.Fill(map[string]interface{}{"b": b, "v": "1"})
	a.Render(f)
	sub := f.calls[0]

	f.Reset()
	for i, v := range f.values {
		if v != nil {
			t.Errorf("slot %d = %v after Reset", i, v)
		}
	}
	if f.calls[0] != sub {
		t.Error("Reset dropped the cached call-site frame")
	}
}

func TestRenderMapUnknownName(t *testing.T) {
	tmpl := mustCompile(t, "T", nil, "a", "<&a>")
	_, err := tmpl.RenderMap(map[string]interface{}{"zzz": 1})
	if err == nil || !strings.Contains(err.Error(), `has no argument "zzz"`) {
		t.Errorf("RenderMap() error = %v", err)
	}
}
