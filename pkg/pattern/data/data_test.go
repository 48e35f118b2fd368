package data

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/benjaminschreck/go-pattern/pkg/pattern"
	"github.com/benjaminschreck/go-pattern/pkg/pattern/path"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"in.json", JSON, false},
		{"in.YAML", YAML, false},
		{"dir.d/in.yml", YAML, false},
		{"in.toml", TOML, false},
		{"in.cbor", CBOR, false},
		{"in.txt", 0, true},
		{"noext", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFormat) {
					t.Errorf("FormatOf(%q) error = %v, want ErrUnknownFormat", tt.path, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("FormatOf(%q) = %v, %v, want %v", tt.path, got, err, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
		path   string
		want   interface{}
	}{
		{"json number", JSON, `{"a": {"b": [1, 2.5]}}`, "a.b[1]", 2.5},
		{"json string", JSON, `{"name": "Ada"}`, "name", "Ada"},
		{"yaml nested", YAML, "a:\n  b:\n    - x\n    - y\n", "a.b[1]", "y"},
		{"yaml int", YAML, "count: 3\n", "count", 3},
		{"yaml alias", YAML, "base: &b hello\ncopy: *b\n", "copy", "hello"},
		{"toml table", TOML, "[owner]\nname = \"Tom\"\nage = 40\n", "owner.age", int64(40)},
		{"toml array", TOML, "tags = [\"a\", \"b\"]\n", "tags[0]", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode(strings.NewReader(tt.input), tt.format)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			got, err := pattern.DefaultResolver.Resolve(v, path.MustParse(tt.path))
			if err != nil {
				t.Fatalf("Resolve(%s) error = %v", tt.path, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve(%s) = %#v, want %#v", tt.path, got, tt.want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{"json syntax", JSON, `{"a": `},
		{"yaml syntax", YAML, "a: [1, 2\n"},
		{"yaml complex key", YAML, "? [a, b]\n: 1\n"},
		{"toml syntax", TOML, "a = \n"},
		{"cbor truncated", CBOR, "\xa1\x61"},
		{"unknown format", Format(99), "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input), tt.format); err == nil {
				t.Error("Decode() expected error")
			}
		})
	}
}

func TestEmptyYAMLDocument(t *testing.T) {
	v, err := Decode(strings.NewReader(""), YAML)
	if err != nil || v != nil {
		t.Fatalf("Decode(empty) = %v, %v", v, err)
	}
	top, err := Top(v)
	if err != nil || top.Len() != 0 {
		t.Errorf("Top(nil) = %v, %v", top, err)
	}
}

func TestYAMLKeepsDocumentOrder(t *testing.T) {
	v, err := Decode(strings.NewReader("zeta: 1\nalpha: 2\nmid: 3\n"), YAML)
	if err != nil {
		t.Fatal(err)
	}

	top, err := Top(v)
	if err != nil {
		t.Fatal(err)
	}
	if keys, want := top.Keys(), []string{"zeta", "alpha", "mid"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}

	tmpl, err := pattern.Compile("order", nil, "doc", "<:for:v:doc><&v><:if:v_next>,<.if><.for>")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tmpl.RenderMap(map[string]interface{}{"doc": v})
	if err != nil {
		t.Fatal(err)
	}
	if out != "1,2,3" {
		t.Errorf("output = %q, want document order", out)
	}
}

func TestPlainMapsSortKeys(t *testing.T) {
	v, err := Decode(strings.NewReader(`{"b": 1, "a": 2}`), JSON)
	if err != nil {
		t.Fatal(err)
	}
	top, err := Top(v)
	if err != nil {
		t.Fatal(err)
	}
	if keys := top.Keys(); !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Errorf("Keys() = %v", keys)
	}
	if _, err := Top([]interface{}{1}); err == nil {
		t.Error("Top() of a list should fail")
	}
}

func TestCBOR(t *testing.T) {
	doc, err := Decode(strings.NewReader("title: Report\nrows:\n  - name: a\n    n: 1\n  - name: b\n    n: -2\n"), YAML)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteCBOR(&buf, doc); err != nil {
		t.Fatalf("WriteCBOR() error = %v", err)
	}

	back, err := Decode(&buf, CBOR)
	if err != nil {
		t.Fatalf("Decode(cbor) error = %v", err)
	}
	m, ok := back.(map[string]interface{})
	if !ok {
		t.Fatalf("decoded %T, want map[string]interface{}", back)
	}
	if m["title"] != "Report" {
		t.Errorf("title = %v", m["title"])
	}

	tmpl, err := pattern.Compile("cbor", nil, "rows", "<:for:r:rows><&r.name>=<&r.n> <.for>")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tmpl.RenderMap(map[string]interface{}{"rows": m["rows"]})
	if err != nil {
		t.Fatal(err)
	}
	if out != "a=1 b=-2 " {
		t.Errorf("output = %q", out)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "in.toml")
	if err := os.WriteFile(p, []byte("greeting = \"hi\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := Load(p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m := v.(map[string]interface{}); m["greeting"] != "hi" {
		t.Errorf("greeting = %v", m["greeting"])
	}

	if _, err := Load(filepath.Join(dir, "in.txt")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Load(txt) error = %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0o644)
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), bad) {
		t.Errorf("Load(bad) error = %v, want the path in the message", err)
	}
}

func TestPlain(t *testing.T) {
	inner := NewOrderedMap()
	inner.Set("x", 1)
	outer := NewOrderedMap()
	outer.Set("list", []interface{}{inner})
	outer.Set("list", []interface{}{inner})

	if outer.Len() != 1 {
		t.Errorf("Len() = %d after setting the same key twice", outer.Len())
	}
	want := map[string]interface{}{"list": []interface{}{map[string]interface{}{"x": 1}}}
	if got := Plain(outer); !reflect.DeepEqual(got, want) {
		t.Errorf("Plain() = %#v", got)
	}
}

func TestOrderedMapString(t *testing.T) {
	v, err := Decode(strings.NewReader("customer:\n  name: Ann\n  age: 30\n  address:\n    city: Oslo\n"), YAML)
	if err != nil {
		t.Fatal(err)
	}
	top, err := Top(v)
	if err != nil {
		t.Fatal(err)
	}
	customer, _ := top.Get("customer")

	want := "{name: Ann, age: 30, address: {city: Oslo}}"
	if got := customer.(*OrderedMap).String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := NewOrderedMap().String(); got != "{}" {
		t.Errorf("empty String() = %q", got)
	}

	tmpl, err := pattern.Compile("c", nil, "customer", "<&customer>")
	if err != nil {
		t.Fatal(err)
	}
	out, err := tmpl.RenderMap(map[string]interface{}{"customer": customer})
	if err != nil {
		t.Fatal(err)
	}
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}
