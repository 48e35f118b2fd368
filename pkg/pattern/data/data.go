// Package data loads template input from JSON, YAML, TOML and CBOR files
// into the generic values the pattern engine resolves paths over.
package data

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format identifies an input encoding.
type Format int

const (
	JSON Format = iota
	YAML
	TOML
	CBOR
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	case TOML:
		return "toml"
	case CBOR:
		return "cbor"
	default:
		return "unknown"
	}
}

// ErrUnknownFormat is returned for file extensions no decoder handles.
var ErrUnknownFormat = errors.New("unknown data format")

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	case ".cbor":
		return CBOR, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

var cborDecMode cbor.DecMode
var cborEncMode cbor.EncMode

func init() {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("data: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm

	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("data: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Load reads the file at path and decodes it according to its extension.
func Load(path string) (interface{}, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Decode reads one document in the given format. Mappings decode to
// map[string]interface{}, except YAML mappings, which keep document order
// as *OrderedMap.
func Decode(r io.Reader, format Format) (interface{}, error) {
	switch format {
	case JSON:
		var v interface{}
		if err := json.NewDecoder(r).Decode(&v); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return v, nil

	case YAML:
		var doc yaml.Node
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return fromYAML(&doc)

	case TOML:
		var m map[string]interface{}
		if _, err := toml.NewDecoder(r).Decode(&m); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
		return m, nil

	case CBOR:
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		var v interface{}
		if err := cborDecMode.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode cbor: %w", err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
}

// fromYAML converts a node tree, keeping mapping order.
func fromYAML(n *yaml.Node) (interface{}, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0])

	case yaml.MappingNode:
		m := NewOrderedMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(key.Value, v)
		}
		return m, nil

	case yaml.SequenceNode:
		list := make([]interface{}, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := fromYAML(item)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil

	case yaml.AliasNode:
		return fromYAML(n.Alias)

	case yaml.ScalarNode:
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
}

// Top returns the top-level mapping of a decoded document. Plain maps are
// converted with their keys in ascending order.
func Top(v interface{}) (*OrderedMap, error) {
	switch m := v.(type) {
	case *OrderedMap:
		return m, nil
	case map[string]interface{}:
		return FromMap(m), nil
	case nil:
		return NewOrderedMap(), nil
	default:
		return nil, fmt.Errorf("top level of data must be a mapping, got %T", v)
	}
}

// EncodeCBOR encodes v in canonical CBOR. Ordered maps are written as plain
// maps.
func EncodeCBOR(v interface{}) ([]byte, error) {
	return cborEncMode.Marshal(Plain(v))
}

// WriteCBOR encodes v to w.
func WriteCBOR(w io.Writer, v interface{}) error {
	b, err := EncodeCBOR(v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
