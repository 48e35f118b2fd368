package data

import (
	"fmt"
	"strings"
)

// OrderedMap is a string-keyed mapping that remembers insertion order. It
// implements path.Getter and path.Ranger, so templates iterate its values
// in document order instead of key order.
type OrderedMap struct {
	keys   []string
	values map[string]interface{}
}

// NewOrderedMap returns an empty map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]interface{})}
}

// FromMap copies m into an OrderedMap with keys in ascending order.
func FromMap(m map[string]interface{}) *OrderedMap {
	om := NewOrderedMap()
	for _, k := range SortedKeys(m) {
		om.Set(k, m[k])
	}
	return om
}

// Set stores v under key. A new key goes to the end; an existing key keeps
// its position.
func (m *OrderedMap) Set(key string, v interface{}) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *OrderedMap) Get(key string) (interface{}, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap) Range(fn func(value interface{}) bool) {
	for _, k := range m.keys {
		if !fn(m.values[k]) {
			return
		}
	}
}

// Keys returns the keys in order.
func (m *OrderedMap) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// String renders the map as {k: v, ...} in document order.
func (m *OrderedMap) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, m.values[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Plain converts v recursively so that every OrderedMap becomes a
// map[string]interface{}. Order is lost.
func Plain(v interface{}) interface{} {
	switch t := v.(type) {
	case *OrderedMap:
		m := make(map[string]interface{}, len(t.keys))
		for _, k := range t.keys {
			m[k] = Plain(t.values[k])
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, item := range t {
			m[k] = Plain(item)
		}
		return m
	case []interface{}:
		list := make([]interface{}, len(t))
		for i, item := range t {
			list[i] = Plain(item)
		}
		return list
	default:
		return v
	}
}
