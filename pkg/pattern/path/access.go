package path

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Getter is implemented by host containers that resolve named members
// themselves.
type Getter interface {
	Get(key string) (interface{}, bool)
}

// Ranger is implemented by host containers that define their own iteration
// order. Range calls fn for each element value until fn returns false.
type Ranger interface {
	Range(fn func(value interface{}) bool)
}

// ErrNotIterable is returned by Range for values that are not containers.
var ErrNotIterable = errors.New("value is not iterable")

// SyntaxError reports a malformed path expression.
type SyntaxError struct {
	Path   string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// LookupError reports a path that could not be followed.
type LookupError struct {
	Path  string
	Step  int
	Cause error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup of %q failed: %v", e.Path, e.Cause)
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}

// field accesses a named member of a map-like or struct value
func field(current interface{}, name string) (interface{}, error) {
	if current == nil {
		return nil, fmt.Errorf("cannot access %q on nil", name)
	}

	switch v := current.(type) {
	case Getter:
		if val, ok := v.Get(name); ok {
			return val, nil
		}
		return nil, fmt.Errorf("no such key %q", name)
	case map[string]interface{}:
		if val, ok := v[name]; ok {
			return val, nil
		}
		return nil, fmt.Errorf("no such key %q", name)
	case map[string]string:
		if val, ok := v[name]; ok {
			return val, nil
		}
		return nil, fmt.Errorf("no such key %q", name)
	}

	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot access %q on nil", name)
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot access %q on map with %s keys", name, rv.Type().Key())
		}
		val := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, fmt.Errorf("no such key %q", name)
		}
		return val.Interface(), nil
	case reflect.Struct:
		f := rv.FieldByName(name)
		if !f.IsValid() || !f.CanInterface() {
			return nil, fmt.Errorf("no such field %q in %s", name, rv.Type())
		}
		return f.Interface(), nil
	default:
		return nil, fmt.Errorf("cannot access %q on %T", name, current)
	}
}

// index accesses an element by position; negative indices count from the end
func index(current interface{}, idx int) (interface{}, error) {
	if current == nil {
		return nil, fmt.Errorf("cannot index nil")
	}

	switch v := current.(type) {
	case []interface{}:
		i, ok := normalizeIndex(idx, len(v))
		if !ok {
			return nil, fmt.Errorf("index %d out of range (length %d)", idx, len(v))
		}
		return v[i], nil
	case Getter:
		return field(v, strconv.Itoa(idx))
	}

	rv := reflect.ValueOf(current)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot index nil")
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		i, ok := normalizeIndex(idx, rv.Len())
		if !ok {
			return nil, fmt.Errorf("index %d out of range (length %d)", idx, rv.Len())
		}
		return rv.Index(i).Interface(), nil
	case reflect.Map:
		return field(current, strconv.Itoa(idx))
	default:
		return nil, fmt.Errorf("cannot index %T", current)
	}
}

func normalizeIndex(idx, length int) (int, bool) {
	if idx < 0 {
		idx = length + idx
	}
	return idx, idx >= 0 && idx < length
}

// Range iterates the elements of container in their natural order: sequence
// order for slices and arrays, ascending key order for maps (yielding the
// values) and the container's own order for Ranger implementations. fn may
// return false to stop early. A nil container yields no elements.
func Range(container interface{}, fn func(value interface{}) bool) error {
	if container == nil {
		return nil
	}

	switch v := container.(type) {
	case Ranger:
		v.Range(fn)
		return nil
	case []interface{}:
		for _, item := range v {
			if !fn(item) {
				break
			}
		}
		return nil
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !fn(v[k]) {
				break
			}
		}
		return nil
	}

	rv := reflect.ValueOf(container)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !fn(rv.Index(i).Interface()) {
				break
			}
		}
		return nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			if !fn(rv.MapIndex(k).Interface()) {
				break
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrNotIterable, container)
	}
}

// Len returns the number of elements of a container, or -1 if v is not one.
func Len(v interface{}) int {
	switch c := v.(type) {
	case nil:
		return 0
	case string:
		return len(c)
	case []interface{}:
		return len(c)
	case map[string]interface{}:
		return len(c)
	case Ranger:
		n := 0
		c.Range(func(interface{}) bool {
			n++
			return true
		})
		return n
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	}
	return -1
}
