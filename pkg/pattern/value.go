package pattern

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// endOfLoop is the type of the EndOfLoop marker.
type endOfLoop struct{}

func (endOfLoop) String() string { return "" }

// EndOfLoop is stored in a loop's lookahead slot (VAR_next) while the body
// runs for the last element. It is distinct from nil, so a nil element in the
// container can still be told apart from "no further element".
var EndOfLoop interface{} = endOfLoop{}

// IsEndOfLoop reports whether v is the EndOfLoop marker.
func IsEndOfLoop(v interface{}) bool {
	_, ok := v.(endOfLoop)
	return ok
}

// FormatValue renders a value the way an output marker prints it. nil and
// EndOfLoop print as nothing.
func FormatValue(value interface{}) string {
	switch v := value.(type) {
	case nil, endOfLoop:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case *Template:
		return "<template " + v.id + ">"
	case fmt.Stringer:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', 10, 32)
	case reflect.Float64:
		// 15 digits hide binary noise such as 0.1+0.2
		return strconv.FormatFloat(rv.Float(), 'g', 15, 64)
	}
	return fmt.Sprintf("%v", value)
}

// number is a numeric value seen through its kind.
type number struct {
	f        float64
	i        int64
	integral bool
}

// asNumber classifies v by kind, so named numeric types count as numbers too.
func asNumber(v interface{}) (number, bool) {
	if v == nil {
		return number{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		return number{f: float64(n), i: n, integral: true}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n := rv.Uint()
		return number{f: float64(n), i: int64(n), integral: true}, true
	case reflect.Float32, reflect.Float64:
		return number{f: rv.Float()}, true
	}
	return number{}, false
}

// isTruthy is the condition coercion: nil, false, numeric zero and the
// end-of-loop marker are false; everything else, the empty string included,
// is true.
func isTruthy(val interface{}) bool {
	switch v := val.(type) {
	case nil, endOfLoop:
		return false
	case bool:
		return v
	}
	if n, ok := asNumber(val); ok {
		return n.f != 0
	}
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.Bool {
		return rv.Bool()
	}
	return true
}

func toFloat64(val interface{}) (float64, bool) {
	n, ok := asNumber(val)
	return n.f, ok
}

// toInt accepts integers of any width and floats without a fraction.
func toInt(val interface{}) (int, bool) {
	n, ok := asNumber(val)
	switch {
	case !ok:
		return 0, false
	case n.integral:
		return int(n.i), true
	case n.f == math.Trunc(n.f) && !math.IsInf(n.f, 0):
		return int(n.f), true
	}
	return 0, false
}

func isInteger(val interface{}) bool {
	n, ok := asNumber(val)
	return ok && n.integral
}
