package pattern

import (
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	tmpl := mustCompile(t, "inner", nil, "", "")

	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"nil", nil, ""},
		{"end of loop", EndOfLoop, ""},
		{"string", "text", "text"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"uint8", uint8(200), "200"},
		{"float64", 2.5, "2.5"},
		{"float64 noise", 0.1 + 0.2, "0.3"},
		{"float32", float32(1.25), "1.25"},
		{"bool", true, "true"},
		{"template", tmpl, "<template inner>"},
		{"stringer", 90 * time.Second, "1m30s"},
		{"slice", []int{1, 2}, "[1 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.value); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		value interface{}
		want  bool
	}{
		{nil, false},
		{EndOfLoop, false},
		{false, false},
		{true, true},
		{0, false},
		{uint(0), false},
		{0.0, false},
		{-1, true},
		{0.5, true},
		{"", true},
		{"false", true},
		{[]interface{}{}, true},
	}

	for _, tt := range tests {
		if got := isTruthy(tt.value); got != tt.want {
			t.Errorf("isTruthy(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestToInt(t *testing.T) {
	if n, ok := toInt(3.0); !ok || n != 3 {
		t.Errorf("toInt(3.0) = %d, %v", n, ok)
	}
	if _, ok := toInt(3.5); ok {
		t.Error("toInt(3.5) should fail")
	}
	if _, ok := toInt("3"); ok {
		t.Error("toInt(\"3\") should fail")
	}
}
