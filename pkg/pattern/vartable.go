package pattern

import (
	"fmt"
	"strings"

	"github.com/benjaminschreck/go-pattern/pkg/pattern/scan"
)

// VarTable maps variable names to dense slot indices. It is filled while a
// template is compiled and never changes afterwards.
type VarTable struct {
	names []string
	index map[string]int
}

func newVarTable() *VarTable {
	return &VarTable{index: make(map[string]int)}
}

// Declare adds a new variable. Declaring a name twice is an error.
func (vt *VarTable) Declare(name string) (int, error) {
	if _, exists := vt.index[name]; exists {
		return -1, fmt.Errorf("variable %q declared twice", name)
	}
	return vt.Ensure(name), nil
}

// Ensure returns the slot for name, allocating one if needed.
func (vt *VarTable) Ensure(name string) int {
	if idx, exists := vt.index[name]; exists {
		return idx
	}
	idx := len(vt.names)
	vt.names = append(vt.names, name)
	vt.index[name] = idx
	return idx
}

// Index returns the slot for name.
func (vt *VarTable) Index(name string) (int, bool) {
	idx, ok := vt.index[name]
	return idx, ok
}

// Name returns the variable stored in slot i.
func (vt *VarTable) Name(i int) string {
	if i < 0 || i >= len(vt.names) {
		return ""
	}
	return vt.names[i]
}

// Len returns the number of slots.
func (vt *VarTable) Len() int {
	return len(vt.names)
}

// Names returns the variable names in slot order.
func (vt *VarTable) Names() []string {
	names := make([]string, len(vt.names))
	copy(names, vt.names)
	return names
}

// parseVarList splits a comma-separated identifier list. Blank input yields
// no names.
func parseVarList(list string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	var names []string
	s := scan.New(list)
	for {
		s.SkipSpace()
		name, ok := s.ScanIdentifier()
		if !ok {
			return nil, fmt.Errorf("expected variable name at offset %d of %q", s.Pos(), list)
		}
		names = append(names, name)
		s.SkipSpace()
		if s.EOF() {
			return names, nil
		}
		if !s.Match(",") {
			return nil, fmt.Errorf("expected ',' at offset %d of %q", s.Pos(), list)
		}
	}
}
