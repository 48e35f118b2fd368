package pattern

import "fmt"

// Frame holds the variable values for one execution of a template, plus the
// frames cached for its call sites. A Frame must not be used by two
// executions at the same time; it may be refilled and reused sequentially.
type Frame struct {
	tmpl   *Template
	values []interface{}
	calls  []*Frame
}

// Template returns the template the frame was created for.
func (f *Frame) Template() *Template {
	return f.tmpl
}

// Set stores v in the named variable.
func (f *Frame) Set(name string, v interface{}) error {
	idx, ok := f.tmpl.vars.Index(name)
	if !ok {
		return &NoSuchArgumentError{Template: f.tmpl.id, Name: name}
	}
	f.values[idx] = v
	return nil
}

// SetIndex stores v in slot i.
func (f *Frame) SetIndex(i int, v interface{}) error {
	if i < 0 || i >= len(f.values) {
		return fmt.Errorf("slot %d out of range for template %q with %d slots", i, f.tmpl.id, len(f.values))
	}
	f.values[i] = v
	return nil
}

// Get returns the value of the named variable.
func (f *Frame) Get(name string) (interface{}, error) {
	idx, ok := f.tmpl.vars.Index(name)
	if !ok {
		return nil, &NoSuchArgumentError{Template: f.tmpl.id, Name: name}
	}
	return f.values[idx], nil
}

// Fill sets every entry of values. All unknown names are reported together;
// the known ones are still stored.
func (f *Frame) Fill(values map[string]interface{}) error {
	errs := NewMultiError()
	for name, v := range values {
		errs.Add(f.Set(name, v))
	}
	return errs.Err()
}

// Reset clears every slot. Cached call-site frames are kept.
func (f *Frame) Reset() {
	for i := range f.values {
		f.values[i] = nil
	}
}

// subFrame returns the cached frame for call site idx, creating it on first
// use and replacing it when the callee changed since the last call.
func (f *Frame) subFrame(idx int, callee *Template) *Frame {
	sub := f.calls[idx]
	if sub == nil || sub.tmpl != callee {
		sub = callee.NewFrame()
		f.calls[idx] = sub
	}
	return sub
}
