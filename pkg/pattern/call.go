package pattern

import "fmt"

// call executes a <:call:...> instruction. The callee writes to the same
// sink as the caller.
func (t *Template) call(cs *CallSite, f *Frame, st *execState) {
	callee := cs.Static
	if callee == nil {
		v, err := t.resolve(f, cs.Callee)
		if err != nil {
			t.diagnose(st, cs.Callee.Src, err)
			return
		}
		tmpl, ok := v.(*Template)
		if !ok {
			t.diagnose(st, cs.Callee.Src, fmt.Errorf("%w: got %T", errNotTemplate, v))
			return
		}
		callee = tmpl
	}

	if st.depth >= st.maxDepth {
		t.diagnose(st, cs.Callee.Src, fmt.Errorf("%w (%d)", errCallDepth, st.maxDepth))
		return
	}

	target := t.bind(cs, callee, f, st)

	st.depth++
	callee.run(0, len(callee.code), target, st)
	st.depth--
}

// bind prepares the frame the callee runs against. A shared-scope call of
// the template itself reuses the caller's frame; every other call uses the
// call site's cached frame, cleared and then filled.
func (t *Template) bind(cs *CallSite, callee *Template, f *Frame, st *execState) *Frame {
	if cs.Shared && callee == t {
		return f
	}

	target := f.subFrame(cs.Index, callee)
	target.Reset()

	if cs.Shared {
		for i, name := range callee.vars.names {
			if j, ok := t.vars.Index(name); ok {
				target.values[i] = f.values[j]
			}
		}
		return target
	}

	for _, arg := range cs.Args {
		var v interface{}
		if arg.IsLiteral {
			v = arg.Literal
		} else {
			val, err := t.resolve(f, arg.Value)
			if err != nil {
				t.diagnose(st, arg.Value.Src, err)
			} else {
				v = val
			}
		}

		if cs.Static != nil {
			target.values[arg.Slot] = v
			continue
		}
		if err := target.Set(arg.Name, v); err != nil {
			t.diagnose(st, cs.Callee.Src, err)
		}
	}
	return target
}
