package pattern

import (
	"errors"
	"fmt"
	"io"

	"github.com/benjaminschreck/go-pattern/pkg/pattern/path"
)

var (
	errNotTemplate = errors.New("call target is not a template")
	errCallDepth   = errors.New("call depth limit exceeded")
)

// sink remembers the first write error and drops everything after it.
type sink struct {
	w   io.Writer
	err error
}

func (s *sink) write(text string) {
	if s.err != nil || text == "" {
		return
	}
	_, s.err = io.WriteString(s.w, text)
}

// execState is shared by every nested run of one Execute call.
type execState struct {
	out      *sink
	depth    int
	maxDepth int
}

// run interprets code[start:end) against f.
func (t *Template) run(start, end int, f *Frame, st *execState) {
	for pc := start; pc < end && st.out.err == nil; {
		in := &t.code[pc]

		switch in.Op {
		case OpText:
			st.out.write(in.Text)
			pc++

		case OpOutput:
			if v, err := t.resolve(f, in.Value); err != nil {
				t.diagnose(st, in.Value.Src, err)
			} else {
				st.out.write(FormatValue(v))
			}
			pc++

		case OpIf, OpElsif:
			if t.test(f, in, st) {
				t.run(pc+1, pc+in.Next, f, st)
				pc += in.End
			} else {
				pc += in.Next
			}

		case OpElse:
			t.run(pc+1, pc+in.End, f, st)
			pc += in.End

		case OpFor:
			t.loop(pc, in, f, st)
			pc += in.End

		case OpEndFor:
			pc++

		case OpCall:
			t.call(in.Call, f, st)
			pc++

		case OpDebug:
			t.probe(in, f)
			pc++

		default:
			t.diagnose(st, in.Op.String(), fmt.Errorf("unknown instruction at %d", pc))
			pc++
		}
	}
}

// resolve reads an operand from its slot or from the initial data root.
func (t *Template) resolve(f *Frame, op Operand) (interface{}, error) {
	base := t.root
	if op.Slot >= 0 {
		base = f.values[op.Slot]
	}
	if op.Path.IsEmpty() {
		return base, nil
	}
	return t.resolver.Resolve(base, op.Path)
}

// test evaluates the condition of an if or elsif. A condition that cannot be
// evaluated is reported and counts as false.
func (t *Template) test(f *Frame, in *Instruction, st *execState) bool {
	var (
		v   interface{}
		err error
	)
	if in.Cond != nil {
		v, err = in.Cond.Evaluate(f)
	} else {
		v, err = t.resolve(f, in.Value)
	}
	if err != nil {
		t.diagnose(st, in.Value.Src, err)
		return false
	}
	return isTruthy(v)
}

// loop runs the body of the OpFor at pc once per element. While the body
// runs, the current slot holds element k and the lookahead slot holds
// element k+1, or EndOfLoop for the last element.
func (t *Template) loop(pc int, in *Instruction, f *Frame, st *execState) {
	container, err := t.resolve(f, in.Value)
	if err != nil {
		t.diagnose(st, in.Value.Src, err)
		return
	}
	if container == nil {
		return
	}

	bodyStart, bodyEnd := pc+1, pc+in.End-1

	// pending is kept outside the frame so a body that reassigns the loop
	// variables cannot disturb the iteration
	var pending interface{}
	seen := false

	err = path.Range(container, func(elem interface{}) bool {
		if seen {
			f.values[in.Current] = pending
			f.values[in.Lookahead] = elem
			t.run(bodyStart, bodyEnd, f, st)
		}
		pending, seen = elem, true
		return st.out.err == nil
	})
	if err != nil {
		t.diagnose(st, in.Value.Src, err)
		return
	}

	if seen && st.out.err == nil {
		f.values[in.Current] = pending
		f.values[in.Lookahead] = EndOfLoop
		t.run(bodyStart, bodyEnd, f, st)
	}
}

// probe fires the debug hook when the operand's text equals the marker text.
func (t *Template) probe(in *Instruction, f *Frame) {
	v, err := t.resolve(f, in.Value)
	if err != nil {
		t.logger.WithField("template", t.id).Debug("debug probe %q: %v", in.Value.Src, err)
		return
	}
	if FormatValue(v) == in.Text {
		t.hook(Probe{
			Template:   t.id,
			Position:   in.Pos,
			Expression: in.Value.Src,
			Value:      v,
		})
	}
}

// diagnose writes a runtime error inline and logs it.
func (t *Template) diagnose(st *execState, expr string, cause error) {
	rerr := NewRuntimeError(t.id, expr, cause)
	t.logger.WithField("template", t.id).Warn("%v", rerr)
	st.out.write(rerr.Inline())
}
