package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-pattern/pkg/pattern/path"
)

// OpCode identifies the kind of an instruction.
type OpCode uint8

const (
	OpText OpCode = iota
	OpOutput
	OpIf
	OpElsif
	OpElse
	OpFor
	OpEndFor
	OpCall
	OpDebug
)

var opNames = [...]string{
	OpText:   "text",
	OpOutput: "output",
	OpIf:     "if",
	OpElsif:  "elsif",
	OpElse:   "else",
	OpFor:    "for",
	OpEndFor: "endfor",
	OpCall:   "call",
	OpDebug:  "debug",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// Instruction is one entry of a compiled template. Jump offsets are relative
// to the instruction's own index.
//
//	OpIf, OpElsif: Next reaches the following branch (or the chain end),
//	               End reaches past the chain.
//	OpElse:        Next and End reach past the chain.
//	OpFor:         End reaches past the matching OpEndFor.
//	OpEndFor:      End is the negative offset back to the OpFor.
type Instruction struct {
	Op  OpCode
	Pos int

	// Text is the literal for OpText and the comparison string for OpDebug.
	Text string
	// Value is the operand of OpOutput, OpDebug, OpFor and of single-path
	// conditions.
	Value Operand
	// Cond is set for conditions that are not a single path.
	Cond ExpressionNode

	Next int
	End  int

	Current   int
	Lookahead int

	Call *CallSite
}

// Operand is a path applied to a frame slot, or to the initial data root
// when Slot is negative.
type Operand struct {
	Slot int
	Path path.Expr
	Src  string
}

// IsRoot reports whether the operand reads from the initial data root.
func (o Operand) IsRoot() bool {
	return o.Slot < 0
}

// CallSite describes one <:call:...> marker.
type CallSite struct {
	Index  int
	Callee Operand
	// Static is the callee when it was known at compile time.
	Static *Template
	Args   []Argument
	// Shared is set when the marker has no argument list.
	Shared bool
}

// Argument binds a literal or a path value to a callee variable.
type Argument struct {
	Name      string
	IsLiteral bool
	Literal   string
	Value     Operand
	// Slot is the target slot in a static callee, -1 otherwise.
	Slot int
}

func (a Argument) String() string {
	if a.IsLiteral {
		return a.Name + "=" + strconv.Quote(a.Literal)
	}
	return a.Name + "=" + a.Value.Src
}

func (in Instruction) String() string {
	switch in.Op {
	case OpText:
		return fmt.Sprintf("%-7s %q", in.Op, in.Text)
	case OpOutput:
		return fmt.Sprintf("%-7s %s", in.Op, in.Value.describe())
	case OpIf, OpElsif:
		cond := in.Value.describe()
		if in.Cond != nil {
			cond = in.Cond.String()
		}
		return fmt.Sprintf("%-7s %s next=%+d end=%+d", in.Op, cond, in.Next, in.End)
	case OpElse:
		return fmt.Sprintf("%-7s end=%+d", in.Op, in.End)
	case OpFor:
		return fmt.Sprintf("%-7s %s cur=$%d next=$%d end=%+d", in.Op, in.Value.describe(), in.Current, in.Lookahead, in.End)
	case OpEndFor:
		return fmt.Sprintf("%-7s head=%+d", in.Op, in.End)
	case OpCall:
		cs := in.Call
		mode := "dynamic"
		if cs.Static != nil {
			mode = "static " + cs.Static.id
		}
		args := make([]string, len(cs.Args))
		for i, a := range cs.Args {
			args[i] = a.String()
		}
		if cs.Shared {
			return fmt.Sprintf("%-7s #%d %s (%s) shared", in.Op, cs.Index, cs.Callee.describe(), mode)
		}
		return fmt.Sprintf("%-7s #%d %s (%s) [%s]", in.Op, cs.Index, cs.Callee.describe(), mode, strings.Join(args, ", "))
	case OpDebug:
		return fmt.Sprintf("%-7s %s == %q", in.Op, in.Value.describe(), in.Text)
	}
	return in.Op.String()
}

func (o Operand) describe() string {
	if o.IsRoot() {
		return "root." + o.Path.String()
	}
	if o.Path.IsEmpty() {
		return fmt.Sprintf("$%d", o.Slot)
	}
	p := o.Path.String()
	if strings.HasPrefix(p, "[") {
		return fmt.Sprintf("$%d%s", o.Slot, p)
	}
	return fmt.Sprintf("$%d.%s", o.Slot, p)
}

// Dump returns a listing of the variable table and the instructions.
func (t *Template) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "template %q: %d slots, %d call sites\n", t.id, t.vars.Len(), t.calls)
	for i, name := range t.vars.names {
		fmt.Fprintf(&b, "  $%d = %s\n", i, name)
	}
	for i, in := range t.code {
		fmt.Fprintf(&b, "%4d  %s\n", i, in.String())
	}
	return b.String()
}
