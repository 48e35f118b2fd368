package pattern

import (
	"fmt"
	"strings"

	"github.com/benjaminschreck/go-pattern/pkg/pattern/path"
	"github.com/benjaminschreck/go-pattern/pkg/pattern/scan"
)

// Marker syntax. Every marker starts with '<' followed by one of the kind
// bytes; any other '<' is literal text.
const (
	markerOpen   = '<'
	markerClose  = '>'
	markerOutput = '&'
	markerCtrl   = ':'
	markerEnd    = '.'
)

// compileSettings carries the engine state a template is compiled with.
type compileSettings struct {
	config   *Config
	resolver Resolver
	funcs    FunctionRegistry
	hook     DebugHook
	logger   *Logger
}

// block is an open if-chain or loop on the compiler's control stack.
type block struct {
	op       OpCode
	pos      int
	branches []int
	hasElse  bool
}

type compiler struct {
	id       string
	src      string
	s        *scan.Scanner
	root     interface{}
	vars     *VarTable
	code     []Instruction
	stack    []block
	calls    int
	settings *compileSettings
}

// compile turns text into a Template. vars is the comma-separated list of
// declared variables, which get the first slots.
func compile(id string, root interface{}, vars, text string, settings *compileSettings) (*Template, error) {
	c := &compiler{
		id:       id,
		src:      text,
		s:        scan.New(text),
		root:     root,
		vars:     newVarTable(),
		settings: settings,
	}

	names, err := parseVarList(vars)
	if err != nil {
		return nil, &CompileError{Identifier: id, Reason: "invalid variable list: " + err.Error()}
	}
	for _, name := range names {
		if _, err := c.vars.Declare(name); err != nil {
			return nil, &CompileError{Identifier: id, Reason: err.Error()}
		}
	}

	if err := c.run(); err != nil {
		settings.logger.WithField("template", id).Debug("compile failed: %v", err)
		return nil, err
	}

	settings.logger.WithField("template", id).Debug("compiled %d instructions, %d slots, %d call sites",
		len(c.code), c.vars.Len(), c.calls)

	return &Template{
		id:       id,
		source:   text,
		root:     root,
		vars:     c.vars,
		code:     c.code,
		calls:    c.calls,
		resolver: settings.resolver,
		hook:     settings.hook,
		logger:   settings.logger,
		maxDepth: settings.config.MaxCallDepth,
	}, nil
}

func (c *compiler) run() error {
	for !c.s.EOF() {
		start := c.s.Pos()
		if text := c.scanText(); text != "" {
			c.emit(Instruction{Op: OpText, Pos: start, Text: text})
		}
		if c.s.EOF() {
			break
		}
		if err := c.marker(); err != nil {
			return err
		}
	}

	if n := len(c.stack); n > 0 {
		top := c.stack[n-1]
		return c.errorAt(top.pos, "unterminated <:%s> block", blockName(top.op))
	}
	return nil
}

// scanText consumes literal text up to the next marker.
func (c *compiler) scanText() string {
	var b strings.Builder
	for !c.s.EOF() {
		chunk, _ := c.s.ScanUntil(string(markerOpen))
		b.WriteString(chunk)
		if c.s.EOF() || isMarkerKind(c.s.PeekAt(1)) {
			break
		}
		b.WriteByte(markerOpen)
		c.s.Advance(1)
	}
	return b.String()
}

func isMarkerKind(c byte) bool {
	return c == markerOutput || c == markerCtrl || c == markerEnd
}

func (c *compiler) emit(in Instruction) int {
	c.code = append(c.code, in)
	return len(c.code) - 1
}

func (c *compiler) errorAt(pos int, format string, args ...interface{}) error {
	line, col := scan.LineCol(c.src, pos)
	return &CompileError{
		Identifier: c.id,
		Position:   pos,
		Line:       line,
		Column:     col,
		Reason:     fmt.Sprintf(format, args...),
	}
}

// marker compiles the marker at the current position.
func (c *compiler) marker() error {
	start := c.s.Pos()
	c.s.Advance(1)
	kind := c.s.Peek()
	c.s.Advance(1)

	switch kind {
	case markerOutput:
		body, err := c.body(start)
		if err != nil {
			return err
		}
		op, err := c.operand(body, start)
		if err != nil {
			return err
		}
		c.emit(Instruction{Op: OpOutput, Pos: start, Value: op})
		return nil

	case markerEnd:
		name, ok := c.s.ScanIdentifier()
		if !ok || !c.s.Match(string(markerClose)) {
			return c.errorAt(start, "malformed closing marker")
		}
		switch name {
		case "if":
			return c.closeIf(start)
		case "for":
			return c.closeFor(start)
		}
		return c.errorAt(start, "unknown closing marker <.%s>", name)

	default:
		keyword, ok := c.s.ScanIdentifier()
		if !ok {
			return c.errorAt(start, "expected keyword after '<:'")
		}
		switch keyword {
		case "if":
			return c.openIf(start)
		case "elsif":
			return c.elsif(start)
		case "else":
			return c.elseBranch(start)
		case "for":
			return c.openFor(start)
		case "call":
			return c.call(start)
		case "debug":
			return c.debug(start)
		}
		return c.errorAt(start, "unknown marker <:%s>", keyword)
	}
}

// body consumes the rest of a marker up to the unescaped '>'.
func (c *compiler) body(start int) (string, error) {
	text, term := c.s.ScanTo(string(markerClose))
	if term == 0 {
		return "", c.errorAt(start, "unterminated marker")
	}
	c.s.Advance(1)
	return text, nil
}

func (c *compiler) expect(tok byte, start int, what string) error {
	if c.s.Peek() != tok {
		return c.errorAt(start, "expected '%c' %s", tok, what)
	}
	c.s.Advance(1)
	return nil
}

// operand compiles a path. Its head names a slot when the variable table
// has it; otherwise the whole path reads from the initial data root.
func (c *compiler) operand(src string, pos int) (Operand, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return Operand{}, c.errorAt(pos, "empty path")
	}
	expr, err := path.Parse(src)
	if err != nil {
		return Operand{}, c.errorAt(pos, "%v", err)
	}

	if head, ok := expr.Head(); ok {
		if slot, found := c.vars.Index(head); found {
			return Operand{Slot: slot, Path: expr.Tail(), Src: src}, nil
		}
	}

	if c.settings.config.StrictMode {
		if _, err := c.settings.resolver.Resolve(c.root, expr); err != nil {
			return Operand{}, c.errorAt(pos, "unknown name in %q: %v", src, err)
		}
	}
	return Operand{Slot: -1, Path: expr, Src: src}, nil
}

func (c *compiler) bindVariable(name string) (int, error) {
	if slot, ok := c.vars.Index(name); ok {
		return slot, nil
	}
	if c.settings.config.StrictMode {
		if _, err := c.settings.resolver.Resolve(c.root, path.Field(name)); err != nil {
			return -1, fmt.Errorf("unknown name %q", name)
		}
	}
	return -1, nil
}

func (c *compiler) lookupFunction(name string) (Function, error) {
	fn, ok := c.settings.funcs.GetFunction(name)
	if !ok {
		return nil, fmt.Errorf("unknown function: %s", name)
	}
	return fn, nil
}

// condition compiles the text of an if or elsif marker into in.
func (c *compiler) condition(in *Instruction, raw string, pos int) error {
	text := strings.TrimSpace(strings.ReplaceAll(raw, `\>`, ">"))
	if text == "" {
		return c.errorAt(pos, "empty condition")
	}

	if isSinglePath(text) {
		op, err := c.operand(text, pos)
		if err != nil {
			return err
		}
		in.Value = op
		return nil
	}

	node, err := parseExpression(text, c)
	if err != nil {
		return c.errorAt(pos, "invalid condition %q: %v", text, err)
	}
	in.Value = Operand{Slot: -1, Src: text}
	in.Cond = node
	return nil
}

// isSinglePath reports whether a condition is a plain path that can be
// tested directly for truthiness.
func isSinglePath(text string) bool {
	expr, err := path.Parse(text)
	if err != nil {
		return false
	}
	head, ok := expr.Head()
	if !ok {
		return false
	}
	switch head {
	case "true", "false", "null", "nil":
		return false
	}
	return true
}

func (c *compiler) push(b block) error {
	if len(c.stack) >= c.settings.config.MaxNesting {
		return c.errorAt(b.pos, "blocks nested deeper than %d", c.settings.config.MaxNesting)
	}
	c.stack = append(c.stack, b)
	return nil
}

func (c *compiler) top() *block {
	if len(c.stack) == 0 {
		return nil
	}
	return &c.stack[len(c.stack)-1]
}

func (c *compiler) openIf(start int) error {
	if err := c.expect(markerCtrl, start, "after <:if"); err != nil {
		return err
	}
	raw, err := c.body(start)
	if err != nil {
		return err
	}
	in := Instruction{Op: OpIf, Pos: start}
	if err := c.condition(&in, raw, start); err != nil {
		return err
	}
	if err := c.push(block{op: OpIf, pos: start}); err != nil {
		return err
	}
	c.top().branches = append(c.top().branches, c.emit(in))
	return nil
}

func (c *compiler) elsif(start int) error {
	b := c.top()
	if b == nil || b.op != OpIf {
		return c.errorAt(start, "<:elsif> without open <:if>")
	}
	if b.hasElse {
		return c.errorAt(start, "<:elsif> after <:else>")
	}
	if err := c.expect(markerCtrl, start, "after <:elsif"); err != nil {
		return err
	}
	raw, err := c.body(start)
	if err != nil {
		return err
	}
	in := Instruction{Op: OpElsif, Pos: start}
	if err := c.condition(&in, raw, start); err != nil {
		return err
	}
	b.branches = append(b.branches, c.emit(in))
	return nil
}

func (c *compiler) elseBranch(start int) error {
	if err := c.expect(markerClose, start, "after <:else"); err != nil {
		return err
	}
	b := c.top()
	if b == nil || b.op != OpIf {
		return c.errorAt(start, "<:else> without open <:if>")
	}
	if b.hasElse {
		return c.errorAt(start, "duplicate <:else>")
	}
	b.hasElse = true
	b.branches = append(b.branches, c.emit(Instruction{Op: OpElse, Pos: start}))
	return nil
}

// closeIf patches every branch of the chain now that its end is known.
func (c *compiler) closeIf(start int) error {
	b := c.top()
	if b == nil {
		return c.errorAt(start, "<.if> without open <:if>")
	}
	if b.op != OpIf {
		line, _ := scan.LineCol(c.src, b.pos)
		return c.errorAt(start, "<.if> closes <:%s> opened at line %d", blockName(b.op), line)
	}

	end := len(c.code)
	for i, at := range b.branches {
		next := end
		if i+1 < len(b.branches) {
			next = b.branches[i+1]
		}
		c.code[at].Next = next - at
		c.code[at].End = end - at
	}
	c.stack = c.stack[:len(c.stack)-1]
	return nil
}

func (c *compiler) openFor(start int) error {
	if err := c.expect(markerCtrl, start, "after <:for"); err != nil {
		return err
	}
	name, ok := c.s.ScanIdentifier()
	if !ok {
		return c.errorAt(start, "expected loop variable name")
	}
	if err := c.expect(markerCtrl, start, "after loop variable"); err != nil {
		return err
	}
	raw, err := c.body(start)
	if err != nil {
		return err
	}

	// the container is bound before the loop variables exist
	container, err := c.operand(raw, start)
	if err != nil {
		return err
	}
	if err := c.push(block{op: OpFor, pos: start}); err != nil {
		return err
	}
	head := c.emit(Instruction{
		Op:        OpFor,
		Pos:       start,
		Value:     container,
		Current:   c.vars.Ensure(name),
		Lookahead: c.vars.Ensure(name + "_next"),
	})
	c.top().branches = []int{head}
	return nil
}

func (c *compiler) closeFor(start int) error {
	b := c.top()
	if b == nil {
		return c.errorAt(start, "<.for> without open <:for>")
	}
	if b.op != OpFor {
		line, _ := scan.LineCol(c.src, b.pos)
		return c.errorAt(start, "<.for> closes <:%s> opened at line %d", blockName(b.op), line)
	}

	head := b.branches[0]
	at := c.emit(Instruction{Op: OpEndFor, Pos: start})
	c.code[at].End = head - at
	c.code[head].End = at + 1 - head
	c.stack = c.stack[:len(c.stack)-1]
	return nil
}

func (c *compiler) call(start int) error {
	if err := c.expect(markerCtrl, start, "after <:call"); err != nil {
		return err
	}
	raw, term := c.s.ScanTo(":>")
	if term == 0 {
		return c.errorAt(start, "unterminated marker")
	}
	c.s.Advance(1)

	callee, err := c.operand(raw, start)
	if err != nil {
		return err
	}

	cs := &CallSite{Index: c.calls, Callee: callee, Shared: term == markerClose}
	if callee.IsRoot() {
		if v, err := c.settings.resolver.Resolve(c.root, callee.Path); err == nil {
			if tmpl, ok := v.(*Template); ok {
				cs.Static = tmpl
			}
		}
	}

	if !cs.Shared {
		if cs.Args, err = c.arguments(start, cs.Static); err != nil {
			return err
		}
	}

	c.calls++
	c.emit(Instruction{Op: OpCall, Pos: start, Call: cs})
	return nil
}

// arguments parses name=VALUE pairs up to the closing '>'. Names are checked
// against the callee when it is known.
func (c *compiler) arguments(start int, static *Template) ([]Argument, error) {
	var args []Argument
	seen := make(map[string]bool)

	c.s.SkipSpace()
	if c.s.Match(string(markerClose)) {
		return args, nil
	}

	for {
		c.s.SkipSpace()
		name, ok := c.s.ScanIdentifier()
		if !ok {
			return nil, c.errorAt(start, "expected argument name")
		}
		if seen[name] {
			return nil, c.errorAt(start, "argument %q given twice", name)
		}
		seen[name] = true

		c.s.SkipSpace()
		if err := c.expect('=', start, "after argument "+name); err != nil {
			return nil, err
		}
		c.s.SkipSpace()

		arg := Argument{Name: name, Slot: -1}
		if c.s.Peek() == scan.Quote {
			lit, err := c.s.ScanLiteral(scan.Quote)
			if err != nil {
				return nil, c.errorAt(start, "argument %q: %v", name, err)
			}
			arg.IsLiteral = true
			arg.Literal = lit
			c.s.SkipSpace()
		} else {
			raw, term := c.s.ScanTo(",>")
			if term == 0 {
				return nil, c.errorAt(start, "unterminated marker")
			}
			op, err := c.operand(raw, start)
			if err != nil {
				return nil, err
			}
			arg.Value = op
		}

		if static != nil {
			slot, ok := static.vars.Index(name)
			if !ok {
				return nil, c.errorAt(start, "template %q has no argument %q", static.id, name)
			}
			arg.Slot = slot
		}
		args = append(args, arg)

		switch {
		case c.s.Match(","):
			continue
		case c.s.Match(string(markerClose)):
			return args, nil
		default:
			return nil, c.errorAt(start, "expected ',' or '>' after argument %q", name)
		}
	}
}

func (c *compiler) debug(start int) error {
	if err := c.expect(markerCtrl, start, "after <:debug"); err != nil {
		return err
	}
	raw, term := c.s.ScanTo(":>")
	if term != markerCtrl {
		return c.errorAt(start, "expected '<:debug:PATH:TEXT>'")
	}
	c.s.Advance(1)
	op, err := c.operand(raw, start)
	if err != nil {
		return err
	}
	text, term := c.s.ScanText(string(markerClose))
	if term == 0 {
		return c.errorAt(start, "unterminated marker")
	}
	c.s.Advance(1)
	c.emit(Instruction{Op: OpDebug, Pos: start, Value: op, Text: unescapeMarker(text)})
	return nil
}

// unescapeMarker resolves backslash escapes in marker text.
func unescapeMarker(s string) string {
	if !strings.ContainsRune(s, scan.Escape) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == scan.Escape && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func blockName(op OpCode) string {
	if op == OpFor {
		return "for"
	}
	return "if"
}
