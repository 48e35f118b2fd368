package pattern

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-pattern/pkg/pattern/path"
)

// ExpressionNode is a compiled condition expression. Variables are bound to
// frame slots when the expression is compiled.
type ExpressionNode interface {
	String() string
	Evaluate(f *Frame) (interface{}, error)
}

// binder supplies slots and functions while an expression is parsed.
type binder interface {
	bindVariable(name string) (int, error)
	lookupFunction(name string) (Function, error)
}

// LiteralNode is a constant: a string, number, boolean or nil.
type LiteralNode struct {
	Value interface{}
}

func (n *LiteralNode) String() string {
	switch v := n.Value.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	}
	return fmt.Sprint(n.Value)
}

func (n *LiteralNode) Evaluate(*Frame) (interface{}, error) {
	return n.Value, nil
}

// VariableNode reads a frame slot, or a top-level entry of the initial data
// root when Slot is negative.
type VariableNode struct {
	Name string
	Slot int
}

func (n *VariableNode) String() string {
	if n.Slot < 0 {
		return n.Name + "@root"
	}
	return n.Name + "@" + strconv.Itoa(n.Slot)
}

func (n *VariableNode) Evaluate(f *Frame) (interface{}, error) {
	if n.Slot < 0 {
		return f.tmpl.resolver.Resolve(f.tmpl.root, path.Field(n.Name))
	}
	return f.values[n.Slot], nil
}

// BinaryOpNode applies Operator to two operands. & and | evaluate the right
// operand only when the left one does not decide the result.
type BinaryOpNode struct {
	Left     ExpressionNode
	Operator string
	Right    ExpressionNode
}

func (n *BinaryOpNode) String() string {
	return "(" + n.Operator + " " + n.Left.String() + " " + n.Right.String() + ")"
}

func (n *BinaryOpNode) Evaluate(f *Frame) (interface{}, error) {
	left, err := n.Left.Evaluate(f)
	if err != nil {
		return nil, err
	}
	if n.Operator == "&" || n.Operator == "|" {
		if isTruthy(left) == (n.Operator == "|") {
			return isTruthy(left), nil
		}
		right, err := n.Right.Evaluate(f)
		if err != nil {
			return nil, err
		}
		return isTruthy(right), nil
	}

	right, err := n.Right.Evaluate(f)
	if err != nil {
		return nil, err
	}
	return applyBinary(left, n.Operator, right)
}

// UnaryOpNode is !, - or + applied to one operand.
type UnaryOpNode struct {
	Operator string
	Operand  ExpressionNode
}

func (n *UnaryOpNode) String() string {
	return "(" + n.Operator + " " + n.Operand.String() + ")"
}

func (n *UnaryOpNode) Evaluate(f *Frame) (interface{}, error) {
	v, err := n.Operand.Evaluate(f)
	if err != nil {
		return nil, err
	}
	if n.Operator == "!" {
		return !isTruthy(v), nil
	}

	num, ok := asNumber(v)
	if !ok {
		name := map[string]string{"-": "minus", "+": "plus"}[n.Operator]
		return nil, fmt.Errorf("cannot apply unary %s to %T", name, v)
	}
	if n.Operator == "-" {
		num.i, num.f = -num.i, -num.f
	}
	if num.integral {
		return int(num.i), nil
	}
	return num.f, nil
}

// FieldAccessNode is obj.field.
type FieldAccessNode struct {
	Object ExpressionNode
	Field  string
}

func (n *FieldAccessNode) String() string {
	return n.Object.String() + "." + n.Field
}

func (n *FieldAccessNode) Evaluate(f *Frame) (interface{}, error) {
	obj, err := n.Object.Evaluate(f)
	if err != nil {
		return nil, err
	}
	return f.tmpl.resolver.Resolve(obj, path.Field(n.Field))
}

// IndexAccessNode is obj[index]. A string index selects a field.
type IndexAccessNode struct {
	Object ExpressionNode
	Index  ExpressionNode
}

func (n *IndexAccessNode) String() string {
	return n.Object.String() + "[" + n.Index.String() + "]"
}

func (n *IndexAccessNode) Evaluate(f *Frame) (interface{}, error) {
	obj, err := n.Object.Evaluate(f)
	if err != nil {
		return nil, err
	}
	index, err := n.Index.Evaluate(f)
	if err != nil {
		return nil, err
	}

	var elem path.Expr
	if key, ok := index.(string); ok {
		elem = path.Field(key)
	} else if i, ok := toInt(index); ok {
		elem = path.Index(i)
	} else {
		return nil, fmt.Errorf("invalid index type: %T", index)
	}
	return f.tmpl.resolver.Resolve(obj, elem)
}

// FunctionCallNode calls a function resolved at compile time.
type FunctionCallNode struct {
	Name string
	Fn   Function
	Args []ExpressionNode
}

func (n *FunctionCallNode) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")"
}

func (n *FunctionCallNode) Evaluate(f *Frame) (interface{}, error) {
	args := make([]interface{}, len(n.Args))
	for i, arg := range n.Args {
		v, err := arg.Evaluate(f)
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", i, n.Name, err)
		}
		args[i] = v
	}
	return n.Fn.Call(args...)
}

// ExpressionToken is one lexeme of a condition expression.
type ExpressionToken struct {
	Type  ExpressionTokenType
	Value string
	Pos   int
}

type ExpressionTokenType int

const (
	ExprTokenIdentifier ExpressionTokenType = iota
	ExprTokenNumber
	ExprTokenString
	ExprTokenOperator
	ExprTokenLeftParen
	ExprTokenRightParen
	ExprTokenComma
	ExprTokenEOF
)

// tokenRule turns a match at the current position into a token. value
// rewrites the matched text when set.
type tokenRule struct {
	re    *regexp.Regexp
	typ   ExpressionTokenType
	value func(match string) string
}

// tokenRules are tried in order; the first match wins.
var tokenRules = []tokenRule{
	{regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*`), ExprTokenIdentifier, nil},
	{regexp.MustCompile(`^[0-9]+(\.[0-9]+)?`), ExprTokenNumber, nil},
	{regexp.MustCompile(`^\.[0-9]+`), ExprTokenNumber, func(m string) string { return "0" + m }},
	{regexp.MustCompile(`^"(?:[^"\\]|\\.)*"`), ExprTokenString, unquoteToken},
	{regexp.MustCompile(`^'(?:[^'\\]|\\.)*'`), ExprTokenString, unquoteToken},
	// && and || are spellings of & and |
	{regexp.MustCompile(`^(?:&&|\|\|)`), ExprTokenOperator, func(m string) string { return m[:1] }},
	{regexp.MustCompile(`^(?:[=!<>]=|[-+*/%&|!<>.\[\]])`), ExprTokenOperator, nil},
	{regexp.MustCompile(`^\(`), ExprTokenLeftParen, nil},
	{regexp.MustCompile(`^\)`), ExprTokenRightParen, nil},
	{regexp.MustCompile(`^,`), ExprTokenComma, nil},
}

// unquoteToken strips the quotes of a string literal and resolves backslash
// escapes: a backslash keeps the character after it.
func unquoteToken(quoted string) string {
	body := quoted[1 : len(quoted)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String()
}

// TokenizeExpression splits expr into tokens, ending with an EOF token.
func TokenizeExpression(expr string) ([]ExpressionToken, error) {
	var tokens []ExpressionToken
	pos := 0

next:
	for pos < len(expr) {
		if strings.IndexByte(" \t\r\n", expr[pos]) >= 0 {
			pos++
			continue
		}
		rest := expr[pos:]
		for _, rule := range tokenRules {
			m := rule.re.FindString(rest)
			if m == "" {
				continue
			}
			value := m
			if rule.value != nil {
				value = rule.value(m)
			}
			tokens = append(tokens, ExpressionToken{Type: rule.typ, Value: value, Pos: pos})
			pos += len(m)
			continue next
		}
		return nil, fmt.Errorf("unexpected character '%c' at position %d", expr[pos], pos)
	}

	return append(tokens, ExpressionToken{Type: ExprTokenEOF, Pos: pos}), nil
}

// parseExpression compiles expr, binding variables and functions through b.
// Trailing tokens are an error.
func parseExpression(expr string, b binder) (ExpressionNode, error) {
	tokens, err := TokenizeExpression(expr)
	if err != nil {
		return nil, err
	}

	parser := &expressionParser{tokens: tokens, binder: b}

	node, err := parser.parseExpression()
	if err != nil {
		return nil, err
	}

	if token := parser.current(); token.Type != ExprTokenEOF {
		return nil, fmt.Errorf("unexpected trailing token %q at position %d", token.Value, token.Pos)
	}

	return node, nil
}

type expressionParser struct {
	tokens []ExpressionToken
	pos    int
	binder binder
}

func (p *expressionParser) current() ExpressionToken {
	if p.pos >= len(p.tokens) {
		return ExpressionToken{Type: ExprTokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *expressionParser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *expressionParser) atOperator(ops ...string) (string, bool) {
	token := p.current()
	if token.Type != ExprTokenOperator {
		return "", false
	}
	for _, op := range ops {
		if token.Value == op {
			return op, true
		}
	}
	return "", false
}

func (p *expressionParser) parseExpression() (ExpressionNode, error) {
	return p.parseBinary(0)
}

// precedence levels, lowest first
var binaryLevels = [][]string{
	{"|"},
	{"&"},
	{"==", "!="},
	{"<", ">", "<=", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

// parseBinary parses left-associative binary operators from the given level
// upward.
func (p *expressionParser) parseBinary(level int) (ExpressionNode, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}

	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		op, ok := p.atOperator(binaryLevels[level]...)
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{Left: left, Operator: op, Right: right}
	}
}

func (p *expressionParser) parseUnary() (ExpressionNode, error) {
	if op, ok := p.atOperator("!", "-", "+"); ok {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOpNode{Operator: op, Operand: operand}, nil
	}

	return p.parseFieldAccess()
}

// parseFieldAccess parses field access expressions (obj.field, obj[key])
func (p *expressionParser) parseFieldAccess() (ExpressionNode, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		if _, ok := p.atOperator("."); ok {
			p.advance()
			if p.current().Type != ExprTokenIdentifier {
				return nil, fmt.Errorf("expected identifier after '.'")
			}
			left = &FieldAccessNode{Object: left, Field: p.current().Value}
			p.advance()
		} else if _, ok := p.atOperator("["); ok {
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, ok := p.atOperator("]"); !ok {
				return nil, fmt.Errorf("expected ']' after index")
			}
			p.advance()
			left = &IndexAccessNode{Object: left, Index: index}
		} else {
			return left, nil
		}
	}
}

func (p *expressionParser) parsePrimary() (ExpressionNode, error) {
	token := p.current()

	switch token.Type {
	case ExprTokenNumber:
		p.advance()
		if intVal, err := strconv.Atoi(token.Value); err == nil {
			return &LiteralNode{Value: intVal}, nil
		}
		if floatVal, err := strconv.ParseFloat(token.Value, 64); err == nil {
			return &LiteralNode{Value: floatVal}, nil
		}
		return nil, fmt.Errorf("invalid number: %s", token.Value)

	case ExprTokenString:
		p.advance()
		return &LiteralNode{Value: token.Value}, nil

	case ExprTokenIdentifier:
		p.advance()
		switch token.Value {
		case "true":
			return &LiteralNode{Value: true}, nil
		case "false":
			return &LiteralNode{Value: false}, nil
		case "null", "nil":
			return &LiteralNode{Value: nil}, nil
		}

		if p.current().Type == ExprTokenLeftParen {
			return p.parseFunctionCall(token.Value)
		}

		slot, err := p.binder.bindVariable(token.Value)
		if err != nil {
			return nil, err
		}
		return &VariableNode{Name: token.Value, Slot: slot}, nil

	case ExprTokenLeftParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current().Type != ExprTokenRightParen {
			return nil, fmt.Errorf("expected ')' after expression")
		}
		p.advance()
		return expr, nil

	case ExprTokenEOF:
		return nil, fmt.Errorf("unexpected end of expression")

	default:
		return nil, fmt.Errorf("unexpected token: %s", token.Value)
	}
}

func (p *expressionParser) parseFunctionCall(name string) (ExpressionNode, error) {
	fn, err := p.binder.lookupFunction(name)
	if err != nil {
		return nil, err
	}
	p.advance() // consume '('

	node := &FunctionCallNode{Name: name, Fn: fn}

	if p.current().Type == ExprTokenRightParen {
		p.advance()
	} else {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			node.Args = append(node.Args, arg)

			if p.current().Type == ExprTokenComma {
				p.advance()
				continue
			}
			if p.current().Type == ExprTokenRightParen {
				p.advance()
				break
			}
			return nil, fmt.Errorf("expected ',' or ')' in arguments of %s", name)
		}
	}

	if err := checkArity(fn, len(node.Args)); err != nil {
		return nil, err
	}
	return node, nil
}

// applyBinary evaluates an operator whose operands are both known.
func applyBinary(left interface{}, op string, right interface{}) (interface{}, error) {
	switch op {
	case "==":
		return evaluateEquals(left, right), nil
	case "!=":
		return !evaluateEquals(left, right), nil
	case "<", ">", "<=", ">=":
		c, err := compareValues(left, right)
		if err != nil {
			return nil, err
		}
		return orderings[op](c), nil
	case "&":
		return isTruthy(left) && isTruthy(right), nil
	case "|":
		return isTruthy(left) || isTruthy(right), nil
	case "+":
		// a string on either side concatenates
		if s, ok := left.(string); ok {
			return s + FormatValue(right), nil
		}
		if s, ok := right.(string); ok {
			return FormatValue(left) + s, nil
		}
	}
	return arithmetic(left, op, right)
}

var orderings = map[string]func(c int) bool{
	"<":  func(c int) bool { return c < 0 },
	">":  func(c int) bool { return c > 0 },
	"<=": func(c int) bool { return c <= 0 },
	">=": func(c int) bool { return c >= 0 },
}

// arithmetic keeps integer results integral; division yields a float only
// when the quotient has a fraction.
func arithmetic(left interface{}, op string, right interface{}) (interface{}, error) {
	if op == "%" {
		a, aok := toInt(left)
		b, bok := toInt(right)
		if !aok || !bok {
			return nil, fmt.Errorf("modulo operation requires integers, got %T and %T", left, right)
		}
		if b == 0 {
			return nil, errors.New("modulo by zero")
		}
		return a % b, nil
	}

	a, aok := asNumber(left)
	b, bok := asNumber(right)
	if !aok || !bok {
		return nil, fmt.Errorf("cannot apply %s to %T and %T", op, left, right)
	}

	var r float64
	switch op {
	case "+":
		r = a.f + b.f
	case "-":
		r = a.f - b.f
	case "*":
		r = a.f * b.f
	case "/":
		if b.f == 0 {
			return nil, errors.New("division by zero")
		}
		r = a.f / b.f
	default:
		return nil, fmt.Errorf("unknown binary operator: %s", op)
	}

	if a.integral && b.integral && r == math.Trunc(r) {
		return int(r), nil
	}
	return r, nil
}

// evaluateEquals compares numbers by value across types. Strings equal only
// strings, and nil equals only nil.
func evaluateEquals(left, right interface{}) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	if a, ok := asNumber(left); ok {
		b, ok := asNumber(right)
		return ok && a.f == b.f
	}
	if _, ok := asNumber(right); ok {
		return false
	}

	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok || rok {
		return lok && rok && ls == rs
	}

	defer func() { recover() }() // uncomparable dynamic types
	return left == right
}

// compareValues orders two strings or two numbers.
func compareValues(left, right interface{}) (int, error) {
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			return strings.Compare(ls, rs), nil
		}
	}
	a, aok := asNumber(left)
	b, bok := asNumber(right)
	if !aok || !bok {
		return 0, fmt.Errorf("cannot compare %T and %T", left, right)
	}
	switch {
	case a.f < b.f:
		return -1, nil
	case a.f > b.f:
		return 1, nil
	}
	return 0, nil
}
