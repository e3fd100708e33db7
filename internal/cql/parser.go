package cql

import (
	"fmt"
	"strconv"

	"github.com/lgbarn/cql-go/internal/errors"
)

// Parser turns a classified token stream into an AST by precedence
// climbing, declaring and type-locking names in its registry as it goes.
type Parser struct {
	tokens []Token
	pos    int
	reg    *Registry
	opts   options

	scope  map[string]Node // function parameters bound at this level
	calls  []string        // functions being expanded, outermost first
	inBody bool            // parsing a function body
}

func newParser(tokens []Token, reg *Registry, opts options) *Parser {
	return &Parser{tokens: tokens, reg: reg, opts: opts}
}

// subParser parses a function body with its own parameter scope.
func (p *Parser) subParser(tokens []Token, scope map[string]Node, fn string) *Parser {
	calls := append(append([]string(nil), p.calls...), fn)
	return &Parser{
		tokens: tokens,
		reg:    p.reg,
		opts:   p.opts,
		scope:  scope,
		calls:  calls,
		inBody: true,
	}
}

func (p *Parser) current() Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) nextToken() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *Parser) isKeyword(word string) bool {
	tok := p.current()
	return tok.Type == KEYWORD && tok.Literal == word
}

func (p *Parser) isOperator(op string) bool {
	tok := p.current()
	return tok.Type == OPERATOR && tok.Literal == op
}

// expect consumes a token of type t or fails naming what was wanted.
func (p *Parser) expect(t TokenType, want string) error {
	if p.current().Type != t {
		return p.expected(p.current(), want)
	}
	p.nextToken()
	return nil
}

// parseSequence parses filters until the stop token, which is not consumed.
func (p *Parser) parseSequence(stop TokenType) ([]Node, error) {
	var nodes []Node
	for p.current().Type != stop {
		if p.current().Type == EOF {
			return nil, p.expected(p.current(), "\"}\"")
		}
		node, err := p.parseExpression(PLow)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// parseExpression parses an operand followed by every binary operator that
// binds tighter than rbp. PLow accepts all operators; PHigh accepts none.
func (p *Parser) parseExpression(rbp Precedence) (Node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		if tok.Kind != Binary || tok.Precedence() <= rbp || startsFilter(left, tok) {
			return left, nil
		}
		if left, err = p.parseInfix(left, tok); err != nil {
			return nil, err
		}
	}
}

// startsFilter reports whether an operator whose left operand may be
// omitted cannot take left, and so begins the next filter instead.
func startsFilter(left Node, tok Token) bool {
	var want FilterType
	switch tok.Literal {
	case "--", "[x]":
		want = FilterSet
	case ":":
		want = FilterPosition
	default:
		return false
	}
	t := left.FilterType()
	return t.IsConcrete() && t != want
}

func (p *Parser) parseOperand() (Node, error) {
	tok := p.current()
	switch tok.Type {
	case NUMBER:
		val, err := strconv.Atoi(tok.Literal)
		if err != nil {
			return nil, p.errorf(tok, "invalid number")
		}
		p.nextToken()
		return &NumberNode{span: span{tok.Pos}, Value: val}, nil
	case STRING:
		p.nextToken()
		return &StringNode{span: span{tok.Pos}, Value: tok.Literal}, nil
	case DESIGNATOR:
		return p.parseDesignator(tok)
	case ANYSQUARE:
		p.nextToken()
		return &AnySquareNode{span: span{tok.Pos}}, nil
	case LPAREN:
		return p.parseParen()
	case LBRACE:
		return p.parseCompound()
	case IDENT:
		return p.parseName(tok)
	case KEYWORD:
		return p.parseKeyword(tok)
	case OPERATOR:
		return p.parsePrefix(tok)
	}
	return nil, p.expected(tok, "filter")
}

func (p *Parser) parseDesignator(tok Token) (Node, error) {
	var (
		d  *PieceDesignator
		ok bool
	)
	if p.opts.cache != nil {
		d, ok = p.opts.cache.Get(tok.Literal)
	} else {
		d, ok = NewPieceDesignator(tok.Literal)
	}
	if !ok {
		return nil, p.fail(tok, errors.ErrDesignator)
	}
	d.Expand()
	if !d.SquareRangesValid() {
		if p.opts.strictRanges {
			return nil, p.fail(tok, fmt.Errorf("reversed square range: %w", errors.ErrDesignator))
		}
		p.opts.logger.Warn("reversed square range", "designator", tok.Literal, "line", tok.Line, "column", tok.Column)
	}
	p.nextToken()
	return &DesignatorNode{span: span{tok.Pos}, Designator: d}, nil
}

func (p *Parser) parseParen() (Node, error) {
	// Skip '('
	p.nextToken()

	node, err := p.parseExpression(PLow)
	if err != nil {
		return nil, err
	}
	if err := p.expect(RPAREN, "\")\""); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseCompound() (Node, error) {
	start := p.current()
	// Skip '{'
	p.nextToken()

	children, err := p.parseSequence(RBRACE)
	if err != nil {
		return nil, err
	}
	p.nextToken()
	return &CompoundNode{span: span{start.Pos}, Children: children}, nil
}

// parsePrefix handles an operator in operand position: a unary operator,
// or a binary operator whose left operand may be omitted.
func (p *Parser) parsePrefix(tok Token) (Node, error) {
	if tok.Kind == Unary {
		return p.parseUnary(tok)
	}
	switch tok.Literal {
	case "--", "[x]":
		return p.parseMove(&AnySquareNode{span: span{tok.Pos}, Implicit: true}, tok)
	case ":":
		here := &KeywordNode{span: span{tok.Pos}, Name: "currentposition", Type: FilterPosition, Implicit: true}
		return p.parseColon(here, tok)
	}
	return nil, p.errorf(tok, "missing left operand")
}

func (p *Parser) parseUnary(tok Token) (Node, error) {
	p.nextToken()
	operand, err := p.parseExpression(tok.Precedence())
	if err != nil {
		return nil, err
	}

	at := span{tok.Pos}
	switch tok.Literal {
	case "not":
		return &UnaryNode{span: at, Op: tok.Literal, Operand: operand, Type: FilterLogical}, nil
	case "~":
		if err := p.require(operand, FilterSet, tok); err != nil {
			return nil, err
		}
		return &UnaryNode{span: at, Op: tok.Literal, Operand: operand, Type: FilterSet}, nil
	case "#":
		if err := p.require(operand, FilterSet, tok); err != nil {
			return nil, err
		}
		return &UnaryNode{span: at, Op: tok.Literal, Operand: operand, Type: FilterNumeric}, nil
	case "-":
		if err := p.require(operand, FilterNumeric, tok); err != nil {
			return nil, err
		}
		return &UnaryNode{span: at, Op: tok.Literal, Operand: operand, Type: FilterNumeric}, nil
	}

	node := &TransformNode{span: at, Name: tok.Literal, Operand: operand}
	switch tok.Literal {
	case "shift", "shifthorizontal", "shiftvertical":
		node.Shift = newShiftRange(tok.Literal, operand)
	}
	return node, nil
}

func (p *Parser) parseInfix(left Node, tok Token) (Node, error) {
	switch tok.Literal {
	case "=", "+=", "-=", "*=", "/=", "%=", "|=", "&=":
		return p.parseAssign(left, tok)
	case "--", "[x]":
		return p.parseMove(left, tok)
	case ":":
		return p.parseColon(left, tok)
	}

	p.nextToken()
	right, err := p.parseExpression(tok.Precedence())
	if err != nil {
		return nil, err
	}

	node := &BinaryNode{span: span{left.Pos()}, Op: tok.Literal, Left: left, Right: right}
	switch tok.Literal {
	case "and", "or":
		node.Type = FilterLogical
	case "|", "&", "attacks", "attackedby":
		if err := p.requireAll(FilterSet, tok, left, right); err != nil {
			return nil, err
		}
		node.Type = FilterSet
	case "in":
		if err := p.requireAll(FilterSet, tok, left, right); err != nil {
			return nil, err
		}
		node.Type = FilterLogical
	case "+":
		if node.Type, err = p.unify(left, right, FilterNumeric|FilterString, tok); err != nil {
			return nil, err
		}
	case "-", "*", "/", "%":
		if err := p.requireAll(FilterNumeric, tok, left, right); err != nil {
			return nil, err
		}
		node.Type = FilterNumeric
	case "==", "!=", "<", "<=", ">", ">=":
		if _, err := p.unify(left, right, FilterNumeric|FilterString, tok); err != nil {
			return nil, err
		}
		node.Type = FilterLogical
	default:
		return nil, p.errorf(tok, "unsupported operator")
	}
	return node, nil
}

// parseMove parses a move filter. The left operand has already been
// parsed or synthesized; the right one is present only if the next token
// can start a set.
func (p *Parser) parseMove(from Node, tok Token) (Node, error) {
	if err := p.require(from, FilterSet, tok); err != nil {
		return nil, err
	}
	p.nextToken()

	var to Node = &AnySquareNode{span: span{p.current().Pos}, Implicit: true}
	if p.startsSet() {
		var err error
		if to, err = p.parseExpression(PMove); err != nil {
			return nil, err
		}
		if err := p.require(to, FilterSet, tok); err != nil {
			return nil, err
		}
	}
	return &MoveNode{span: span{from.Pos()}, Op: tok.Literal, From: from, To: to}, nil
}

// startsSet reports whether the current token begins a set operand. Names
// whose type is still open count, so that using them here can fix it.
func (p *Parser) startsSet() bool {
	tok := p.current()
	switch tok.Type {
	case DESIGNATOR, ANYSQUARE, LPAREN, LBRACE:
		return true
	case OPERATOR:
		return tok.Literal == "~"
	case IDENT:
		if n, ok := p.scope[tok.Literal]; ok {
			return n.FilterType()&FilterSet != 0
		}
		switch def := p.reg.Lookup(tok.Literal).(type) {
		case nil, *Function:
			return true
		case TypedDefinition:
			return def.FilterType()&FilterSet != 0
		}
	}
	return false
}

func (p *Parser) parseColon(position Node, tok Token) (Node, error) {
	if err := p.require(position, FilterPosition, tok); err != nil {
		return nil, err
	}
	p.nextToken()

	filter, err := p.parseExpression(PColon)
	if err != nil {
		return nil, err
	}
	return &ColonNode{span: span{position.Pos()}, Position: position, Filter: filter}, nil
}

func (p *Parser) parseAssign(target Node, tok Token) (Node, error) {
	p.nextToken()
	// Right associative
	value, err := p.parseExpression(PAssign - 1)
	if err != nil {
		return nil, err
	}

	switch target.(type) {
	case *VariableNode, *IndexNode:
	default:
		return nil, p.errorf(tok, "cannot assign to %s", target)
	}

	vt := value.FilterType()
	if vt == FilterLogical {
		return nil, p.errorf(tok, "cannot assign a logical value")
	}

	switch tok.Literal {
	case "=":
		if _, err := p.unify(target, value, FilterSet|FilterNumeric|FilterString|FilterPosition, tok); err != nil {
			return nil, err
		}
	case "+=":
		if _, err := p.unify(target, value, FilterNumeric|FilterString, tok); err != nil {
			return nil, err
		}
	case "|=", "&=":
		if err := p.requireAll(FilterSet, tok, target, value); err != nil {
			return nil, err
		}
	default:
		if err := p.requireAll(FilterNumeric, tok, target, value); err != nil {
			return nil, err
		}
	}
	return &AssignNode{span: span{target.Pos()}, Op: tok.Literal, Target: target, Value: value}, nil
}

// parseName resolves an identifier: a bound parameter, a function call, a
// dictionary index or a variable. Unknown names become variables.
func (p *Parser) parseName(tok Token) (Node, error) {
	name := tok.Literal
	if n, ok := p.scope[name]; ok {
		p.nextToken()
		return n, nil
	}

	switch def := p.reg.Lookup(name).(type) {
	case *Function:
		return p.parseCall(def, tok)
	case *Dictionary:
		return p.parseIndex(def, tok)
	case *Variable:
		p.nextToken()
		return &VariableNode{span: span{tok.Pos}, Def: def}, nil
	}

	next := p.peek()
	switch {
	case next.Type == LPAREN && tok.adjacent(next):
		return nil, p.errorf(tok, "undefined function %q", name)
	case next.Type == LINDEX:
		return nil, p.errorf(tok, "undefined dictionary %q", name)
	}

	def, err := p.reg.Declare(name, KindVariable)
	if err != nil {
		return nil, p.fail(tok, err)
	}
	p.nextToken()
	return &VariableNode{span: span{tok.Pos}, Def: def.(*Variable)}, nil
}

func (p *Parser) parseIndex(dict *Dictionary, tok Token) (Node, error) {
	p.nextToken()
	if err := p.expect(LINDEX, "\"[\" after dictionary "+dict.Name()); err != nil {
		return nil, err
	}

	key, err := p.parseExpression(PLow)
	if err != nil {
		return nil, err
	}
	if err := p.expect(RBRACKET, "\"]\""); err != nil {
		return nil, err
	}

	kt := key.FilterType()
	switch {
	case kt.IsConcrete():
		if err := p.reg.LockKeyType(dict, kt); err != nil {
			return nil, p.fail(tok, err)
		}
	case dict.KeyType().IsConcrete():
		if err := p.lockNode(key, dict.KeyType(), tok); err != nil {
			return nil, err
		}
	}
	return &IndexNode{span: span{tok.Pos}, Dict: dict, Key: key}, nil
}

// require checks that n produces one of the types in want. An operand
// whose type is still open is locked to want when want is a single type.
func (p *Parser) require(n Node, want FilterType, tok Token) error {
	got := n.FilterType()
	if got&want == 0 {
		return p.typeError(tok, want, got)
	}
	if !got.IsConcrete() && want.IsConcrete() {
		return p.lockNode(n, want, tok)
	}
	return nil
}

func (p *Parser) requireAll(want FilterType, tok Token, nodes ...Node) error {
	for _, n := range nodes {
		if err := p.require(n, want, tok); err != nil {
			return err
		}
	}
	return nil
}

// unify makes both operands share one type from allowed. When neither
// type is known yet they are taken to be numeric.
func (p *Parser) unify(left, right Node, allowed FilterType, tok Token) (FilterType, error) {
	lt, rt := left.FilterType(), right.FilterType()
	var t FilterType
	switch {
	case lt.IsConcrete():
		t = lt
	case rt.IsConcrete():
		t = rt
	case allowed&FilterNumeric != 0:
		t = FilterNumeric
	default:
		return FilterAny, nil
	}
	if t&allowed == 0 {
		return 0, p.typeError(tok, allowed, t)
	}
	if err := p.requireAll(t, tok, left, right); err != nil {
		return 0, err
	}
	return t, nil
}

// lockNode fixes the type of the definition behind n.
func (p *Parser) lockNode(n Node, t FilterType, tok Token) error {
	var err error
	switch n := n.(type) {
	case *VariableNode:
		err = p.lockVariable(n.Def, t)
	case *IndexNode:
		err = p.reg.LockFilterType(n.Dict, t)
	case *ColonNode:
		return p.lockNode(n.Filter, t, tok)
	case *TransformNode:
		return p.lockNode(n.Operand, t, tok)
	case *FunctionCallNode:
		return p.lockNode(n.Expansion, t, tok)
	case *CompoundNode:
		if len(n.Children) > 0 {
			return p.lockNode(n.Children[len(n.Children)-1], t, tok)
		}
	}
	if err != nil {
		return p.fail(tok, err)
	}
	return nil
}

// lockVariable fixes both types of v from the filter type of its value.
// A piece variable keeps its variable type when given a set.
func (p *Parser) lockVariable(v *Variable, t FilterType) error {
	if err := p.reg.LockFilterType(v, t); err != nil {
		return err
	}
	if v.VariableType() == VarPiece && t == FilterSet {
		return nil
	}
	if vt, ok := variableTypeFor(t); ok {
		return p.reg.LockVariableType(v, vt)
	}
	return nil
}

func (p *Parser) location(tok Token) *errors.ParseError {
	return &errors.ParseError{File: p.opts.fileName, Line: tok.Line, Column: tok.Column}
}

// errorf reports a syntax error at tok.
func (p *Parser) errorf(tok Token, format string, args ...interface{}) error {
	e := p.location(tok)
	e.Got = tok.describe()
	e.Err = fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errors.ErrCQLSyntax)
	return e
}

// expected reports that tok appeared where want was required.
func (p *Parser) expected(tok Token, want string) error {
	e := p.location(tok)
	e.Expected, e.Got = want, tok.describe()
	e.Err = errors.ErrCQLSyntax
	return e
}

func (p *Parser) typeError(tok Token, want, got FilterType) error {
	e := p.location(tok)
	e.Expected, e.Got = want.String()+" operand", got.String()
	e.Err = fmt.Errorf("operator %q: %w", tok.Literal, errors.ErrCQLSyntax)
	return e
}

// fail attaches the location of tok to err, typically a DefinitionError.
func (p *Parser) fail(tok Token, err error) error {
	e := p.location(tok)
	e.Err = err
	return e
}

// withFile sets the file name on a lexing or classification error.
func withFile(err error, name string) error {
	var pe *errors.ParseError
	if name != "" && errors.As(err, &pe) {
		pe.File = name
	}
	return err
}
