package cql

import (
	"strings"

	"github.com/lgbarn/cql-go/internal/chess"
)

// parseKeyword parses a filter keyword or a structural form.
func (p *Parser) parseKeyword(tok Token) (Node, error) {
	switch tok.Literal {
	case "function":
		return p.parseFunction(tok)
	case "dictionary":
		return p.parseDictionary(tok)
	case "persistent", "atomic", "quiet":
		return p.parsePersistence(tok)
	case "piece", "square":
		return p.parseLoop(tok)
	case "if":
		return p.parseIf(tok)
	case "unbind":
		return p.parseUnbind(tok)
	}

	ft, ok := filterKeywords[tok.Literal]
	if !ok {
		return nil, p.errorf(tok, "unexpected keyword")
	}
	p.nextToken()

	node := &KeywordNode{span: span{tok.Pos}, Name: tok.Literal, Type: ft}
	if colourKeywords[tok.Literal] {
		arg := p.current()
		c, ok := chess.ParseColour(arg.Literal)
		if arg.Type != IDENT || !ok {
			return nil, p.expected(arg, "white or black after "+tok.Literal)
		}
		node.Arg = c.String()
		p.nextToken()
	}
	return node, nil
}

// parseFunction parses function NAME(PARAMS) { BODY }. The body is parsed
// once here with the registry read-only, and again at every call.
func (p *Parser) parseFunction(tok Token) (Node, error) {
	if p.inBody {
		return nil, p.errorf(tok, "function definitions cannot be nested")
	}
	p.nextToken()

	nameTok := p.current()
	if nameTok.Type != IDENT {
		return nil, p.expected(nameTok, "function name")
	}
	def, err := p.reg.Declare(nameTok.Literal, KindFunction)
	if err != nil {
		return nil, p.fail(nameTok, err)
	}
	fn := def.(*Function)
	p.nextToken()

	params, err := p.parseParameters()
	if err != nil {
		return nil, err
	}
	if err := fn.SetParameters(params); err != nil {
		return nil, p.fail(nameTok, err)
	}

	body, err := p.captureBody()
	if err != nil {
		return nil, err
	}
	fn.setBodyTokens(body)

	scope := make(map[string]Node, len(params))
	for _, name := range params {
		scope[name] = &VariableNode{span: span{nameTok.Pos}, Def: newVariable(name)}
	}

	p.reg.BeginBodyCollection()
	defer p.reg.EndBodyCollection()

	nodes, err := p.subParser(body, scope, fn.Name()).parseSequence(EOF)
	if err != nil {
		return nil, err
	}
	fn.AppendBody(nodes...)
	return &FunctionDefNode{span: span{tok.Pos}, Def: fn}, nil
}

func (p *Parser) parseParameters() ([]string, error) {
	if err := p.expect(LPAREN, "\"(\" after function name"); err != nil {
		return nil, err
	}

	params := []string{}
	seen := make(map[string]bool)
	for p.current().Type != RPAREN {
		tok := p.current()
		if tok.Type != IDENT {
			return nil, p.expected(tok, "parameter name")
		}
		if seen[tok.Literal] {
			return nil, p.errorf(tok, "duplicate parameter %q", tok.Literal)
		}
		seen[tok.Literal] = true
		params = append(params, tok.Literal)
		p.nextToken()
	}
	// Skip ')'
	p.nextToken()
	return params, nil
}

// captureBody consumes a braced body and returns its tokens, ending with
// an EOF token placed at the closing brace.
func (p *Parser) captureBody() ([]Token, error) {
	if p.current().Type != LBRACE {
		return nil, p.expected(p.current(), "\"{\" to start function body")
	}
	p.nextToken()

	start, depth := p.pos, 1
	for {
		tok := p.current()
		switch tok.Type {
		case EOF:
			return nil, p.expected(tok, "\"}\" to end function body")
		case LBRACE:
			depth++
		case RBRACE:
			depth--
		}
		if depth == 0 {
			break
		}
		p.nextToken()
	}

	end := p.current()
	body := make([]Token, 0, p.pos-start+1)
	body = append(body, p.tokens[start:p.pos]...)
	body = append(body, Token{Type: EOF, Pos: end.Pos, Line: end.Line, Column: end.Column})
	p.nextToken()
	return body, nil
}

// parseCall expands a call inline: the body is parsed again with each
// parameter bound to its argument.
func (p *Parser) parseCall(fn *Function, tok Token) (Node, error) {
	p.nextToken()
	if p.current().Type != LPAREN {
		return nil, p.expected(p.current(), "\"(\" after function "+fn.Name())
	}
	p.nextToken()

	var args []Node
	for p.current().Type != RPAREN {
		if p.current().Type == EOF {
			return nil, p.expected(p.current(), "\")\"")
		}
		arg, err := p.parseExpression(PLow)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	// Skip ')'
	p.nextToken()

	if len(args) != fn.Arity() {
		return nil, p.errorf(tok, "function %s takes %d arguments, got %d", fn.Name(), fn.Arity(), len(args))
	}
	for _, name := range p.calls {
		if name == fn.Name() {
			return nil, p.errorf(tok, "recursive call of %s (%s)", fn.Name(), strings.Join(append(p.calls, name), " -> "))
		}
	}
	if len(p.calls) >= p.opts.maxCallDepth {
		return nil, p.errorf(tok, "function calls nested deeper than %d", p.opts.maxCallDepth)
	}

	scope := make(map[string]Node, len(args))
	for i, name := range fn.Parameters() {
		scope[name] = args[i]
	}
	nodes, err := p.subParser(fn.BodyTokens(), scope, fn.Name()).parseSequence(EOF)
	if err != nil {
		return nil, err
	}

	var expansion Node = &CompoundNode{span: span{tok.Pos}, Children: nodes}
	if len(nodes) == 1 {
		expansion = nodes[0]
	}
	if !p.reg.Collecting() {
		p.opts.logger.Debug("expanded function", "name", fn.Name(), "args", len(args), "depth", len(p.calls)+1)
	}
	return &FunctionCallNode{span: span{tok.Pos}, Def: fn, Args: args, Expansion: expansion}, nil
}

// parseDictionary parses dictionary NAME, optionally followed by an index.
func (p *Parser) parseDictionary(tok Token) (Node, error) {
	p.nextToken()

	nameTok := p.current()
	if nameTok.Type != IDENT {
		return nil, p.expected(nameTok, "dictionary name")
	}
	def, err := p.reg.Declare(nameTok.Literal, KindDictionary)
	if err != nil {
		return nil, p.fail(nameTok, err)
	}
	dict := def.(*Dictionary)
	if err := p.reg.LockPersistence(dict, Persistent); err != nil {
		return nil, p.fail(nameTok, err)
	}

	if p.peek().Type == LINDEX {
		return p.parseIndex(dict, nameTok)
	}
	p.nextToken()
	return &DictionaryDeclNode{span: span{tok.Pos}, Def: dict}, nil
}

// parsePersistence parses persistent [quiet], atomic or quiet applied to
// an assignment, and locks the persistence of its target.
func (p *Parser) parsePersistence(tok Token) (Node, error) {
	p.nextToken()

	var persistence PersistenceType
	switch tok.Literal {
	case "persistent":
		persistence = Persistent
		if p.isKeyword("quiet") {
			persistence |= Quiet
			p.nextToken()
		}
	case "atomic":
		persistence = Atomic
	case "quiet":
		persistence = Quiet
	}

	node, err := p.parseExpression(PNot)
	if err != nil {
		return nil, err
	}
	assign, ok := node.(*AssignNode)
	if !ok {
		return nil, p.errorf(tok, "%s must be followed by an assignment", tok.Literal)
	}

	var def TypedDefinition
	switch target := assign.Target.(type) {
	case *VariableNode:
		def = target.Def
	case *IndexNode:
		def = target.Dict
	}
	if err := p.reg.LockPersistence(def, persistence); err != nil {
		return nil, p.fail(tok, err)
	}
	assign.Persistence = persistence
	return assign, nil
}

// parseLoop parses piece X in SET BODY or square X in SET BODY.
func (p *Parser) parseLoop(tok Token) (Node, error) {
	p.nextToken()

	nameTok := p.current()
	if nameTok.Type != IDENT {
		return nil, p.expected(nameTok, "loop variable after "+tok.Literal)
	}
	def, err := p.reg.Declare(nameTok.Literal, KindVariable)
	if err != nil {
		return nil, p.fail(nameTok, err)
	}
	v := def.(*Variable)
	p.nextToken()

	if !p.isOperator("in") {
		return nil, p.expected(p.current(), "\"in\"")
	}
	p.nextToken()

	domain, err := p.parseExpression(PHigh)
	if err != nil {
		return nil, err
	}
	if err := p.require(domain, FilterSet, tok); err != nil {
		return nil, err
	}

	vt := VarSet
	if tok.Literal == "piece" {
		vt = VarPiece
	}
	if !p.reg.IsVariableType(v, vt) {
		return nil, p.errorf(nameTok, "%s is a %s variable, not %s", v.Name(), v.VariableType(), vt)
	}
	if err := p.reg.LockVariableType(v, vt); err != nil {
		return nil, p.fail(nameTok, err)
	}
	if err := p.reg.LockFilterType(v, FilterSet); err != nil {
		return nil, p.fail(nameTok, err)
	}

	body, err := p.parseExpression(PLow)
	if err != nil {
		return nil, err
	}
	return &LoopNode{span: span{tok.Pos}, Kind: tok.Literal, Var: v, Domain: domain, Body: body}, nil
}

func (p *Parser) parseIf(tok Token) (Node, error) {
	p.nextToken()

	cond, err := p.parseExpression(PLow)
	if err != nil {
		return nil, err
	}
	if !p.isKeyword("then") {
		return nil, p.expected(p.current(), "\"then\"")
	}
	p.nextToken()

	node := &IfNode{span: span{tok.Pos}, Cond: cond}
	if node.Then, err = p.parseExpression(PLow); err != nil {
		return nil, err
	}
	if p.isKeyword("else") {
		p.nextToken()
		if node.Else, err = p.parseExpression(PLow); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (p *Parser) parseUnbind(tok Token) (Node, error) {
	p.nextToken()

	nameTok := p.current()
	if nameTok.Type != IDENT {
		return nil, p.expected(nameTok, "name after unbind")
	}
	if !p.reg.Collecting() && !p.reg.Unbind(nameTok.Literal) {
		return nil, p.errorf(nameTok, "unbind of undefined name %q", nameTok.Literal)
	}
	p.nextToken()
	return &UnbindNode{span: span{tok.Pos}, Name: nameTok.Literal}, nil
}
