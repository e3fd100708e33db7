package cql

import (
	"fmt"
	"strings"

	"github.com/lgbarn/cql-go/internal/errors"
)

// tokenInfo describes every role a lexeme may play and the precedence it
// has in each role.
type tokenInfo struct {
	typ    TokenType
	kinds  TokenKind
	unary  Precedence
	binary Precedence
}

func binaryOp(p Precedence) tokenInfo { return tokenInfo{typ: OPERATOR, kinds: Binary, binary: p} }
func unaryOp(p Precedence) tokenInfo  { return tokenInfo{typ: OPERATOR, kinds: Unary, unary: p} }
func keyword() tokenInfo              { return tokenInfo{typ: KEYWORD, kinds: Operand} }
func delimiter(t TokenType) tokenInfo { return tokenInfo{typ: t} }

// tokenTable maps every fixed lexeme to its classification. It is built
// once at package initialisation and never modified.
var tokenTable = map[string]tokenInfo{
	// Delimiters
	"(": delimiter(LPAREN),
	")": delimiter(RPAREN),
	"{": delimiter(LBRACE),
	"}": delimiter(RBRACE),
	"]": delimiter(RBRACKET),

	// Logical
	"or":  binaryOp(POr),
	"and": binaryOp(PAnd),
	"not": unaryOp(PNot),

	// Assignment
	"=":  binaryOp(PAssign),
	"+=": binaryOp(PAssign),
	"-=": binaryOp(PAssign),
	"*=": binaryOp(PAssign),
	"/=": binaryOp(PAssign),
	"%=": binaryOp(PAssign),
	"|=": binaryOp(PAssign),
	"&=": binaryOp(PAssign),

	// Move filters take optional operands on either side
	"--":  binaryOp(PMove),
	"[x]": binaryOp(PMove),

	"in": binaryOp(PIn),

	// Comparison
	"==": binaryOp(PEquality),
	"!=": binaryOp(PEquality),
	"<":  binaryOp(PRelational),
	"<=": binaryOp(PRelational),
	">":  binaryOp(PRelational),
	">=": binaryOp(PRelational),

	// Sets
	"|":          binaryOp(PUnion),
	"&":          binaryOp(PIntersect),
	"attacks":    binaryOp(PAttack),
	"attackedby": binaryOp(PAttack),
	"~":          unaryOp(PComplement),
	"#":          unaryOp(PCount),

	// Arithmetic
	"+": binaryOp(PAdditive),
	"-": {typ: OPERATOR, kinds: Unary | Binary, unary: PNegate, binary: PAdditive},
	"*": binaryOp(PMultiplicative),
	"/": binaryOp(PMultiplicative),
	"%": binaryOp(PMultiplicative),

	":": binaryOp(PColon),

	// Transforms
	"flip":            unaryOp(PTransform),
	"flipvertical":    unaryOp(PTransform),
	"fliphorizontal":  unaryOp(PTransform),
	"flipcolor":       unaryOp(PTransform),
	"rotate90":        unaryOp(PTransform),
	"shift":           unaryOp(PTransform),
	"shifthorizontal": unaryOp(PTransform),
	"shiftvertical":   unaryOp(PTransform),

	// Structural keywords start special forms
	"function":   keyword(),
	"dictionary": keyword(),
	"persistent": keyword(),
	"quiet":      keyword(),
	"atomic":     keyword(),
	"unbind":     keyword(),
	"piece":      keyword(),
	"square":     keyword(),
	"if":         keyword(),
	"then":       {typ: KEYWORD},
	"else":       {typ: KEYWORD},
}

// filterKeywords lists the keyword filters and the type each produces.
var filterKeywords = map[string]FilterType{
	"check":           FilterLogical,
	"mate":            FilterLogical,
	"stalemate":       FilterLogical,
	"wtm":             FilterLogical,
	"btm":             FilterLogical,
	"initial":         FilterLogical,
	"terminal":        FilterLogical,
	"mainline":        FilterLogical,
	"true":            FilterLogical,
	"false":           FilterLogical,
	"ply":             FilterNumeric,
	"movenumber":      FilterNumeric,
	"currentposition": FilterPosition,
	"initialposition": FilterPosition,
	"player":          FilterString,
	"elo":             FilterNumeric,
}

// colourKeywords take a mandatory white/black argument.
var colourKeywords = map[string]bool{
	"player": true,
	"elo":    true,
}

func init() {
	for name := range filterKeywords {
		tokenTable[name] = keyword()
	}
}

func isValueKeyword(t Token) bool {
	if t.Type != KEYWORD {
		return false
	}
	_, ok := filterKeywords[t.Literal]
	return ok
}

func lookupToken(text string) (tokenInfo, bool) {
	info, ok := tokenTable[text]
	return info, ok
}

// Classify turns lexemes into parser tokens, resolving lexemes that can be
// either unary or binary from the token before them. The result always
// ends with an EOF token.
func Classify(lexemes []Lexeme) ([]Token, error) {
	tokens := make([]Token, 0, len(lexemes)+1)
	var prev Token
	hasPrev := false
	for _, lx := range lexemes {
		if lx.Type == EOF {
			break
		}
		tok, err := classify(lx, prev, hasPrev)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		prev, hasPrev = tok, true
	}
	end := Token{Type: EOF}
	if n := len(lexemes); n > 0 && lexemes[n-1].Type == EOF {
		last := lexemes[n-1]
		end.Pos, end.Line, end.Column = last.Pos, last.Line, last.Column
	}
	return append(tokens, end), nil
}

func classify(lx Lexeme, prev Token, hasPrev bool) (Token, error) {
	tok := Token{
		Type:    lx.Type,
		Literal: lx.Text,
		Pos:     lx.Pos,
		Line:    lx.Line,
		Column:  lx.Column,
	}

	switch lx.Type {
	case ILLEGAL:
		msg := "illegal character sequence"
		if strings.HasPrefix(lx.Text, "/*") {
			msg = "unterminated comment"
		}
		return tok, &errors.ParseError{
			Err:    fmt.Errorf("%s: %w", msg, errors.ErrCQLSyntax),
			Line:   lx.Line,
			Column: lx.Column,
			Got:    fmt.Sprintf("%q", lx.Text),
		}
	case NUMBER, STRING, DESIGNATOR, ANYSQUARE:
		tok.Kind = Operand
		return tok, nil
	case LINDEX:
		return tok, nil
	}

	info, ok := lookupToken(lx.Text)
	if !ok {
		if lx.Type == IDENT {
			tok.Kind = Operand
			return tok, nil
		}
		return tok, &errors.ParseError{
			Err:    fmt.Errorf("unknown operator: %w", errors.ErrCQLSyntax),
			Line:   lx.Line,
			Column: lx.Column,
			Got:    fmt.Sprintf("%q", lx.Text),
		}
	}

	tok.Type = info.typ
	switch {
	case info.kinds == Unary|Binary:
		if hasPrev && prev.endsOperand() {
			tok.Kind, tok.prec = Binary, info.binary
		} else {
			tok.Kind, tok.prec = Unary, info.unary
		}
	case info.kinds == Unary:
		tok.Kind, tok.prec = Unary, info.unary
	case info.kinds == Binary:
		tok.Kind, tok.prec = Binary, info.binary
	default:
		tok.Kind = info.kinds
	}
	return tok, nil
}
