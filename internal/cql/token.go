package cql

import (
	"fmt"
	"strings"
)

// TokenType is the lexical category of a token.
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACE   // {
	RBRACE   // }
	LINDEX   // [ directly after a dictionary name
	RBRACKET // ]

	// Literals
	IDENT      // x, count, myFunction
	NUMBER     // 0, 1, 42
	STRING     // "Carlsen"
	DESIGNATOR // K, Ra-h2, [Kk]a5, [a1,b2]
	ANYSQUARE  // .

	// Words and symbols with a fixed meaning
	KEYWORD  // check, function, persistent, ...
	OPERATOR // and, --, [x], :, +, ...
)

var tokenNames = map[TokenType]string{
	ILLEGAL:    "ILLEGAL",
	EOF:        "EOF",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	LINDEX:     "LINDEX",
	RBRACKET:   "RBRACKET",
	IDENT:      "IDENT",
	NUMBER:     "NUMBER",
	STRING:     "STRING",
	DESIGNATOR: "DESIGNATOR",
	ANYSQUARE:  "ANYSQUARE",
	KEYWORD:    "KEYWORD",
	OPERATOR:   "OPERATOR",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// TokenKind is the syntactic role of a token. It is a bit set so that the
// classifier table can record lexemes usable in more than one role; a
// classified token carries exactly one of Unary and Binary. Delimiters
// carry the empty set.
type TokenKind uint8

const (
	Operand TokenKind = 1 << iota
	Unary
	Binary
)

// Has reports whether k includes every role in other.
func (k TokenKind) Has(other TokenKind) bool {
	return other != 0 && k&other == other
}

func (k TokenKind) String() string {
	if k == 0 {
		return "Delimiter"
	}
	var parts []string
	for _, c := range []struct {
		kind TokenKind
		name string
	}{{Operand, "Operand"}, {Unary, "Unary"}, {Binary, "Binary"}} {
		if k&c.kind != 0 {
			parts = append(parts, c.name)
		}
	}
	return strings.Join(parts, "|")
}

// Token is a classified lexeme ready for the parser.
type Token struct {
	Type    TokenType
	Kind    TokenKind
	Literal string
	Pos     int // Byte offset in input
	Line    int
	Column  int

	prec Precedence
}

// NewOperatorToken builds an operator token for callers that produce their
// own token streams.
func NewOperatorToken(literal string, kind TokenKind, prec Precedence) Token {
	return Token{Type: OPERATOR, Kind: kind, Literal: literal, prec: prec}
}

// Precedence returns the binding strength of an operator token. Operands
// and delimiters have no precedence; asking for one is a programming error.
func (t Token) Precedence() Precedence {
	if !t.HasPrecedence() {
		panic(fmt.Sprintf("cql: token %s %q has no precedence", t.Kind, t.Literal))
	}
	return t.prec
}

// HasPrecedence reports whether the token is a unary or binary operator.
func (t Token) HasPrecedence() bool {
	return t.Kind&(Unary|Binary) != 0
}

// BindsTighter reports whether t binds tighter than u. Both tokens must be
// operators of the same kind; unary and binary precedences are not
// comparable.
func (t Token) BindsTighter(u Token) bool {
	if t.Kind != u.Kind {
		panic(fmt.Sprintf("cql: cannot compare precedence of %s %q with %s %q", t.Kind, t.Literal, u.Kind, u.Literal))
	}
	return t.Precedence().Compare(u.Precedence()) > 0
}

// endsOperand reports whether a token can be the last token of an operand,
// which makes a following ambiguous symbol binary.
func (t Token) endsOperand() bool {
	switch t.Type {
	case RPAREN, RBRACE, RBRACKET:
		return true
	}
	return t.Kind == Operand && t.Type != KEYWORD || isValueKeyword(t)
}

// adjacent reports whether next starts immediately after t in the source.
func (t Token) adjacent(next Token) bool {
	return t.Pos+len(t.Literal) == next.Pos
}

// describe renders the token for error messages.
func (t Token) describe() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case STRING:
		return fmt.Sprintf("string %q", t.Literal)
	}
	return fmt.Sprintf("%q", t.Literal)
}

func (t Token) String() string {
	if t.HasPrecedence() {
		return fmt.Sprintf("%s(%s %q @%s)", t.Type, t.Kind, t.Literal, t.prec)
	}
	return fmt.Sprintf("%s(%s %q)", t.Type, t.Kind, t.Literal)
}
