// Package cql implements the Chess Query Language front end: lexing, token
// classification, piece designators, the definition registry and the
// precedence parser that produces a typed AST.
package cql

import (
	"regexp"
	"strings"
)

// Lexeme is a raw source fragment before classification.
type Lexeme struct {
	Type   TokenType
	Text   string
	Pos    int // Byte offset in input
	Line   int
	Column int
}

// designatorPrefix finds the longest piece designator at the start of the
// remaining input. Leftmost-longest matching is required because both
// components are optional: "a5" must not stop after the piece letter "a".
var designatorPrefix = func() *regexp.Regexp {
	re := regexp.MustCompile(`^` + designatorGrammar)
	re.Longest()
	return re
}()

// symbols lists operator spellings, longest first.
var symbols = []string{
	"[x]",
	"--", "+=", "-=", "*=", "/=", "%=", "|=", "&=", "==", "!=", "<=", ">=",
	"=", "<", ">", "|", "&", "~", "#", "+", "-", "*", "/", "%", ":",
}

// Lexer splits CQL text into lexemes.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // next reading position
	ch        byte // current character
	line      int
	lineStart int

	prev Lexeme // last lexeme returned
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) skip(n int) {
	for i := 0; i < n; i++ {
		l.readChar()
	}
}

// skipWhitespaceAndComments advances to the next lexeme. It returns false
// with the position of the opening "/*" if a block comment is never closed;
// the input is then consumed to the end.
func (l *Lexer) skipWhitespaceAndComments() (Lexeme, bool) {
	for {
		switch {
		case isWhitespace(l.ch):
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			open := l.here()
			l.skip(2)
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch == 0 {
				return open, false
			}
			l.skip(2)
		default:
			return Lexeme{}, true
		}
	}
}

// here returns an empty lexeme positioned at the current character.
func (l *Lexer) here() Lexeme {
	return Lexeme{Pos: l.pos, Line: l.line, Column: l.pos - l.lineStart + 1}
}

// Next returns the next lexeme from the input.
func (l *Lexer) Next() Lexeme {
	if open, ok := l.skipWhitespaceAndComments(); !ok {
		open.Type, open.Text = ILLEGAL, l.input[open.Pos:]
		l.prev = open
		return open
	}

	lx := l.here()
	rest := l.input[l.pos:]

	switch {
	case l.ch == 0:
		lx.Type = EOF
	case l.ch == '"':
		lx = l.readString(lx)
	case isDigit(l.ch):
		lx.Type, lx.Text = NUMBER, l.readWhile(isDigit)
	case l.ch == '[':
		lx = l.readBracket(lx, rest)
	case l.ch == ']':
		lx.Type, lx.Text = RBRACKET, "]"
		l.readChar()
	case l.ch == '.':
		lx.Type, lx.Text = ANYSQUARE, "."
		l.readChar()
	case l.ch == '(' || l.ch == ')' || l.ch == '{' || l.ch == '}':
		lx.Text = string(l.ch)
		lx.Type = tokenTable[lx.Text].typ
		l.readChar()
	case isIdentStart(l.ch):
		lx = l.readWord(lx, rest)
	default:
		lx = l.readSymbol(lx, rest)
	}

	l.prev = lx
	return lx
}

// Lex splits the whole input into lexemes, ending with EOF.
func Lex(input string) []Lexeme {
	l := NewLexer(input)
	var out []Lexeme
	for {
		lx := l.Next()
		out = append(out, lx)
		if lx.Type == EOF {
			return out
		}
	}
}

func (l *Lexer) readWhile(pred func(byte) bool) string {
	start := l.pos
	for l.ch != 0 && pred(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readString(lx Lexeme) Lexeme {
	// Skip opening quote
	l.readChar()

	var b strings.Builder
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' && l.peekChar() == '"' {
			l.readChar()
		}
		b.WriteByte(l.ch)
		l.readChar()
	}

	if l.ch != '"' {
		lx.Type, lx.Text = ILLEGAL, l.input[lx.Pos:l.pos]
		return lx
	}

	// Skip closing quote
	l.readChar()
	lx.Type, lx.Text = STRING, b.String()
	return lx
}

// readBracket handles the three meanings of '[': a dictionary index right
// after a name, the take move filter, or the start of a piece designator.
func (l *Lexer) readBracket(lx Lexeme, rest string) Lexeme {
	if l.prev.Type == IDENT && l.prev.Pos+len(l.prev.Text) == l.pos {
		l.readChar()
		lx.Type, lx.Text = LINDEX, "["
		return lx
	}
	if strings.HasPrefix(rest, "[x]") {
		l.skip(3)
		lx.Type, lx.Text = OPERATOR, "[x]"
		return lx
	}
	if m := designatorPrefix.FindString(rest); m != "" {
		l.skip(len(m))
		lx.Type, lx.Text = DESIGNATOR, m
		return lx
	}
	// Consume up to the closing bracket so the error names the bad text.
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		end = len(rest) - 1
	}
	l.skip(end + 1)
	lx.Type, lx.Text = ILLEGAL, rest[:end+1]
	return lx
}

// readWord reads a piece designator if one starts here and is not followed
// by more identifier characters, and an identifier otherwise.
func (l *Lexer) readWord(lx Lexeme, rest string) Lexeme {
	if m := designatorPrefix.FindString(rest); m != "" {
		if len(m) == len(rest) || !isIdentChar(rest[len(m)]) {
			l.skip(len(m))
			lx.Type, lx.Text = DESIGNATOR, m
			return lx
		}
	}
	lx.Type, lx.Text = IDENT, l.readWhile(isIdentChar)
	return lx
}

func (l *Lexer) readSymbol(lx Lexeme, rest string) Lexeme {
	for _, sym := range symbols {
		if strings.HasPrefix(rest, sym) {
			l.skip(len(sym))
			lx.Type, lx.Text = OPERATOR, sym
			return lx
		}
	}
	lx.Type, lx.Text = ILLEGAL, string(l.ch)
	l.readChar()
	return lx
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentStart(ch byte) bool {
	return isLetter(ch) || ch == '_'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
