package cql

import (
	"io"
	"log/slog"
)

// DefaultMaxCallDepth bounds nested function expansion.
const DefaultMaxCallDepth = 16

type options struct {
	logger       *slog.Logger
	strictRanges bool
	maxCallDepth int
	cache        *DesignatorCache
	fileName     string
}

// Option configures parsing and compilation.
type Option func(*options)

// WithLogger sets the logger for declaration, type-lock and expansion
// events. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStrictRanges makes a reversed square range such as c-a a parse
// error instead of a warning.
func WithStrictRanges(strict bool) Option {
	return func(o *options) { o.strictRanges = strict }
}

// WithMaxCallDepth limits how deeply function calls may nest.
func WithMaxCallDepth(depth int) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxCallDepth = depth
		}
	}
}

// WithDesignatorCache shares designator expansion across compilations.
func WithDesignatorCache(cache *DesignatorCache) Option {
	return func(o *options) { o.cache = cache }
}

// WithFileName sets the file name reported in parse errors.
func WithFileName(name string) Option {
	return func(o *options) { o.fileName = name }
}

func newOptions(opts []Option) options {
	o := options{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxCallDepth: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Query is a compiled query: the AST root and the registry holding the
// resolved types of every name it declares.
type Query struct {
	Root     Node
	Registry *Registry
	Tokens   []Token
}

// Compile lexes, classifies and parses input with a fresh registry, then
// finalizes the registry. No partial result is returned on failure.
func Compile(input string, opts ...Option) (*Query, error) {
	o := newOptions(opts)
	tokens, err := Classify(Lex(input))
	if err != nil {
		return nil, withFile(err, o.fileName)
	}

	reg := NewRegistry(o.logger)
	root, err := ParseTokens(tokens, reg, opts...)
	if err != nil {
		return nil, err
	}
	if err := reg.Finalize(); err != nil {
		return nil, err
	}
	return &Query{Root: root, Registry: reg, Tokens: tokens}, nil
}

// Parse parses input with a fresh registry without finalizing it.
func Parse(input string, opts ...Option) (Node, error) {
	o := newOptions(opts)
	tokens, err := Classify(Lex(input))
	if err != nil {
		return nil, withFile(err, o.fileName)
	}
	return ParseTokens(tokens, NewRegistry(o.logger), opts...)
}

// ParseTokens parses an already classified token stream, declaring names
// in reg. A query of several filters yields a CompoundNode.
func ParseTokens(tokens []Token, reg *Registry, opts ...Option) (Node, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != EOF {
		tokens = append(tokens[:len(tokens):len(tokens)], Token{Type: EOF})
	}
	p := newParser(tokens, reg, newOptions(opts))

	nodes, err := p.parseSequence(EOF)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, p.errorf(p.current(), "empty query")
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return &CompoundNode{span: span{nodes[0].Pos()}, Children: nodes}, nil
}
