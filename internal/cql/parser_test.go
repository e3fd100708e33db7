package cql

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/lgbarn/cql-go/internal/errors"
	"github.com/lgbarn/cql-go/internal/testutil"
)

func mustCompile(t *testing.T, input string, opts ...Option) *Query {
	t.Helper()
	q, err := Compile(input, opts...)
	if err != nil {
		t.Fatalf("Compile(%q): %v", input, err)
	}
	return q
}

func TestParserAST(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		typ      FilterType
	}{
		{"check", "check", FilterLogical},
		{"Kb2", "Kb2", FilterSet},
		{"x = 3", "(= x 3)", FilterLogical},
		{"Ka1 -- b2", "(-- Ka1 b2)", FilterLogical},
		{"-- b2", "(-- . b2)", FilterLogical},
		{"Ka1 --", "(-- Ka1 .)", FilterLogical},
		{"Q [x] r", "([x] Q r)", FilterLogical},
		{"not -- b2", "(not (-- . b2))", FilterLogical},
		{"a1 | b2 -- c3", "(-- (| a1 b2) c3)", FilterLogical},
		{"1 + 2 * 3 > 4", "(> (+ 1 (* 2 3)) 4)", FilterLogical},
		{"1 - 2 - 3", "(- (- 1 2) 3)", FilterNumeric},
		{"- 2 * 3", "(* (- 2) 3)", FilterNumeric},
		{"check and mate or stalemate", "(or (and check mate) stalemate)", FilterLogical},
		{"check or mate and stalemate", "(or check (and mate stalemate))", FilterLogical},
		{"not check and mate", "(and (not check) mate)", FilterLogical},
		{": check", "(: currentposition check)", FilterLogical},
		{"currentposition : -- b2", "(: currentposition (-- . b2))", FilterLogical},
		{"wtm -- b2", "{wtm (-- . b2)}", FilterLogical},
		{"check [x] b2", "{check ([x] . b2)}", FilterLogical},
		{"x = 1 -- b2", "{(= x 1) (-- . b2)}", FilterLogical},
		{"check : wtm", "{check (: currentposition wtm)}", FilterLogical},
		{"Ka1 -- x", "(-- Ka1 x)", FilterLogical},
		{"Ka1 -- {b2}", "(-- Ka1 {b2})", FilterLogical},
		{"x = 1 Ka1 -- x", "{(= x 1) (-- Ka1 .) x}", FilterNumeric},
		{"initialposition : # A", "(: initialposition (# A))", FilterNumeric},
		{"# a > 3", "(> (# a) 3)", FilterLogical},
		{"~ a1 & K", "(& (~ a1) K)", FilterSet},
		{"A attacks k", "(attacks A k)", FilterSet},
		{`player white == "Carlsen"`, `(== (player white) "Carlsen")`, FilterLogical},
		{"elo black >= 2500", "(>= (elo black) 2500)", FilterLogical},
		{"{check mate}", "{check mate}", FilterLogical},
		{"{}", "{}", FilterLogical},
		{"check mate", "{check mate}", FilterLogical},
		{"(1 + 2) * 3", "(* (+ 1 2) 3)", FilterNumeric},
		{"if check then 1 else 2", "(if check 1 2)", FilterNumeric},
		{"if check then mate", "(if check mate)", FilterLogical},
		{"flip Ka1", "(flip Ka1)", FilterSet},
		{"x = a1 y = x | b2", "{(= x a1) (= y (| x b2))}", FilterLogical},
		{`"a" + "b"`, `(+ "a" "b")`, FilterString},
		{"x = 1 x += 2", "{(= x 1) (+= x 2)}", FilterLogical},
		{"x = 1 unbind x", "{(= x 1) (unbind x)}", FilterLogical},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q := mustCompile(t, tt.input)
			testutil.AssertEqual(t, q.Root.String(), tt.expected)
			testutil.AssertEqual(t, q.Root.FilterType(), tt.typ)
		})
	}
}

func TestParserErrors(t *testing.T) {
	tests := []struct {
		input  string
		target error
		msg    string
	}{
		{"", errors.ErrCQLSyntax, "empty query"},
		{"// nothing", errors.ErrCQLSyntax, "empty query"},
		{"and", errors.ErrCQLSyntax, "missing left operand"},
		{"check and", errors.ErrCQLSyntax, "end of input"},
		{"(check", errors.ErrCQLSyntax, `expected ")"`},
		{"{check", errors.ErrCQLSyntax, `expected "}"`},
		{")", errors.ErrCQLSyntax, `")"`},
		{"then", errors.ErrCQLSyntax, "unexpected keyword"},
		{"Ka1 + 1", errors.ErrCQLSyntax, "expected Numeric|String operand, got Set"},
		{"check | a1", errors.ErrCQLSyntax, "expected Set operand, got Logical"},
		{"x = a1 x + 1", errors.ErrCQLSyntax, "got Set"},
		{"x = check", errors.ErrCQLSyntax, "cannot assign a logical value"},
		{"3 = 4", errors.ErrCQLSyntax, "cannot assign to 3"},
		{"g(1)", errors.ErrCQLSyntax, `undefined function "g"`},
		{"player red", errors.ErrCQLSyntax, "white or black"},
		{"x", errors.ErrUnresolvedType, `Variable "x"`},
		{"dictionary D", errors.ErrUnresolvedType, `Dictionary "D"`},
		{"unbind x", errors.ErrCQLSyntax, "undefined name"},
		{"x = 1 dictionary x", errors.ErrDefinition, "cannot change kind from Variable to Dictionary"},
		{"quiet x = 1", errors.ErrDefinition, "quiet requires persistent"},
		{"persistent check", errors.ErrCQLSyntax, "must be followed by an assignment"},
		{"x = 1 y = \"s\" x = y", errors.ErrCQLSyntax, "got String"},
		{"piece x in 3 check", errors.ErrCQLSyntax, "expected Set operand"},
		{"x = 1 piece x in A check", errors.ErrCQLSyntax, "x is a Numeric variable, not Piece"},
		{"Ka1 -- x x + 1", errors.ErrCQLSyntax, "got Set"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q, err := Compile(tt.input)
			if q != nil {
				t.Errorf("expected no query on failure, got %v", q.Root)
			}
			testutil.AssertErrorIs(t, err, tt.target)
			testutil.AssertContains(t, err.Error(), tt.msg)
		})
	}
}

func TestMoveTargetInference(t *testing.T) {
	q := mustCompile(t, "Ka1 -- x")
	x, ok := q.Registry.Variable("x")
	if !ok {
		t.Fatal("x should be declared")
	}
	testutil.AssertEqual(t, x.FilterType(), FilterSet)
	testutil.AssertEqual(t, x.VariableType(), VarSet)

	q = mustCompile(t, "function dest() { b2 } Q [x] dest()")
	testutil.AssertEqual(t, q.Root.String(), "{(function dest ()) ([x] Q (dest))}")
}

func TestParseErrorLocation(t *testing.T) {
	_, err := Compile("check\n  mate and", WithFileName("q.cql"))
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	testutil.AssertEqual(t, pe.File, "q.cql")
	testutil.AssertEqual(t, pe.Line, 2)
	testutil.AssertEqual(t, pe.Got, "end of input")
	testutil.AssertContains(t, err.Error(), "q.cql:2:")
}

func TestDefinitionErrorSurvivesParseError(t *testing.T) {
	_, err := Compile("x = 1\ndictionary x")
	var pe *errors.ParseError
	var de *errors.DefinitionError
	testutil.AssertTrue(t, errors.As(err, &pe), "ParseError in chain")
	testutil.AssertTrue(t, errors.As(err, &de), "DefinitionError in chain")
	testutil.AssertEqual(t, pe.Line, 2)
	testutil.AssertEqual(t, de.Name, "x")
	testutil.AssertEqual(t, de.Field, "kind")
}

func TestParserTypeInference(t *testing.T) {
	q := mustCompile(t, `num = 1 set = a1 str = "s" pos = currentposition sum = num + 1 cmp == 2 piece pc in A pc attacks k`)

	tests := []struct {
		name string
		ft   FilterType
		vt   VariableType
	}{
		{"num", FilterNumeric, VarNumeric},
		{"set", FilterSet, VarSet},
		{"str", FilterString, VarString},
		{"pos", FilterPosition, VarPosition},
		{"sum", FilterNumeric, VarNumeric},
		{"cmp", FilterNumeric, VarNumeric},
		{"pc", FilterSet, VarPiece},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := q.Registry.Variable(tt.name)
			if !ok {
				t.Fatalf("variable %s not declared", tt.name)
			}
			testutil.AssertEqual(t, v.FilterType(), tt.ft)
			testutil.AssertEqual(t, v.VariableType(), tt.vt)
			testutil.AssertEqual(t, v.Persistence(), Local)
		})
	}
}

func TestParserPieceVariableKeepsType(t *testing.T) {
	q := mustCompile(t, "piece pc in [Nn] pc = a1")
	v, _ := q.Registry.Variable("pc")
	testutil.AssertEqual(t, v.VariableType(), VarPiece)
	testutil.AssertEqual(t, q.Root.String(), "(piece pc in [Nn] (= pc a1))")
}

func TestParserLoops(t *testing.T) {
	q := mustCompile(t, "square s in [a1,h8] # s > 0")
	testutil.AssertEqual(t, q.Root.String(), "(square s in [a1,h8] (> (# s) 0))")
	v, _ := q.Registry.Variable("s")
	testutil.AssertEqual(t, v.VariableType(), VarSet)
}

func TestParserPersistence(t *testing.T) {
	tests := []struct {
		input       string
		expected    string
		persistence PersistenceType
	}{
		{"persistent x = 1", "(persistent (= x 1))", Persistent},
		{"persistent quiet x = 1", "(persistent quiet (= x 1))", Persistent | Quiet},
		{"atomic x = 1", "(atomic (= x 1))", Atomic},
		{"x = 1", "(= x 1)", Local},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q := mustCompile(t, tt.input)
			testutil.AssertEqual(t, q.Root.String(), tt.expected)
			v, _ := q.Registry.Variable("x")
			testutil.AssertEqual(t, v.Persistence(), tt.persistence)
		})
	}

	_, err := Compile("persistent x = 1 atomic x = 2")
	testutil.AssertErrorIs(t, err, errors.ErrDefinition)
}

func TestParserDictionary(t *testing.T) {
	q := mustCompile(t, `dictionary D D["a"] = 1 D["b"] > 0`)
	testutil.AssertEqual(t, q.Root.String(), `{(dictionary D) (= D["a"] 1) (> D["b"] 0)}`)

	d, ok := q.Registry.Dictionary("D")
	testutil.AssertTrue(t, ok)
	testutil.AssertEqual(t, d.KeyType(), FilterString)
	testutil.AssertEqual(t, d.FilterType(), FilterNumeric)
	testutil.AssertEqual(t, d.Persistence(), Persistent)

	_, err := Compile(`dictionary D D["a"] = 1 D[1] = 2`)
	testutil.AssertErrorIs(t, err, errors.ErrDefinition)

	q = mustCompile(t, `dictionary E["k"] = a1`)
	testutil.AssertEqual(t, q.Root.String(), `(= E["k"] a1)`)
}

func TestParserFunctions(t *testing.T) {
	q := mustCompile(t, "function f(v) { v + 1 } x = f(2)")
	testutil.AssertEqual(t, q.Root.String(), "{(function f (v)) (= x (f 2))}")

	f, ok := q.Registry.Function("f")
	testutil.AssertTrue(t, ok)
	testutil.AssertEqual(t, f.Parameters(), []string{"v"})
	testutil.AssertEqual(t, len(f.Body()), 1)
	testutil.AssertEqual(t, f.Body()[0].String(), "(+ v 1)")

	call := q.Root.(*CompoundNode).Children[1].(*AssignNode).Value.(*FunctionCallNode)
	testutil.AssertEqual(t, call.Expansion.String(), "(+ 2 1)")
	testutil.AssertEqual(t, call.FilterType(), FilterNumeric)

	x, _ := q.Registry.Variable("x")
	testutil.AssertEqual(t, x.FilterType(), FilterNumeric)
}

func TestParserFunctionBodyCollectionIsReadOnly(t *testing.T) {
	// The body assigns y, but only a call declares it.
	q := mustCompile(t, "function f() { y = 1 } check")
	if q.Registry.Lookup("y") != nil {
		t.Error("collecting the body must not declare y")
	}

	q = mustCompile(t, "function f() { y = 1 } f()")
	y, ok := q.Registry.Variable("y")
	testutil.AssertTrue(t, ok)
	testutil.AssertEqual(t, y.FilterType(), FilterNumeric)
}

func TestParserFunctionForwardReference(t *testing.T) {
	// z has no type yet when the body is collected; the call fixes it.
	q := mustCompile(t, "function g() { z attacks k } z = a1 g()")
	z, _ := q.Registry.Variable("z")
	testutil.AssertEqual(t, z.FilterType(), FilterSet)
}

func TestParserFunctionErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{"function f() { f() }", "recursive call of f"},
		{"function f(v) { v } f()", "takes 1 arguments, got 0"},
		{"function f() { function g() { 1 } }", "cannot be nested"},
		{"function f(v v) { v }", "duplicate parameter"},
		{"function f() { check", "end function body"},
		{"function f() { 1 } function f() { 2 }", "parameters are already set"},
		{"function f(x) { x + 1 } f(a1)", "expected Numeric|String operand, got Set"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Compile(tt.input)
			testutil.AssertError(t, err)
			testutil.AssertContains(t, err.Error(), tt.msg)
		})
	}
}

func TestParserMaxCallDepth(t *testing.T) {
	input := "function f() { 1 } function g() { f() } g()"
	mustCompile(t, input)

	_, err := Compile(input, WithMaxCallDepth(1))
	testutil.AssertErrorIs(t, err, errors.ErrCQLSyntax)
	testutil.AssertContains(t, err.Error(), "nested deeper than 1")
}

func TestParserShiftRange(t *testing.T) {
	tests := []struct {
		input string
		shift ShiftRange
	}{
		{"shift Ra-c6", ShiftRange{MinFile: 0, MaxFile: 5, MinRank: -5, MaxRank: 2}},
		{"shifthorizontal Ra-c6", ShiftRange{MinFile: 0, MaxFile: 5}},
		{"shiftvertical Ra-c6", ShiftRange{MinRank: -5, MaxRank: 2}},
		{"shift {Kb2 Ra-h7}", ShiftRange{MinFile: -1, MaxFile: 6, MinRank: -1, MaxRank: 1}},
		{"shift K", ShiftRange{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q := mustCompile(t, tt.input)
			node, ok := q.Root.(*TransformNode)
			if !ok {
				t.Fatalf("expected TransformNode, got %T", q.Root)
			}
			testutil.AssertEqual(t, *node.Shift, tt.shift)
		})
	}

	q := mustCompile(t, "flip Ka1")
	if q.Root.(*TransformNode).Shift != nil {
		t.Error("flip has no shift range")
	}
}

func TestParserReversedRanges(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	q := mustCompile(t, "Qc-a7-6", WithLogger(logger))
	testutil.AssertFalse(t, q.Root.(*DesignatorNode).Designator.SquareRangesValid())
	testutil.AssertContains(t, buf.String(), "reversed square range")

	_, err := Compile("Qc-a7-6", WithStrictRanges(true))
	testutil.AssertErrorIs(t, err, errors.ErrDesignator)
}

func TestParserDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mustCompile(t, "function f() { 1 } x = f()", WithLogger(logger))
	out := buf.String()
	testutil.AssertContains(t, out, "msg=declared name=f kind=Function")
	testutil.AssertContains(t, out, `msg="type locked" name=x field="filter type" type=Numeric`)
	testutil.AssertContains(t, out, `msg="expanded function" name=f`)
}

func TestParserSharedCache(t *testing.T) {
	cache := NewDesignatorCache()
	mustCompile(t, "Ka1 -- b2", WithDesignatorCache(cache))
	mustCompile(t, "Ka1 | b2", WithDesignatorCache(cache))
	testutil.AssertEqual(t, cache.Len(), 2)
}

func TestParseTokensAppendsEOF(t *testing.T) {
	tokens, err := Classify(Lex("1 + 2"))
	testutil.AssertNoError(t, err)

	node, err := ParseTokens(tokens[:len(tokens)-1], NewRegistry(nil))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, node.String(), "(+ 1 2)")
}

func TestParseTokensBuiltStream(t *testing.T) {
	num := func(lit string) Token {
		return Token{Type: NUMBER, Kind: Operand, Literal: lit}
	}
	tokens := []Token{
		num("1"),
		NewOperatorToken("+", Binary, PAdditive),
		num("2"),
		NewOperatorToken("*", Binary, PMultiplicative),
		num("3"),
	}

	node, err := ParseTokens(tokens, NewRegistry(nil))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, node.String(), "(+ 1 (* 2 3))")
	testutil.AssertEqual(t, node.FilterType(), FilterNumeric)
}

func TestParseDoesNotFinalize(t *testing.T) {
	node, err := Parse("x")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, node.FilterType(), FilterAny)
}

func TestWalk(t *testing.T) {
	q := mustCompile(t, "x = a1 | b2 not check")
	var kinds []string
	Walk(q.Root, func(n Node) bool {
		kinds = append(kinds, NodeKind(n))
		return true
	})
	testutil.AssertEqual(t, kinds, []string{
		"Compound", "Assign", "Variable", "Binary", "Designator", "Designator", "Unary", "Keyword",
	})
}
