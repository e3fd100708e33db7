package cql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lgbarn/cql-go/internal/chess"
)

// Node is a filter in the parsed query. Every node reports the type of
// value it produces; FilterAny means the type is still being inferred.
type Node interface {
	FilterType() FilterType
	Pos() int // Byte offset of the node's first token
	String() string
	node()
}

type span struct {
	pos int
}

func (s span) Pos() int { return s.pos }
func (span) node()      {}

// NumberNode is an integer literal.
type NumberNode struct {
	span
	Value int
}

func (n *NumberNode) FilterType() FilterType { return FilterNumeric }
func (n *NumberNode) String() string         { return strconv.Itoa(n.Value) }

// StringNode is a string literal.
type StringNode struct {
	span
	Value string
}

func (n *StringNode) FilterType() FilterType { return FilterString }
func (n *StringNode) String() string         { return strconv.Quote(n.Value) }

// DesignatorNode is a piece designator such as Ra-c6 or [Kk]a5.
type DesignatorNode struct {
	span
	Designator *PieceDesignator
}

func (n *DesignatorNode) FilterType() FilterType { return FilterSet }
func (n *DesignatorNode) String() string         { return n.Designator.String() }

// AnySquareNode is ".", the set of all squares. Implicit nodes stand in
// for an omitted move-filter operand.
type AnySquareNode struct {
	span
	Implicit bool
}

func (n *AnySquareNode) FilterType() FilterType { return FilterSet }
func (n *AnySquareNode) String() string         { return "." }

// KeywordNode is a built-in filter such as check, ply or player white.
type KeywordNode struct {
	span
	Name     string
	Arg      string // colour argument, if any
	Type     FilterType
	Implicit bool // inserted for an omitted colon operand
}

func (n *KeywordNode) FilterType() FilterType { return n.Type }

func (n *KeywordNode) String() string {
	if n.Arg != "" {
		return "(" + n.Name + " " + n.Arg + ")"
	}
	return n.Name
}

// VariableNode reads a user variable.
type VariableNode struct {
	span
	Def *Variable
}

func (n *VariableNode) FilterType() FilterType { return n.Def.FilterType() }
func (n *VariableNode) String() string         { return n.Def.Name() }

// IndexNode reads a dictionary entry.
type IndexNode struct {
	span
	Dict *Dictionary
	Key  Node
}

func (n *IndexNode) FilterType() FilterType { return n.Dict.FilterType() }
func (n *IndexNode) String() string         { return n.Dict.Name() + "[" + n.Key.String() + "]" }

// UnaryNode is a prefix operator: not, ~, # or unary minus.
type UnaryNode struct {
	span
	Op      string
	Operand Node
	Type    FilterType
}

func (n *UnaryNode) FilterType() FilterType { return n.Type }
func (n *UnaryNode) String() string         { return "(" + n.Op + " " + n.Operand.String() + ")" }

// BinaryNode is an infix operator other than assignment, move and colon.
type BinaryNode struct {
	span
	Op          string
	Left, Right Node
	Type        FilterType
}

func (n *BinaryNode) FilterType() FilterType { return n.Type }

func (n *BinaryNode) String() string {
	return "(" + n.Op + " " + n.Left.String() + " " + n.Right.String() + ")"
}

// AssignNode stores a value in a variable or dictionary entry. Persistence
// is zero unless the assignment carried persistent, quiet or atomic.
type AssignNode struct {
	span
	Op          string
	Target      Node
	Value       Node
	Persistence PersistenceType
}

func (n *AssignNode) FilterType() FilterType { return FilterLogical }

func (n *AssignNode) String() string {
	s := "(" + n.Op + " " + n.Target.String() + " " + n.Value.String() + ")"
	switch n.Persistence {
	case Persistent:
		return "(persistent " + s + ")"
	case Persistent | Quiet:
		return "(persistent quiet " + s + ")"
	case Atomic:
		return "(atomic " + s + ")"
	}
	return s
}

// MoveNode is a move filter: From -- To or From [x] To.
type MoveNode struct {
	span
	Op       string
	From, To Node
}

func (n *MoveNode) FilterType() FilterType { return FilterLogical }

func (n *MoveNode) String() string {
	return "(" + n.Op + " " + n.From.String() + " " + n.To.String() + ")"
}

// ColonNode evaluates Filter at Position.
type ColonNode struct {
	span
	Position Node
	Filter   Node
}

func (n *ColonNode) FilterType() FilterType { return n.Filter.FilterType() }

func (n *ColonNode) String() string {
	return "(: " + n.Position.String() + " " + n.Filter.String() + ")"
}

// ShiftRange bounds how far a shift transform may translate its operand,
// in files and ranks, before a designator leaves the board.
type ShiftRange struct {
	MinFile, MaxFile int
	MinRank, MaxRank int
}

func (s ShiftRange) String() string {
	return fmt.Sprintf("files [%d,%d] ranks [%d,%d]", s.MinFile, s.MaxFile, s.MinRank, s.MaxRank)
}

// newShiftRange computes the shift range of a transform over operand: the
// union of the bounding boxes of every designator that restricts an axis.
// Axes no designator restricts, or that the transform does not move, get
// an empty range.
func newShiftRange(transform string, operand Node) *ShiftRange {
	full := [2]int{0, chess.MaxIndex}
	files, ranks := [2]int{chess.BoardSize, -1}, [2]int{chess.BoardSize, -1}
	Walk(operand, func(n Node) bool {
		d, ok := n.(*DesignatorNode)
		if !ok {
			return true
		}
		r, f := full, full
		d.Designator.ShiftLimits(&r, &f)
		if f != full {
			files[0], files[1] = min(files[0], f[0]), max(files[1], f[1])
		}
		if r != full {
			ranks[0], ranks[1] = min(ranks[0], r[0]), max(ranks[1], r[1])
		}
		return true
	})

	s := &ShiftRange{}
	if transform != "shiftvertical" && files[1] >= 0 {
		s.MinFile, s.MaxFile = -files[0], chess.MaxIndex-files[1]
	}
	if transform != "shifthorizontal" && ranks[1] >= 0 {
		s.MinRank, s.MaxRank = -ranks[0], chess.MaxIndex-ranks[1]
	}
	return s
}

// TransformNode applies a board transform to its operand.
type TransformNode struct {
	span
	Name    string
	Operand Node
	Shift   *ShiftRange // only for shift transforms
}

func (n *TransformNode) FilterType() FilterType { return n.Operand.FilterType() }
func (n *TransformNode) String() string         { return "(" + n.Name + " " + n.Operand.String() + ")" }

// CompoundNode is a braced sequence of filters, also used for a top-level
// query with more than one filter. Its type is that of its last filter.
type CompoundNode struct {
	span
	Children []Node
}

func (n *CompoundNode) FilterType() FilterType {
	if len(n.Children) == 0 {
		return FilterLogical
	}
	return n.Children[len(n.Children)-1].FilterType()
}

func (n *CompoundNode) String() string {
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// IfNode is if/then with an optional else.
type IfNode struct {
	span
	Cond, Then, Else Node
}

func (n *IfNode) FilterType() FilterType {
	if n.Else != nil {
		if t := n.Then.FilterType(); t.IsConcrete() && t == n.Else.FilterType() {
			return t
		}
	}
	return FilterLogical
}

func (n *IfNode) String() string {
	s := "(if " + n.Cond.String() + " " + n.Then.String()
	if n.Else != nil {
		s += " " + n.Else.String()
	}
	return s + ")"
}

// LoopNode is piece x in S body, or square x in S body.
type LoopNode struct {
	span
	Kind   string // "piece" or "square"
	Var    *Variable
	Domain Node
	Body   Node
}

func (n *LoopNode) FilterType() FilterType { return FilterLogical }

func (n *LoopNode) String() string {
	return "(" + n.Kind + " " + n.Var.Name() + " in " + n.Domain.String() + " " + n.Body.String() + ")"
}

// FunctionDefNode records a function definition.
type FunctionDefNode struct {
	span
	Def *Function
}

func (n *FunctionDefNode) FilterType() FilterType { return FilterLogical }

func (n *FunctionDefNode) String() string {
	return "(function " + n.Def.Name() + " (" + strings.Join(n.Def.Parameters(), " ") + "))"
}

// FunctionCallNode is a call site. Expansion is the body parsed with the
// parameters bound to Args.
type FunctionCallNode struct {
	span
	Def       *Function
	Args      []Node
	Expansion Node
}

func (n *FunctionCallNode) FilterType() FilterType { return n.Expansion.FilterType() }

func (n *FunctionCallNode) String() string {
	parts := []string{n.Def.Name()}
	for _, a := range n.Args {
		parts = append(parts, a.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// DictionaryDeclNode declares a dictionary.
type DictionaryDeclNode struct {
	span
	Def *Dictionary
}

func (n *DictionaryDeclNode) FilterType() FilterType { return FilterLogical }
func (n *DictionaryDeclNode) String() string         { return "(dictionary " + n.Def.Name() + ")" }

// UnbindNode removes a definition.
type UnbindNode struct {
	span
	Name string
}

func (n *UnbindNode) FilterType() FilterType { return FilterLogical }
func (n *UnbindNode) String() string         { return "(unbind " + n.Name + ")" }

// Children returns the direct children of n in source order.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *IndexNode:
		return []Node{n.Key}
	case *UnaryNode:
		return []Node{n.Operand}
	case *BinaryNode:
		return []Node{n.Left, n.Right}
	case *AssignNode:
		return []Node{n.Target, n.Value}
	case *MoveNode:
		return []Node{n.From, n.To}
	case *ColonNode:
		return []Node{n.Position, n.Filter}
	case *TransformNode:
		return []Node{n.Operand}
	case *CompoundNode:
		return n.Children
	case *IfNode:
		if n.Else == nil {
			return []Node{n.Cond, n.Then}
		}
		return []Node{n.Cond, n.Then, n.Else}
	case *LoopNode:
		return []Node{n.Domain, n.Body}
	case *FunctionCallNode:
		return []Node{n.Expansion}
	}
	return nil
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the children of the node just visited.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// NodeKind names the syntactic form of n, e.g. "Binary" or "Designator".
func NodeKind(n Node) string {
	switch n.(type) {
	case *NumberNode:
		return "Number"
	case *StringNode:
		return "String"
	case *DesignatorNode:
		return "Designator"
	case *AnySquareNode:
		return "AnySquare"
	case *KeywordNode:
		return "Keyword"
	case *VariableNode:
		return "Variable"
	case *IndexNode:
		return "Index"
	case *UnaryNode:
		return "Unary"
	case *BinaryNode:
		return "Binary"
	case *AssignNode:
		return "Assign"
	case *MoveNode:
		return "Move"
	case *ColonNode:
		return "Colon"
	case *TransformNode:
		return "Transform"
	case *CompoundNode:
		return "Compound"
	case *IfNode:
		return "If"
	case *LoopNode:
		return "Loop"
	case *FunctionDefNode:
		return "FunctionDef"
	case *FunctionCallNode:
		return "FunctionCall"
	case *DictionaryDeclNode:
		return "DictionaryDecl"
	case *UnbindNode:
		return "Unbind"
	}
	return "Unknown"
}
