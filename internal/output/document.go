// Package output renders compiled CQL queries as text, JSON or YAML.
package output

import (
	"github.com/lgbarn/cql-go/internal/config"
	"github.com/lgbarn/cql-go/internal/cql"
)

// Document is the format-neutral form of one compiled query.
type Document struct {
	Name        string          `json:"name,omitempty" yaml:"name,omitempty"`
	Query       string          `json:"query" yaml:"query"` // s-expression of the AST
	Type        string          `json:"type" yaml:"type"`
	AST         *NodeDoc        `json:"ast" yaml:"ast"`
	Definitions []DefinitionDoc `json:"definitions,omitempty" yaml:"definitions,omitempty"`
	Tokens      []TokenDoc      `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

// NodeDoc is one AST node.
type NodeDoc struct {
	Kind     string     `json:"kind" yaml:"kind"`
	Type     string     `json:"type" yaml:"type"`
	Label    string     `json:"label" yaml:"label"`
	Children []*NodeDoc `json:"children,omitempty" yaml:"children,omitempty"`
}

// DefinitionDoc describes a registry entry after finalization.
type DefinitionDoc struct {
	Name         string   `json:"name" yaml:"name"`
	Kind         string   `json:"kind" yaml:"kind"`
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	VariableType string   `json:"variableType,omitempty" yaml:"variableType,omitempty"`
	KeyType      string   `json:"keyType,omitempty" yaml:"keyType,omitempty"`
	Persistence  string   `json:"persistence,omitempty" yaml:"persistence,omitempty"`
	Parameters   []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// TokenDoc is one classified token.
type TokenDoc struct {
	Type    string `json:"type" yaml:"type"`
	Kind    string `json:"kind" yaml:"kind"`
	Literal string `json:"literal" yaml:"literal"`
	Line    int    `json:"line" yaml:"line"`
	Column  int    `json:"column" yaml:"column"`
}

// NewDocument converts a compiled query. Definitions and tokens are
// included according to cfg.
func NewDocument(name string, q *cql.Query, cfg config.OutputConfig) *Document {
	doc := &Document{
		Name:  name,
		Query: q.Root.String(),
		Type:  q.Root.FilterType().String(),
		AST:   NodeToDoc(q.Root),
	}

	if cfg.ShowDefinitions {
		for _, def := range q.Registry.Definitions() {
			doc.Definitions = append(doc.Definitions, DefinitionToDoc(def))
		}
	}

	if cfg.ShowTokens {
		for _, tok := range q.Tokens {
			if tok.Type == cql.EOF {
				continue
			}
			doc.Tokens = append(doc.Tokens, TokenDoc{
				Type:    tok.Type.String(),
				Kind:    tok.Kind.String(),
				Literal: tok.Literal,
				Line:    tok.Line,
				Column:  tok.Column,
			})
		}
	}

	return doc
}

// NodeToDoc converts an AST subtree.
func NodeToDoc(n cql.Node) *NodeDoc {
	doc := &NodeDoc{
		Kind:  cql.NodeKind(n),
		Type:  n.FilterType().String(),
		Label: label(n),
	}
	for _, c := range cql.Children(n) {
		doc.Children = append(doc.Children, NodeToDoc(c))
	}
	return doc
}

// label names a node without its children.
func label(n cql.Node) string {
	switch n := n.(type) {
	case *cql.KeywordNode:
		if n.Arg != "" {
			return n.Name + " " + n.Arg
		}
		return n.Name
	case *cql.VariableNode:
		return n.Def.Name()
	case *cql.IndexNode:
		return n.Dict.Name()
	case *cql.UnaryNode:
		return n.Op
	case *cql.BinaryNode:
		return n.Op
	case *cql.AssignNode:
		switch n.Persistence {
		case cql.Persistent:
			return "persistent " + n.Op
		case cql.Persistent | cql.Quiet:
			return "persistent quiet " + n.Op
		case cql.Atomic:
			return "atomic " + n.Op
		}
		return n.Op
	case *cql.MoveNode:
		return n.Op
	case *cql.ColonNode:
		return ":"
	case *cql.TransformNode:
		if n.Shift != nil {
			return n.Name + " " + n.Shift.String()
		}
		return n.Name
	case *cql.CompoundNode:
		return "{}"
	case *cql.IfNode:
		return "if"
	case *cql.LoopNode:
		return n.Kind + " " + n.Var.Name()
	case *cql.FunctionDefNode, *cql.FunctionCallNode:
		return n.String()
	case *cql.DictionaryDeclNode:
		return n.Def.Name()
	case *cql.UnbindNode:
		return n.Name
	}
	// Literals, designators and "."
	return n.String()
}

// DefinitionToDoc describes one registry entry.
func DefinitionToDoc(def cql.Definition) DefinitionDoc {
	doc := DefinitionDoc{
		Name: def.Name(),
		Kind: def.Kind().String(),
	}
	switch d := def.(type) {
	case *cql.Function:
		doc.Parameters = d.Parameters()
	case *cql.Variable:
		doc.Type = d.FilterType().String()
		doc.VariableType = d.VariableType().String()
		doc.Persistence = d.Persistence().String()
	case *cql.Dictionary:
		doc.Type = d.FilterType().String()
		doc.KeyType = d.KeyType().String()
		doc.Persistence = d.Persistence().String()
	}
	return doc
}
