package cql

import (
	"fmt"

	"github.com/lgbarn/cql-go/internal/errors"
)

// Definition is a user-declared name: a function, variable or dictionary.
type Definition interface {
	Name() string
	Kind() DefinitionKind
}

// TypedDefinition is a definition whose value type and persistence are
// locked as the query is parsed.
type TypedDefinition interface {
	Definition
	FilterType() FilterType
	Persistence() PersistenceType
}

// Function is a user-defined function. Its body is expanded inline at
// every call site.
type Function struct {
	name       string
	params     []string
	paramsSet  bool
	body       []Node
	bodyTokens []Token
}

func newFunction(name string) *Function {
	return &Function{name: name}
}

func (f *Function) Name() string         { return f.name }
func (f *Function) Kind() DefinitionKind { return KindFunction }

// SetParameters records the parameter names. It may be called once; a
// nil list is rejected.
func (f *Function) SetParameters(params []string) error {
	if params == nil {
		return &errors.DefinitionError{
			Name: f.name, Field: "parameters", Old: "unset", New: "nil",
			Detail: "parameters must be a list",
		}
	}
	if f.paramsSet {
		return &errors.DefinitionError{
			Name: f.name, Field: "parameters",
			Old: fmt.Sprint(f.params), New: fmt.Sprint(params),
			Detail: "parameters are already set",
		}
	}
	f.params = append([]string{}, params...)
	f.paramsSet = true
	return nil
}

// Parameters returns the parameter names in declaration order.
func (f *Function) Parameters() []string {
	return append([]string(nil), f.params...)
}

// Arity returns the number of parameters.
func (f *Function) Arity() int {
	return len(f.params)
}

// Body returns the nodes collected from the function body.
func (f *Function) Body() []Node {
	return f.body
}

// AppendBody adds collected nodes to the body.
func (f *Function) AppendBody(nodes ...Node) {
	f.body = append(f.body, nodes...)
}

// BodyTokens returns the tokens of the body, re-parsed at each call site.
func (f *Function) BodyTokens() []Token {
	return f.bodyTokens
}

func (f *Function) setBodyTokens(tokens []Token) {
	f.bodyTokens = tokens
}

// Variable is a user variable. All of its types start at the wildcard.
type Variable struct {
	name         string
	filterType   FilterType
	persistence  PersistenceType
	variableType VariableType
}

func newVariable(name string) *Variable {
	return &Variable{
		name:         name,
		filterType:   FilterAny,
		persistence:  PersistAny,
		variableType: VarAny,
	}
}

func (v *Variable) Name() string                 { return v.name }
func (v *Variable) Kind() DefinitionKind         { return KindVariable }
func (v *Variable) FilterType() FilterType       { return v.filterType }
func (v *Variable) Persistence() PersistenceType { return v.persistence }
func (v *Variable) VariableType() VariableType   { return v.variableType }

// Dictionary is a persistent map from keys of one type to values of one type.
type Dictionary struct {
	name        string
	filterType  FilterType
	persistence PersistenceType
	keyType     FilterType
}

func newDictionary(name string) *Dictionary {
	return &Dictionary{
		name:        name,
		filterType:  FilterAny,
		persistence: PersistAny,
		keyType:     FilterAny,
	}
}

func (d *Dictionary) Name() string                 { return d.name }
func (d *Dictionary) Kind() DefinitionKind         { return KindDictionary }
func (d *Dictionary) FilterType() FilterType       { return d.filterType }
func (d *Dictionary) Persistence() PersistenceType { return d.persistence }
func (d *Dictionary) KeyType() FilterType          { return d.keyType }

func newDefinition(name string, kind DefinitionKind) Definition {
	switch kind {
	case KindFunction:
		return newFunction(name)
	case KindDictionary:
		return newDictionary(name)
	}
	return newVariable(name)
}

// lock applies the type-locking rule to one field. Setting the wildcard is
// a no-op, an illegal value always fails, a wildcard field takes the new
// value when commit is set, and a locked field accepts only its own value.
// changed reports whether the field would move off the wildcard.
func lock[T flagType](name, field string, cur *T, next, wildcard T, legal, commit bool) (changed bool, err error) {
	switch {
	case next == wildcard:
		return false, nil
	case !legal:
		return false, &errors.DefinitionError{
			Name: name, Field: field, Old: (*cur).String(), New: next.String(),
			Detail: "not a legal " + field,
		}
	case *cur == wildcard:
		if commit {
			*cur = next
		}
		return true, nil
	case *cur == next:
		return false, nil
	}
	return false, &errors.DefinitionError{Name: name, Field: field, Old: (*cur).String(), New: next.String()}
}

func legalValueType(t FilterType) bool {
	return t.IsConcrete() && t != FilterLogical
}
