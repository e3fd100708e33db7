package cql

import "strings"

// FilterType classifies the value a filter produces.
type FilterType uint8

const (
	FilterSet FilterType = 1 << iota
	FilterLogical
	FilterNumeric
	FilterString
	FilterPosition

	// FilterAny is the wildcard used while a type is still being inferred.
	FilterAny = FilterSet | FilterLogical | FilterNumeric | FilterString | FilterPosition
)

var filterTypeNames = []string{"Set", "Logical", "Numeric", "String", "Position"}

func (t FilterType) String() string {
	return flagString(t, FilterAny, filterTypeNames)
}

// IsConcrete reports whether t names exactly one filter type.
func (t FilterType) IsConcrete() bool {
	return singleBit(t)
}

// VariableType is the kind of value a user variable holds.
type VariableType uint8

const (
	VarNumeric VariableType = 1 << iota
	VarSet
	VarPiece
	VarString
	VarPosition

	// VarAny is the wildcard for a variable that has not been assigned yet.
	VarAny = VarNumeric | VarSet | VarPiece | VarString | VarPosition
)

var variableTypeNames = []string{"Numeric", "Set", "Piece", "String", "Position"}

func (t VariableType) String() string {
	return flagString(t, VarAny, variableTypeNames)
}

// IsConcrete reports whether t names exactly one variable type.
func (t VariableType) IsConcrete() bool {
	return singleBit(t)
}

// FilterType returns the filter type produced by reading a variable of type t.
// Piece variables evaluate to the set holding the piece's square.
func (t VariableType) FilterType() FilterType {
	switch t {
	case VarNumeric:
		return FilterNumeric
	case VarSet, VarPiece:
		return FilterSet
	case VarString:
		return FilterString
	case VarPosition:
		return FilterPosition
	}
	return FilterAny
}

// variableTypeFor maps the filter type of an assigned value to the
// variable type it fixes. Logical values cannot be stored.
func variableTypeFor(t FilterType) (VariableType, bool) {
	switch t {
	case FilterNumeric:
		return VarNumeric, true
	case FilterSet:
		return VarSet, true
	case FilterString:
		return VarString, true
	case FilterPosition:
		return VarPosition, true
	}
	return 0, false
}

// PersistenceType records how a variable's value survives across positions.
type PersistenceType uint8

const (
	Atomic PersistenceType = 1 << iota
	Local
	Persistent
	Quiet

	// PersistAny is the wildcard for a variable whose persistence is not yet known.
	PersistAny = Atomic | Local | Persistent | Quiet
)

var persistenceNames = []string{"Atomic", "Local", "Persistent", "Quiet"}

func (p PersistenceType) String() string {
	return flagString(p, PersistAny, persistenceNames)
}

// IsLegal reports whether p is an allowed concrete persistence. Quiet is
// only meaningful together with Persistent.
func (p PersistenceType) IsLegal() bool {
	switch p {
	case Atomic, Local, Persistent, Persistent | Quiet:
		return true
	}
	return false
}

// DefinitionKind distinguishes the kinds of user-declared names.
type DefinitionKind uint8

const (
	KindDictionary DefinitionKind = 1 << iota
	KindFunction
	KindVariable

	// KindAny matches every kind.
	KindAny = KindDictionary | KindFunction | KindVariable
)

var definitionKindNames = []string{"Dictionary", "Function", "Variable"}

func (k DefinitionKind) String() string {
	return flagString(k, KindAny, definitionKindNames)
}

// IsConcrete reports whether k names exactly one kind.
func (k DefinitionKind) IsConcrete() bool {
	return singleBit(k)
}

type flagType interface {
	~uint8
	String() string
}

func singleBit[T ~uint8](v T) bool {
	return v != 0 && v&(v-1) == 0
}

// flagString renders a bit set using one name per bit, or "Any" for the
// full wildcard.
func flagString[T ~uint8](v, wildcard T, names []string) string {
	if v == wildcard {
		return "Any"
	}
	if v == 0 {
		return "None"
	}
	var parts []string
	for i, name := range names {
		if v&(T(1)<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}
