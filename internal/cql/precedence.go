package cql

import "fmt"

// Precedence is the binding strength of an operator. Higher values bind
// tighter. PLow and PHigh bracket every named level and are used by the
// parser to mean "accept any operator" and "accept no operator".
type Precedence int

const (
	PLow Precedence = iota
	POr
	PAnd
	PNot
	PAssign
	PMove
	PIn
	PEquality
	PRelational
	PUnion
	PIntersect
	PAttack
	PAdditive
	PMultiplicative
	PColon
	PTransform
	PCount
	PComplement
	PNegate
	PIndex
	PCall
	PHigh
)

var precedenceNames = [...]string{
	PLow:            "PLOW",
	POr:             "or",
	PAnd:            "and",
	PNot:            "not",
	PAssign:         "assign",
	PMove:           "move",
	PIn:             "in",
	PEquality:       "equality",
	PRelational:     "relational",
	PUnion:          "union",
	PIntersect:      "intersect",
	PAttack:         "attack",
	PAdditive:       "additive",
	PMultiplicative: "multiplicative",
	PColon:          "colon",
	PTransform:      "transform",
	PCount:          "count",
	PComplement:     "complement",
	PNegate:         "negate",
	PIndex:          "index",
	PCall:           "call",
	PHigh:           "PHIGH",
}

func (p Precedence) String() string {
	if p >= PLow && p <= PHigh {
		return precedenceNames[p]
	}
	return fmt.Sprintf("Precedence(%d)", int(p))
}

// Compare returns -1, 0 or +1 as p binds looser than, as tight as, or
// tighter than q.
func (p Precedence) Compare(q Precedence) int {
	switch {
	case p < q:
		return -1
	case p > q:
		return 1
	}
	return 0
}

// Levels returns every precedence level from PLow to PHigh in order.
func Levels() []Precedence {
	levels := make([]Precedence, 0, int(PHigh)+1)
	for p := PLow; p <= PHigh; p++ {
		levels = append(levels, p)
	}
	return levels
}
