// Package chess provides the board geometry and piece alphabet used by the
// CQL front end.
package chess

import "strings"

// Colour represents the colour of a piece or player.
type Colour int

const (
	Black Colour = iota
	White
)

// String returns the string representation of a colour.
func (c Colour) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// Opposite returns the opposite colour.
func (c Colour) Opposite() Colour {
	if c == White {
		return Black
	}
	return White
}

// ParseColour converts a CQL colour word into a Colour.
func ParseColour(word string) (Colour, bool) {
	switch word {
	case "white":
		return White, true
	case "black":
		return Black, true
	}
	return Black, false
}

// Piece letters understood by piece designators.
const (
	AnyWhite    = 'A' // any white piece
	AnyBlack    = 'a' // any black piece
	EmptySquare = '_' // an empty square

	// PieceLetters is the full piece-designator alphabet.
	PieceLetters = "KQRBNPkqrbnpAa_"

	// AnyPiece is the expansion of a designator with no piece component.
	AnyPiece = "Aa"
)

// IsPieceLetter returns true if ch belongs to the piece-designator alphabet.
func IsPieceLetter(ch byte) bool {
	return strings.IndexByte(PieceLetters, ch) >= 0
}

// LetterColour reports the colour of a piece letter. The empty-square
// letter has no colour.
func LetterColour(ch byte) (Colour, bool) {
	switch {
	case ch == EmptySquare:
		return Black, false
	case ch >= 'A' && ch <= 'Z':
		return White, true
	default:
		return Black, true
	}
}
