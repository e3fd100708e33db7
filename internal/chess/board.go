package chess

// Rank represents a chess rank (row) - '1' to '8'.
type Rank byte

// Col represents a chess file (column) - 'a' to 'h'.
type Col byte

// Constants for board dimensions and coordinates.
const (
	BoardSize = 8

	RankBase  = '1'
	ColBase   = 'a'
	FirstRank = RankBase
	LastRank  = RankBase + BoardSize - 1
	FirstCol  = ColBase
	LastCol   = ColBase + BoardSize - 1

	// MaxIndex is the highest zero-based file or rank index.
	MaxIndex = BoardSize - 1
)

// IsCol reports whether ch is a file letter.
func IsCol(ch byte) bool {
	return ch >= FirstCol && ch <= LastCol
}

// IsRank reports whether ch is a rank digit.
func IsRank(ch byte) bool {
	return ch >= FirstRank && ch <= LastRank
}

// ColIndex converts a file letter to a zero-based index.
func ColIndex(col Col) int {
	return int(col - ColBase)
}

// RankIndex converts a rank digit to a zero-based index.
func RankIndex(rank Rank) int {
	return int(rank - RankBase)
}

// ToCol converts a zero-based index back to a file letter.
func ToCol(i int) Col {
	return Col(i + ColBase)
}

// ToRank converts a zero-based index back to a rank digit.
func ToRank(i int) Rank {
	return Rank(i + RankBase)
}

// OnBoard reports whether a zero-based index lies on the board.
func OnBoard(i int) bool {
	return i >= 0 && i <= MaxIndex
}

// SquareName returns the algebraic name of a square, e.g. "e4".
func SquareName(col Col, rank Rank) string {
	return string([]byte{byte(col), byte(rank)})
}
