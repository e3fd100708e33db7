package cql

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lgbarn/cql-go/internal/chess"
)

// Piece designator grammar:
//
//	square     := file ('-' file)? rank ('-' rank)?
//	squares    := square | '[' square (',' square)* ']'
//	pieces     := letter | '[' letter+ ']'
//	designator := pieces? squares?   (at least one present)
const (
	pieceClass        = `[KQRBNPkqrbnpAa_]`
	squareGrammar     = `[a-h](?:-[a-h])?[1-8](?:-[1-8])?`
	squareListGrammar = `\[` + squareGrammar + `(?:,` + squareGrammar + `)*\]`
	designatorGrammar = `(?:\[` + pieceClass + `+\]|` + pieceClass + `)?(?:` + squareListGrammar + `|` + squareGrammar + `)?`

	// squareSeparator separates the members of a compound square list.
	squareSeparator = ","
)

var (
	designatorPattern = regexp.MustCompile(
		`^(?:\[(` + pieceClass + `+)\]|(` + pieceClass + `))?` +
			`(?:\[(` + squareGrammar + `(?:,` + squareGrammar + `)*)\]|(` + squareGrammar + `))?$`)
	squarePattern = regexp.MustCompile(`^([a-h])(?:-([a-h]))?([1-8])(?:-([1-8]))?$`)
)

// ParsedGroups holds the structural parts of a piece designator.
type ParsedGroups struct {
	Pieces          string // piece letters, brackets removed
	CompoundPieces  bool   // pieces were written as [..]
	Squares         string // square text, brackets removed
	CompoundSquares bool   // squares were written as [..]
}

// ParsePieceDesignator matches token against the designator grammar.
// ok is false when the token is not a piece designator.
func ParsePieceDesignator(token string) (groups ParsedGroups, ok bool) {
	m := designatorPattern.FindStringSubmatch(token)
	if m == nil || token == "" {
		return ParsedGroups{}, false
	}
	switch {
	case m[1] != "":
		groups.Pieces, groups.CompoundPieces = m[1], true
	case m[2] != "":
		groups.Pieces = m[2]
	}
	switch {
	case m[3] != "":
		groups.Squares, groups.CompoundSquares = m[3], true
	case m[4] != "":
		groups.Squares = m[4]
	}
	return groups, true
}

// SquareRange is one square component: a single square, a file range, a
// rank range, or both. Endpoints are kept as written.
type SquareRange struct {
	FileFrom, FileTo chess.Col
	RankFrom, RankTo chess.Rank
}

func parseSquareRange(text string) (SquareRange, bool) {
	m := squarePattern.FindStringSubmatch(text)
	if m == nil {
		return SquareRange{}, false
	}
	r := SquareRange{
		FileFrom: chess.Col(m[1][0]),
		RankFrom: chess.Rank(m[3][0]),
	}
	r.FileTo, r.RankTo = r.FileFrom, r.RankFrom
	if m[2] != "" {
		r.FileTo = chess.Col(m[2][0])
	}
	if m[4] != "" {
		r.RankTo = chess.Rank(m[4][0])
	}
	return r, true
}

// Reversed reports whether either range was written high-to-low, e.g. c-a.
func (r SquareRange) Reversed() bool {
	return r.FileFrom > r.FileTo || r.RankFrom > r.RankTo
}

// files returns the zero-based file bounds in ascending order.
func (r SquareRange) files() (int, int) {
	lo, hi := chess.ColIndex(r.FileFrom), chess.ColIndex(r.FileTo)
	return min(lo, hi), max(lo, hi)
}

// ranks returns the zero-based rank bounds in ascending order.
func (r SquareRange) ranks() (int, int) {
	lo, hi := chess.RankIndex(r.RankFrom), chess.RankIndex(r.RankTo)
	return min(lo, hi), max(lo, hi)
}

// Squares lists every square the range covers, walking each axis from its
// written start to its written end.
func (r SquareRange) Squares() []string {
	var out []string
	fileStep, rankStep := direction(int(r.FileFrom), int(r.FileTo)), direction(int(r.RankFrom), int(r.RankTo))
	for f := int(r.FileFrom); ; f += fileStep {
		for rk := int(r.RankFrom); ; rk += rankStep {
			out = append(out, chess.SquareName(chess.Col(f), chess.Rank(rk)))
			if rk == int(r.RankTo) {
				break
			}
		}
		if f == int(r.FileTo) {
			break
		}
	}
	return out
}

func (r SquareRange) String() string {
	var b strings.Builder
	b.WriteByte(byte(r.FileFrom))
	if r.FileTo != r.FileFrom {
		b.WriteByte('-')
		b.WriteByte(byte(r.FileTo))
	}
	b.WriteByte(byte(r.RankFrom))
	if r.RankTo != r.RankFrom {
		b.WriteByte('-')
		b.WriteByte(byte(r.RankTo))
	}
	return b.String()
}

func (r SquareRange) shifted(df, dr int) (SquareRange, bool) {
	out := SquareRange{
		FileFrom: r.FileFrom + chess.Col(df),
		FileTo:   r.FileTo + chess.Col(df),
		RankFrom: r.RankFrom + chess.Rank(dr),
		RankTo:   r.RankTo + chess.Rank(dr),
	}
	lo, hi := out.files()
	rlo, rhi := out.ranks()
	if !chess.IsCol(byte(out.FileFrom)) || !chess.IsCol(byte(out.FileTo)) ||
		!chess.OnBoard(lo) || !chess.OnBoard(hi) || !chess.OnBoard(rlo) || !chess.OnBoard(rhi) {
		return SquareRange{}, false
	}
	return out, true
}

func direction(from, to int) int {
	if from > to {
		return -1
	}
	return 1
}

func squareRanges(groups ParsedGroups) []SquareRange {
	if groups.Squares == "" {
		return nil
	}
	parts := strings.Split(groups.Squares, squareSeparator)
	ranges := make([]SquareRange, 0, len(parts))
	for _, part := range parts {
		if r, ok := parseSquareRange(part); ok {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

// DesignatorSet is the literal set of "<piece><square>" strings a
// designator denotes. An empty square part means "any square".
type DesignatorSet map[string]struct{}

// Contains reports whether s is a member of the set.
func (s DesignatorSet) Contains(member string) bool {
	_, ok := s[member]
	return ok
}

// Len returns the number of members.
func (s DesignatorSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order.
func (s DesignatorSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for member := range s {
		out = append(out, member)
	}
	sort.Strings(out)
	return out
}

// ExpandPieceDesignator computes the designator set for parsed groups. valid
// is false when any square range was written in reverse. An empty piece
// component stands for any white or any black piece.
func ExpandPieceDesignator(groups ParsedGroups) (set DesignatorSet, valid bool) {
	return expand(groups, squareRanges(groups))
}

func expand(groups ParsedGroups, ranges []SquareRange) (DesignatorSet, bool) {
	valid := true
	squares := []string{""}
	if len(ranges) > 0 {
		squares = squares[:0]
		for _, r := range ranges {
			if r.Reversed() {
				valid = false
			}
			squares = append(squares, r.Squares()...)
		}
	}

	pieces := groups.Pieces
	if pieces == "" {
		pieces = chess.AnyPiece
	}

	set := make(DesignatorSet, len(pieces)*len(squares))
	for i := 0; i < len(pieces); i++ {
		for _, sq := range squares {
			set[string(pieces[i])+sq] = struct{}{}
		}
	}
	return set, valid
}

// PieceDesignator is one parsed piece-designator token. The designator set
// and validity flag are derived lazily and cached.
type PieceDesignator struct {
	raw    string
	groups ParsedGroups
	ranges []SquareRange

	set         DesignatorSet // nil until expanded
	rangesValid bool
}

// NewPieceDesignator parses token. ok is false if token is not a designator.
func NewPieceDesignator(token string) (*PieceDesignator, bool) {
	groups, ok := ParsePieceDesignator(token)
	if !ok {
		return nil, false
	}
	return &PieceDesignator{
		raw:         token,
		groups:      groups,
		ranges:      squareRanges(groups),
		rangesValid: true,
	}, true
}

// Copy returns a designator with the same source text and parsed groups.
// The designator set and validity flag are reset to "not yet computed".
func (d *PieceDesignator) Copy() *PieceDesignator {
	return &PieceDesignator{
		raw:         d.raw,
		groups:      d.groups,
		ranges:      append([]SquareRange(nil), d.ranges...),
		rangesValid: true,
	}
}

// Expand returns the designator set, computing it on first use.
func (d *PieceDesignator) Expand() DesignatorSet {
	if d.set == nil {
		var valid bool
		d.set, valid = expand(d.groups, d.ranges)
		d.rangesValid = d.rangesValid && valid
	}
	return d.set
}

// SquareRangesValid reports whether every square range was written
// low-to-high.
func (d *PieceDesignator) SquareRangesValid() bool {
	d.Expand()
	return d.rangesValid
}

// ShiftLimits narrows the zero-based [low, high] rank and file limits to
// the bounding box of this designator's square components. A component
// spanning a whole axis does not restrict that axis. Reversed ranges clear
// the validity flag.
func (d *PieceDesignator) ShiftLimits(rankLimits, fileLimits *[2]int) {
	fileLo, fileHi := chess.BoardSize, -1
	rankLo, rankHi := chess.BoardSize, -1
	for _, r := range d.ranges {
		if r.Reversed() {
			d.rangesValid = false
		}
		if lo, hi := r.files(); lo != 0 || hi != chess.MaxIndex {
			fileLo, fileHi = min(fileLo, lo), max(fileHi, hi)
		}
		if lo, hi := r.ranks(); lo != 0 || hi != chess.MaxIndex {
			rankLo, rankHi = min(rankLo, lo), max(rankHi, hi)
		}
	}
	if fileHi >= 0 {
		fileLimits[0], fileLimits[1] = max(fileLimits[0], fileLo), min(fileLimits[1], fileHi)
	}
	if rankHi >= 0 {
		rankLimits[0], rankLimits[1] = max(rankLimits[0], rankLo), min(rankLimits[1], rankHi)
	}
}

// Shifted returns a copy translated by df files and dr ranks, or false if
// any square would leave the board.
func (d *PieceDesignator) Shifted(df, dr int) (*PieceDesignator, bool) {
	c := d.Copy()
	parts := make([]string, len(c.ranges))
	for i, r := range c.ranges {
		moved, ok := r.shifted(df, dr)
		if !ok {
			return nil, false
		}
		c.ranges[i] = moved
		parts[i] = moved.String()
	}
	c.groups.Squares = strings.Join(parts, squareSeparator)
	c.raw = c.groups.String()
	return c, true
}

// String returns the designator's source text.
func (d *PieceDesignator) String() string {
	return d.raw
}

// Groups returns the parsed structural groups.
func (d *PieceDesignator) Groups() ParsedGroups {
	return d.groups
}

// Ranges returns the square components.
func (d *PieceDesignator) Ranges() []SquareRange {
	return append([]SquareRange(nil), d.ranges...)
}

// Pieces returns the piece letters, or "" when no piece was given.
func (d *PieceDesignator) Pieces() string {
	return d.groups.Pieces
}

// Squares returns the square text without brackets.
func (d *PieceDesignator) Squares() string {
	return d.groups.Squares
}

// SquaresList splits the square text on the list separator.
func (d *PieceDesignator) SquaresList() []string {
	if d.groups.Squares == "" {
		return nil
	}
	return strings.Split(d.groups.Squares, squareSeparator)
}

// IsCompoundSquares reports whether squares were written as a [..] list.
func (d *PieceDesignator) IsCompoundSquares() bool {
	return d.groups.CompoundSquares
}

// IsCompoundPieces reports whether pieces were written as a [..] list.
func (d *PieceDesignator) IsCompoundPieces() bool {
	return d.groups.CompoundPieces
}

// String renders groups back into designator syntax.
func (g ParsedGroups) String() string {
	var b strings.Builder
	if g.CompoundPieces {
		b.WriteString("[" + g.Pieces + "]")
	} else {
		b.WriteString(g.Pieces)
	}
	if g.CompoundSquares {
		b.WriteString("[" + g.Squares + "]")
	} else {
		b.WriteString(g.Squares)
	}
	return b.String()
}
