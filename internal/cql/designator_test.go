package cql

import (
	"sync"
	"testing"

	"github.com/lgbarn/cql-go/internal/testutil"
)

func mustDesignator(t *testing.T, token string) *PieceDesignator {
	t.Helper()
	d, ok := NewPieceDesignator(token)
	if !ok {
		t.Fatalf("%q: expected a piece designator", token)
	}
	return d
}

func TestParsePieceDesignator(t *testing.T) {
	tests := []struct {
		token  string
		groups ParsedGroups
	}{
		{"K", ParsedGroups{Pieces: "K"}},
		{"a5", ParsedGroups{Squares: "a5"}},
		{"Kb2", ParsedGroups{Pieces: "K", Squares: "b2"}},
		{"[Kk]a5", ParsedGroups{Pieces: "Kk", CompoundPieces: true, Squares: "a5"}},
		{"R[a1,h1-8]", ParsedGroups{Pieces: "R", Squares: "a1,h1-8", CompoundSquares: true}},
		{"[Qq][c3,d-e4-5]", ParsedGroups{Pieces: "Qq", CompoundPieces: true, Squares: "c3,d-e4-5", CompoundSquares: true}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			groups, ok := ParsePieceDesignator(tt.token)
			testutil.AssertTrue(t, ok)
			testutil.AssertEqual(t, groups, tt.groups)
		})
	}
}

func TestParsePieceDesignatorRejects(t *testing.T) {
	for _, token := range []string{"", "x", "Ki9", "[a1", "Kb2c", "a1 b2", "[]"} {
		t.Run(token, func(t *testing.T) {
			_, ok := ParsePieceDesignator(token)
			testutil.AssertFalse(t, ok, "%q should not parse", token)
		})
	}
}

func TestExpandPieceDesignator(t *testing.T) {
	tests := []struct {
		token string
		set   []string
		valid bool
	}{
		{"Kb2", []string{"Kb2"}, true},
		{"Ra-c6", []string{"Ra6", "Rb6", "Rc6"}, true},
		{"a5", []string{"Aa5", "aa5"}, true},
		{"K", []string{"K"}, true},
		{"[Kk]e1-2", []string{"Ke1", "Ke2", "ke1", "ke2"}, true},
		{"N[a1,b2]", []string{"Na1", "Nb2"}, true},
		{"Qc-a7-6", []string{"Qa6", "Qa7", "Qb6", "Qb7", "Qc6", "Qc7"}, false},
		{"_[a1,c-a1]", []string{"_a1", "_b1", "_c1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			groups, ok := ParsePieceDesignator(tt.token)
			testutil.AssertTrue(t, ok)
			set, valid := ExpandPieceDesignator(groups)
			testutil.AssertEqual(t, set.Sorted(), tt.set)
			testutil.AssertEqual(t, valid, tt.valid)

			d := mustDesignator(t, tt.token)
			testutil.AssertEqual(t, d.Expand().Sorted(), tt.set)
			testutil.AssertEqual(t, d.SquareRangesValid(), tt.valid)
		})
	}
}

func TestExpandIsIdempotent(t *testing.T) {
	for _, token := range []string{"Kb2", "Ra-h2", "[Qq][a1,c-a7-6]", "h8"} {
		t.Run(token, func(t *testing.T) {
			groups, _ := ParsePieceDesignator(token)
			first, validFirst := ExpandPieceDesignator(groups)
			second, validSecond := ExpandPieceDesignator(groups)
			testutil.AssertEqual(t, first.Sorted(), second.Sorted())
			testutil.AssertEqual(t, validFirst, validSecond)

			d := mustDesignator(t, token)
			testutil.AssertEqual(t, d.Expand().Sorted(), d.Expand().Sorted())
		})
	}
}

func TestEmptyPieceExpandsToBothColours(t *testing.T) {
	d := mustDesignator(t, "[a1,b2]")
	for _, sq := range []string{"a1", "b2"} {
		testutil.AssertTrue(t, d.Expand().Contains("A"+sq), "white sentinel on %s", sq)
		testutil.AssertTrue(t, d.Expand().Contains("a"+sq), "black sentinel on %s", sq)
	}
	testutil.AssertEqual(t, d.Expand().Len(), 4)
}

func TestReversedRangeWalksWrittenDirection(t *testing.T) {
	r, ok := parseSquareRange("c-a8-7")
	testutil.AssertTrue(t, ok)
	testutil.AssertTrue(t, r.Reversed())
	testutil.AssertEqual(t, r.Squares(), []string{"c8", "c7", "b8", "b7", "a8", "a7"})
	testutil.AssertEqual(t, r.String(), "c-a8-7")
}

func TestDesignatorAccessors(t *testing.T) {
	d := mustDesignator(t, "[RQ][a1,c-e4]")
	testutil.AssertEqual(t, d.Pieces(), "RQ")
	testutil.AssertEqual(t, d.Squares(), "a1,c-e4")
	testutil.AssertEqual(t, d.SquaresList(), []string{"a1", "c-e4"})
	testutil.AssertTrue(t, d.IsCompoundPieces())
	testutil.AssertTrue(t, d.IsCompoundSquares())
	testutil.AssertEqual(t, d.String(), "[RQ][a1,c-e4]")

	plain := mustDesignator(t, "K")
	testutil.AssertEqual(t, plain.Squares(), "")
	testutil.AssertEqual(t, len(plain.SquaresList()), 0)
	testutil.AssertFalse(t, plain.IsCompoundPieces())
	testutil.AssertFalse(t, plain.IsCompoundSquares())
}

func TestShiftLimits(t *testing.T) {
	tests := []struct {
		token string
		ranks [2]int
		files [2]int
		valid bool
	}{
		{"Kb2", [2]int{1, 1}, [2]int{1, 1}, true},
		{"Ra-c6", [2]int{5, 5}, [2]int{0, 2}, true},
		// Full-width components do not restrict their axis.
		{"Ra-h2", [2]int{1, 1}, [2]int{0, 7}, true},
		{"Qe1-8", [2]int{0, 7}, [2]int{4, 4}, true},
		{"N[b2,f5]", [2]int{1, 4}, [2]int{1, 5}, true},
		{"K", [2]int{0, 7}, [2]int{0, 7}, true},
		{"Qc-a7-6", [2]int{5, 6}, [2]int{0, 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			d := mustDesignator(t, tt.token)
			ranks, files := [2]int{0, 7}, [2]int{0, 7}
			d.ShiftLimits(&ranks, &files)
			testutil.AssertEqual(t, ranks, tt.ranks, "ranks")
			testutil.AssertEqual(t, files, tt.files, "files")
			testutil.AssertEqual(t, d.SquareRangesValid(), tt.valid)
		})
	}
}

func TestShiftLimitsNarrowsIncomingLimits(t *testing.T) {
	d := mustDesignator(t, "Ra-c6")
	ranks, files := [2]int{0, 3}, [2]int{1, 7}
	d.ShiftLimits(&ranks, &files)
	testutil.AssertEqual(t, files, [2]int{1, 2})
	// Disjoint limits leave low above high.
	testutil.AssertEqual(t, ranks, [2]int{5, 3})
}

func TestCopyResetsDerivedState(t *testing.T) {
	d := mustDesignator(t, "Qc-a7-6")
	testutil.AssertFalse(t, d.SquareRangesValid())

	c := d.Copy()
	testutil.AssertEqual(t, c.String(), d.String())
	testutil.AssertEqual(t, c.Groups(), d.Groups())
	if c.set != nil {
		t.Error("copy should not carry the expanded set")
	}
	testutil.AssertTrue(t, c.rangesValid, "validity is reset until expansion")
	testutil.AssertEqual(t, c.Expand().Sorted(), d.Expand().Sorted())
	testutil.AssertFalse(t, c.SquareRangesValid())
}

func TestShifted(t *testing.T) {
	tests := []struct {
		token  string
		df, dr int
		want   string
		ok     bool
	}{
		{"Ra-c6", 1, -2, "Rb-d4", true},
		{"[Kk][a1,h1-2]", 0, 1, "[Kk][a2,h2-3]", true},
		{"K", 3, 3, "K", true},
		{"Ra-c6", 6, 0, "", false},
		{"Pa2", 0, -2, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			shifted, ok := mustDesignator(t, tt.token).Shifted(tt.df, tt.dr)
			testutil.AssertEqual(t, ok, tt.ok)
			if ok {
				testutil.AssertEqual(t, shifted.String(), tt.want)
				again := mustDesignator(t, tt.want)
				testutil.AssertEqual(t, shifted.Expand().Sorted(), again.Expand().Sorted())
			}
		})
	}
}

func TestDesignatorCache(t *testing.T) {
	cache := NewDesignatorCache()

	first, ok := cache.Get("Ra-c6")
	testutil.AssertTrue(t, ok)
	second, _ := cache.Get("Ra-c6")
	if first == second {
		t.Error("cache should hand out distinct designators")
	}
	testutil.AssertEqual(t, second.Expand().Sorted(), []string{"Ra6", "Rb6", "Rc6"})

	_, ok = cache.Get("xyz")
	testutil.AssertFalse(t, ok)
	testutil.AssertEqual(t, cache.Len(), 2)

	reversed, _ := cache.Get("Qc-a7-6")
	testutil.AssertFalse(t, reversed.SquareRangesValid())
}

func TestDesignatorCacheConcurrent(t *testing.T) {
	cache := NewDesignatorCache()
	tokens := []string{"Kb2", "Ra-h2", "[Kk]a5", "N[a1,b2]", "a5"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, token := range tokens {
				if _, ok := cache.Get(token); !ok {
					t.Errorf("%q: expected a designator", token)
				}
			}
		}()
	}
	wg.Wait()
	testutil.AssertEqual(t, cache.Len(), len(tokens))
}
