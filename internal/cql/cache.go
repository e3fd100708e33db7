package cql

import "sync"

type cachedDesignator struct {
	groups ParsedGroups
	ranges []SquareRange
	set    DesignatorSet
	valid  bool
	ok     bool
}

// DesignatorCache memoizes designator parsing and expansion by token text.
// It is safe for concurrent use, so one cache can serve many compilations
// running at once. Cached sets are shared and must be treated as read-only.
type DesignatorCache struct {
	entries map[string]cachedDesignator
	mu      sync.RWMutex
}

// NewDesignatorCache creates an empty cache.
func NewDesignatorCache() *DesignatorCache {
	return &DesignatorCache{entries: make(map[string]cachedDesignator)}
}

// Get returns a fresh designator for token, parsing and expanding it only
// the first time the token is seen. ok is false if token is not a
// designator; misses are cached too.
func (c *DesignatorCache) Get(token string) (*PieceDesignator, bool) {
	c.mu.RLock()
	entry, found := c.entries[token]
	c.mu.RUnlock()

	if !found {
		entry = c.load(token)
	}
	if !entry.ok {
		return nil, false
	}
	return &PieceDesignator{
		raw:         token,
		groups:      entry.groups,
		ranges:      append([]SquareRange(nil), entry.ranges...),
		set:         entry.set,
		rangesValid: entry.valid,
	}, true
}

func (c *DesignatorCache) load(token string) cachedDesignator {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, found := c.entries[token]; found {
		return entry
	}

	var entry cachedDesignator
	if d, ok := NewPieceDesignator(token); ok {
		entry = cachedDesignator{
			groups: d.groups,
			ranges: d.ranges,
			set:    d.Expand(),
			valid:  d.SquareRangesValid(),
			ok:     true,
		}
	}
	c.entries[token] = entry
	return entry
}

// Len returns the number of cached tokens, including non-designators.
func (c *DesignatorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
