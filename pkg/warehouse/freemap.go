package warehouse

import (
	"encoding/json"
	"fmt"
	"iter"

	"github.com/tidwall/btree"
)

// Span is an inclusive range of coordinates in coordinate order.
type Span struct {
	First Coords
	Last  Coords
}

// SpanOf returns the single-coordinate span [c, c].
func SpanOf(c Coords) Span {
	return Span{First: c, Last: c}
}

// Contains reports whether c lies inside s.
func (s Span) Contains(c Coords) bool {
	return Compare(s.First, c) <= 0 && Compare(c, s.Last) <= 0
}

// Len returns the number of coordinates in s.
func (s Span) Len(maxIdx int) int {
	return s.Last.Index(maxIdx) - s.First.Index(maxIdx) + 1
}

func (s Span) String() string {
	if s.First == s.Last {
		return s.First.String()
	}

	return s.First.String() + "..=" + s.Last.String()
}

// MarshalJSON encodes s as [first, last].
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]Coords{s.First, s.Last})
}

// UnmarshalJSON decodes [first, last].
func (s *Span) UnmarshalJSON(data []byte) error {
	var pair [2]Coords

	err := json.Unmarshal(data, &pair)
	if err != nil {
		return err
	}

	s.First, s.Last = pair[0], pair[1]

	return nil
}

// interval is a span in linearized form.
type interval struct {
	lo int
	hi int
}

func intervalLess(a, b interval) bool {
	return a.lo < b.lo
}

// FreeMap tracks free coordinates as a set of disjoint, maximal, inclusive
// spans ordered by their first coordinate. Adjacent spans are always
// coalesced, so every span is a maximal run of free slots.
//
// Lookups of "the first free coordinate at or after X" cost time in the
// number of fragments, not in the warehouse capacity.
type FreeMap struct {
	maxIdx int
	tree   *btree.BTreeG[interval]
	free   int
}

// NewFreeMap returns a map for a warehouse of the given size with every
// coordinate free.
func NewFreeMap(maxIdx int) *FreeMap {
	m := newEmptyFreeMap(maxIdx)

	capacity := maxIdx * maxIdx * maxIdx
	if capacity > 0 {
		m.tree.Set(interval{lo: 0, hi: capacity - 1})
		m.free = capacity
	}

	return m
}

func newEmptyFreeMap(maxIdx int) *FreeMap {
	return &FreeMap{
		maxIdx: maxIdx,
		tree:   btree.NewBTreeGOptions(intervalLess, btree.Options{NoLocks: true}),
	}
}

// MaxIdx returns the warehouse size the map was created for.
func (m *FreeMap) MaxIdx() int {
	return m.maxIdx
}

// Len returns the number of free spans.
func (m *FreeMap) Len() int {
	return m.tree.Len()
}

// FreeSlots returns the number of free coordinates.
func (m *FreeMap) FreeSlots() int {
	return m.free
}

// Contains reports whether c is free.
func (m *FreeMap) Contains(c Coords) bool {
	if !c.Valid(m.maxIdx) {
		return false
	}

	_, ok := m.owner(c.Index(m.maxIdx))

	return ok
}

// Occupy removes span from the free set. It fails without mutating unless
// the whole span lies inside a single free span.
func (m *FreeMap) Occupy(span Span) bool {
	lo, hi, ok := m.bounds(span)
	if !ok {
		return false
	}

	own, found := m.owner(lo)
	if !found || own.hi < hi {
		return false
	}

	m.tree.Delete(own)

	if own.lo < lo {
		m.tree.Set(interval{lo: own.lo, hi: lo - 1})
	}

	if hi < own.hi {
		m.tree.Set(interval{lo: hi + 1, hi: own.hi})
	}

	m.free -= hi - lo + 1

	return true
}

// Free returns span to the free set, coalescing with neighbouring spans. It
// fails without mutating if any coordinate of span is already free.
func (m *FreeMap) Free(span Span) bool {
	lo, hi, ok := m.bounds(span)
	if !ok {
		return false
	}

	// The last span starting at or before hi is the only one that can overlap.
	prev, hasPrev := m.floor(hi)
	if hasPrev && prev.hi >= lo {
		return false
	}

	merged := interval{lo: lo, hi: hi}

	if hasPrev && prev.hi == lo-1 {
		m.tree.Delete(prev)
		merged.lo = prev.lo
	}

	if next, hasNext := m.tree.Get(interval{lo: hi + 1}); hasNext {
		m.tree.Delete(next)
		merged.hi = next.hi
	}

	m.tree.Set(merged)
	m.free += hi - lo + 1

	return true
}

// Ranges yields the free spans in ascending order.
//
// The sequence is lazy and may be ranged over any number of times. The map
// must not be mutated while a range loop is running.
func (m *FreeMap) Ranges() iter.Seq[Span] {
	return func(yield func(Span) bool) {
		m.tree.Scan(func(it interval) bool {
			return yield(m.span(it))
		})
	}
}

// RangesFrom yields the free spans at or after from, in ascending order. A
// span that straddles from is yielded clipped to begin at from.
func (m *FreeMap) RangesFrom(from Coords) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		if !from.Valid(m.maxIdx) {
			return
		}

		start := from.Index(m.maxIdx)

		if own, ok := m.owner(start); ok && own.lo < start {
			if !yield(m.span(interval{lo: start, hi: own.hi})) {
				return
			}
		}

		m.tree.Ascend(interval{lo: start}, func(it interval) bool {
			return yield(m.span(it))
		})
	}
}

// RangesWrapped yields [FreeMap.RangesFrom] of from, then wraps to the
// origin and yields the free space before from. Every free coordinate is
// covered exactly once.
func (m *FreeMap) RangesWrapped(from Coords) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		if !from.Valid(m.maxIdx) {
			return
		}

		for span := range m.RangesFrom(from) {
			if !yield(span) {
				return
			}
		}

		start := from.Index(m.maxIdx)

		m.tree.Scan(func(it interval) bool {
			if it.lo >= start {
				return false
			}

			if it.hi >= start {
				it.hi = start - 1
			}

			return yield(m.span(it))
		})
	}
}

// SpanAt returns the maximal free span containing c.
func (m *FreeMap) SpanAt(c Coords) (Span, bool) {
	if !c.Valid(m.maxIdx) {
		return Span{}, false
	}

	own, ok := m.owner(c.Index(m.maxIdx))
	if !ok {
		return Span{}, false
	}

	return m.span(own), true
}

// Spans returns a copy of the free spans in ascending order.
func (m *FreeMap) Spans() []Span {
	spans := make([]Span, 0, m.tree.Len())
	for span := range m.Ranges() {
		spans = append(spans, span)
	}

	return spans
}

// Clone returns an independent copy of m.
func (m *FreeMap) Clone() *FreeMap {
	return &FreeMap{maxIdx: m.maxIdx, tree: m.tree.Copy(), free: m.free}
}

// owner returns the free interval containing idx.
func (m *FreeMap) owner(idx int) (interval, bool) {
	it, ok := m.floor(idx)
	if !ok || it.hi < idx {
		return interval{}, false
	}

	return it, true
}

// floor returns the last interval whose lo is <= idx.
func (m *FreeMap) floor(idx int) (interval, bool) {
	var (
		found interval
		ok    bool
	)

	m.tree.Descend(interval{lo: idx}, func(it interval) bool {
		found, ok = it, true

		return false
	})

	return found, ok
}

func (m *FreeMap) bounds(span Span) (int, int, bool) {
	if !span.First.Valid(m.maxIdx) || !span.Last.Valid(m.maxIdx) {
		return 0, 0, false
	}

	lo, hi := span.First.Index(m.maxIdx), span.Last.Index(m.maxIdx)
	if lo > hi {
		return 0, 0, false
	}

	return lo, hi, true
}

func (m *FreeMap) span(it interval) Span {
	return Span{First: CoordsAt(it.lo, m.maxIdx), Last: CoordsAt(it.hi, m.maxIdx)}
}

type freeMapJSON struct {
	MaxIdx int    `json:"store_max_idx"`
	Ranges []Span `json:"ranges"`
}

// MarshalJSON encodes the map as {"store_max_idx": n, "ranges": [...]}.
func (m *FreeMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(freeMapJSON{MaxIdx: m.maxIdx, Ranges: m.Spans()})
}

// UnmarshalJSON decodes the map. Spans must be valid, ascending, disjoint
// and non-adjacent.
func (m *FreeMap) UnmarshalJSON(data []byte) error {
	var raw freeMapJSON

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	decoded, err := freeMapFromSpans(raw.MaxIdx, raw.Ranges)
	if err != nil {
		return err
	}

	*m = *decoded

	return nil
}

func freeMapFromSpans(maxIdx int, spans []Span) (*FreeMap, error) {
	m := newEmptyFreeMap(maxIdx)
	prevHi := -2

	for _, span := range spans {
		lo, hi, ok := m.bounds(span)
		if !ok {
			return nil, fmt.Errorf("%w: free range %s out of bounds", ErrCorrupt, span)
		}

		if lo <= prevHi+1 {
			return nil, fmt.Errorf("%w: free range %s overlaps or touches its predecessor", ErrCorrupt, span)
		}

		m.tree.Set(interval{lo: lo, hi: hi})
		m.free += hi - lo + 1
		prevHi = hi
	}

	return m, nil
}
