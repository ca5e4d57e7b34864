package warehouse

import (
	"fmt"
	"iter"
)

// Policy proposes a location for a product. It must not mutate the store.
//
// A policy returns false when it finds no suitable location. A proposal is
// only a suggestion: [Store.AddProduct] re-validates it against the grid and
// the product's category.
type Policy[P Product] interface {
	Propose(s *Store[P], p P) (Coords, bool)
}

// PlacementObserver is implemented by policies that keep state across
// calls. [Store.AddProduct] calls Placed after a placement is committed and
// never after a failed one.
type PlacementObserver interface {
	Placed(at Coords)
}

// OversizedSearch selects how the free-range policies place oversized
// products.
type OversizedSearch uint8

const (
	// OversizedFirstFit scans every free range for one that can hold the
	// whole span on a single shelf, starting at the range's first coordinate
	// or at the start of the next shelf inside the range.
	OversizedFirstFit OversizedSearch = iota

	// OversizedNearestOnly considers only the first free range allowed by
	// the category. If the span does not fit there the policy gives up.
	OversizedNearestOnly
)

func (o OversizedSearch) String() string {
	switch o {
	case OversizedFirstFit:
		return "first-fit"
	case OversizedNearestOnly:
		return "nearest"
	default:
		return fmt.Sprintf("oversized-search(%d)", uint8(o))
	}
}

// ParseOversizedSearch parses "first-fit" or "nearest".
func ParseOversizedSearch(s string) (OversizedSearch, error) {
	switch s {
	case "first-fit", "":
		return OversizedFirstFit, nil
	case "nearest":
		return OversizedNearestOnly, nil
	default:
		return 0, fmt.Errorf("%w: unknown oversized search %q (want first-fit or nearest)", ErrInvalidInput, s)
	}
}

// Policy names accepted by [NewPolicy].
const (
	PolicyClosest        = "closest"
	PolicyClosestFree    = "closest-free"
	PolicyRoundRobin     = "round-robin"
	PolicyRoundRobinFree = "round-robin-free"
)

// PolicyNames returns the names accepted by [NewPolicy].
func PolicyNames() []string {
	return []string{PolicyClosest, PolicyClosestFree, PolicyRoundRobin, PolicyRoundRobinFree}
}

// NewPolicy returns a fresh policy by name. search applies to the
// free-range policies only.
func NewPolicy[P Product](name string, search OversizedSearch) (Policy[P], error) {
	switch name {
	case PolicyClosest:
		return NewClosestFirst[P](), nil
	case PolicyClosestFree:
		return NewClosestFirstFree[P](search), nil
	case PolicyRoundRobin:
		return NewRoundRobin[P](), nil
	case PolicyRoundRobinFree:
		return NewRoundRobinFree[P](search), nil
	default:
		return nil, fmt.Errorf("%w: unknown policy %q", ErrInvalidInput, name)
	}
}

// ClosestFirst proposes the lowest coordinate that can hold the product by
// walking the whole grid.
type ClosestFirst[P Product] struct{}

// NewClosestFirst returns a [ClosestFirst] policy.
func NewClosestFirst[P Product]() *ClosestFirst[P] {
	return &ClosestFirst[P]{}
}

// Propose implements [Policy].
func (*ClosestFirst[P]) Propose(s *Store[P], p P) (Coords, bool) {
	return scanGrid(s, p, 0)
}

// RoundRobin walks the grid like [ClosestFirst] but starts after the last
// successful placement and wraps around to the origin.
type RoundRobin[P Product] struct {
	cursor
}

// NewRoundRobin returns a [RoundRobin] policy whose first proposal starts at
// the origin.
func NewRoundRobin[P Product]() *RoundRobin[P] {
	return &RoundRobin[P]{}
}

// Propose implements [Policy].
func (r *RoundRobin[P]) Propose(s *Store[P], p P) (Coords, bool) {
	return scanGrid(s, p, r.start(s.maxIdx).Index(s.maxIdx))
}

// ClosestFirstFree proposes the lowest suitable coordinate by walking the
// free map instead of the grid.
type ClosestFirstFree[P Product] struct {
	Search OversizedSearch
}

// NewClosestFirstFree returns a [ClosestFirstFree] policy.
func NewClosestFirstFree[P Product](search OversizedSearch) *ClosestFirstFree[P] {
	return &ClosestFirstFree[P]{Search: search}
}

// Propose implements [Policy].
func (c *ClosestFirstFree[P]) Propose(s *Store[P], p P) (Coords, bool) {
	return scanFree(s.maxIdx, p.Category(), s.free.Ranges(), c.Search)
}

// RoundRobinFree walks the free map starting after the last successful
// placement, wrapping around to the origin.
type RoundRobinFree[P Product] struct {
	cursor

	Search OversizedSearch
}

// NewRoundRobinFree returns a [RoundRobinFree] policy whose first proposal
// starts at the origin.
func NewRoundRobinFree[P Product](search OversizedSearch) *RoundRobinFree[P] {
	return &RoundRobinFree[P]{Search: search}
}

// Propose implements [Policy].
func (r *RoundRobinFree[P]) Propose(s *Store[P], p P) (Coords, bool) {
	from := r.start(s.maxIdx)
	cat := p.Category()

	if at, ok := scanFree(s.maxIdx, cat, s.free.RangesWrapped(from), r.Search); ok {
		return at, true
	}

	// RangesWrapped cuts the range holding from in two. An oversized
	// product may still fit across the cut.
	extra := cat.extraZones()
	if extra == 0 || extra >= s.maxIdx {
		return Coords{}, false
	}

	own, ok := s.free.SpanAt(from)
	if !ok || own.First == from {
		return Coords{}, false
	}

	return fitOversized(own, extra, s.maxIdx)
}

// cursor remembers the last committed placement of a round-robin policy.
type cursor struct {
	last   Coords
	placed bool
}

// Placed implements [PlacementObserver].
func (c *cursor) Placed(at Coords) {
	c.last, c.placed = at, true
}

// Cursor returns the last committed placement, or false before the first.
func (c *cursor) Cursor() (Coords, bool) {
	return c.last, c.placed
}

// start returns where the next search begins: the successor of the last
// placement, or the origin before the first placement and after the last
// coordinate.
func (c *cursor) start(maxIdx int) Coords {
	if !c.placed {
		return Coords{}
	}

	next, ok := c.last.Next(maxIdx)
	if !ok {
		return Coords{}
	}

	return next
}

// scanGrid walks every slot in coordinate order, beginning at index start
// and wrapping at the end of the grid. After the wrap it continues to the
// end of start's shelf, so a free run straddling start is seen whole. It
// returns the first coordinate that starts a free run long enough for p on
// a single shelf.
func scanGrid[P Product](s *Store[P], p P, start int) (Coords, bool) {
	cat := p.Category()
	need := cat.extraZones() + 1
	limit, limited := cat.rowLimit()
	capacity := len(s.grid)

	if need > s.maxIdx {
		return Coords{}, false
	}

	run := 0
	steps := capacity
	if zone := start % s.maxIdx; zone > 0 {
		steps += s.maxIdx - zone
	}

	for i := 0; i < steps; i++ {
		idx := (start + i) % capacity
		c := CoordsAt(idx, s.maxIdx)

		if c.Zone == 0 {
			run = 0
		}

		// Rows above the limit extend to the end of the grid, skip to the wrap.
		if limited && c.Row > limit {
			i += capacity - idx - 1
			run = 0

			continue
		}

		if !s.grid[idx].IsFree() {
			run = 0

			continue
		}

		run++
		if run == need {
			return CoordsAt(idx-need+1, s.maxIdx), true
		}
	}

	return Coords{}, false
}

// scanFree returns the first position inside spans where cat fits.
func scanFree(maxIdx int, cat Category, spans iter.Seq[Span], search OversizedSearch) (Coords, bool) {
	extra := cat.extraZones()
	limit, limited := cat.rowLimit()

	if extra >= maxIdx {
		return Coords{}, false
	}

	for span := range spans {
		if limited && span.First.Row > limit {
			continue
		}

		if extra == 0 {
			return span.First, true
		}

		if at, ok := fitOversized(span, extra, maxIdx); ok {
			return at, true
		}

		if search == OversizedNearestOnly {
			return Coords{}, false
		}
	}

	return Coords{}, false
}

// fitOversized places extra continuation zones inside span. The candidate
// is the span's first coordinate, or the start of the following shelf if
// the span begins too late on its shelf.
func fitOversized(span Span, extra, maxIdx int) (Coords, bool) {
	lo, hi := span.First.Index(maxIdx), span.Last.Index(maxIdx)

	candidate := lo
	if span.First.Zone+extra >= maxIdx {
		candidate = (lo/maxIdx + 1) * maxIdx
	}

	if candidate+extra > hi {
		return Coords{}, false
	}

	return CoordsAt(candidate, maxIdx), true
}
