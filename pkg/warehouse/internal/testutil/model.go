package testutil

import (
	"fmt"

	"github.com/calvinalkan/warehouse/pkg/warehouse"
)

// Model is a brute-force warehouse: a flat slot array and a linear
// first-fit search. It has no free map and no indices; everything is
// recomputed from the slots on demand.
//
// Placement follows first-fit semantics, which every policy shares when
// oversized search is [warehouse.OversizedFirstFit]. Round-robin models
// resume after the last placement.
type Model struct {
	MaxIdx     int
	Slots      []warehouse.Slot[Goods]
	RoundRobin bool

	last   int
	placed bool
}

// NewModel returns an empty model. roundRobin selects the cursor policies.
func NewModel(maxIdx int, roundRobin bool) *Model {
	return &Model{
		MaxIdx:     maxIdx,
		Slots:      make([]warehouse.Slot[Goods], maxIdx*maxIdx*maxIdx),
		RoundRobin: roundRobin,
	}
}

// Add places g and returns where.
func (m *Model) Add(g Goods) (warehouse.Coords, error) {
	extra := 0
	if g.Cat.IsOversized() {
		extra = g.Cat.ZoneCount
	}

	limited := g.Cat.IsFragile()
	limit := g.Cat.MaxRow

	need := extra + 1
	if need > m.MaxIdx {
		return warehouse.Coords{}, warehouse.ErrFull
	}

	capacity := len(m.Slots)

	start := 0
	if m.RoundRobin && m.placed {
		start = (m.last + 1) % capacity
	}

	run := 0

	// One full lap, then on to the end of start's shelf so runs crossing
	// start are found.
	steps := capacity
	if zone := start % m.MaxIdx; zone > 0 {
		steps += m.MaxIdx - zone
	}

	for i := range steps {
		idx := (start + i) % capacity
		c := warehouse.CoordsAt(idx, m.MaxIdx)

		if c.Zone == 0 {
			run = 0
		}

		if (limited && c.Row > limit) || !m.Slots[idx].IsFree() {
			run = 0

			continue
		}

		run++
		if run < need {
			continue
		}

		first := idx - need + 1
		m.Slots[first] = warehouse.Slot[Goods]{State: warehouse.SlotOccupied, Product: g}

		for j := first + 1; j <= idx; j++ {
			m.Slots[j] = warehouse.Slot[Goods]{State: warehouse.SlotContinuation}
		}

		m.last, m.placed = first, true

		return warehouse.CoordsAt(first, m.MaxIdx), nil
	}

	return warehouse.Coords{}, warehouse.ErrFull
}

// Remove clears the product at c.
func (m *Model) Remove(c warehouse.Coords) (Goods, error) {
	if !c.Valid(m.MaxIdx) {
		return Goods{}, warehouse.ErrInvalidCoords
	}

	idx := c.Index(m.MaxIdx)

	switch m.Slots[idx].State {
	case warehouse.SlotFree:
		return Goods{}, warehouse.ErrNotFound
	case warehouse.SlotContinuation:
		return Goods{}, warehouse.ErrPlaceholder
	}

	g := m.Slots[idx].Product
	m.Slots[idx] = warehouse.Slot[Goods]{}

	for j := idx + 1; j < len(m.Slots) && m.Slots[j].State == warehouse.SlotContinuation; j++ {
		m.Slots[j] = warehouse.Slot[Goods]{}
	}

	return g, nil
}

// FreeSpans returns the maximal runs of free slots.
func (m *Model) FreeSpans() []warehouse.Span {
	var spans []warehouse.Span

	for idx, slot := range m.Slots {
		if !slot.IsFree() {
			continue
		}

		c := warehouse.CoordsAt(idx, m.MaxIdx)
		if n := len(spans); n > 0 && spans[n-1].Last.Index(m.MaxIdx) == idx-1 {
			spans[n-1].Last = c
		} else {
			spans = append(spans, warehouse.SpanOf(c))
		}
	}

	return spans
}

// Occupied returns the coordinates of every stored product in order.
func (m *Model) Occupied() []warehouse.Coords {
	var out []warehouse.Coords

	for idx, slot := range m.Slots {
		if slot.State == warehouse.SlotOccupied {
			out = append(out, warehouse.CoordsAt(idx, m.MaxIdx))
		}
	}

	return out
}

// ByName returns the coordinates of products named name in grid order.
func (m *Model) ByName(name string) []warehouse.Coords {
	var out []warehouse.Coords

	for _, c := range m.Occupied() {
		if m.Slots[c.Index(m.MaxIdx)].Product.Label == name {
			out = append(out, c)
		}
	}

	return out
}

func (m *Model) String() string {
	return fmt.Sprintf("model(max_idx=%d, products=%d, free_ranges=%d)", m.MaxIdx, len(m.Occupied()), len(m.FreeSpans()))
}
