package warehouse

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/tidwall/btree"
)

// Snapshot is the serializable state of a [Store]: the grid as a
// [row][shelf][zone] array, the three indices and the free map. Filters and
// policies are not part of it.
//
// A snapshot shares product values with the store it was taken from.
type Snapshot[P Product] struct {
	MaxIdx   int                 `json:"store_max_idx"`
	Store    [][][]Slot[P]       `json:"store"`
	ByName   map[string][]Coords `json:"store_index_by_name"`
	ByID     map[int64][]Coords  `json:"store_index_by_id"`
	ByExpiry map[string][]int64  `json:"store_index_expiry_dates"`
	FreeMap  *FreeMap            `json:"free_map"`
}

// Snapshot captures the current state.
func (s *Store[P]) Snapshot() Snapshot[P] {
	n := s.maxIdx
	grid := make([][][]Slot[P], n)

	for r := range n {
		grid[r] = make([][]Slot[P], n)
		for sh := range n {
			lo := At(r, sh, 0).Index(n)
			grid[r][sh] = slices.Clone(s.grid[lo : lo+n])
		}
	}

	return Snapshot[P]{
		MaxIdx:   n,
		Store:    grid,
		ByName:   collect(s.byName),
		ByID:     collect(s.byID),
		ByExpiry: collect(s.byExpiry),
		FreeMap:  s.free.Clone(),
	}
}

// Restore builds a store from snap. The grid is authoritative: the indices
// and free ranges in snap must equal the ones derived from it, otherwise
// Restore fails with [ErrCorrupt].
//
// opts.MaxIdx is ignored; the size comes from the snapshot.
func Restore[P Product](snap Snapshot[P], opts Options) (*Store[P], error) {
	n := snap.MaxIdx
	if n <= 0 {
		return nil, fmt.Errorf("%w: store_max_idx must be positive, got %d", ErrCorrupt, n)
	}

	if snap.FreeMap == nil {
		return nil, fmt.Errorf("%w: missing free_map", ErrCorrupt)
	}

	if snap.FreeMap.MaxIdx() != n {
		return nil, fmt.Errorf("%w: free_map size %d, store size %d", ErrCorrupt, snap.FreeMap.MaxIdx(), n)
	}

	opts.MaxIdx = n
	s := newStore[P](opts)
	s.grid = make([]Slot[P], 0, n*n*n)

	if len(snap.Store) != n {
		return nil, fmt.Errorf("%w: store has %d rows, want %d", ErrCorrupt, len(snap.Store), n)
	}

	for r, row := range snap.Store {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d shelves, want %d", ErrCorrupt, r, len(row), n)
		}

		for sh, shelf := range row {
			if len(shelf) != n {
				return nil, fmt.Errorf("%w: shelf (%d, %d) has %d zones, want %d", ErrCorrupt, r, sh, len(shelf), n)
			}

			s.grid = append(s.grid, shelf...)
		}
	}

	for key, coords := range snap.ByName {
		s.byName.Set(key, slices.Clone(coords))
	}

	for key, coords := range snap.ByID {
		s.byID.Set(key, slices.Clone(coords))
	}

	for key, ids := range snap.ByExpiry {
		s.byExpiry.Set(key, slices.Clone(ids))
	}

	s.free = snap.FreeMap.Clone()

	for _, slot := range s.grid {
		if slot.State == SlotOccupied {
			s.count++
		}
	}

	err := s.Verify()
	if err != nil {
		return nil, err
	}

	s.metrics.observeFree(s.free)

	return s, nil
}

// Encode writes the snapshot of s as indented JSON.
func (s *Store[P]) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(s.Snapshot())
	if err != nil {
		return fmt.Errorf("warehouse: encode snapshot: %w", err)
	}

	return nil
}

// Decode reads a JSON snapshot from r and restores it.
func Decode[P Product](r io.Reader, opts Options) (*Store[P], error) {
	var snap Snapshot[P]

	err := json.NewDecoder(r).Decode(&snap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	return Restore(snap, opts)
}

// Verify checks that the grid, the free map and the indices agree:
//
//   - every continuation slot belongs to the oversized product stored
//     immediately before it on the same shelf,
//   - the free map holds exactly the free slots, as maximal ranges,
//   - each index lists exactly the products found in the grid.
//
// Violations are reported as [ErrCorrupt].
func (s *Store[P]) Verify() error {
	n := s.maxIdx
	if len(s.grid) != n*n*n {
		return fmt.Errorf("%w: grid has %d slots, want %d", ErrCorrupt, len(s.grid), n*n*n)
	}

	var (
		free     []Span
		byName   = map[string][]Coords{}
		byID     = map[int64][]Coords{}
		byExpiry = map[string][]int64{}
		pending  int
		count    int
	)

	for idx, slot := range s.grid {
		c := CoordsAt(idx, n)

		if c.Zone == 0 && pending > 0 {
			return fmt.Errorf("%w: oversized product before %s runs past its shelf", ErrCorrupt, c)
		}

		switch slot.State {
		case SlotFree:
			if pending > 0 {
				return fmt.Errorf("%w: free slot %s inside an oversized product", ErrCorrupt, c)
			}

			if last := len(free) - 1; last >= 0 && free[last].Last.Index(n) == idx-1 {
				free[last].Last = c
			} else {
				free = append(free, SpanOf(c))
			}
		case SlotContinuation:
			if pending == 0 {
				return fmt.Errorf("%w: continuation slot %s without owner", ErrCorrupt, c)
			}

			pending--
		case SlotOccupied:
			if pending > 0 {
				return fmt.Errorf("%w: product at %s inside an oversized product", ErrCorrupt, c)
			}

			p := slot.Product
			cat := p.Category()

			if cat.ZoneCount < 0 {
				return fmt.Errorf("%w: product at %s has negative zone count", ErrCorrupt, c)
			}

			pending = cat.extraZones()
			count++

			byName[p.Name()] = append(byName[p.Name()], c)
			byID[p.ID()] = append(byID[p.ID()], c)

			if cat.IsFragile() {
				key := dayKey(cat.ExpiryDate)
				byExpiry[key] = append(byExpiry[key], p.ID())
			}
		default:
			return fmt.Errorf("%w: slot %s has unknown state %s", ErrCorrupt, c, slot.State)
		}
	}

	if pending > 0 {
		return fmt.Errorf("%w: oversized product runs past the last shelf", ErrCorrupt)
	}

	if count != s.count {
		return fmt.Errorf("%w: %d products in grid, store counts %d", ErrCorrupt, count, s.count)
	}

	if got := s.free.Spans(); !slices.Equal(got, free) {
		return fmt.Errorf("%w: free map has %d ranges, grid has %d free ranges", ErrCorrupt, len(got), len(free))
	}

	if s.free.FreeSlots() != len(s.grid)-s.occupiedSlots() {
		return fmt.Errorf("%w: free map counts %d free slots", ErrCorrupt, s.free.FreeSlots())
	}

	err := sameIndex("name", collect(s.byName), byName, Compare)
	if err != nil {
		return err
	}

	err = sameIndex("id", collect(s.byID), byID, Compare)
	if err != nil {
		return err
	}

	return sameIndex("expiry", collect(s.byExpiry), byExpiry, cmp.Compare[int64])
}

func (s *Store[P]) occupiedSlots() int {
	n := 0

	for _, slot := range s.grid {
		if !slot.IsFree() {
			n++
		}
	}

	return n
}

// sameIndex compares two indices as maps of multisets.
func sameIndex[K ordered, V any](name string, got, want map[K][]V, compare func(a, b V) int) error {
	for _, key := range slices.Sorted(maps.Keys(want)) {
		values, ok := got[key]
		if !ok {
			return fmt.Errorf("%w: %s index is missing key %v", ErrCorrupt, name, key)
		}

		a := slices.SortedFunc(slices.Values(values), compare)
		b := slices.SortedFunc(slices.Values(want[key]), compare)

		if !slices.EqualFunc(a, b, func(x, y V) bool { return compare(x, y) == 0 }) {
			return fmt.Errorf("%w: %s index entry %v disagrees with the grid", ErrCorrupt, name, key)
		}
	}

	for _, key := range slices.Sorted(maps.Keys(got)) {
		if _, ok := want[key]; !ok {
			return fmt.Errorf("%w: %s index has stale key %v", ErrCorrupt, name, key)
		}
	}

	return nil
}

func collect[K ordered, V any](m *btree.Map[K, []V]) map[K][]V {
	out := map[K][]V{}

	m.Scan(func(key K, values []V) bool {
		out[key] = slices.Clone(values)

		return true
	})

	return out
}
