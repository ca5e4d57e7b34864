package warehouse

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/btree"
)

// Options configures [New] and [Restore].
type Options struct {
	// MaxIdx is the number of rows, shelves per row and zones per shelf.
	// Must be positive.
	MaxIdx int

	// Logger receives debug events for placements, removals and rejections.
	// Nil disables logging.
	Logger *zerolog.Logger

	// Metrics, if set, is updated on every mutation.
	Metrics *Metrics
}

// Store is a warehouse: the slot grid, the free map and three secondary
// indices (by name, by identifier, by expiry date).
//
// The grid, the free map and the indices change only through
// [Store.AddProduct] and [Store.RemoveProduct], which update all of them or
// none of them.
type Store[P Product] struct {
	maxIdx int
	grid   []Slot[P]
	free   *FreeMap

	byName   *btree.Map[string, []Coords]
	byID     *btree.Map[int64, []Coords]
	byExpiry *btree.Map[string, []int64]
	count    int

	filters []Filter[P]

	logger  zerolog.Logger
	metrics *Metrics
}

// New returns an empty warehouse.
func New[P Product](opts Options) (*Store[P], error) {
	if opts.MaxIdx <= 0 {
		return nil, fmt.Errorf("%w: max_idx must be positive, got %d", ErrInvalidInput, opts.MaxIdx)
	}

	s := newStore[P](opts)
	s.grid = make([]Slot[P], opts.MaxIdx*opts.MaxIdx*opts.MaxIdx)
	s.free = NewFreeMap(opts.MaxIdx)
	s.metrics.observeFree(s.free)

	return s, nil
}

func newStore[P Product](opts Options) *Store[P] {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "warehouse").Logger()
	}

	return &Store[P]{
		maxIdx:   opts.MaxIdx,
		byName:   btree.NewMap[string, []Coords](0),
		byID:     btree.NewMap[int64, []Coords](0),
		byExpiry: btree.NewMap[string, []int64](0),
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// MaxIdx returns the warehouse size.
func (s *Store[P]) MaxIdx() int {
	return s.maxIdx
}

// Capacity returns the number of slots.
func (s *Store[P]) Capacity() int {
	return len(s.grid)
}

// Len returns the number of stored products. An oversized product counts
// once.
func (s *Store[P]) Len() int {
	return s.count
}

// FreeMap returns the store's free map. Callers must not mutate it.
func (s *Store[P]) FreeMap() *FreeMap {
	return s.free
}

// AddFilter registers an admission filter. Filters run in registration
// order.
func (s *Store[P]) AddFilter(f Filter[P]) {
	s.filters = append(s.filters, f)
}

// Filters returns the registered admission filters. While filters are
// being evaluated it returns nil.
func (s *Store[P]) Filters() []Filter[P] {
	return slices.Clone(s.filters)
}

// AddProduct places p at the coordinate proposed by policy and returns it.
//
// Admission filters run first ([ErrNotAllowed]). A missing proposal is
// [ErrFull]. The proposal is then validated against p's category:
// [ErrFragile] above the fragile row limit, [ErrTooBig] when an oversized
// span runs past the end of the shelf, [ErrOccupied] when any slot of the
// span is taken. Nothing is modified unless every check passes.
//
// If policy implements [PlacementObserver] it is told about the committed
// placement.
func (s *Store[P]) AddProduct(p P, policy Policy[P]) (Coords, error) {
	if !s.admit(p) {
		return Coords{}, s.reject(p, ErrNotAllowed)
	}

	at, ok := policy.Propose(s, p)
	if !ok {
		return Coords{}, s.reject(p, ErrFull)
	}

	span, err := s.placementSpan(at, p.Category())
	if err != nil {
		return Coords{}, s.reject(p, err)
	}

	lo, hi := span.First.Index(s.maxIdx), span.Last.Index(s.maxIdx)
	for idx := lo; idx <= hi; idx++ {
		if !s.grid[idx].IsFree() {
			return Coords{}, s.reject(p, fmt.Errorf("%w: %s", ErrOccupied, CoordsAt(idx, s.maxIdx)))
		}
	}

	if !s.free.Occupy(span) {
		invariantf("free map disagrees with grid: %s is free in the grid but not in the free map", span)
	}

	s.grid[lo] = Slot[P]{State: SlotOccupied, Product: p}
	for idx := lo + 1; idx <= hi; idx++ {
		s.grid[idx] = Slot[P]{State: SlotContinuation}
	}

	s.index(at, p)
	s.count++

	s.metrics.observePlacement(p.Category().Kind, s.free)
	s.logger.Debug().
		Int64("id", p.ID()).
		Str("name", p.Name()).
		Stringer("category", p.Category().Kind).
		Stringer("at", at).
		Msg("product placed")

	if observer, isObserver := policy.(PlacementObserver); isObserver {
		observer.Placed(at)
	}

	return at, nil
}

// placementSpan validates a proposal against the category constraints and
// returns the span the product would occupy.
func (s *Store[P]) placementSpan(at Coords, cat Category) (Span, error) {
	if !at.Valid(s.maxIdx) {
		return Span{}, fmt.Errorf("%w: proposal %s outside warehouse of size %d", ErrInvalidCoords, at, s.maxIdx)
	}

	if cat.IsFragile() && at.Row > cat.MaxRow {
		return Span{}, fmt.Errorf("%w: row %d above max row %d", ErrFragile, at.Row, cat.MaxRow)
	}

	span := SpanOf(at)

	if cat.IsOversized() {
		if cat.ZoneCount < 0 {
			return Span{}, fmt.Errorf("%w: negative zone count %d", ErrInvalidInput, cat.ZoneCount)
		}

		if at.Zone+cat.ZoneCount >= s.maxIdx {
			return Span{}, fmt.Errorf("%w: %d extra zones from %s run past the shelf", ErrTooBig, cat.ZoneCount, at)
		}

		span.Last = At(at.Row, at.Shelf, at.Zone+cat.ZoneCount)
	}

	return span, nil
}

// RemoveProduct removes the product stored at c, frees its slots (all of
// them for an oversized product) and returns it.
//
// A free slot is [ErrNotFound]; a continuation slot is [ErrPlaceholder].
func (s *Store[P]) RemoveProduct(c Coords) (P, error) {
	var zero P

	if !c.Valid(s.maxIdx) {
		return zero, fmt.Errorf("%w: %s outside warehouse of size %d", ErrInvalidCoords, c, s.maxIdx)
	}

	lo := c.Index(s.maxIdx)
	slot := s.grid[lo]

	switch slot.State {
	case SlotFree:
		return zero, fmt.Errorf("%w: %s", ErrNotFound, c)
	case SlotContinuation:
		return zero, fmt.Errorf("%w: %s", ErrPlaceholder, c)
	}

	p := slot.Product
	span := SpanOf(c)

	if extra := p.Category().extraZones(); extra > 0 {
		if c.Zone+extra >= s.maxIdx {
			invariantf("oversized product at %s runs past its shelf", c)
		}

		span.Last = At(c.Row, c.Shelf, c.Zone+extra)
	}

	hi := span.Last.Index(s.maxIdx)
	for idx := lo + 1; idx <= hi; idx++ {
		if s.grid[idx].State != SlotContinuation {
			invariantf("slot %s of oversized product at %s is %s", CoordsAt(idx, s.maxIdx), c, s.grid[idx].State)
		}
	}

	s.unindex(c, p)

	for idx := lo; idx <= hi; idx++ {
		s.grid[idx] = Slot[P]{}
	}

	if !s.free.Free(span) {
		invariantf("free map already contains %s", span)
	}

	s.count--

	s.metrics.observeRemoval(s.free)
	s.logger.Debug().
		Int64("id", p.ID()).
		Str("name", p.Name()).
		Stringer("at", c).
		Msg("product removed")

	return p, nil
}

// Slot returns the entry at c.
func (s *Store[P]) Slot(c Coords) (Slot[P], error) {
	if !c.Valid(s.maxIdx) {
		return Slot[P]{}, fmt.Errorf("%w: %s outside warehouse of size %d", ErrInvalidCoords, c, s.maxIdx)
	}

	return s.grid[c.Index(s.maxIdx)], nil
}

// Product returns the product stored at c.
func (s *Store[P]) Product(c Coords) (P, bool) {
	slot, err := s.Slot(c)
	if err != nil || slot.State != SlotOccupied {
		var zero P

		return zero, false
	}

	return slot.Product, true
}

// Shelf returns the slots of one shelf in zone order.
func (s *Store[P]) Shelf(row, shelf int) ([]Slot[P], error) {
	first := At(row, shelf, 0)
	if !first.Valid(s.maxIdx) {
		return nil, fmt.Errorf("%w: shelf (%d, %d) outside warehouse of size %d", ErrInvalidCoords, row, shelf, s.maxIdx)
	}

	lo := first.Index(s.maxIdx)

	return slices.Clone(s.grid[lo : lo+s.maxIdx]), nil
}

// Products yields every stored product with its coordinate, in coordinate
// order.
func (s *Store[P]) Products() iter.Seq2[Coords, P] {
	return func(yield func(Coords, P) bool) {
		for idx, slot := range s.grid {
			if slot.State != SlotOccupied {
				continue
			}

			if !yield(CoordsAt(idx, s.maxIdx), slot.Product) {
				return
			}
		}
	}
}

// SearchByName returns the coordinates of every product named name, in
// placement order. The result is empty if there is none.
func (s *Store[P]) SearchByName(name string) []Coords {
	coords, _ := s.byName.Get(name)

	return slices.Clone(coords)
}

// SearchByID returns the coordinates of every product with identifier id,
// in placement order.
func (s *Store[P]) SearchByID(id int64) []Coords {
	coords, _ := s.byID.Get(id)

	return slices.Clone(coords)
}

// Names yields each distinct product name in ascending order with the
// coordinates of the products carrying it.
func (s *Store[P]) Names() iter.Seq2[string, []Coords] {
	return func(yield func(string, []Coords) bool) {
		s.byName.Scan(func(name string, coords []Coords) bool {
			return yield(name, slices.Clone(coords))
		})
	}
}

// ExpiryEntry lists the fragile products expiring on one day.
type ExpiryEntry struct {
	Date time.Time
	IDs  []int64
}

// SearchExpiry returns the fragile products expiring between from and to,
// both inclusive calendar days, in date order.
func (s *Store[P]) SearchExpiry(from, to time.Time) []ExpiryEntry {
	var entries []ExpiryEntry

	last := dayKey(to)

	s.byExpiry.Ascend(dayKey(from), func(key string, ids []int64) bool {
		if key > last {
			return false
		}

		entries = append(entries, expiryEntry(key, ids))

		return true
	})

	return entries
}

// ExpiredBefore returns the fragile products expiring strictly before day.
func (s *Store[P]) ExpiredBefore(day time.Time) []ExpiryEntry {
	var entries []ExpiryEntry

	limit := dayKey(day)

	s.byExpiry.Scan(func(key string, ids []int64) bool {
		if key >= limit {
			return false
		}

		entries = append(entries, expiryEntry(key, ids))

		return true
	})

	return entries
}

// ExpiringWithin returns the fragile products expiring on day or in the
// following days calendar days.
func (s *Store[P]) ExpiringWithin(day time.Time, days int) []ExpiryEntry {
	return s.SearchExpiry(day, Day(day).AddDate(0, 0, days))
}

// CountIDs returns the number of identifiers listed in entries.
func CountIDs(entries []ExpiryEntry) int {
	n := 0
	for _, e := range entries {
		n += len(e.IDs)
	}

	return n
}

func expiryEntry(key string, ids []int64) ExpiryEntry {
	// Keys are written by dayKey, so they always parse.
	date, _ := ParseDay(key)

	return ExpiryEntry{Date: date, IDs: slices.Clone(ids)}
}

// admit runs the filters with the filter list detached, so no filter can
// observe or re-enter the others.
func (s *Store[P]) admit(p P) bool {
	filters := s.filters
	s.filters = nil

	defer func() { s.filters = filters }()

	for _, f := range filters {
		if !f.Check(s, p) {
			return false
		}
	}

	return true
}

func (s *Store[P]) reject(p P, err error) error {
	s.metrics.observeRejection(err)
	s.logger.Debug().
		Int64("id", p.ID()).
		Str("name", p.Name()).
		Err(err).
		Msg("product rejected")

	return err
}

func (s *Store[P]) index(at Coords, p P) {
	appendAt(s.byName, p.Name(), at)
	appendAt(s.byID, p.ID(), at)

	if cat := p.Category(); cat.IsFragile() {
		appendAt(s.byExpiry, dayKey(cat.ExpiryDate), p.ID())
	}
}

func (s *Store[P]) unindex(at Coords, p P) {
	if !removeFrom(s.byName, p.Name(), at) {
		invariantf("name index has no entry %q -> %s", p.Name(), at)
	}

	if !removeFrom(s.byID, p.ID(), at) {
		invariantf("id index has no entry %d -> %s", p.ID(), at)
	}

	if cat := p.Category(); cat.IsFragile() {
		key := dayKey(cat.ExpiryDate)
		if !removeFrom(s.byExpiry, key, p.ID()) {
			invariantf("expiry index has no entry %s -> %d", key, p.ID())
		}
	}
}

func appendAt[K ordered, V any](m *btree.Map[K, []V], key K, value V) {
	values, _ := m.Get(key)
	m.Set(key, append(values, value))
}

// removeFrom deletes the first occurrence of value under key and prunes the
// key when its list becomes empty. It reports whether value was found.
func removeFrom[K ordered, V comparable](m *btree.Map[K, []V], key K, value V) bool {
	values, ok := m.Get(key)
	if !ok {
		return false
	}

	pos := slices.Index(values, value)
	if pos < 0 {
		return false
	}

	values = slices.Delete(slices.Clone(values), pos, pos+1)
	if len(values) == 0 {
		m.Delete(key)
	} else {
		m.Set(key, values)
	}

	return true
}

type ordered interface {
	~int | ~int64 | ~string
}

func invariantf(format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...))
}
