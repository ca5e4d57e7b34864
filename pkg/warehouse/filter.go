package warehouse

import "time"

// Filter is an admission predicate. A product is admitted only if every
// registered filter accepts it.
//
// While a filter runs, [Store.Filters] on the same store returns nil.
type Filter[P Product] interface {
	Check(s *Store[P], p P) bool
}

// FilterFunc adapts a function to [Filter].
type FilterFunc[P Product] func(s *Store[P], p P) bool

// Check implements [Filter].
func (f FilterFunc[P]) Check(s *Store[P], p P) bool {
	return f(s, p)
}

// RejectExpired rejects fragile products whose expiry day is before the
// day returned by now.
func RejectExpired[P Product](now func() time.Time) Filter[P] {
	return FilterFunc[P](func(_ *Store[P], p P) bool {
		cat := p.Category()
		if !cat.IsFragile() {
			return true
		}

		return !cat.ExpiryDate.Before(Day(now()))
	})
}

// UniqueID rejects products whose identifier is already stored.
func UniqueID[P Product]() Filter[P] {
	return FilterFunc[P](func(s *Store[P], p P) bool {
		_, exists := s.byID.Get(p.ID())

		return !exists
	})
}

// MaxAmount rejects products with an amount above limit.
func MaxAmount[P Product](limit uint64) Filter[P] {
	return FilterFunc[P](func(_ *Store[P], p P) bool {
		return p.Amount() <= limit
	})
}
