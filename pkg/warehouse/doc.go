// Package warehouse implements a three-dimensional slot store for products.
//
// A warehouse is a cube of max_idx rows, each with max_idx shelves of
// max_idx zones. Every zone holds one [Slot]: free, occupied by a product, or
// reserved as the continuation of an oversized product placed in an earlier
// zone of the same shelf.
//
// # Basic Usage
//
//	store, err := warehouse.New[*inventory.Item](warehouse.Options{MaxIdx: 20})
//	if err != nil {
//	    // only [ErrInvalidInput]
//	}
//
//	policy := warehouse.NewClosestFirstFree[*inventory.Item](warehouse.OversizedFirstFit)
//
//	at, err := store.AddProduct(item, policy)
//	switch {
//	case errors.Is(err, warehouse.ErrFull):
//	    // no slot satisfies the product's category
//	case errors.Is(err, warehouse.ErrNotAllowed):
//	    // an admission filter vetoed the product
//	}
//
//	removed, err := store.RemoveProduct(at)
//
// # Placement
//
// A [Policy] proposes a coordinate; the store validates category constraints
// against it and commits. Four policies are provided: two that scan the grid
// ([ClosestFirst], [RoundRobin]) and two that walk the [FreeMap] interval set
// ([ClosestFirstFree], [RoundRobinFree]). The interval based policies cost
// O(fragments) instead of O(capacity) per call.
//
// # Admission
//
// [Filter] values registered with [Store.AddFilter] run before the policy.
// The first rejection aborts with [ErrNotAllowed].
//
// # Persistence
//
// [Store.Snapshot] and [Restore] convert to and from a [Snapshot], whose JSON
// shape contains the grid, the three indices and the free ranges. Filters
// and policies are runtime collaborators and are not persisted.
//
// # Concurrency
//
// A [Store] is not safe for concurrent use. Every mutation updates the grid,
// the free map and three indices as one unit; callers that share a store
// between goroutines must serialize all calls with a single lock.
package warehouse
