package warehouse

import "errors"

// Sentinel errors returned by [Store] operations.
//
// Callers should use [errors.Is] to check error types:
//
//	if errors.Is(err, warehouse.ErrFull) {
//	    // try another warehouse
//	}
var (
	// ErrOccupied indicates the target slot, or a slot of an oversized span,
	// is not free.
	ErrOccupied = errors.New("warehouse: location already has a product")

	// ErrNotFound indicates a removal targeted a free slot.
	ErrNotFound = errors.New("warehouse: no product in location")

	// ErrFull indicates the policy could not propose a location.
	//
	// Either the warehouse has no free slot or no free region satisfies the
	// product's category.
	ErrFull = errors.New("warehouse: could not find a place for the product")

	// ErrNotAllowed indicates an admission filter rejected the product.
	ErrNotAllowed = errors.New("warehouse: product not allowed by current filters")

	// ErrPlaceholder indicates an operation addressed the continuation slot of
	// an oversized product. Operate on the owning slot instead.
	ErrPlaceholder = errors.New("warehouse: placeholders cannot be manipulated directly")

	// ErrFragile indicates a proposal placed a fragile product above its
	// maximum row.
	ErrFragile = errors.New("warehouse: fragile product cannot be placed at location")

	// ErrTooBig indicates an oversized product's span runs past the end of
	// its shelf.
	ErrTooBig = errors.New("warehouse: oversized product does not fit")

	// ErrInvalidCoords indicates a coordinate outside the warehouse or
	// malformed coordinate text.
	ErrInvalidCoords = errors.New("warehouse: invalid coordinates")

	// ErrInvalidInput indicates invalid arguments, such as a non-positive
	// size or an unknown policy name.
	//
	// This is a programming error.
	ErrInvalidInput = errors.New("warehouse: invalid input")

	// ErrCorrupt indicates a grid, indices and free ranges that disagree with
	// each other, either in a snapshot being restored or reported by
	// [Store.Verify].
	//
	// Recovery: restore from another snapshot.
	ErrCorrupt = errors.New("warehouse: corrupt state")

	// ErrInvariant is the panic payload for internal invariant violations.
	//
	// It is never returned. A panic wrapping it means an earlier mutation was
	// applied partially and the store can no longer be trusted.
	ErrInvariant = errors.New("warehouse: invariant violated")
)
