package testutil

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/calvinalkan/warehouse/pkg/warehouse"
)

// DefaultMaxOps bounds a single harness run.
const DefaultMaxOps = 300

// errorClasses are the sentinels the harness compares by.
var errorClasses = []error{
	warehouse.ErrOccupied,
	warehouse.ErrNotFound,
	warehouse.ErrFull,
	warehouse.ErrNotAllowed,
	warehouse.ErrPlaceholder,
	warehouse.ErrFragile,
	warehouse.ErrTooBig,
	warehouse.ErrInvalidCoords,
}

// ErrorClass returns the sentinel err wraps, or err itself.
func ErrorClass(err error) error {
	for _, class := range errorClasses {
		if errors.Is(err, class) {
			return class
		}
	}

	return err
}

// Harness runs the same operations against a [warehouse.Store] and a
// [Model] and fails the test on the first disagreement.
type Harness struct {
	TB     testing.TB
	Store  *warehouse.Store[Goods]
	Policy warehouse.Policy[Goods]
	Model  *Model
}

// NewHarness creates an empty store and model. policy must be one of
// [warehouse.PolicyNames]; oversized search is first-fit.
func NewHarness(tb testing.TB, maxIdx int, policy string) *Harness {
	tb.Helper()

	store, err := warehouse.New[Goods](warehouse.Options{MaxIdx: maxIdx})
	if err != nil {
		tb.Fatalf("New: %v", err)
	}

	p, err := warehouse.NewPolicy[Goods](policy, warehouse.OversizedFirstFit)
	if err != nil {
		tb.Fatalf("NewPolicy: %v", err)
	}

	roundRobin := policy == warehouse.PolicyRoundRobin || policy == warehouse.PolicyRoundRobinFree

	return &Harness{
		TB:     tb,
		Store:  store,
		Policy: p,
		Model:  NewModel(maxIdx, roundRobin),
	}
}

// Apply runs op on both sides and compares the results.
func (h *Harness) Apply(op Op) {
	h.TB.Helper()

	switch o := op.(type) {
	case OpAdd:
		got, gotErr := h.Store.AddProduct(o.Goods, h.Policy)
		want, wantErr := h.Model.Add(o.Goods)
		h.compareResult(op, got, gotErr, want, wantErr)
	case OpRemove:
		got, gotErr := h.Store.RemoveProduct(o.At)
		want, wantErr := h.Model.Remove(o.At)
		h.compareResult(op, got, gotErr, want, wantErr)
	case OpRoundTrip:
		var buf bytes.Buffer

		err := h.Store.Encode(&buf)
		if err != nil {
			h.TB.Fatalf("%s: Encode: %v", op, err)
		}

		restored, err := warehouse.Decode[Goods](&buf, warehouse.Options{})
		if err != nil {
			h.TB.Fatalf("%s: Decode: %v", op, err)
		}

		h.Store = restored
	default:
		h.TB.Fatalf("unknown op %T", op)
	}
}

func (h *Harness) compareResult(op Op, got any, gotErr error, want any, wantErr error) {
	h.TB.Helper()

	if ErrorClass(gotErr) != ErrorClass(wantErr) {
		h.TB.Fatalf("%s: error mismatch: store=%v model=%v", op, gotErr, wantErr)
	}

	if gotErr != nil {
		return
	}

	if diff := cmp.Diff(want, got); diff != "" {
		h.TB.Fatalf("%s: result mismatch (-model +store):\n%s", op, diff)
	}
}

// CompareState checks the store against the model: every slot, the free
// ranges, the name index and the store's own consistency check.
func (h *Harness) CompareState() {
	h.TB.Helper()

	err := h.Store.Verify()
	if err != nil {
		h.TB.Fatalf("Verify: %v", err)
	}

	snap := h.Store.Snapshot()
	grid := make([]warehouse.Slot[Goods], 0, len(h.Model.Slots))

	for _, row := range snap.Store {
		for _, shelf := range row {
			grid = append(grid, shelf...)
		}
	}

	if diff := cmp.Diff(h.Model.Slots, grid); diff != "" {
		h.TB.Fatalf("grid mismatch (-model +store):\n%s", diff)
	}

	if diff := cmp.Diff(h.Model.FreeSpans(), h.Store.FreeMap().Spans(), cmpopts.EquateEmpty()); diff != "" {
		h.TB.Fatalf("free ranges mismatch (-model +store):\n%s", diff)
	}

	for _, name := range names {
		got := slices.SortedFunc(slices.Values(h.Store.SearchByName(name)), warehouse.Compare)
		if diff := cmp.Diff(h.Model.ByName(name), got, cmpopts.EquateEmpty()); diff != "" {
			h.TB.Fatalf("SearchByName(%q) mismatch (-model +store):\n%s", name, diff)
		}
	}

	if got, want := h.Store.Len(), len(h.Model.Occupied()); got != want {
		h.TB.Fatalf("Len: store=%d model=%d", got, want)
	}
}

// Run applies up to maxOps generated operations, comparing state after
// each one.
func Run(tb testing.TB, maxIdx int, policy string, data []byte, maxOps int) {
	tb.Helper()

	h := NewHarness(tb, maxIdx, policy)
	gen := NewOpGenerator(data, maxIdx)

	for i := 0; i < maxOps && gen.HasMore(); i++ {
		h.Apply(gen.Next(h.Model.Occupied()))
		h.CompareState()
	}
}
