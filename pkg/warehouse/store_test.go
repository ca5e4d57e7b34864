package warehouse_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/warehouse/pkg/warehouse"
	"github.com/calvinalkan/warehouse/pkg/warehouse/internal/testutil"
)

type goods = testutil.Goods

func newStore(t *testing.T, maxIdx int) *warehouse.Store[goods] {
	t.Helper()

	s, err := warehouse.New[goods](warehouse.Options{MaxIdx: maxIdx})
	require.NoError(t, err, "New should succeed")

	return s
}

func mustAdd(t *testing.T, s *warehouse.Store[goods], g goods, p warehouse.Policy[goods]) warehouse.Coords {
	t.Helper()

	at, err := s.AddProduct(g, p)
	require.NoError(t, err, "AddProduct(%s)", g)

	return at
}

// fixedPolicy proposes the same coordinate every time.
type fixedPolicy warehouse.Coords

func (f fixedPolicy) Propose(*warehouse.Store[goods], goods) (warehouse.Coords, bool) {
	return warehouse.Coords(f), true
}

// nonePolicy never proposes anything.
type nonePolicy struct{}

func (nonePolicy) Propose(*warehouse.Store[goods], goods) (warehouse.Coords, bool) {
	return warehouse.Coords{}, false
}

func Test_New_Returns_ErrInvalidInput_When_Size_Not_Positive(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -3} {
		_, err := warehouse.New[goods](warehouse.Options{MaxIdx: size})
		require.ErrorIs(t, err, warehouse.ErrInvalidInput, "size %d", size)
	}
}

func Test_New_Returns_Empty_Store_With_Single_Free_Range(t *testing.T) {
	t.Parallel()

	s := newStore(t, 3)

	assert.Equal(t, 3, s.MaxIdx())
	assert.Equal(t, 27, s.Capacity())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, []warehouse.Span{span(warehouse.Coords{}, warehouse.Last(3))}, s.FreeMap().Spans())
	require.NoError(t, s.Verify())
}

func Test_Store_Places_Removes_And_Refits_Oversized_When_Nearest_Run_Too_Small(t *testing.T) {
	t.Parallel()

	s := newStore(t, 2)
	policy := warehouse.NewClosestFirstFree[goods](warehouse.OversizedFirstFit)

	first := mustAdd(t, s, testutil.NewGoods(1, "a"), policy)
	second := mustAdd(t, s, testutil.NewGoods(2, "b"), policy)

	assert.Equal(t, warehouse.At(0, 0, 0), first)
	assert.Equal(t, warehouse.At(0, 0, 1), second)

	removed, err := s.RemoveProduct(first)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed.ID())

	slot, err := s.Slot(first)
	require.NoError(t, err)
	assert.True(t, slot.IsFree(), "removed slot must be free")
	assert.Equal(t, warehouse.SpanOf(first), s.FreeMap().Spans()[0], "freed slot reappears as a singleton range")

	big := mustAdd(t, s, testutil.OversizedGoods(3, "big", 1), policy)
	assert.Equal(t, warehouse.At(0, 1, 0), big)

	cont, err := s.Slot(warehouse.At(0, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, warehouse.SlotContinuation, cont.State)

	require.NoError(t, s.Verify())
}

func Test_Store_Scenario_Holds_For_Every_Policy_With_First_Fit(t *testing.T) {
	t.Parallel()

	for _, name := range warehouse.PolicyNames() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := newStore(t, 2)
			policy, err := warehouse.NewPolicy[goods](name, warehouse.OversizedFirstFit)
			require.NoError(t, err)

			first := mustAdd(t, s, testutil.NewGoods(1, "a"), policy)
			mustAdd(t, s, testutil.NewGoods(2, "b"), policy)

			_, err = s.RemoveProduct(first)
			require.NoError(t, err)

			big, err := s.AddProduct(testutil.OversizedGoods(3, "big", 1), policy)
			require.NoError(t, err)
			assert.Equal(t, 0, big.Zone, "oversized must start at zone 0 of a free shelf")
			assert.NotEqual(t, warehouse.At(0, 0, 0), big, "run at (0, 0, 0) is too small")
			require.NoError(t, s.Verify())
		})
	}
}

func Test_AddProduct_Returns_ErrFull_When_Policy_Has_No_Proposal(t *testing.T) {
	t.Parallel()

	s := newStore(t, 2)

	_, err := s.AddProduct(testutil.NewGoods(1, "a"), nonePolicy{})
	require.ErrorIs(t, err, warehouse.ErrFull)
	assert.Equal(t, 0, s.Len())
}

func Test_AddProduct_Returns_ErrFull_When_Warehouse_Has_No_Free_Slot(t *testing.T) {
	t.Parallel()

	s := newStore(t, 1)
	policy := warehouse.NewClosestFirst[goods]()

	mustAdd(t, s, testutil.NewGoods(1, "a"), policy)

	_, err := s.AddProduct(testutil.NewGoods(2, "b"), policy)
	require.ErrorIs(t, err, warehouse.ErrFull)
}

func Test_AddProduct_Validates_Proposal_Without_Mutating_When_Check_Fails(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		goods goods
		at    warehouse.Coords
		want  error
		setup bool
	}{
		{"fragile above max row", testutil.FragileGoods(1, "egg", 3, 0), warehouse.At(1, 0, 0), warehouse.ErrFragile, false},
		{"oversized past shelf end", testutil.OversizedGoods(1, "pipe", 2), warehouse.At(0, 0, 1), warehouse.ErrTooBig, false},
		{"oversized crossing taken slot", testutil.OversizedGoods(1, "pipe", 1), warehouse.At(0, 1, 1), warehouse.ErrOccupied, true},
		{"single slot taken", testutil.NewGoods(1, "box"), warehouse.At(0, 1, 2), warehouse.ErrOccupied, true},
		{"proposal outside warehouse", testutil.NewGoods(1, "box"), warehouse.At(0, 3, 0), warehouse.ErrInvalidCoords, false},
		{"negative zone count", testutil.OversizedGoods(1, "pipe", -1), warehouse.At(0, 0, 0), warehouse.ErrInvalidInput, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newStore(t, 3)
			if tc.setup {
				mustAdd(t, s, testutil.NewGoods(99, "blocker"), fixedPolicy(warehouse.At(0, 1, 2)))
			}

			before := s.Snapshot()

			_, err := s.AddProduct(tc.goods, fixedPolicy(tc.at))
			require.ErrorIs(t, err, tc.want)

			if diff := cmp.Diff(before, s.Snapshot(), freeMapComparer); diff != "" {
				t.Fatalf("store changed after rejected add (-before +after):\n%s", diff)
			}

			require.NoError(t, s.Verify())
		})
	}
}

var freeMapComparer = cmp.Comparer(func(a, b *warehouse.FreeMap) bool {
	return a.MaxIdx() == b.MaxIdx() && slices.Equal(a.Spans(), b.Spans())
})

func Test_AddProduct_Accepts_Oversized_Ending_On_Last_Zone(t *testing.T) {
	t.Parallel()

	s := newStore(t, 3)

	at := mustAdd(t, s, testutil.OversizedGoods(1, "pipe", 2), fixedPolicy(warehouse.At(0, 2, 0)))
	assert.Equal(t, warehouse.At(0, 2, 0), at)

	for zone := 1; zone < 3; zone++ {
		slot, err := s.Slot(warehouse.At(0, 2, zone))
		require.NoError(t, err)
		assert.Equal(t, warehouse.SlotContinuation, slot.State, "zone %d", zone)
	}
}

func Test_AddProduct_Treats_Zero_Zone_Oversized_As_Single_Slot(t *testing.T) {
	t.Parallel()

	s := newStore(t, 2)

	at := mustAdd(t, s, testutil.OversizedGoods(1, "flat", 0), warehouse.NewClosestFirst[goods]())
	assert.Equal(t, warehouse.At(0, 0, 0), at)

	next := mustAdd(t, s, testutil.NewGoods(2, "b"), warehouse.NewClosestFirst[goods]())
	assert.Equal(t, warehouse.At(0, 0, 1), next)
}

func Test_RemoveProduct_Frees_Whole_Oversized_Span(t *testing.T) {
	t.Parallel()

	s := newStore(t, 3)
	at := mustAdd(t, s, testutil.OversizedGoods(1, "pipe", 2), fixedPolicy(warehouse.At(1, 1, 0)))

	_, err := s.RemoveProduct(warehouse.At(1, 1, 1))
	require.ErrorIs(t, err, warehouse.ErrPlaceholder, "continuation slot cannot be removed directly")

	removed, err := s.RemoveProduct(at)
	require.NoError(t, err)
	assert.Equal(t, "pipe", removed.Name())
	assert.Equal(t, []warehouse.Span{span(warehouse.Coords{}, warehouse.Last(3))}, s.FreeMap().Spans())
	assert.Empty(t, s.SearchByName("pipe"))
	require.NoError(t, s.Verify())
}

func Test_RemoveProduct_Returns_Errors_For_Free_And_Invalid_Coordinates(t *testing.T) {
	t.Parallel()

	s := newStore(t, 2)

	_, err := s.RemoveProduct(warehouse.At(1, 1, 1))
	require.ErrorIs(t, err, warehouse.ErrNotFound)

	_, err = s.RemoveProduct(warehouse.At(2, 0, 0))
	require.ErrorIs(t, err, warehouse.ErrInvalidCoords)

	_, err = s.Slot(warehouse.At(0, -1, 0))
	require.ErrorIs(t, err, warehouse.ErrInvalidCoords)
}

func Test_Store_Indexes_Name_And_ID_In_Placement_Order(t *testing.T) {
	t.Parallel()

	s := newStore(t, 3)
	rr := warehouse.NewRoundRobin[goods]()

	a := mustAdd(t, s, testutil.NewGoods(1, "milk"), rr)
	b := mustAdd(t, s, testutil.NewGoods(2, "eggs"), rr)
	c := mustAdd(t, s, testutil.NewGoods(1, "milk"), rr)

	assert.Equal(t, []warehouse.Coords{a, c}, s.SearchByName("milk"))
	assert.Equal(t, []warehouse.Coords{a, c}, s.SearchByID(1))
	assert.Equal(t, []warehouse.Coords{b}, s.SearchByID(2))
	assert.Empty(t, s.SearchByName("bread"))
	assert.Equal(t, 3, s.Len())

	_, err := s.RemoveProduct(a)
	require.NoError(t, err)
	assert.Equal(t, []warehouse.Coords{c}, s.SearchByName("milk"))

	var names []string
	for name := range s.Names() {
		names = append(names, name)
	}

	assert.Equal(t, []string{"eggs", "milk"}, names, "names listed in ascending order")
}

func Test_Store_Search_Results_Are_Copies(t *testing.T) {
	t.Parallel()

	s := newStore(t, 2)
	at := mustAdd(t, s, testutil.NewGoods(1, "milk"), warehouse.NewClosestFirst[goods]())

	got := s.SearchByName("milk")
	got[0] = warehouse.At(1, 1, 1)

	assert.Equal(t, []warehouse.Coords{at}, s.SearchByName("milk"))
}

func Test_Store_Expiry_Queries_Use_Calendar_Days(t *testing.T) {
	t.Parallel()

	s := newStore(t, 3)
	p := warehouse.NewClosestFirstFree[goods](warehouse.OversizedFirstFit)

	mustAdd(t, s, testutil.FragileGoods(1, "milk", 0, 2), p)
	mustAdd(t, s, testutil.FragileGoods(2, "eggs", 2, 2), p)
	mustAdd(t, s, testutil.FragileGoods(3, "cream", 2, 2), p)
	mustAdd(t, s, testutil.FragileGoods(4, "yogurt", 5, 2), p)
	mustAdd(t, s, testutil.NewGoods(5, "salt"), p)

	day := func(offset int) time.Time { return testutil.BaseDay.AddDate(0, 0, offset) }

	got := s.SearchExpiry(day(0), day(2))
	want := []warehouse.ExpiryEntry{
		{Date: day(0), IDs: []int64{1}},
		{Date: day(2), IDs: []int64{2, 3}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("SearchExpiry mismatch (-want +got):\n%s", diff)
	}

	// Time of day is ignored.
	assert.Len(t, s.SearchExpiry(day(5).Add(23*time.Hour), day(5).Add(time.Hour)), 1)

	assert.Equal(t, 3, warehouse.CountIDs(s.ExpiredBefore(day(3))))
	assert.Equal(t, 0, warehouse.CountIDs(s.ExpiredBefore(day(0))))
	assert.Equal(t, 1, warehouse.CountIDs(s.ExpiringWithin(day(3), 3)))
	assert.Equal(t, 4, warehouse.CountIDs(s.ExpiringWithin(day(0), 5)))
}

func Test_Store_Shelf_Returns_Zones_In_Order(t *testing.T) {
	t.Parallel()

	s := newStore(t, 3)
	mustAdd(t, s, testutil.OversizedGoods(1, "pipe", 1), fixedPolicy(warehouse.At(2, 1, 1)))

	shelf, err := s.Shelf(2, 1)
	require.NoError(t, err)

	states := make([]warehouse.SlotState, 0, len(shelf))
	for _, slot := range shelf {
		states = append(states, slot.State)
	}

	assert.Equal(t, []warehouse.SlotState{warehouse.SlotFree, warehouse.SlotOccupied, warehouse.SlotContinuation}, states)

	_, err = s.Shelf(3, 0)
	require.ErrorIs(t, err, warehouse.ErrInvalidCoords)
}

func Test_Store_Products_Yields_Owners_Only(t *testing.T) {
	t.Parallel()

	s := newStore(t, 2)
	p := warehouse.NewClosestFirst[goods]()

	mustAdd(t, s, testutil.OversizedGoods(1, "pipe", 1), p)
	mustAdd(t, s, testutil.NewGoods(2, "box"), p)

	var got []warehouse.Coords
	for c := range s.Products() {
		got = append(got, c)
	}

	assert.Equal(t, []warehouse.Coords{warehouse.At(0, 0, 0), warehouse.At(0, 1, 0)}, got)

	product, ok := s.Product(warehouse.At(0, 0, 1))
	assert.False(t, ok, "continuation slot holds no product")
	assert.Zero(t, product)
}

type observingPolicy struct {
	fixedPolicy

	placed []warehouse.Coords
}

func (o *observingPolicy) Placed(at warehouse.Coords) {
	o.placed = append(o.placed, at)
}

func Test_AddProduct_Notifies_Observer_Only_After_Commit(t *testing.T) {
	t.Parallel()

	s := newStore(t, 2)
	p := &observingPolicy{fixedPolicy: fixedPolicy(warehouse.At(0, 0, 0))}

	mustAdd(t, s, testutil.NewGoods(1, "a"), p)

	_, err := s.AddProduct(testutil.NewGoods(2, "b"), p)
	require.ErrorIs(t, err, warehouse.ErrOccupied)

	assert.Equal(t, []warehouse.Coords{warehouse.At(0, 0, 0)}, p.placed)
}

func Test_Store_Panics_With_ErrInvariant_When_Free_Map_Disagrees(t *testing.T) {
	t.Parallel()

	s := newStore(t, 2)

	// Corrupt the tracker from outside, the grid still says (0,0,0) is free.
	require.True(t, s.FreeMap().Occupy(warehouse.SpanOf(warehouse.At(0, 0, 0))))

	defer func() {
		r := recover()
		require.NotNil(t, r, "AddProduct must panic")

		err, ok := r.(error)
		require.True(t, ok, "panic payload must be an error, got %T", r)
		assert.True(t, errors.Is(err, warehouse.ErrInvariant), "got %v", err)
	}()

	_, _ = s.AddProduct(testutil.NewGoods(1, "a"), fixedPolicy(warehouse.At(0, 0, 0)))
}

func Test_Verify_Reports_ErrCorrupt_When_Free_Map_Drifts(t *testing.T) {
	t.Parallel()

	s := newStore(t, 2)
	mustAdd(t, s, testutil.NewGoods(1, "a"), warehouse.NewClosestFirst[goods]())

	require.True(t, s.FreeMap().Occupy(warehouse.SpanOf(warehouse.At(1, 1, 1))))
	require.ErrorIs(t, s.Verify(), warehouse.ErrCorrupt)
}
