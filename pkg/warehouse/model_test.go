// Tests comparing the store against a brute-force reference model.
//
// Failures mean: a policy proposed a different location than a linear
// first-fit scan, an error class differs, or the free map and indices
// drifted from the grid.

package warehouse_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/calvinalkan/warehouse/pkg/warehouse"
	"github.com/calvinalkan/warehouse/pkg/warehouse/internal/testutil"
)

var modelSizes = []int{1, 2, 3, 5}

func Test_Store_Matches_Model_When_Seeded_Random_Ops_Applied(t *testing.T) {
	t.Parallel()

	seeds := 8
	if testing.Short() {
		seeds = 2
	}

	for _, policy := range warehouse.PolicyNames() {
		for _, size := range modelSizes {
			for seed := range uint64(seeds) {
				t.Run(fmt.Sprintf("%s/size=%d/seed=%d", policy, size, seed), func(t *testing.T) {
					t.Parallel()

					rng := rand.New(rand.NewPCG(seed, uint64(size)))
					data := make([]byte, 4096)

					for i := range data {
						data[i] = byte(rng.UintN(256))
					}

					testutil.Run(t, size, policy, data, testutil.DefaultMaxOps)
				})
			}
		}
	}
}

func FuzzStore_Matches_Model(f *testing.F) {
	f.Add(uint8(2), uint8(0), []byte{0, 0, 0, 1, 1, 0, 2, 10, 3, 3, 3})
	f.Add(uint8(3), uint8(1), []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15})
	f.Add(uint8(3), uint8(2), []byte{0, 1, 1, 1, 2, 0, 0, 0, 1, 9, 9, 14, 0, 15})
	f.Add(uint8(4), uint8(3), []byte{8, 0, 0, 1, 2, 14, 3, 2, 1, 0, 15, 8, 1, 3, 1, 4})

	policies := warehouse.PolicyNames()

	f.Fuzz(func(t *testing.T, size, policy uint8, data []byte) {
		maxIdx := int(size%5) + 1
		name := policies[int(policy)%len(policies)]

		testutil.Run(t, maxIdx, name, data, testutil.DefaultMaxOps)
	})
}
