// Package split partitions a cleaned dataset into train, public-test
// and private-test subsets while preserving the distribution of a
// stratification key, with an adaptive choice between a joint
// label x region key and a label-only fallback.
package split

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratumError is the hard failure raised when a stratum is too small
// to be divided across a split. It names the stratum so the caller can
// fix the data volume or granularity without re-running instrumented.
type StratumError struct {
	Key  string
	Size int
}

// Error implements the error interface.
func (e *StratumError) Error() string {
	return fmt.Sprintf("stratum %q has %d member(s), need at least 2 to split", e.Key, e.Size)
}

// StratifiedSplit partitions the indices 0..len(keys)-1 into a kept set
// and a held-out set of roughly heldOutFrac of the rows, preserving per
// stratum proportions. Every stratum lands in both sides, so any
// stratum with fewer than 2 members is a *StratumError. The same seed
// always yields the same partition. Both returned index sets are in
// ascending order.
func StratifiedSplit(keys []string, heldOutFrac float64, seed int64) (kept, held []int, err error) {
	if len(keys) == 0 {
		return nil, nil, fmt.Errorf("stratified split: empty key set")
	}
	if heldOutFrac <= 0 || heldOutFrac >= 1 {
		return nil, nil, fmt.Errorf("stratified split: held-out fraction must be in (0, 1), got %v", heldOutFrac)
	}

	strata := make(map[string][]int)
	for i, k := range keys {
		strata[k] = append(strata[k], i)
	}

	// Strata are visited in sorted key order so a single seeded source
	// produces a deterministic partition.
	names := make([]string, 0, len(strata))
	for k := range strata {
		names = append(names, k)
	}
	sort.Strings(names)

	rng := rand.New(rand.NewSource(seed))

	for _, name := range names {
		members := strata[name]
		n := len(members)
		if n < 2 {
			return nil, nil, &StratumError{Key: name, Size: n}
		}

		shuffled := append([]int(nil), members...)
		rng.Shuffle(n, func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		nHeld := int(math.Round(float64(n) * heldOutFrac))
		if nHeld < 1 {
			nHeld = 1
		}
		if nHeld > n-1 {
			nHeld = n - 1
		}

		held = append(held, shuffled[:nHeld]...)
		kept = append(kept, shuffled[nHeld:]...)
	}

	sort.Ints(kept)
	sort.Ints(held)
	return kept, held, nil
}
