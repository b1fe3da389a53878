package dataprocessing

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// SplitTrainTest partitions row indices 0..n-1 with a seeded permutation.
// The test share is round(n·testRatio), clamped so both sides are non-empty.
// Both index lists are ascending.
func SplitTrainTest(n int, testRatio float64, seed int64) (train, test []int, err error) {
	if testRatio <= 0 || testRatio >= 1 || math.IsNaN(testRatio) {
		return nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %v", testRatio)
	}
	if n < 2 {
		return nil, nil, fmt.Errorf("need at least 2 rows to split, got %d", n)
	}

	testCount := int(math.Round(float64(n) * testRatio))
	testCount = max(1, min(testCount, n-1))

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = append([]int(nil), perm[:testCount]...)
	train = append([]int(nil), perm[testCount:]...)
	sort.Ints(test)
	sort.Ints(train)
	return train, test, nil
}
