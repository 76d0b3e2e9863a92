package ml

import (
	"math"
	"math/rand"
)

// TrainTestSplit shuffles row indices with a fixed seed and holds out
// ceil(testSize*n) of them. At least one row always stays in the train part.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int) {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	nTest := testCount(n, testSize)
	return indices[nTest:], indices[:nTest]
}

// ChronologicalSplit keeps order: the first floor((1-valSize)*n) indices
// train, the rest validate.
func ChronologicalSplit(n int, valSize float64) (train, val []int) {
	cut := int(float64(n) * (1 - valSize))
	if cut < 0 {
		cut = 0
	}
	if cut > n {
		cut = n
	}
	train = make([]int, 0, cut)
	val = make([]int, 0, n-cut)
	for i := 0; i < n; i++ {
		if i < cut {
			train = append(train, i)
		} else {
			val = append(val, i)
		}
	}
	return train, val
}

func testCount(n int, testSize float64) int {
	if testSize <= 0 || n < 2 {
		return 0
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest >= n {
		nTest = n - 1
	}
	return nTest
}

func selectRows(X [][]float64, y []float64, indices []int) ([][]float64, []float64) {
	subX := make([][]float64, len(indices))
	subY := make([]float64, len(indices))
	for i, idx := range indices {
		subX[i] = X[idx]
		subY[i] = y[idx]
	}
	return subX, subY
}
