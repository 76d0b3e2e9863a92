package ml

import (
	"sort"
)

// TreeNode is one node of a regression tree. Leaves have nil children.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Value     float64   `json:"value"`
	Samples   int       `json:"samples"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
}

// IsLeaf reports whether the node has no children
func (n *TreeNode) IsLeaf() bool {
	return n.Left == nil || n.Right == nil
}

// RegressionTree is a CART tree split on squared-error reduction
type RegressionTree struct {
	Root            *TreeNode `json:"root"`
	MaxDepth        int       `json:"max_depth"`
	MinSamplesSplit int       `json:"min_samples_split"`
	MinSamplesLeaf  int       `json:"min_samples_leaf"`

	// importance accumulates squared-error reduction per feature while fitting
	importance []float64
}

// NewRegressionTree creates an unfitted tree
func NewRegressionTree(maxDepth, minSamplesSplit, minSamplesLeaf int) *RegressionTree {
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}
	if minSamplesLeaf < 1 {
		minSamplesLeaf = 1
	}
	return &RegressionTree{
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		MinSamplesLeaf:  minSamplesLeaf,
	}
}

// Fit grows the tree on the rows of X selected by indices. Indices may repeat
// (bootstrap samples).
func (t *RegressionTree) Fit(X [][]float64, y []float64, indices []int) {
	numFeatures := 0
	if len(X) > 0 {
		numFeatures = len(X[0])
	}
	t.importance = make([]float64, numFeatures)
	t.Root = t.build(X, y, indices, 0)
}

// Predict walks the tree to a leaf
func (t *RegressionTree) Predict(x []float64) float64 {
	node := t.Root
	for node != nil && !node.IsLeaf() {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	if node == nil {
		return 0
	}
	return node.Value
}

// Depth returns the depth of the deepest leaf
func (t *RegressionTree) Depth() int {
	return nodeDepth(t.Root)
}

func nodeDepth(n *TreeNode) int {
	if n == nil || n.IsLeaf() {
		return 0
	}
	l, r := nodeDepth(n.Left), nodeDepth(n.Right)
	if l > r {
		return l + 1
	}
	return r + 1
}

func (t *RegressionTree) build(X [][]float64, y []float64, indices []int, depth int) *TreeNode {
	sum, sumSq := 0.0, 0.0
	for _, i := range indices {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	n := float64(len(indices))
	node := &TreeNode{
		Feature: -1,
		Value:   sum / n,
		Samples: len(indices),
	}

	if (t.MaxDepth > 0 && depth >= t.MaxDepth) || len(indices) < t.MinSamplesSplit {
		return node
	}
	parentSSE := sumSq - sum*sum/n
	if parentSSE <= 1e-12 {
		return node
	}

	feature, threshold, childSSE, ok := t.bestSplit(X, y, indices)
	if !ok || parentSSE-childSSE <= 1e-12 {
		return node
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return node
	}

	t.importance[feature] += parentSSE - childSSE
	node.Feature = feature
	node.Threshold = threshold
	node.Left = t.build(X, y, left, depth+1)
	node.Right = t.build(X, y, right, depth+1)
	return node
}

// bestSplit sweeps every feature in sorted order and returns the split with
// the lowest summed squared error of the two children.
func (t *RegressionTree) bestSplit(X [][]float64, y []float64, indices []int) (int, float64, float64, bool) {
	n := len(indices)
	sorted := make([]int, n)
	bestFeature, bestThreshold, bestSSE := -1, 0.0, 0.0
	found := false

	for f := range t.importance {
		copy(sorted, indices)
		sort.SliceStable(sorted, func(a, b int) bool {
			return X[sorted[a]][f] < X[sorted[b]][f]
		})

		var totalSum, totalSq float64
		for _, i := range sorted {
			totalSum += y[i]
			totalSq += y[i] * y[i]
		}

		var leftSum, leftSq float64
		for k := 1; k < n; k++ {
			prev := sorted[k-1]
			leftSum += y[prev]
			leftSq += y[prev] * y[prev]

			lo, hi := X[prev][f], X[sorted[k]][f]
			if lo == hi {
				continue
			}
			if k < t.MinSamplesLeaf || n-k < t.MinSamplesLeaf {
				continue
			}

			nl, nr := float64(k), float64(n-k)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)

			if !found || sse < bestSSE {
				threshold := (lo + hi) / 2
				if threshold >= hi {
					threshold = lo
				}
				bestFeature, bestThreshold, bestSSE = f, threshold, sse
				found = true
			}
		}
	}

	return bestFeature, bestThreshold, bestSSE, found
}
