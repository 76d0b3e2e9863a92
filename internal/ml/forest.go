package ml

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForestConfig holds random forest hyperparameters
type ForestConfig struct {
	NumTrees        int     `yaml:"num_trees" json:"num_trees"`
	MaxDepth        int     `yaml:"max_depth" json:"max_depth"`
	MinSamplesSplit int     `yaml:"min_samples_split" json:"min_samples_split"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf" json:"min_samples_leaf"`
	Bootstrap       bool    `yaml:"bootstrap" json:"bootstrap"`
	Seed            int64   `yaml:"seed" json:"seed"`
	TestSize        float64 `yaml:"test_size" json:"test_size"`
	MinRows         int     `yaml:"min_rows" json:"min_rows"`
	Workers         int     `yaml:"workers" json:"-"` // 0 means GOMAXPROCS
}

// DefaultForestConfig returns the default forest settings
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NumTrees:        100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		Seed:            42,
		TestSize:        0.2,
		MinRows:         5,
	}
}

// RandomForest averages bagged regression trees
type RandomForest struct {
	Config      ForestConfig      `json:"config"`
	Trees       []*RegressionTree `json:"trees"`
	NumFeatures int               `json:"num_features"`
	Importances []float64         `json:"feature_importances"`
}

// NewRandomForest creates an unfitted forest
func NewRandomForest(cfg ForestConfig) *RandomForest {
	if cfg.NumTrees <= 0 {
		cfg.NumTrees = 100
	}
	return &RandomForest{Config: cfg}
}

// Fit trains every tree on its own bootstrap sample. Trees are grown
// concurrently; tree i always uses seed Config.Seed+i so results do not
// depend on scheduling.
func (rf *RandomForest) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if len(X) == 0 {
		return fmt.Errorf("empty training data")
	}
	if len(X) != len(y) {
		return fmt.Errorf("X and y must have same number of samples")
	}

	rf.NumFeatures = len(X[0])
	trees := make([]*RegressionTree, rf.Config.NumTrees)

	workers := rf.Config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range trees {
		treeIdx := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(rf.Config.Seed + int64(treeIdx)))
			tree := NewRegressionTree(rf.Config.MaxDepth, rf.Config.MinSamplesSplit, rf.Config.MinSamplesLeaf)
			tree.Fit(X, y, rf.sampleIndices(len(X), rng))
			trees[treeIdx] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("forest training cancelled: %w", err)
	}

	rf.Trees = trees
	rf.Importances = averageImportance(trees, rf.NumFeatures)
	return nil
}

func (rf *RandomForest) sampleIndices(n int, rng *rand.Rand) []int {
	indices := make([]int, n)
	for i := range indices {
		if rf.Config.Bootstrap {
			indices[i] = rng.Intn(n)
		} else {
			indices[i] = i
		}
	}
	return indices
}

// averageImportance normalizes each tree's importances and averages them
func averageImportance(trees []*RegressionTree, numFeatures int) []float64 {
	out := make([]float64, numFeatures)
	counted := 0
	for _, tree := range trees {
		total := 0.0
		for _, v := range tree.importance {
			total += v
		}
		if total <= 0 {
			continue
		}
		for f, v := range tree.importance {
			out[f] += v / total
		}
		counted++
	}
	if counted > 0 {
		for f := range out {
			out[f] /= float64(counted)
		}
	}
	return out
}

// Predict averages the predictions of all trees
func (rf *RandomForest) Predict(x []float64) (float64, error) {
	if len(rf.Trees) == 0 {
		return 0, fmt.Errorf("forest has no trees")
	}
	if len(x) != rf.NumFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", rf.NumFeatures, len(x))
	}
	sum := 0.0
	for _, tree := range rf.Trees {
		sum += tree.Predict(x)
	}
	return sum / float64(len(rf.Trees)), nil
}

// Validate checks that a loaded forest is usable
func (rf *RandomForest) Validate() error {
	if len(rf.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	if rf.NumFeatures <= 0 {
		return fmt.Errorf("forest has invalid feature count %d", rf.NumFeatures)
	}
	for i, tree := range rf.Trees {
		if tree == nil || tree.Root == nil {
			return fmt.Errorf("tree %d is empty", i)
		}
		if err := validateNode(tree.Root, rf.NumFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func validateNode(n *TreeNode, numFeatures int) error {
	if n.IsLeaf() {
		return nil
	}
	if n.Feature < 0 || n.Feature >= numFeatures {
		return fmt.Errorf("split on unknown feature %d", n.Feature)
	}
	if err := validateNode(n.Left, numFeatures); err != nil {
		return err
	}
	return validateNode(n.Right, numFeatures)
}
