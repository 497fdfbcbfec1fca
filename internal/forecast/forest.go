package forecast

import (
	"math/rand"
	"sort"
)

// Forest is a bagged ensemble of fully-grown regression trees. Each tree is
// fit on a bootstrap sample drawn from a deterministic seed, so the same
// training data always yields the same model.
type Forest struct {
	trees []*treeNode
}

type treeNode struct {
	// Internal nodes route on feature <= threshold; left is non-nil iff the
	// node is internal.
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
}

// FitForest trains nTrees regression trees on bootstrap resamples of the
// training set. Splits greedily minimize the summed squared error of the two
// sides; trees grow until leaves are pure or unsplittable.
func FitForest(features [][]float64, targets []float64, nTrees int, seed int64) *Forest {
	rng := rand.New(rand.NewSource(seed))
	n := len(targets)

	forest := &Forest{trees: make([]*treeNode, 0, nTrees)}
	for t := 0; t < nTrees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		forest.trees = append(forest.trees, growTree(features, targets, sample))
	}
	return forest
}

// Predict averages the per-tree predictions for one feature vector.
func (f *Forest) Predict(sample []float64) float64 {
	var sum float64
	for _, tree := range f.trees {
		sum += tree.predict(sample)
	}
	return sum / float64(len(f.trees))
}

func (n *treeNode) predict(sample []float64) float64 {
	for n.left != nil {
		if sample[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func growTree(features [][]float64, targets []float64, idx []int) *treeNode {
	var sum float64
	for _, i := range idx {
		sum += targets[i]
	}
	mean := sum / float64(len(idx))

	if len(idx) < 2 || isPure(targets, idx) {
		return &treeNode{value: mean}
	}

	feature, threshold, ok := bestSplit(features, targets, idx)
	if !ok {
		return &treeNode{value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      growTree(features, targets, left),
		right:     growTree(features, targets, right),
	}
}

func isPure(targets []float64, idx []int) bool {
	first := targets[idx[0]]
	for _, i := range idx[1:] {
		if targets[i] != first {
			return false
		}
	}
	return true
}

// bestSplit scans every feature for the threshold minimizing the summed
// squared error of the partition, using running prefix sums so each feature
// costs one sort plus one linear pass. ok is false when every feature is
// constant over idx.
func bestSplit(features [][]float64, targets []float64, idx []int) (feature int, threshold float64, ok bool) {
	nFeatures := len(features[idx[0]])
	n := len(idx)

	bestSSE := -1.0
	order := make([]int, n)

	for f := 0; f < nFeatures; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return features[order[a]][f] < features[order[b]][f]
		})

		var totalSum, totalSq float64
		for _, i := range order {
			totalSum += targets[i]
			totalSq += targets[i] * targets[i]
		}

		var leftSum, leftSq float64
		for split := 1; split < n; split++ {
			y := targets[order[split-1]]
			leftSum += y
			leftSq += y * y

			prev := features[order[split-1]][f]
			cur := features[order[split]][f]
			if prev == cur {
				continue
			}

			nl := float64(split)
			nr := float64(n - split)
			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)

			if bestSSE < 0 || sse < bestSSE {
				bestSSE = sse
				feature = f
				threshold = (prev + cur) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}
