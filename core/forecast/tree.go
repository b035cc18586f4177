package forecast

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// treeNode is one node of a flattened regression tree. Leaves have
// Feature == -1.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a CART regression tree minimizing squared error.
type Tree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeParams struct {
	maxDepth       int // <= 0 means unlimited
	minSamplesLeaf int
	maxFeatures    int // <= 0 means all
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (t *Tree) check(features int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("%w: empty tree", ErrNotFitted)
	}
	for i, n := range t.Nodes {
		if n.Feature < 0 {
			continue
		}
		if n.Feature >= features {
			return fmt.Errorf("node %d splits on feature %d of %d", i, n.Feature, features)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
	}
	return nil
}

type treeBuilder struct {
	X      [][]float64
	y      []float64
	params treeParams
	rng    *rand.Rand
	tree   *Tree
	feats  []int
}

// growTree fits a tree on the rows listed in idx (duplicates allowed).
func growTree(X [][]float64, y []float64, idx []int, params treeParams, rng *rand.Rand) Tree {
	if params.minSamplesLeaf < 1 {
		params.minSamplesLeaf = 1
	}
	p := len(X[0])
	if params.maxFeatures <= 0 || params.maxFeatures > p {
		params.maxFeatures = p
	}
	feats := make([]int, p)
	for i := range feats {
		feats[i] = i
	}
	b := &treeBuilder{X: X, y: y, params: params, rng: rng, tree: &Tree{}, feats: feats}
	b.grow(idx, 0)
	return *b.tree
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	sum := 0.0
	for _, i := range idx {
		sum += b.y[i]
	}
	node := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, treeNode{Feature: -1, Value: sum / float64(len(idx))})
	if b.params.maxDepth > 0 && depth >= b.params.maxDepth {
		return node
	}
	if len(idx) < 2*b.params.minSamplesLeaf {
		return node
	}
	feat, thr, ok := b.bestSplit(idx, sum)
	if !ok {
		return node
	}
	var left, right []int
	for _, i := range idx {
		if b.X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.Nodes[node] = treeNode{Feature: feat, Threshold: thr, Left: l, Right: r, Value: b.tree.Nodes[node].Value}
	return node
}

// bestSplit maximizes sum²/count over both children, which is equivalent to
// minimizing the summed squared error.
func (b *treeBuilder) bestSplit(idx []int, total float64) (int, float64, bool) {
	n := len(idx)
	candidates := b.feats
	if b.params.maxFeatures < len(b.feats) {
		b.rng.Shuffle(len(b.feats), func(i, j int) { b.feats[i], b.feats[j] = b.feats[j], b.feats[i] })
		candidates = b.feats[:b.params.maxFeatures]
	}
	best := total*total/float64(n) + 1e-9
	bestFeat, bestThr := -1, 0.0
	sorted := make([]int, n)
	for _, f := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })
		left := 0.0
		for k := 1; k < n; k++ {
			left += b.y[sorted[k-1]]
			lo, hi := b.X[sorted[k-1]][f], b.X[sorted[k]][f]
			if lo == hi {
				continue
			}
			if k < b.params.minSamplesLeaf || n-k < b.params.minSamplesLeaf {
				continue
			}
			right := total - left
			score := left*left/float64(k) + right*right/float64(n-k)
			if score > best {
				best, bestFeat, bestThr = score, f, lo+(hi-lo)/2
			}
		}
	}
	return bestFeat, bestThr, bestFeat >= 0
}
