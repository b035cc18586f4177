package forecast

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
)

// RandomForest averages regression trees grown on bootstrap samples.
type RandomForest struct {
	Trees          int    `json:"trees"`
	MaxDepth       int    `json:"max_depth"`
	MinSamplesLeaf int    `json:"min_samples_leaf"`
	MaxFeatures    int    `json:"max_features"`
	Seed           uint64 `json:"seed"`
	Forest         []Tree `json:"forest,omitempty"`
}

// NewRandomForest returns a forest of trees with the given seed.
func NewRandomForest(trees int, seed uint64) *RandomForest {
	return &RandomForest{Trees: trees, Seed: seed, MinSamplesLeaf: 1}
}

// Kind implements Regressor.
func (m *RandomForest) Kind() string { return KindRandomForest }

// Fit implements Regressor. Equal seeds produce equal forests.
func (m *RandomForest) Fit(X [][]float64, y []float64) error {
	n, _, err := dims(X, y)
	if err != nil {
		return err
	}
	if m.Trees <= 0 {
		return fmt.Errorf("random forest needs at least one tree, got %d", m.Trees)
	}
	rng := rand.New(rand.NewPCG(m.Seed, m.Seed^0x9e3779b97f4a7c15))
	params := treeParams{maxDepth: m.MaxDepth, minSamplesLeaf: m.MinSamplesLeaf, maxFeatures: m.MaxFeatures}
	forest := make([]Tree, 0, m.Trees)
	idx := make([]int, n)
	for t := 0; t < m.Trees; t++ {
		for i := range idx {
			idx[i] = rng.IntN(n)
		}
		forest = append(forest, growTree(X, y, idx, params, rng))
	}
	m.Forest = forest
	return nil
}

// PredictRow implements Regressor.
func (m *RandomForest) PredictRow(x []float64) float64 {
	if len(m.Forest) == 0 {
		return 0
	}
	s := 0.0
	for i := range m.Forest {
		s += m.Forest[i].predict(x)
	}
	return s / float64(len(m.Forest))
}

func (m *RandomForest) check(features int) error {
	if len(m.Forest) == 0 {
		return fmt.Errorf("%w: empty forest", ErrNotFitted)
	}
	for i := range m.Forest {
		if err := m.Forest[i].check(features); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// GradientBoosting fits shallow trees on the residuals of the running
// prediction under squared loss.
type GradientBoosting struct {
	Stages         int     `json:"stages"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"`
	MinSamplesLeaf int     `json:"min_samples_leaf"`
	Seed           uint64  `json:"seed"`
	Init           float64 `json:"init"`
	Ensemble       []Tree  `json:"ensemble,omitempty"`
}

// NewGradientBoosting returns a booster with the given stages, shrinkage and
// tree depth.
func NewGradientBoosting(stages int, learningRate float64, maxDepth int) *GradientBoosting {
	return &GradientBoosting{Stages: stages, LearningRate: learningRate, MaxDepth: maxDepth, MinSamplesLeaf: 1, Seed: 42}
}

// Kind implements Regressor.
func (m *GradientBoosting) Kind() string { return KindGradientBoosting }

// Fit implements Regressor.
func (m *GradientBoosting) Fit(X [][]float64, y []float64) error {
	n, _, err := dims(X, y)
	if err != nil {
		return err
	}
	if m.Stages <= 0 || m.LearningRate <= 0 {
		return fmt.Errorf("gradient boosting needs positive stages and learning rate, got %d and %v", m.Stages, m.LearningRate)
	}
	if m.MaxDepth <= 0 {
		m.MaxDepth = 3
	}
	rng := rand.New(rand.NewPCG(m.Seed, m.Seed^0x9e3779b97f4a7c15))
	params := treeParams{maxDepth: m.MaxDepth, minSamplesLeaf: m.MinSamplesLeaf}
	m.Init = stat.Mean(y, nil)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = m.Init
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	resid := make([]float64, n)
	ensemble := make([]Tree, 0, m.Stages)
	for s := 0; s < m.Stages; s++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		tree := growTree(X, resid, idx, params, rng)
		for i, row := range X {
			pred[i] += m.LearningRate * tree.predict(row)
		}
		ensemble = append(ensemble, tree)
	}
	m.Ensemble = ensemble
	return nil
}

// PredictRow implements Regressor.
func (m *GradientBoosting) PredictRow(x []float64) float64 {
	out := m.Init
	for i := range m.Ensemble {
		out += m.LearningRate * m.Ensemble[i].predict(x)
	}
	return out
}

func (m *GradientBoosting) check(features int) error {
	if len(m.Ensemble) == 0 {
		return fmt.Errorf("%w: no boosting stages", ErrNotFitted)
	}
	for i := range m.Ensemble {
		if err := m.Ensemble[i].check(features); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
	}
	return nil
}
