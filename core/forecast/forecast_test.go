package forecast

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/solarcast/core/model"
)

// linearData samples y = 3 + 2·x0 - x1 + 0.5·x2 over six features.
func linearData(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewPCG(1, 2))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		row := make([]float64, model.FeatureCount)
		for j := range row {
			row[j] = rng.Float64() * 10
		}
		X[i] = row
		y[i] = 3 + 2*row[0] - row[1] + 0.5*row[2]
	}
	return X, y
}

// stepData is a piecewise constant target on the irradiation column.
func stepData(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		irr := float64(i) / float64(n)
		X[i] = []float64{20, 30, irr, float64(i % 24), float64(i % 7), float64(i%12 + 1)}
		if irr < 0.5 {
			y[i] = 10
		} else {
			y[i] = 100
		}
	}
	return X, y
}

func TestLinearRegression_RecoversCoefficients(t *testing.T) {
	X, y := linearData(200)
	m := NewLinearRegression()
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 3, m.Intercept, 1e-6)
	assert.InDelta(t, 2, m.Coef[0], 1e-6)
	assert.InDelta(t, -1, m.Coef[1], 1e-6)
	assert.InDelta(t, 0.5, m.Coef[2], 1e-6)
	assert.InDelta(t, 0, m.Coef[3], 1e-6)
	assert.InDelta(t, 3+2*1-2+0.5*3, m.PredictRow([]float64{1, 2, 3, 0, 0, 0}), 1e-6)
}

func TestLinearRegression_SingularFallsBackToSVD(t *testing.T) {
	// Column 1 duplicates column 0: the normal equations are singular.
	X := [][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	y := []float64{2, 4, 6, 8}
	m := NewLinearRegression()
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 10, m.PredictRow([]float64{5, 5}), 1e-6)
}

func TestRidge_ShrinksCoefficients(t *testing.T) {
	X, y := linearData(100)
	ols := NewLinearRegression()
	require.NoError(t, ols.Fit(X, y))
	ridge := NewRidge(1000)
	require.NoError(t, ridge.Fit(X, y))
	assert.Less(t, math.Abs(ridge.Coef[0]), math.Abs(ols.Coef[0]))
	assert.Equal(t, KindRidge, ridge.Kind())
}

func TestLasso_ZeroesIrrelevantFeatures(t *testing.T) {
	X, y := linearData(300)
	m := NewLasso(0.1)
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 2, m.Coef[0], 0.1)
	assert.InDelta(t, -1, m.Coef[1], 0.1)
	for j := 3; j < model.FeatureCount; j++ {
		assert.InDelta(t, 0, m.Coef[j], 0.05, "feature %d", j)
	}
}

func TestFit_RejectsBadInput(t *testing.T) {
	for _, kind := range Kinds() {
		r, err := New(kind, nil)
		require.NoError(t, err, kind)
		assert.ErrorIs(t, r.Fit(nil, nil), ErrNoTrainingData, kind)
		assert.ErrorIs(t, r.Fit([][]float64{{1, 2}, {3}}, []float64{1, 2}), ErrNoTrainingData, kind)
	}
}

func TestRandomForest_FitsStep(t *testing.T) {
	X, y := stepData(200)
	m := NewRandomForest(20, 42)
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 10, m.PredictRow([]float64{20, 30, 0.1, 0, 0, 1}), 5)
	assert.InDelta(t, 100, m.PredictRow([]float64{20, 30, 0.9, 0, 0, 1}), 5)
}

func TestRandomForest_SeedIsDeterministic(t *testing.T) {
	X, y := linearData(80)
	a, b := NewRandomForest(5, 7), NewRandomForest(5, 7)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	row := []float64{1, 2, 3, 4, 5, 6}
	assert.Equal(t, a.PredictRow(row), b.PredictRow(row))
}

func TestGradientBoosting_FitsStep(t *testing.T) {
	X, y := stepData(200)
	m := NewGradientBoosting(50, 0.1, 3)
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 10, m.PredictRow([]float64{20, 30, 0.1, 0, 0, 1}), 1)
	assert.InDelta(t, 100, m.PredictRow([]float64{20, 30, 0.9, 0, 0, 1}), 1)
}

func TestKindsRegistered(t *testing.T) {
	assert.ElementsMatch(t, []string{
		KindLinearRegression, KindRidge, KindLasso, KindRandomForest, KindGradientBoosting, KindSVR,
	}, Kinds())
	for _, spec := range DefaultSpecs() {
		r, err := New(spec.Type, spec.Conf)
		require.NoError(t, err, spec.Type)
		assert.Equal(t, spec.Type, r.Kind())
	}
	_, err := New("xgboost", nil)
	assert.Error(t, err)
}

func TestSVR_FitsHourlyCurve(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 240; i++ {
		h := float64(i % 24)
		X = append(X, []float64{20, 30, 0.5, h, 0, 6})
		y = append(y, 10*h)
	}
	m := NewSVR(500, 0.01, 10)
	require.NoError(t, m.Fit(X, y))
	assert.NotEmpty(t, m.Model)

	noon := m.PredictRow([]float64{20, 30, 0.5, 12, 0, 6})
	assert.InDelta(t, 120, noon, 25)
	assert.Greater(t, m.PredictRow([]float64{20, 30, 0.5, 20, 0, 6}), m.PredictRow([]float64{20, 30, 0.5, 4, 0, 6}))
}

func TestSVR_RejectsBadParams(t *testing.T) {
	X, y := stepData(20)
	assert.Error(t, NewSVR(0, 0.01, 10).Fit(X, y))
	assert.Error(t, NewSVR(500, 0, 10).Fit(X, y))
	assert.Error(t, NewSVR(500, 0.01, -1).Fit(X, y))
}

func TestSVR_UnfittedIsRejected(t *testing.T) {
	m := NewSVR(500, 0.01, 10)
	assert.True(t, math.IsNaN(m.PredictRow([]float64{20, 30, 0.5, 12, 0, 6})))
	_, err := NewArtifact("", m, nil, nil, time.Now())
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestSVR_CorruptModelText(t *testing.T) {
	m := &SVR{C: 500, Gamma: 0.01, Epsilon: 10, Model: "svm_type nonsense\n"}
	assert.Error(t, m.check(6))
}

func TestNew_DecodesParams(t *testing.T) {
	r, err := New(KindGradientBoosting, map[string]any{"stages": 10, "learning_rate": 0.2, "max_depth": 2})
	require.NoError(t, err)
	gb := r.(*GradientBoosting)
	assert.Equal(t, 10, gb.Stages)
	assert.Equal(t, 0.2, gb.LearningRate)
	assert.Equal(t, 2, gb.MaxDepth)
}

func TestArtifact_RoundTripEveryKind(t *testing.T) {
	X, y := stepData(120)
	probe := model.FeatureVector{20, 30, 0.7, 12, 3, 6}
	for _, spec := range DefaultSpecs() {
		spec := spec
		t.Run(spec.Type, func(t *testing.T) {
			if spec.Type == KindRandomForest {
				spec.Conf = map[string]any{"trees": 5, "seed": 42}
			}
			if spec.Type == KindGradientBoosting {
				spec.Conf = map[string]any{"stages": 10, "learning_rate": 0.1, "max_depth": 3}
			}
			r, err := New(spec.Type, spec.Conf)
			require.NoError(t, err)
			require.NoError(t, r.Fit(X, y))
			want, err := NewPredictor(r).Predict(probe)
			require.NoError(t, err)

			art, err := NewArtifact("", r, spec.Conf, map[string]float64{"mae": 1}, time.Now())
			require.NoError(t, err)
			path := filepath.Join(t.TempDir(), "model.json")
			require.NoError(t, art.Save(path))

			p, err := Load(path)
			require.NoError(t, err)
			got, err := p.Predict(probe)
			require.NoError(t, err)
			assert.InDelta(t, want, got, 1e-9)
			assert.Equal(t, spec.Type, p.Kind())
			assert.Equal(t, spec.Type, p.Name())
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.json"))
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestLoad_FeatureOrderMismatch(t *testing.T) {
	X, y := linearData(50)
	r := NewLinearRegression()
	require.NoError(t, r.Fit(X, y))
	art, err := NewArtifact("ols", r, nil, nil, time.Now())
	require.NoError(t, err)
	art.FeatureOrder[0], art.FeatureOrder[1] = art.FeatureOrder[1], art.FeatureOrder[0]
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, art.Save(path))

	_, err = Load(path)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.ErrorIs(t, err, ErrFeatureOrderMismatch)
}

func TestLoad_TruncatedState(t *testing.T) {
	art := &Artifact{
		Name:         "broken",
		Kind:         KindLinearRegression,
		FeatureOrder: model.FeatureNames(),
		State:        json.RawMessage(`{"coef":[1,2]}`),
	}
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, art.Save(path))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestNewArtifact_RejectsUnfitted(t *testing.T) {
	_, err := NewArtifact("x", NewRandomForest(3, 1), nil, nil, time.Now())
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestPredictor_NonFinite(t *testing.T) {
	m := &Linear{kind: KindLinearRegression, Coef: []float64{math.Inf(1), 0, 0, 0, 0, 0}}
	_, err := NewPredictor(m).Predict(model.FeatureVector{1})
	assert.ErrorIs(t, err, ErrNonFinitePrediction)
}

func TestModelFunc(t *testing.T) {
	var m Model = ModelFunc(func(v model.FeatureVector) (float64, error) { return v[2] * 10, nil })
	got, err := m.Predict(model.FeatureVector{0, 0, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)
}
