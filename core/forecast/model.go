// Package forecast holds the regressors mapping a FeatureVector to a power
// estimate, and the artifact format used to ship a trained one from the
// training job to the prediction service.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/solarcast/core/model"
)

var (
	// ErrModelUnavailable reports a missing, unreadable or incompatible model.
	ErrModelUnavailable = errors.New("forecast model unavailable")
	// ErrFeatureOrderMismatch reports an artifact trained on another feature layout.
	ErrFeatureOrderMismatch = errors.New("feature order mismatch")
	// ErrNonFinitePrediction is returned when a model produces NaN or Inf.
	ErrNonFinitePrediction = errors.New("non-finite prediction")
	// ErrNotFitted is returned by Fit-dependent operations on an empty regressor.
	ErrNotFitted = errors.New("regressor not fitted")
	// ErrNoTrainingData is returned by Fit for empty or ragged inputs.
	ErrNoTrainingData = errors.New("no training data")
)

// Model predicts AC power from a feature vector.
type Model interface {
	Predict(v model.FeatureVector) (float64, error)
}

// Regressor is a trainable model over plain rows. Implementations are
// registered by Kind and must round-trip through encoding/json.
type Regressor interface {
	Kind() string
	Fit(X [][]float64, y []float64) error
	PredictRow(x []float64) float64
}

// checker is implemented by regressors able to verify a decoded state.
type checker interface {
	check(features int) error
}

// ModelFunc adapts a plain function to Model.
type ModelFunc func(v model.FeatureVector) (float64, error)

// Predict calls f.
func (f ModelFunc) Predict(v model.FeatureVector) (float64, error) { return f(v) }

// Predictor serves a fitted Regressor as a Model.
type Predictor struct {
	reg       Regressor
	name      string
	trainedAt time.Time
}

// NewPredictor wraps a fitted regressor.
func NewPredictor(r Regressor) *Predictor {
	return &Predictor{reg: r, name: r.Kind()}
}

// Predict evaluates the regressor on v.
func (p *Predictor) Predict(v model.FeatureVector) (float64, error) {
	y := p.reg.PredictRow(v[:])
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNonFinitePrediction, y)
	}
	return y, nil
}

// Kind returns the regressor kind.
func (p *Predictor) Kind() string { return p.reg.Kind() }

// Name returns the name the model was saved under.
func (p *Predictor) Name() string { return p.name }

// TrainedAt returns when the model was trained, zero when unknown.
func (p *Predictor) TrainedAt() time.Time { return p.trainedAt }

// Regressor returns the wrapped regressor.
func (p *Predictor) Regressor() Regressor { return p.reg }

func dims(X [][]float64, y []float64) (n, p int, err error) {
	n = len(X)
	if n == 0 || len(y) != n {
		return 0, 0, fmt.Errorf("%w: %d rows, %d targets", ErrNoTrainingData, n, len(y))
	}
	p = len(X[0])
	if p == 0 {
		return 0, 0, fmt.Errorf("%w: no features", ErrNoTrainingData)
	}
	for i, row := range X {
		if len(row) != p {
			return 0, 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrNoTrainingData, i, len(row), p)
		}
	}
	return n, p, nil
}
