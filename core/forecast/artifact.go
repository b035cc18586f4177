package forecast

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kilianp07/solarcast/core/model"
	"github.com/kilianp07/solarcast/internal/atomicfile"
)

// Artifact is the persisted form of a trained regressor.
type Artifact struct {
	Name         string             `json:"name"`
	Kind         string             `json:"kind"`
	FeatureOrder []string           `json:"feature_order"`
	TrainedAt    time.Time          `json:"trained_at"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	Params       map[string]any     `json:"params,omitempty"`
	State        json.RawMessage    `json:"state"`
}

// NewArtifact captures the fitted state of r under the current FeatureOrder.
func NewArtifact(name string, r Regressor, params map[string]any, metrics map[string]float64, trainedAt time.Time) (*Artifact, error) {
	if c, ok := r.(checker); ok {
		if err := c.check(model.FeatureCount); err != nil {
			return nil, err
		}
	}
	state, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s state: %w", r.Kind(), err)
	}
	if name == "" {
		name = r.Kind()
	}
	return &Artifact{
		Name:         name,
		Kind:         r.Kind(),
		FeatureOrder: model.FeatureNames(),
		TrainedAt:    trainedAt.UTC(),
		Metrics:      metrics,
		Params:       params,
		State:        state,
	}, nil
}

// Predictor rebuilds the regressor. It fails with ErrFeatureOrderMismatch when
// the artifact was trained on another feature layout.
func (a *Artifact) Predictor() (*Predictor, error) {
	if !model.MatchesFeatureOrder(a.FeatureOrder) {
		return nil, fmt.Errorf("%w: artifact %v, service %v", ErrFeatureOrderMismatch, a.FeatureOrder, model.FeatureNames())
	}
	r, err := New(a.Kind, a.Params)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(a.State, r); err != nil {
		return nil, fmt.Errorf("decode %s state: %w", a.Kind, err)
	}
	if c, ok := r.(checker); ok {
		if err := c.check(model.FeatureCount); err != nil {
			return nil, err
		}
	}
	return &Predictor{reg: r, name: a.Name, trainedAt: a.TrainedAt}, nil
}

// Save writes the artifact as indented JSON, replacing path atomically.
func (a *Artifact) Save(path string) error {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, b, 0o644)
}

// ReadArtifact decodes the artifact at path.
func ReadArtifact(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &a, nil
}

// Load reads the artifact at path and returns a ready Predictor. Every
// failure wraps ErrModelUnavailable.
func Load(path string) (*Predictor, error) {
	a, err := ReadArtifact(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelUnavailable, path, err)
	}
	p, err := a.Predictor()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelUnavailable, path, err)
	}
	return p, nil
}
