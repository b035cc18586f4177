package forecast

import (
	"github.com/kilianp07/solarcast/core/factory"
)

// Registered regressor kinds.
const (
	KindLinearRegression = "linear_regression"
	KindRidge            = "ridge"
	KindLasso            = "lasso"
	KindRandomForest     = "random_forest"
	KindGradientBoosting = "gradient_boosting"
	KindSVR              = "svr"
)

var registry = factory.NewRegistry[Regressor]()

// Register adds a regressor factory. Factories must return a pointer so the
// fitted state can be decoded into it.
func Register(kind string, f factory.Factory[Regressor]) error {
	return registry.Register(kind, f)
}

// New builds an unfitted regressor of the given kind from raw parameters.
func New(kind string, params map[string]any) (Regressor, error) {
	return registry.Create(factory.ModuleConfig{Type: kind, Conf: params})
}

// Kinds lists the registered regressor kinds.
func Kinds() []string { return registry.Types() }

// DefaultSpecs returns the regressors fitted by a training run when none are
// configured.
func DefaultSpecs() []factory.ModuleConfig {
	return []factory.ModuleConfig{
		{Type: KindLinearRegression},
		{Type: KindRidge, Conf: map[string]any{"alpha": 1.0}},
		{Type: KindLasso, Conf: map[string]any{"alpha": 0.1}},
		{Type: KindRandomForest, Conf: map[string]any{"trees": 100, "seed": 42}},
		{Type: KindGradientBoosting, Conf: map[string]any{"stages": 100, "learning_rate": 0.1, "max_depth": 5}},
		{Type: KindSVR, Conf: map[string]any{"c": 500.0, "gamma": 0.01, "epsilon": 10.0}},
	}
}

func init() {
	_ = Register(KindLinearRegression, func(map[string]any) (Regressor, error) {
		return NewLinearRegression(), nil
	})

	_ = Register(KindRidge, func(conf map[string]any) (Regressor, error) {
		m := NewRidge(1.0)
		if err := factory.Decode(conf, m); err != nil {
			return nil, err
		}
		return m, nil
	})

	_ = Register(KindLasso, func(conf map[string]any) (Regressor, error) {
		m := NewLasso(0.1)
		if err := factory.Decode(conf, m); err != nil {
			return nil, err
		}
		return m, nil
	})

	_ = Register(KindRandomForest, func(conf map[string]any) (Regressor, error) {
		m := NewRandomForest(100, 42)
		if err := factory.Decode(conf, m); err != nil {
			return nil, err
		}
		return m, nil
	})

	_ = Register(KindGradientBoosting, func(conf map[string]any) (Regressor, error) {
		m := NewGradientBoosting(100, 0.1, 5)
		if err := factory.Decode(conf, m); err != nil {
			return nil, err
		}
		return m, nil
	})

	_ = Register(KindSVR, func(conf map[string]any) (Regressor, error) {
		m := NewSVR(500, 0.01, 10)
		if err := factory.Decode(conf, m); err != nil {
			return nil, err
		}
		return m, nil
	})
}
