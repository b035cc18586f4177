// Package factory holds the generic registry used to build pluggable
// components (forecast regressors, weather sources, metrics sinks) from
// configuration. A component is selected by a type string and configured by a
// map of raw settings decoded with json tags.
//
//	reg := factory.NewRegistry[forecast.Regressor]()
//	_ = reg.Register("ridge", func(conf map[string]any) (forecast.Regressor, error) {
//	    var p struct{ Alpha float64 `json:"alpha"` }
//	    if err := factory.Decode(conf, &p); err != nil {
//	        return nil, err
//	    }
//	    return newRidge(p.Alpha), nil
//	})
//	r, err := reg.Create(factory.ModuleConfig{Type: "ridge", Conf: map[string]any{"alpha": 1.0}})
package factory
