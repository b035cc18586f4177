package forecast

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	libSvm "github.com/ewalker544/libsvm-go"
)

// SVR is epsilon support vector regression with an RBF kernel. The fitted
// model is kept in libsvm's text format so it travels inside the artifact.
type SVR struct {
	C       float64 `json:"c"`
	Gamma   float64 `json:"gamma"`
	Epsilon float64 `json:"epsilon"`
	Tol     float64 `json:"tol"`
	Model   string  `json:"model,omitempty"`

	mu  sync.Mutex
	svm *libSvm.Model
}

// NewSVR returns an RBF epsilon-SVR.
func NewSVR(c, gamma, epsilon float64) *SVR {
	return &SVR{C: c, Gamma: gamma, Epsilon: epsilon, Tol: 1e-3}
}

// Kind implements Regressor.
func (m *SVR) Kind() string { return KindSVR }

func (m *SVR) param() *libSvm.Parameter {
	p := libSvm.NewParameter()
	p.SvmType = libSvm.EPSILON_SVR
	p.KernelType = libSvm.RBF
	p.C = m.C
	p.Gamma = m.Gamma
	p.P = m.Epsilon
	if m.Tol > 0 {
		p.Eps = m.Tol
	}
	p.QuietMode = true
	return p
}

// Fit implements Regressor. libsvm reads problems and models from files, so
// both go through a scratch directory.
func (m *SVR) Fit(X [][]float64, y []float64) error {
	if _, _, err := dims(X, y); err != nil {
		return err
	}
	if m.C <= 0 || m.Gamma <= 0 || m.Epsilon < 0 {
		return fmt.Errorf("svr needs positive c and gamma and non-negative epsilon, got %v, %v, %v", m.C, m.Gamma, m.Epsilon)
	}
	dir, err := os.MkdirTemp("", "solarcast-svr-")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	var b strings.Builder
	for i, row := range X {
		b.WriteString(strconv.FormatFloat(y[i], 'g', -1, 64))
		for j, v := range row {
			fmt.Fprintf(&b, " %d:%s", j+1, strconv.FormatFloat(v, 'g', -1, 64))
		}
		b.WriteByte('\n')
	}
	problemPath := filepath.Join(dir, "train.svm")
	if err := os.WriteFile(problemPath, []byte(b.String()), 0o600); err != nil {
		return err
	}
	param := m.param()
	prob, err := libSvm.NewProblem(problemPath, param)
	if err != nil {
		return fmt.Errorf("svr problem: %w", err)
	}
	svm := libSvm.NewModel(param)
	if err := svm.Train(prob); err != nil {
		return fmt.Errorf("svr train: %w", err)
	}
	modelPath := filepath.Join(dir, "model.svm")
	if err := svm.Dump(modelPath); err != nil {
		return fmt.Errorf("svr dump: %w", err)
	}
	text, err := os.ReadFile(modelPath)
	if err != nil {
		return err
	}
	// Predictions always come from the decoded text so a reloaded artifact
	// answers exactly like the freshly fitted one.
	m.mu.Lock()
	m.Model = string(text)
	m.svm = nil
	m.mu.Unlock()
	return nil
}

// PredictRow implements Regressor. An unloadable model yields NaN.
func (m *SVR) PredictRow(x []float64) float64 {
	svm, err := m.loaded()
	if err != nil {
		return math.NaN()
	}
	in := make(map[int]float64, len(x))
	for j, v := range x {
		in[j+1] = v
	}
	return svm.Predict(in)
}

func (m *SVR) check(int) error {
	_, err := m.loaded()
	return err
}

// loaded returns the libsvm model, decoding Model on first use.
func (m *SVR) loaded() (*libSvm.Model, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.svm != nil {
		return m.svm, nil
	}
	if m.Model == "" {
		return nil, fmt.Errorf("%w: empty svr model", ErrNotFitted)
	}
	f, err := os.CreateTemp("", "solarcast-svr-*.model")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(f.Name()) }()
	if _, err := f.WriteString(m.Model); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	svm := libSvm.NewModel(libSvm.NewParameter())
	if err := svm.ReadModel(f.Name()); err != nil {
		return nil, fmt.Errorf("decode svr model: %w", err)
	}
	m.svm = svm
	return svm, nil
}
