package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Linear is ordinary least squares, or ridge regression when Alpha > 0. The
// intercept is not penalized.
type Linear struct {
	kind      string
	Alpha     float64   `json:"alpha"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// NewLinearRegression returns an unpenalized least squares regressor.
func NewLinearRegression() *Linear { return &Linear{kind: KindLinearRegression} }

// NewRidge returns a ridge regressor with L2 strength alpha.
func NewRidge(alpha float64) *Linear { return &Linear{kind: KindRidge, Alpha: alpha} }

// Kind implements Regressor.
func (m *Linear) Kind() string { return m.kind }

// Fit solves the normal equations on centered data with a Cholesky
// factorization, falling back to an SVD when the system is singular.
func (m *Linear) Fit(X [][]float64, y []float64) error {
	n, p, err := dims(X, y)
	if err != nil {
		return err
	}
	if m.Alpha < 0 {
		return fmt.Errorf("alpha must be non-negative, got %v", m.Alpha)
	}
	xm, ym := columnMeans(X), stat.Mean(y, nil)
	a := mat.NewDense(n, p, nil)
	b := mat.NewVecDense(n, nil)
	for i, row := range X {
		for j, v := range row {
			a.Set(i, j, v-xm[j])
		}
		b.SetVec(i, y[i]-ym)
	}
	w, err := solveLeastSquares(a, b, m.Alpha)
	if err != nil {
		return err
	}
	m.Coef = w
	m.Intercept = ym - dot(w, xm)
	return nil
}

// PredictRow implements Regressor.
func (m *Linear) PredictRow(x []float64) float64 {
	return m.Intercept + dot(m.Coef, x)
}

func (m *Linear) check(features int) error {
	if len(m.Coef) != features {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrNotFitted, len(m.Coef), features)
	}
	return nil
}

func solveLeastSquares(a *mat.Dense, b *mat.VecDense, l2 float64) ([]float64, error) {
	_, p := a.Dims()
	sym := mat.NewSymDense(p, nil)
	sym.SymOuterK(1, a.T())
	for i := 0; i < p; i++ {
		sym.SetSym(i, i, sym.At(i, i)+l2)
	}
	var atb mat.VecDense
	atb.MulVec(a.T(), b)

	var chol mat.Cholesky
	if chol.Factorize(sym) && chol.Cond() < 1e12 {
		var beta mat.VecDense
		if err := chol.SolveVecTo(&beta, &atb); err == nil {
			return vecToSlice(&beta), nil
		}
	}

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, fmt.Errorf("svd factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)
	var uty mat.VecDense
	uty.MulVec(u.T(), b)
	cutoff := 1e-12
	if len(s) > 0 {
		cutoff *= s[0]
	}
	for i, val := range s {
		if val > cutoff {
			uty.SetVec(i, uty.AtVec(i)*val/(val*val+l2))
		} else {
			uty.SetVec(i, 0)
		}
	}
	var beta mat.VecDense
	beta.MulVec(&v, &uty)
	return vecToSlice(&beta), nil
}

// Lasso is L1-penalized least squares minimizing
// (1/2n)·||y - Xw - b||² + Alpha·||w||₁, fitted by cyclic coordinate descent.
type Lasso struct {
	Alpha     float64   `json:"alpha"`
	MaxIter   int       `json:"max_iter"`
	Tol       float64   `json:"tol"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// NewLasso returns a lasso regressor with L1 strength alpha.
func NewLasso(alpha float64) *Lasso {
	return &Lasso{Alpha: alpha, MaxIter: 1000, Tol: 1e-4}
}

// Kind implements Regressor.
func (m *Lasso) Kind() string { return KindLasso }

// Fit implements Regressor.
func (m *Lasso) Fit(X [][]float64, y []float64) error {
	n, p, err := dims(X, y)
	if err != nil {
		return err
	}
	if m.Alpha < 0 {
		return fmt.Errorf("alpha must be non-negative, got %v", m.Alpha)
	}
	if m.MaxIter <= 0 {
		m.MaxIter = 1000
	}
	if m.Tol <= 0 {
		m.Tol = 1e-4
	}
	xm, ym := columnMeans(X), stat.Mean(y, nil)
	xc := make([][]float64, p)
	colSq := make([]float64, p)
	for j := 0; j < p; j++ {
		xc[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			v := X[i][j] - xm[j]
			xc[j][i] = v
			colSq[j] += v * v
		}
	}
	resid := make([]float64, n)
	for i := range y {
		resid[i] = y[i] - ym
	}
	w := make([]float64, p)
	penalty := float64(n) * m.Alpha
	for iter := 0; iter < m.MaxIter; iter++ {
		var maxDelta, maxW float64
		for j := 0; j < p; j++ {
			if colSq[j] == 0 {
				continue
			}
			rho := 0.0
			for i, v := range xc[j] {
				rho += v * (resid[i] + v*w[j])
			}
			next := softThreshold(rho, penalty) / colSq[j]
			if d := next - w[j]; d != 0 {
				for i, v := range xc[j] {
					resid[i] -= v * d
				}
				w[j] = next
				maxDelta = math.Max(maxDelta, math.Abs(d))
			}
			maxW = math.Max(maxW, math.Abs(w[j]))
		}
		if maxW == 0 || maxDelta/maxW < m.Tol {
			break
		}
	}
	m.Coef = w
	m.Intercept = ym - dot(w, xm)
	return nil
}

// PredictRow implements Regressor.
func (m *Lasso) PredictRow(x []float64) float64 {
	return m.Intercept + dot(m.Coef, x)
}

func (m *Lasso) check(features int) error {
	if len(m.Coef) != features {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrNotFitted, len(m.Coef), features)
	}
	return nil
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

func columnMeans(X [][]float64) []float64 {
	p := len(X[0])
	means := make([]float64, p)
	col := make([]float64, len(X))
	for j := 0; j < p; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		means[j] = stat.Mean(col, nil)
	}
	return means
}

func dot(w, x []float64) float64 {
	s := 0.0
	for i := range w {
		if i < len(x) {
			s += w[i] * x[i]
		}
	}
	return s
}

func vecToSlice(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
