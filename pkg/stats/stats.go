// Package stats provides the small numeric surface the execution engine
// exposes to synthesized programs: an ordinary least squares fit, the R²
// score, and a seeded train/test index split. All functions are pure and
// deterministic for fixed inputs.
package stats

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrSingular is returned when the normal equations have no unique solution
// (collinear or constant features, or fewer samples than coefficients).
var ErrSingular = errors.New("singular feature matrix")

// Fit solves ordinary least squares for y ≈ X·coefs + intercept via the
// normal equations. features is row-major with one row per sample.
func Fit(features [][]float64, targets []float64) (coefs []float64, intercept float64, err error) {
	n := len(features)
	if n == 0 || n != len(targets) {
		return nil, 0, fmt.Errorf("fit: %d samples for %d targets", n, len(targets))
	}
	k := len(features[0])
	if k == 0 {
		return nil, 0, errors.New("fit: no features")
	}
	for i, row := range features {
		if len(row) != k {
			return nil, 0, fmt.Errorf("fit: sample %d has %d features, want %d", i, len(row), k)
		}
	}

	// Normal equations over the design matrix [1 | X]: M w = v, where
	// M = AᵀA and v = Aᵀy. M is (k+1)×(k+1), symmetric.
	dim := k + 1
	m := make([][]float64, dim)
	for i := range m {
		m[i] = make([]float64, dim)
	}
	v := make([]float64, dim)
	for s := 0; s < n; s++ {
		row := make([]float64, dim)
		row[0] = 1
		copy(row[1:], features[s])
		for i := 0; i < dim; i++ {
			v[i] += row[i] * targets[s]
			for j := 0; j < dim; j++ {
				m[i][j] += row[i] * row[j]
			}
		}
	}

	w, err := solve(m, v)
	if err != nil {
		return nil, 0, err
	}
	return w[1:], w[0], nil
}

// solve runs Gaussian elimination with partial pivoting on m·w = v,
// destroying both arguments.
func solve(m [][]float64, v []float64) ([]float64, error) {
	dim := len(m)
	for col := 0; col < dim; col++ {
		pivot := col
		for r := col + 1; r < dim; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, ErrSingular
		}
		m[col], m[pivot] = m[pivot], m[col]
		v[col], v[pivot] = v[pivot], v[col]
		for r := col + 1; r < dim; r++ {
			factor := m[r][col] / m[col][col]
			for c := col; c < dim; c++ {
				m[r][c] -= factor * m[col][c]
			}
			v[r] -= factor * v[col]
		}
	}
	w := make([]float64, dim)
	for i := dim - 1; i >= 0; i-- {
		sum := v[i]
		for j := i + 1; j < dim; j++ {
			sum -= m[i][j] * w[j]
		}
		w[i] = sum / m[i][i]
	}
	return w, nil
}

// R2 computes the coefficient of determination. When the truth has zero
// variance the score is 1 for a perfect prediction and 0 otherwise.
func R2(truth, predicted []float64) (float64, error) {
	if len(truth) == 0 || len(truth) != len(predicted) {
		return 0, fmt.Errorf("r2: %d truths for %d predictions", len(truth), len(predicted))
	}
	var mean float64
	for _, y := range truth {
		mean += y
	}
	mean /= float64(len(truth))

	var ssRes, ssTot float64
	for i, y := range truth {
		d := y - predicted[i]
		ssRes += d * d
		dt := y - mean
		ssTot += dt * dt
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

// SplitIndices shuffles 0..n-1 with the given seed and cuts off a test set of
// ceil(n·testFraction) indices, clamped so both parts are non-empty.
func SplitIndices(n int, testFraction float64, seed int64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("split: need at least 2 rows, have %d", n)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("split: test fraction %v out of (0, 1)", testFraction)
	}
	testCount := int(math.Ceil(float64(n) * testFraction))
	if testCount < 1 {
		testCount = 1
	}
	if testCount > n-1 {
		testCount = n - 1
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[testCount:], perm[:testCount], nil
}
