package eigentrust

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

// ErrNonConvergent is returned when the iteration hits the MaxIterations cap
// before reaching the convergence tolerance. The last computed vector is
// still returned with the error: accepting a non-converged result is the
// caller's policy decision.
var ErrNonConvergent = errors.New("iteration cap reached before convergence")

// Result groups the outcome of a single global trust calculation.
type Result struct {
	// Global trust score per peer of the matrix index. Scores are
	// non-negative and sum to one.
	Trust map[reputation.PeerID]reputation.TrustValue

	// Converged reports whether the iteration reached the configured
	// tolerance within the iteration cap.
	Converged bool

	// Iterations performed.
	Iterations uint32
}

// Calculate runs the EigenTrust power iteration over the frozen matrix m
// seeded by the pre-trusted distribution.
//
// The seed is normalized over the matrix index; an empty or zero pretrust
// set degrades to the uniform distribution. Opinion-less peers (zero rows)
// pass their mass to the seed vector, so every intermediate vector sums to
// one.
//
// Returns ErrNonConvergent (with a usable Result) on hitting the iteration
// cap, ErrMalformedMatrix on an invariant violation.
func (c *Calculator) Calculate(m *Matrix, pretrust map[reputation.PeerID]reputation.TrustValue) (Result, error) {
	if err := m.validate(); err != nil {
		return Result{}, err
	}

	n := m.Size()
	if n == 0 {
		return Result{Trust: map[reputation.PeerID]reputation.TrustValue{}, Converged: true}, nil
	}

	seed, err := c.seedVector(m, pretrust)
	if err != nil {
		return Result{}, err
	}

	zeroRows := make([]bool, n)
	for i := 0; i < n; i++ {
		zeroRows[i] = rowIsZero(m.rows[i])
	}

	cur := make([]float64, n)
	copy(cur, seed)

	next := make([]float64, n)

	var iter uint32

	for iter = 0; iter < c.prm.MaxIterations; iter++ {
		c.step(m, zeroRows, seed, cur, next)

		diff := l1Distance(cur, next)

		cur, next = next, cur

		if diff < c.prm.ConvergenceTolerance {
			c.opts.log.Debug("global trust converged",
				logger.FieldUint("iterations", uint64(iter+1)),
				logger.FieldFloat("residual", diff),
			)

			return c.result(m, cur, true, iter+1), nil
		}
	}

	c.opts.log.Warn("global trust did not converge",
		logger.FieldUint("iterations", uint64(iter)),
	)

	return c.result(m, cur, false, iter), ErrNonConvergent
}

// step computes next = (1-alpha) * (C^T * cur + danglingMass * seed) + alpha * seed.
//
// Mass of zero rows (opinion-less peers) is redistributed over the seed
// vector instead of injecting self-loops, which would distort ranks.
func (c *Calculator) step(m *Matrix, zeroRows []bool, seed, cur, next []float64) {
	n := m.Size()

	var dangling float64

	for i := 0; i < n; i++ {
		if zeroRows[i] {
			dangling += cur[i]
		}
	}

	c.multiplyTransposed(m, cur, next)

	alpha := c.prm.Alpha

	for j := 0; j < n; j++ {
		next[j] = (1-alpha)*(next[j]+dangling*seed[j]) + alpha*seed[j]
	}
}

// multiplyTransposed computes next = C^T * cur, spreading column chunks over
// the worker pool for large matrices.
func (c *Calculator) multiplyTransposed(m *Matrix, cur, next []float64) {
	n := m.Size()

	if n < c.opts.parallelThreshold {
		multiplyColumns(m, cur, next, 0, n)
		return
	}

	const chunk = 64

	var wg sync.WaitGroup

	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}

		lo, hi := lo, hi

		wg.Add(1)

		task := func() {
			defer wg.Done()
			multiplyColumns(m, cur, next, lo, hi)
		}

		if err := c.opts.pool.Submit(task); err != nil {
			// pool is saturated or closed, run in the caller's routine
			task()
		}
	}

	wg.Wait()
}

func multiplyColumns(m *Matrix, cur, next []float64, lo, hi int) {
	n := m.Size()

	for j := lo; j < hi; j++ {
		var acc float64

		for i := 0; i < n; i++ {
			acc += m.rows[i][j] * cur[i]
		}

		next[j] = acc
	}
}

func (c *Calculator) seedVector(m *Matrix, pretrust map[reputation.PeerID]reputation.TrustValue) ([]float64, error) {
	n := m.Size()
	seed := make([]float64, n)

	var sum float64

	for id, v := range pretrust {
		if !v.IsValid() {
			return nil, fmt.Errorf("%w: pre-trust weight %s of peer %s", ErrMalformedMatrix, v, id)
		}

		i, ok := m.Position(id)
		if !ok {
			// pre-trusted peer not participating in this epoch
			continue
		}

		seed[i] = v.Float64()
		sum += v.Float64()
	}

	if sum == 0 {
		for i := range seed {
			seed[i] = 1 / float64(n)
		}

		return seed, nil
	}

	for i := range seed {
		seed[i] /= sum
	}

	return seed, nil
}

func (c *Calculator) result(m *Matrix, vec []float64, converged bool, iterations uint32) Result {
	trust := make(map[reputation.PeerID]reputation.TrustValue, len(vec))

	for i, id := range m.Peers() {
		trust[id] = reputation.TrustValueFromFloat64(vec[i])
	}

	return Result{
		Trust:      trust,
		Converged:  converged,
		Iterations: iterations,
	}
}

func rowIsZero(row []float64) bool {
	for _, v := range row {
		if v != 0 {
			return false
		}
	}

	return true
}

func l1Distance(a, b []float64) float64 {
	var d float64

	for i := range a {
		d += math.Abs(a[i] - b[i])
	}

	return d
}
