package eigentrust

import (
	"fmt"

	"github.com/veritrust-dev/veritrust-node/pkg/util"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

// Prm groups the required parameters of the Calculator's constructor.
//
// All values must comply with the requirements imposed on them.
// Passing incorrect parameter values will result in constructor
// failure (error or panic depending on the implementation).
type Prm struct {
	// Damping factor of the iteration: the weight of the pre-trusted seed
	// vector against the aggregated opinions.
	//
	// Must be in (0, 1].
	Alpha float64

	// Convergence tolerance: the iteration stops when the L1 distance
	// between successive vectors drops below it.
	//
	// Must be positive.
	ConvergenceTolerance float64

	// Hard cap on the number of iterations.
	//
	// Must be positive.
	MaxIterations uint32
}

// Calculator computes global trust vectors from frozen trust matrices.
//
// For correct operation, the Calculator must be created using the
// constructor (New) based on the required parameters and optional
// components. After successful creation, the Calculator is immediately
// ready to work.
type Calculator struct {
	prm Prm

	opts *options
}

const invalidPrmValFmt = "invalid parameter %s (%T):%v"

func panicOnPrmValue(n string, v interface{}) {
	panic(fmt.Sprintf(invalidPrmValFmt, n, v, v))
}

// New creates a new instance of the Calculator.
//
// Panics if at least one value of the parameters is invalid.
//
// The created Calculator does not require additional
// initialization and is completely ready for work.
func New(prm Prm, opts ...Option) *Calculator {
	switch {
	case prm.Alpha <= 0 || prm.Alpha > 1:
		panicOnPrmValue("Alpha", prm.Alpha)
	case prm.ConvergenceTolerance <= 0:
		panicOnPrmValue("ConvergenceTolerance", prm.ConvergenceTolerance)
	case prm.MaxIterations == 0:
		panicOnPrmValue("MaxIterations", prm.MaxIterations)
	}

	o := defaultOpts()

	for _, opt := range opts {
		opt(o)
	}

	return &Calculator{
		prm:  prm,
		opts: o,
	}
}

// Option sets an optional parameter of Calculator.
type Option func(*options)

type options struct {
	log *logger.Logger

	pool util.WorkerPool

	// minimum matrix dimension at which the multiply
	// is spread over the worker pool
	parallelThreshold int
}

func defaultOpts() *options {
	return &options{
		log:               logger.Nop(),
		pool:              util.NewPseudoWorkerPool(),
		parallelThreshold: 256,
	}
}

// WithLogger returns an option to specify the component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithWorkerPool returns an option to execute the matrix-vector multiply on
// the given pool for large peer sets. The multiply reads the frozen matrix
// only, so no locking is involved.
func WithWorkerPool(p util.WorkerPool) Option {
	return func(o *options) {
		if p != nil {
			o.pool = p
		}
	}
}
