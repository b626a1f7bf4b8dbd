// Package manager implements the trust manager: the component owning epoch
// sequencing, session fan-out, matrix construction from verified opinions
// and publication of the resulting global trust vector.
package manager

import (
	"fmt"
	"sync"
	"time"

	"github.com/veritrust-dev/veritrust-node/pkg/network"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/eigentrust"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/proof"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/publisher"
	"github.com/veritrust-dev/veritrust-node/pkg/util"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

// Prm groups the required parameters of the Manager's constructor.
//
// All values must comply with the requirements imposed on them.
// Passing incorrect parameter values will result in constructor
// failure (error or panic depending on the implementation).
type Prm struct {
	// Identifier of the local peer.
	//
	// Must not be zero.
	LocalPeer reputation.PeerID

	// Known peer set with transport addresses.
	//
	// Must not be nil.
	Book AddressBook

	// Storage of local opinions.
	//
	// Must not be nil.
	Opinions OpinionStorage

	// Global trust calculator.
	//
	// Must not be nil.
	Calculator *eigentrust.Calculator

	// Transport substrate for session exchanges.
	//
	// Must not be nil.
	Transport network.Transport

	// Verifier of peer proofs.
	//
	// Must not be nil.
	Verifier proof.Verifier

	// Pre-trusted seed distribution. May be empty: the calculation then
	// degrades to the uniform seed.
	PreTrusted reputation.GlobalTrustVector

	// Epoch completion policy.
	Policy CompletionPolicy
}

// Manager orchestrates reputation epochs, one at a time. It exclusively
// owns the current epoch's trust matrix and the published global trust
// vector; sessions hand their outcomes to it by value.
//
// For correct operation, the Manager must be created using the constructor
// (New). After successful creation, the Manager is immediately ready to
// work.
type Manager struct {
	prm Prm

	opts *options

	// serializes epochs: no overlap, the epoch transition is the single
	// state-mutation boundary
	epochMtx sync.Mutex

	// guards the published state and the peer bookkeeping below
	mtx sync.RWMutex

	epoch uint64

	current reputation.GlobalTrustVector

	removed map[reputation.PeerID]struct{}

	// consecutive epochs with a rejected proof, per peer
	rejections map[reputation.PeerID]uint32
}

const invalidPrmValFmt = "invalid parameter %s (%T):%v"

func panicOnPrmValue(n string, v interface{}) {
	panic(fmt.Sprintf(invalidPrmValFmt, n, v, v))
}

// New creates a new instance of the Manager.
//
// Panics if at least one value of the parameters is invalid.
//
// The created Manager does not require additional
// initialization and is completely ready for work.
func New(prm Prm, opts ...Option) *Manager {
	switch {
	case prm.LocalPeer.IsZero():
		panicOnPrmValue("LocalPeer", prm.LocalPeer)
	case prm.Book == nil:
		panicOnPrmValue("Book", prm.Book)
	case prm.Opinions == nil:
		panicOnPrmValue("Opinions", prm.Opinions)
	case prm.Calculator == nil:
		panicOnPrmValue("Calculator", prm.Calculator)
	case prm.Transport == nil:
		panicOnPrmValue("Transport", prm.Transport)
	case prm.Verifier == nil:
		panicOnPrmValue("Verifier", prm.Verifier)
	}

	o := defaultOpts()

	for _, opt := range opts {
		opt(o)
	}

	return &Manager{
		prm:        prm,
		opts:       o,
		current:    reputation.GlobalTrustVector{},
		removed:    make(map[reputation.PeerID]struct{}),
		rejections: make(map[reputation.PeerID]uint32),
	}
}

// Option sets an optional parameter of Manager.
type Option func(*options)

type options struct {
	log *logger.Logger

	metrics MetricsRegister

	pub publisher.Writer

	pool util.WorkerPool

	sessionTimeout time.Duration

	resubmissionLimit uint32

	// consecutive proof rejections escalating a peer for removal
	escalationThreshold uint32
}

func defaultOpts() *options {
	return &options{
		log:                 logger.Nop(),
		pool:                util.NewPseudoWorkerPool(),
		sessionTimeout:      10 * time.Second,
		resubmissionLimit:   1,
		escalationThreshold: 3,
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

// WithMetrics returns an option to instrument the Manager.
func WithMetrics(m MetricsRegister) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithPublisher returns an option to deliver finalized epoch results to an
// external sink.
func WithPublisher(w publisher.Writer) Option {
	return func(o *options) {
		o.pub = w
	}
}

// WithWorkerPool returns an option to fan sessions out on the given pool.
func WithWorkerPool(p util.WorkerPool) Option {
	return func(o *options) {
		if p != nil {
			o.pool = p
		}
	}
}

// WithSessionTimeout returns an option to set the per-request deadline of
// peer sessions.
func WithSessionTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sessionTimeout = d
		}
	}
}

// WithResubmissionLimit returns an option to bound fresh-proof requests
// after a rejection.
func WithResubmissionLimit(n uint32) Option {
	return func(o *options) {
		o.resubmissionLimit = n
	}
}

// WithEscalationThreshold returns an option to set the number of
// consecutive epochs with rejected proofs after which a peer is escalated
// for removal. Escalation is reported to the caller, never applied
// automatically.
func WithEscalationThreshold(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.escalationThreshold = n
		}
	}
}
