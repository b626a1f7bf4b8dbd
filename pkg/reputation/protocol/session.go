package protocol

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/veritrust-dev/veritrust-node/pkg/network"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/proof"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

// State is an enumeration of session states.
type State uint8

const (
	// StateIdle is the initial state: no request sent yet.
	StateIdle State = iota
	// StateAwaitingOpinion: opinion request in flight.
	StateAwaitingOpinion
	// StateAwaitingProof: claimed vector staged, proof request in flight.
	StateAwaitingProof
	// StateVerified is the successful terminal state: the claimed vector
	// is admitted into the epoch.
	StateVerified
	// StateFailed is the failure terminal state: the peer is excluded from
	// the epoch.
	StateFailed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingOpinion:
		return "awaiting_opinion"
	case StateAwaitingProof:
		return "awaiting_proof"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// FailureReason details a StateFailed outcome.
type FailureReason uint8

const (
	// ReasonNone accompanies non-failed outcomes.
	ReasonNone FailureReason = iota
	// ReasonTimeout: the peer did not respond within the session deadline.
	ReasonTimeout
	// ReasonProofRejected: the proof failed verification, or its
	// commitment did not match the staged opinion vector.
	ReasonProofRejected
	// ReasonMalformed: the peer responded with an undecodable or
	// inconsistent message.
	ReasonMalformed
	// ReasonInternal: a local failure (proving backend and the like)
	// prevented the session from finishing. Not the peer's fault.
	ReasonInternal
)

// String implements fmt.Stringer.
func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTimeout:
		return "timeout"
	case ReasonProofRejected:
		return "proof_rejected"
	case ReasonMalformed:
		return "malformed"
	case ReasonInternal:
		return "internal"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// Outcome is the terminal result of a session, handed to the caller by
// value.
type Outcome struct {
	// Peer the session was run against.
	Peer reputation.PeerID

	// Terminal state: StateVerified or StateFailed.
	State State

	// Failure detail for StateFailed.
	Reason FailureReason

	// Verified normalized opinions of the peer. Set only in StateVerified.
	Opinions []reputation.Trust

	// Underlying error for StateFailed, if any.
	Err error
}

// Prm groups the required parameters of the Session's constructor.
//
// All values must comply with the requirements imposed on them.
// Passing incorrect parameter values will result in constructor
// failure (error or panic depending on the implementation).
type Prm struct {
	// Peer the session exchanges with.
	//
	// Must not be zero.
	Peer reputation.PeerID

	// Transport address of the peer.
	//
	// Must not be empty.
	Addr network.Address

	// Epoch the exchange is tagged with.
	Epoch uint64

	// Transport substrate.
	//
	// Must not be nil.
	Transport network.Transport

	// Verifier of the received proofs.
	//
	// Must not be nil.
	Verifier proof.Verifier
}

// Session drives one request/response exchange of opinions and proofs with
// a single peer for a single epoch. Sessions are independent: no
// cross-session ordering is imposed.
//
// For correct operation, the Session must be created using the constructor
// (NewSession). After successful creation, the Session is ready to Run
// exactly once.
type Session struct {
	prm Prm

	opts *options

	state State

	staged []reputation.Trust

	stagedCommitment proof.Commitment
}

const invalidPrmValFmt = "invalid parameter %s (%T):%v"

func panicOnPrmValue(n string, v interface{}) {
	panic(fmt.Sprintf(invalidPrmValFmt, n, v, v))
}

// NewSession creates a new instance of the Session.
//
// Panics if at least one value of the parameters is invalid.
func NewSession(prm Prm, opts ...Option) *Session {
	switch {
	case prm.Peer.IsZero():
		panicOnPrmValue("Peer", prm.Peer)
	case prm.Addr == "":
		panicOnPrmValue("Addr", prm.Addr)
	case prm.Transport == nil:
		panicOnPrmValue("Transport", prm.Transport)
	case prm.Verifier == nil:
		panicOnPrmValue("Verifier", prm.Verifier)
	}

	o := defaultSessionOpts()

	for _, opt := range opts {
		opt(o)
	}

	return &Session{
		prm:   prm,
		opts:  o,
		state: StateIdle,
	}
}

// Option sets an optional parameter of Session.
type Option func(*options)

type options struct {
	log *logger.Logger

	// deadline of each outstanding request
	requestTimeout time.Duration

	// fresh-proof requests after a rejection
	resubmissionLimit uint32
}

func defaultSessionOpts() *options {
	return &options{
		log:               logger.Nop(),
		requestTimeout:    10 * time.Second,
		resubmissionLimit: 1,
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

// WithRequestTimeout returns an option to set the deadline of each
// outstanding request. Expiry fails the session with ReasonTimeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.requestTimeout = d
		}
	}
}

// WithResubmissionLimit returns an option to bound the number of fresh-proof
// requests after a rejected proof. Zero disables resubmission.
func WithResubmissionLimit(n uint32) Option {
	return func(o *options) {
		o.resubmissionLimit = n
	}
}

// State returns the current state of the session.
func (s *Session) State() State {
	return s.state
}

// Run executes the session to a terminal state and returns the Outcome.
//
// Cancellation of ctx fails the session with ReasonTimeout.
func (s *Session) Run(ctx context.Context) Outcome {
	log := s.opts.log.WithContext(
		logger.FieldStringer("peer", s.prm.Peer),
		logger.FieldUint("epoch", s.prm.Epoch),
	)

	if err := s.fetchOpinions(ctx); err != nil {
		return s.fail(log, err)
	}

	if err := s.fetchAndVerifyProof(ctx); err != nil {
		return s.fail(log, err)
	}

	s.state = StateVerified

	log.Debug("session verified",
		logger.FieldInt("opinions", int64(len(s.staged))),
	)

	return Outcome{
		Peer:     s.prm.Peer,
		State:    StateVerified,
		Reason:   ReasonNone,
		Opinions: s.staged,
	}
}

// normalizationTol bounds the deviation of a claimed vector's weight sum
// from one.
const normalizationTol = 1e-6

// checkClaimedVector requires the claimed weights to sum to one within
// normalizationTol. An empty vector is the defined no-opinions state and
// passes.
func checkClaimedVector(trusts []reputation.Trust) error {
	if len(trusts) == 0 {
		return nil
	}

	var sum float64

	for i := range trusts {
		sum += trusts[i].Value().Float64()
	}

	if math.Abs(sum-1) > normalizationTol {
		return errors.Errorf("claimed vector is not normalized, weight sum %f", sum)
	}

	return nil
}

// fetchOpinions drives Idle -> AwaitingOpinion and stages the claimed
// vector.
func (s *Session) fetchOpinions(ctx context.Context) error {
	s.state = StateAwaitingOpinion

	req, err := encodeMessage(MsgOpinionRequest, newCorrelationID(), OpinionRequest{Epoch: s.prm.Epoch})
	if err != nil {
		return &sessionError{reason: ReasonInternal, err: err}
	}

	env, err := s.roundTrip(ctx, req)
	if err != nil {
		return err
	}

	var resp OpinionResponse

	if err := decodePayload(env, MsgOpinionResponse, &resp); err != nil {
		return &sessionError{reason: ReasonMalformed, err: err}
	}

	if resp.Epoch != s.prm.Epoch {
		return &sessionError{
			reason: ReasonMalformed,
			err:    errors.Errorf("opinion response for epoch %d, session epoch %d", resp.Epoch, s.prm.Epoch),
		}
	}

	staged, err := assignmentsToTrusts(s.prm.Peer, resp.Opinions)
	if err != nil {
		return &sessionError{reason: ReasonMalformed, err: err}
	}

	if err := checkClaimedVector(staged); err != nil {
		return &sessionError{reason: ReasonMalformed, err: err}
	}

	commitment, err := proof.NewCommitment(staged, s.prm.Epoch, s.prm.Peer)
	if err != nil {
		return &sessionError{reason: ReasonMalformed, err: errors.Wrap(err, "commit to claimed vector")}
	}

	s.staged = staged
	s.stagedCommitment = commitment

	return nil
}

// fetchAndVerifyProof drives AwaitingOpinion -> AwaitingProof and verifies
// the peer's proof against the staged vector. A rejected proof is never
// retried as-is: up to the resubmission limit, a fresh proof is requested.
func (s *Session) fetchAndVerifyProof(ctx context.Context) error {
	s.state = StateAwaitingProof

	attempts := s.opts.resubmissionLimit + 1

	var lastErr error

	for attempt := uint32(0); attempt < attempts; attempt++ {
		req, err := encodeMessage(MsgProofRequest, newCorrelationID(), ProofRequest{Epoch: s.prm.Epoch})
		if err != nil {
			return &sessionError{reason: ReasonInternal, err: err}
		}

		env, err := s.roundTrip(ctx, req)
		if err != nil {
			return err
		}

		var resp ProofResponse

		if err := decodePayload(env, MsgProofResponse, &resp); err != nil {
			return &sessionError{reason: ReasonMalformed, err: err}
		}

		if resp.Epoch != s.prm.Epoch {
			return &sessionError{
				reason: ReasonMalformed,
				err:    errors.Errorf("proof response for epoch %d, session epoch %d", resp.Epoch, s.prm.Epoch),
			}
		}

		// the commitment must open the vector staged from the opinion
		// response, otherwise the proof proves something else
		if !bytes.Equal(resp.Commitment, s.stagedCommitment.Bytes()) {
			return &sessionError{
				reason: ReasonProofRejected,
				err:    errors.New("proof commitment does not match the staged opinion vector"),
			}
		}

		err = s.prm.Verifier.Verify(ctx, proof.NewProof(resp.Proof), proof.PublicInputs{
			Peer:       s.prm.Peer,
			Epoch:      s.prm.Epoch,
			Commitment: s.stagedCommitment,
		})
		if err == nil {
			return nil
		}

		if !errors.Is(err, proof.ErrProofRejected) {
			return &sessionError{reason: ReasonInternal, err: err}
		}

		lastErr = err

		s.opts.log.Debug("proof rejected, requesting resubmission",
			logger.FieldStringer("peer", s.prm.Peer),
			logger.FieldUint("attempt", uint64(attempt+1)),
		)
	}

	return &sessionError{reason: ReasonProofRejected, err: lastErr}
}

// roundTrip sends one request with the session deadline and decodes the
// response envelope.
func (s *Session) roundTrip(ctx context.Context, req []byte) (envelope, error) {
	rctx, cancel := context.WithTimeout(ctx, s.opts.requestTimeout)
	defer cancel()

	resp, err := s.prm.Transport.SendRequest(rctx, s.prm.Addr, req)
	if err != nil {
		// an unreachable peer is indistinguishable from an unresponsive
		// one at this layer
		return envelope{}, &sessionError{reason: ReasonTimeout, err: err}
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return envelope{}, &sessionError{reason: ReasonMalformed, err: err}
	}

	return env, nil
}

func (s *Session) fail(log *logger.Logger, err error) Outcome {
	s.state = StateFailed

	reason := ReasonInternal

	var serr *sessionError
	if errors.As(err, &serr) {
		reason = serr.reason
		err = serr.err
	}

	log.Debug("session failed",
		logger.FieldStringer("reason", reason),
		logger.FieldError(err),
	)

	return Outcome{
		Peer:   s.prm.Peer,
		State:  StateFailed,
		Reason: reason,
		Err:    err,
	}
}

type sessionError struct {
	reason FailureReason

	err error
}

func (e *sessionError) Error() string {
	return fmt.Sprintf("session failure (%s): %v", e.reason, e.err)
}

func (e *sessionError) Unwrap() error {
	return e.err
}
