package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/proof"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

// ResponderPrm groups the required parameters of the Responder's
// constructor.
//
// All values must comply with the requirements imposed on them.
// Passing incorrect parameter values will result in constructor
// failure (error or panic depending on the implementation).
type ResponderPrm struct {
	// Identifier of the local peer the responses are produced for.
	//
	// Must not be zero.
	LocalPeer reputation.PeerID

	// Source of the local normalized opinions.
	//
	// Must not be nil.
	Opinions LocalOpinionSource

	// Prover of the local opinion vector.
	//
	// Must not be nil.
	Prover proof.Prover
}

// Responder serves the inbound side of the reputation protocol: it answers
// opinion requests with the node's own normalized opinions and proof
// requests with a proof freshly bound to (peer, epoch, commitment).
//
// Proofs are cached per epoch: repeated requests of the same epoch receive
// the same proof unless the opinion vector changed. Only a bounded number of
// recent epochs is retained.
//
// For correct operation, the Responder must be created using the
// constructor (NewResponder).
type Responder struct {
	prm ResponderPrm

	log *logger.Logger

	mtx sync.Mutex

	// epoch -> proof of the local vector for it
	proofs map[uint64]cachedProof
}

type cachedProof struct {
	proof proof.Proof

	commitment proof.Commitment
}

// proofRetainEpochs bounds the responder's proof cache: proofs of epochs
// older than the most recent requested one by this margin are dropped.
const proofRetainEpochs = 2

// ResponderOption sets an optional parameter of Responder.
type ResponderOption func(*Responder)

// WithResponderLogger returns an option to specify the component logger.
func WithResponderLogger(l *logger.Logger) ResponderOption {
	return func(r *Responder) {
		if l != nil {
			r.log = l
		}
	}
}

// NewResponder creates a new instance of the Responder.
//
// Panics if at least one value of the parameters is invalid.
func NewResponder(prm ResponderPrm, opts ...ResponderOption) *Responder {
	switch {
	case prm.LocalPeer.IsZero():
		panicOnPrmValue("LocalPeer", prm.LocalPeer)
	case prm.Opinions == nil:
		panicOnPrmValue("Opinions", prm.Opinions)
	case prm.Prover == nil:
		panicOnPrmValue("Prover", prm.Prover)
	}

	r := &Responder{
		prm:    prm,
		log:    logger.Nop(),
		proofs: make(map[uint64]cachedProof),
	}

	for i := range opts {
		opts[i](r)
	}

	return r
}

// Handle processes one inbound request payload and returns the response
// payload. Matches the transport substrate's handler contract.
func (r *Responder) Handle(ctx context.Context, req []byte) ([]byte, error) {
	env, err := decodeEnvelope(req)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case MsgOpinionRequest:
		return r.handleOpinionRequest(env)
	case MsgProofRequest:
		return r.handleProofRequest(ctx, env)
	default:
		return nil, errors.Errorf("unsupported request type %d", env.Type)
	}
}

func (r *Responder) handleOpinionRequest(env envelope) ([]byte, error) {
	var req OpinionRequest

	if err := decodePayload(env, MsgOpinionRequest, &req); err != nil {
		return nil, err
	}

	opinions, _ := r.prm.Opinions.NormalizedOpinions(r.prm.LocalPeer)

	r.log.Debug("answering opinion request",
		logger.FieldUint("epoch", req.Epoch),
		logger.FieldInt("opinions", int64(len(opinions))),
	)

	return encodeMessage(MsgOpinionResponse, env.ID, OpinionResponse{
		Epoch:    req.Epoch,
		Opinions: trustsToAssignments(opinions),
	})
}

func (r *Responder) handleProofRequest(ctx context.Context, env envelope) ([]byte, error) {
	var req ProofRequest

	if err := decodePayload(env, MsgProofRequest, &req); err != nil {
		return nil, err
	}

	cached, err := r.proofFor(ctx, req.Epoch)
	if err != nil {
		return nil, fmt.Errorf("prove local opinions for epoch %d: %w", req.Epoch, err)
	}

	return encodeMessage(MsgProofResponse, env.ID, ProofResponse{
		Epoch:      req.Epoch,
		Proof:      cached.proof.Body(),
		Commitment: cached.commitment.Bytes(),
	})
}

func (r *Responder) proofFor(ctx context.Context, epoch uint64) (cachedProof, error) {
	opinions, _ := r.prm.Opinions.NormalizedOpinions(r.prm.LocalPeer)

	commitment, err := proof.NewCommitment(opinions, epoch, r.prm.LocalPeer)
	if err != nil {
		return cachedProof{}, err
	}

	r.mtx.Lock()
	cached, ok := r.proofs[epoch]
	r.mtx.Unlock()

	// reuse only while the vector is unchanged
	if ok && cached.commitment == commitment {
		return cached, nil
	}

	p, err := r.prm.Prover.Prove(ctx, opinions, epoch, r.prm.LocalPeer)
	if err != nil {
		return cachedProof{}, err
	}

	cached = cachedProof{
		proof:      p,
		commitment: commitment,
	}

	r.mtx.Lock()

	r.proofs[epoch] = cached

	for e := range r.proofs {
		if e+proofRetainEpochs < epoch {
			delete(r.proofs, e)
		}
	}

	r.mtx.Unlock()

	return cached, nil
}
