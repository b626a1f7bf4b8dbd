// Package proof defines the contract between the reputation engine and the
// zero-knowledge proving backend, and the commitment scheme binding a peer's
// claimed opinion vector to its proof.
package proof

import (
	"bytes"
	"context"
	"errors"

	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
)

// ErrProofRejected is returned by Verifier implementations when the proof
// does not verify against the public inputs. A rejected proof is never
// retried as-is: the requester may ask the peer for a fresh proof of the
// same epoch, bounded by the resubmission limit.
var ErrProofRejected = errors.New("proof rejected")

// CommitmentSize is the size of an opinion vector commitment in bytes.
const CommitmentSize = 32

// Commitment is a binding, non-revealing digest of a peer's private
// normalized opinion vector for one epoch.
type Commitment [CommitmentSize]byte

// Bytes returns a binary representation of the Commitment.
func (c Commitment) Bytes() []byte {
	return bytes.Clone(c[:])
}

// Proof is an opaque proof blob produced by the proving backend. It is valid
// only for the exact public inputs it was generated against.
type Proof struct {
	body []byte
}

// NewProof wraps raw proof bytes.
func NewProof(body []byte) Proof {
	return Proof{body: bytes.Clone(body)}
}

// Body returns the raw proof bytes.
func (p Proof) Body() []byte {
	return bytes.Clone(p.body)
}

// IsZero checks if the proof carries no body.
func (p Proof) IsZero() bool {
	return len(p.body) == 0
}

// PublicInputs binds a proof to the peer which produced it, the epoch it was
// produced for, and the commitment of the claimed opinion vector. Reuse of a
// proof across epochs or against mismatched inputs must be rejected.
type PublicInputs struct {
	Peer reputation.PeerID

	Epoch uint64

	Commitment Commitment
}

// Prover produces proofs of correct local opinion aggregation over the
// peer's own private data. The private inputs are never transmitted.
type Prover interface {
	// Prove generates a proof that the normalized opinion vector commits
	// to Commitment(opinions, epoch, peer) and satisfies the
	// normalization constraints.
	Prove(ctx context.Context, opinions []reputation.Trust, epoch uint64, peer reputation.PeerID) (Proof, error)
}

// Verifier checks proofs against public inputs on the receiving side.
//
// Verification must be deterministic and side-effect-free. A verification
// failure is reported as ErrProofRejected; any other error signals a backend
// problem, not a judgement about the proof.
type Verifier interface {
	Verify(ctx context.Context, p Proof, pub PublicInputs) error
}
