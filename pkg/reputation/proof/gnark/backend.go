package gnarkproof

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/proof"
)

// Backend is a proving backend over the NormalizedOpinionCircuit. It
// implements both proof.Prover and proof.Verifier.
//
// Backend must be created with New. The constructor compiles the circuit and
// runs the groth16 setup, which takes noticeable time; one Backend per
// process is intended, shared by all sessions.
type Backend struct {
	ccs constraint.ConstraintSystem

	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

// New compiles the opinion circuit and runs the proving setup.
func New() (*Backend, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &NormalizedOpinionCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compile opinion circuit: %w", err)
	}

	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}

	return &Backend{
		ccs: ccs,
		pk:  pk,
		vk:  vk,
	}, nil
}

// VerifyingKey returns the verifying key of the backend for distribution to
// verification-only consumers.
func (b *Backend) VerifyingKey() groth16.VerifyingKey {
	return b.vk
}

// Prove implements proof.Prover.
func (b *Backend) Prove(_ context.Context, opinions []reputation.Trust, epoch uint64, peer reputation.PeerID) (proof.Proof, error) {
	scaled, err := proof.ScaleOpinions(opinions)
	if err != nil {
		return proof.Proof{}, fmt.Errorf("scale opinion vector: %w", err)
	}

	commitment, err := proof.NewCommitment(opinions, epoch, peer)
	if err != nil {
		return proof.Proof{}, fmt.Errorf("commit to opinion vector: %w", err)
	}

	assignment := assign(commitment, epoch, peer)

	for i := range scaled {
		assignment.Weights[i] = scaled[i]
	}

	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return proof.Proof{}, fmt.Errorf("build witness: %w", err)
	}

	prf, err := groth16.Prove(b.ccs, b.pk, witness)
	if err != nil {
		return proof.Proof{}, fmt.Errorf("groth16 prove: %w", err)
	}

	var buf bytes.Buffer

	if _, err := prf.WriteTo(&buf); err != nil {
		return proof.Proof{}, fmt.Errorf("serialize proof: %w", err)
	}

	return proof.NewProof(buf.Bytes()), nil
}

// Verify implements proof.Verifier. Deterministic and side-effect-free.
//
// Malformed proof bytes and failing constraints both yield
// proof.ErrProofRejected.
func (b *Backend) Verify(_ context.Context, p proof.Proof, pub proof.PublicInputs) error {
	return verify(b.vk, p, pub)
}

// Verifier is the verification-only side of the backend for nodes which
// never prove locally. Implements proof.Verifier.
type Verifier struct {
	vk groth16.VerifyingKey
}

// NewVerifier wraps a distributed verifying key.
func NewVerifier(vk groth16.VerifyingKey) *Verifier {
	return &Verifier{vk: vk}
}

// Verify implements proof.Verifier.
func (v *Verifier) Verify(_ context.Context, p proof.Proof, pub proof.PublicInputs) error {
	return verify(v.vk, p, pub)
}

func verify(vk groth16.VerifyingKey, p proof.Proof, pub proof.PublicInputs) error {
	prf := groth16.NewProof(ecc.BN254)

	if _, err := prf.ReadFrom(bytes.NewReader(p.Body())); err != nil {
		return fmt.Errorf("%w: malformed proof body: %s", proof.ErrProofRejected, err)
	}

	witness, err := frontend.NewWitness(
		assign(pub.Commitment, pub.Epoch, pub.Peer),
		ecc.BN254.ScalarField(),
		frontend.PublicOnly(),
	)
	if err != nil {
		return fmt.Errorf("build public witness: %w", err)
	}

	if err := groth16.Verify(prf, vk, witness); err != nil {
		return fmt.Errorf("%w: %s", proof.ErrProofRejected, err)
	}

	return nil
}

// assign builds a circuit assignment with the public inputs set and the
// private weights zeroed.
func assign(commitment proof.Commitment, epoch uint64, peer reputation.PeerID) *NormalizedOpinionCircuit {
	peerField := proof.PeerField(peer)

	c := &NormalizedOpinionCircuit{
		Commitment: new(big.Int).SetBytes(commitment[:]),
		Epoch:      epoch,
		Peer:       peerField.BigInt(new(big.Int)),
	}

	for i := range c.Weights {
		c.Weights[i] = 0
	}

	return c
}
