package protocol

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/veritrust-dev/veritrust-node/pkg/network"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/proof"
)

// fakeTransport answers opinion and proof requests from canned data.
type fakeTransport struct {
	epoch uint64

	opinions []TrustAssignment

	proofBody []byte

	commitment []byte

	// overrides
	err           error
	rawResponse   []byte
	epochOverride *uint64

	proofRequests int
}

func (t *fakeTransport) SendRequest(_ context.Context, _ network.Address, req []byte) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}

	if t.rawResponse != nil {
		return t.rawResponse, nil
	}

	env, err := decodeEnvelope(req)
	if err != nil {
		return nil, err
	}

	epoch := t.epoch
	if t.epochOverride != nil {
		epoch = *t.epochOverride
	}

	switch env.Type {
	case MsgOpinionRequest:
		return encodeMessage(MsgOpinionResponse, env.ID, OpinionResponse{
			Epoch:    epoch,
			Opinions: t.opinions,
		})
	case MsgProofRequest:
		t.proofRequests++

		return encodeMessage(MsgProofResponse, env.ID, ProofResponse{
			Epoch:      epoch,
			Proof:      t.proofBody,
			Commitment: t.commitment,
		})
	default:
		return nil, errors.Errorf("unexpected request type %d", env.Type)
	}
}

// scriptedVerifier returns its errs in order, repeating the last one.
type scriptedVerifier struct {
	errs []error

	calls int
}

func (v *scriptedVerifier) Verify(context.Context, proof.Proof, proof.PublicInputs) error {
	i := v.calls
	if i >= len(v.errs) {
		i = len(v.errs) - 1
	}

	v.calls++

	if i < 0 {
		return nil
	}

	return v.errs[i]
}

func sessionEnv(t *testing.T) (reputation.PeerID, *fakeTransport) {
	t.Helper()

	peer := reputation.PeerIDFromPublicKey([]byte("remote"))

	const epoch = 7

	opinions := []reputation.Trust{
		reputation.NewTrust(peer, reputation.PeerIDFromPublicKey([]byte("a")), 0.25),
		reputation.NewTrust(peer, reputation.PeerIDFromPublicKey([]byte("b")), 0.75),
	}

	commitment, err := proof.NewCommitment(opinions, epoch, peer)
	require.NoError(t, err)

	return peer, &fakeTransport{
		epoch:      epoch,
		opinions:   trustsToAssignments(opinions),
		proofBody:  []byte("proof"),
		commitment: commitment.Bytes(),
	}
}

func newTestSession(peer reputation.PeerID, tr network.Transport, v proof.Verifier, opts ...Option) *Session {
	return NewSession(Prm{
		Peer:      peer,
		Addr:      "peer:9750",
		Epoch:     7,
		Transport: tr,
		Verifier:  v,
	}, opts...)
}

func TestNewSession(t *testing.T) {
	peer, tr := sessionEnv(t)

	for _, tc := range []struct {
		name string
		prm  Prm
	}{
		{name: "zero peer", prm: Prm{Addr: "a", Transport: tr, Verifier: &scriptedVerifier{}}},
		{name: "empty address", prm: Prm{Peer: peer, Transport: tr, Verifier: &scriptedVerifier{}}},
		{name: "nil transport", prm: Prm{Peer: peer, Addr: "a", Verifier: &scriptedVerifier{}}},
		{name: "nil verifier", prm: Prm{Peer: peer, Addr: "a", Transport: tr}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Panics(t, func() {
				NewSession(tc.prm)
			})
		})
	}
}

func TestSession_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("verified", func(t *testing.T) {
		peer, tr := sessionEnv(t)

		s := newTestSession(peer, tr, &scriptedVerifier{})

		out := s.Run(ctx)
		require.Equal(t, StateVerified, out.State)
		require.Equal(t, ReasonNone, out.Reason)
		require.Equal(t, peer, out.Peer)
		require.Len(t, out.Opinions, 2)
		require.Equal(t, StateVerified, s.State())
	})

	t.Run("transport failure is a timeout", func(t *testing.T) {
		peer, tr := sessionEnv(t)
		tr.err = errors.New("connection refused")

		out := newTestSession(peer, tr, &scriptedVerifier{}).Run(ctx)
		require.Equal(t, StateFailed, out.State)
		require.Equal(t, ReasonTimeout, out.Reason)
	})

	t.Run("garbage response", func(t *testing.T) {
		peer, tr := sessionEnv(t)
		tr.rawResponse = []byte("not json")

		out := newTestSession(peer, tr, &scriptedVerifier{}).Run(ctx)
		require.Equal(t, StateFailed, out.State)
		require.Equal(t, ReasonMalformed, out.Reason)
	})

	t.Run("epoch mismatch", func(t *testing.T) {
		peer, tr := sessionEnv(t)
		wrong := uint64(8)
		tr.epochOverride = &wrong

		out := newTestSession(peer, tr, &scriptedVerifier{}).Run(ctx)
		require.Equal(t, StateFailed, out.State)
		require.Equal(t, ReasonMalformed, out.Reason)
	})

	t.Run("invalid claimed weight", func(t *testing.T) {
		peer, tr := sessionEnv(t)
		tr.opinions[0].Weight = -0.5

		out := newTestSession(peer, tr, &scriptedVerifier{}).Run(ctx)
		require.Equal(t, StateFailed, out.State)
		require.Equal(t, ReasonMalformed, out.Reason)
	})

	t.Run("non-normalized claimed vector", func(t *testing.T) {
		peer, tr := sessionEnv(t)
		tr.opinions[1].Weight = 0.25 // claimed sum 0.5

		v := &scriptedVerifier{}

		out := newTestSession(peer, tr, v).Run(ctx)
		require.Equal(t, StateFailed, out.State)
		require.Equal(t, ReasonMalformed, out.Reason)

		// rejected before any commitment or proof handling
		require.Zero(t, tr.proofRequests)
		require.Zero(t, v.calls)
	})

	t.Run("commitment mismatch", func(t *testing.T) {
		peer, tr := sessionEnv(t)
		tr.commitment[0] ^= 1

		v := &scriptedVerifier{}

		out := newTestSession(peer, tr, v).Run(ctx)
		require.Equal(t, StateFailed, out.State)
		require.Equal(t, ReasonProofRejected, out.Reason)

		// the proof never reaches the verifier
		require.Zero(t, v.calls)
	})

	t.Run("rejected proof exhausts resubmission", func(t *testing.T) {
		peer, tr := sessionEnv(t)

		v := &scriptedVerifier{errs: []error{proof.ErrProofRejected}}

		out := newTestSession(peer, tr, v, WithResubmissionLimit(1)).Run(ctx)
		require.Equal(t, StateFailed, out.State)
		require.Equal(t, ReasonProofRejected, out.Reason)
		require.ErrorIs(t, out.Err, proof.ErrProofRejected)

		// original attempt plus one resubmission
		require.Equal(t, 2, tr.proofRequests)
		require.Equal(t, 2, v.calls)
	})

	t.Run("resubmission recovers", func(t *testing.T) {
		peer, tr := sessionEnv(t)

		v := &scriptedVerifier{errs: []error{proof.ErrProofRejected, nil}}

		out := newTestSession(peer, tr, v, WithResubmissionLimit(1)).Run(ctx)
		require.Equal(t, StateVerified, out.State)
		require.Equal(t, 2, v.calls)
	})

	t.Run("verifier backend failure", func(t *testing.T) {
		peer, tr := sessionEnv(t)

		v := &scriptedVerifier{errs: []error{errors.New("backend down")}}

		out := newTestSession(peer, tr, v).Run(ctx)
		require.Equal(t, StateFailed, out.State)
		require.Equal(t, ReasonInternal, out.Reason)
	})

	t.Run("empty claimed vector", func(t *testing.T) {
		peer, tr := sessionEnv(t)
		tr.opinions = nil

		emptyCommitment, err := proof.NewCommitment(nil, 7, peer)
		require.NoError(t, err)
		tr.commitment = emptyCommitment.Bytes()

		out := newTestSession(peer, tr, &scriptedVerifier{}).Run(ctx)
		require.Equal(t, StateVerified, out.State)
		require.Empty(t, out.Opinions)
	})
}
