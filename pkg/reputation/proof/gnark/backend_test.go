package gnarkproof

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/proof"
)

func testOpinions(from reputation.PeerID, weights ...float64) []reputation.Trust {
	res := make([]reputation.Trust, len(weights))

	for i, w := range weights {
		to := reputation.PeerIDFromPublicKey([]byte{byte(i)})
		res[i] = reputation.NewTrust(from, to, reputation.TrustValueFromFloat64(w))
	}

	return res
}

func TestBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping circuit setup")
	}

	// setup once, it dominates the test time
	b, err := New()
	require.NoError(t, err)

	ctx := context.Background()

	peer := reputation.PeerIDFromPublicKey([]byte("prover"))
	opinions := testOpinions(peer, 0.25, 0.5, 0.25)

	const epoch = 3

	commitment, err := proof.NewCommitment(opinions, epoch, peer)
	require.NoError(t, err)

	prf, err := b.Prove(ctx, opinions, epoch, peer)
	require.NoError(t, err)
	require.False(t, prf.IsZero())

	pub := proof.PublicInputs{
		Peer:       peer,
		Epoch:      epoch,
		Commitment: commitment,
	}

	t.Run("valid proof", func(t *testing.T) {
		require.NoError(t, b.Verify(ctx, prf, pub))
	})

	t.Run("wrong epoch", func(t *testing.T) {
		bad := pub
		bad.Epoch++

		require.ErrorIs(t, b.Verify(ctx, prf, bad), proof.ErrProofRejected)
	})

	t.Run("wrong peer", func(t *testing.T) {
		bad := pub
		bad.Peer = reputation.PeerIDFromPublicKey([]byte("other"))

		require.ErrorIs(t, b.Verify(ctx, prf, bad), proof.ErrProofRejected)
	})

	t.Run("wrong commitment", func(t *testing.T) {
		bad := pub
		bad.Commitment[0] ^= 1

		require.ErrorIs(t, b.Verify(ctx, prf, bad), proof.ErrProofRejected)
	})

	t.Run("malformed proof body", func(t *testing.T) {
		err := b.Verify(ctx, proof.NewProof([]byte("garbage")), pub)
		require.ErrorIs(t, err, proof.ErrProofRejected)
	})

	t.Run("verification-only consumer", func(t *testing.T) {
		v := NewVerifier(b.VerifyingKey())

		require.NoError(t, v.Verify(ctx, prf, pub))
	})

	t.Run("empty opinion vector", func(t *testing.T) {
		emptyCommitment, err := proof.NewCommitment(nil, epoch, peer)
		require.NoError(t, err)

		emptyProof, err := b.Prove(ctx, nil, epoch, peer)
		require.NoError(t, err)

		require.NoError(t, b.Verify(ctx, emptyProof, proof.PublicInputs{
			Peer:       peer,
			Epoch:      epoch,
			Commitment: emptyCommitment,
		}))
	})

	t.Run("unnormalized vector refused by the prover", func(t *testing.T) {
		_, err := b.Prove(ctx, testOpinions(peer, 0.4, 0.4, 0.4, 0.4), epoch, peer)
		require.Error(t, err)
	})
}
