package proof

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
)

func testOpinions(from reputation.PeerID, weights ...float64) []reputation.Trust {
	res := make([]reputation.Trust, len(weights))

	for i, w := range weights {
		to := reputation.PeerIDFromPublicKey([]byte{byte(i)})
		res[i] = reputation.NewTrust(from, to, reputation.TrustValueFromFloat64(w))
	}

	return res
}

func TestScaleOpinions(t *testing.T) {
	from := reputation.PeerIDFromPublicKey([]byte("from"))

	t.Run("too many entries", func(t *testing.T) {
		weights := make([]float64, MaxOpinions+1)
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}

		_, err := ScaleOpinions(testOpinions(from, weights...))
		require.Error(t, err)
	})

	t.Run("empty vector", func(t *testing.T) {
		scaled, err := ScaleOpinions(nil)
		require.NoError(t, err)
		require.Equal(t, [MaxOpinions]uint64{}, scaled)
	})

	t.Run("sum is exactly the scale", func(t *testing.T) {
		// thirds do not divide the scale evenly
		scaled, err := ScaleOpinions(testOpinions(from, 1.0/3, 1.0/3, 1.0/3))
		require.NoError(t, err)

		var sum uint64
		for _, v := range scaled {
			sum += v
		}
		require.Equal(t, Scale, sum)
	})

	t.Run("residual goes to the dominant entry", func(t *testing.T) {
		scaled, err := ScaleOpinions(testOpinions(from, 0.7, 0.3))
		require.NoError(t, err)

		require.EqualValues(t, 700_000_000, scaled[0])
		require.EqualValues(t, 300_000_000, scaled[1])
	})

	t.Run("padding stays zero", func(t *testing.T) {
		scaled, err := ScaleOpinions(testOpinions(from, 0.5, 0.5))
		require.NoError(t, err)

		for i := 2; i < MaxOpinions; i++ {
			require.Zero(t, scaled[i])
		}
	})

	t.Run("sum above one", func(t *testing.T) {
		_, err := ScaleOpinions(testOpinions(from, 0.4, 0.4, 0.4, 0.4))
		require.Error(t, err)
	})

	t.Run("sum below one", func(t *testing.T) {
		_, err := ScaleOpinions(testOpinions(from, 0.25, 0.25))
		require.Error(t, err)
	})

	t.Run("slightly off one", func(t *testing.T) {
		_, err := ScaleOpinions(testOpinions(from, 0.5, 0.499))
		require.Error(t, err)
	})
}

func TestNewCommitment(t *testing.T) {
	peer := reputation.PeerIDFromPublicKey([]byte("peer"))
	opinions := testOpinions(peer, 0.25, 0.75)

	c1, err := NewCommitment(opinions, 7, peer)
	require.NoError(t, err)
	require.NotEqual(t, Commitment{}, c1)

	t.Run("deterministic", func(t *testing.T) {
		c2, err := NewCommitment(opinions, 7, peer)
		require.NoError(t, err)
		require.Equal(t, c1, c2)
	})

	t.Run("binds the epoch", func(t *testing.T) {
		c2, err := NewCommitment(opinions, 8, peer)
		require.NoError(t, err)
		require.NotEqual(t, c1, c2)
	})

	t.Run("binds the peer", func(t *testing.T) {
		c2, err := NewCommitment(opinions, 7, reputation.PeerIDFromPublicKey([]byte("other")))
		require.NoError(t, err)
		require.NotEqual(t, c1, c2)
	})

	t.Run("binds the weights", func(t *testing.T) {
		c2, err := NewCommitment(testOpinions(peer, 0.75, 0.25), 7, peer)
		require.NoError(t, err)
		require.NotEqual(t, c1, c2)
	})
}
