package reputation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrustValue(t *testing.T) {
	t.Run("arithmetic", func(t *testing.T) {
		require.Equal(t, TrustValue(0.5), TrustValue(0.2).Add(0.3))
		require.Equal(t, TrustValue(0.25), TrustValue(0.5).Div(2))

		// division by zero is defined
		require.Equal(t, TrustZero, TrustValue(1).Div(0))
	})

	t.Run("validity", func(t *testing.T) {
		require.True(t, TrustZero.IsValid())
		require.True(t, TrustValue(1).IsValid())

		require.False(t, TrustValue(-0.1).IsValid())
		require.False(t, TrustValue(math.Inf(1)).IsValid())
		require.False(t, TrustValue(math.NaN()).IsValid())
	})
}

func TestTrust(t *testing.T) {
	trusting := PeerIDFromPublicKey([]byte("trusting"))
	trusted := PeerIDFromPublicKey([]byte("trusted"))

	tr := NewTrust(trusting, trusted, 0.7)

	require.Equal(t, trusting, tr.TrustingPeer())
	require.Equal(t, trusted, tr.Peer())
	require.Equal(t, TrustValue(0.7), tr.Value())
}

func TestGlobalTrustVector(t *testing.T) {
	a := PeerIDFromPublicKey([]byte("a"))
	b := PeerIDFromPublicKey([]byte("b"))

	v := GlobalTrustVector{a: 0.25, b: 0.75}

	require.InDelta(t, 1.0, v.Sum().Float64(), 1e-12)

	cp := v.Copy()
	cp[a] = 1

	require.Equal(t, TrustValue(0.25), v[a])
}
