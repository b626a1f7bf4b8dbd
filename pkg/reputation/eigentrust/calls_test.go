package eigentrust

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
)

func testCalculator(t *testing.T, prm Prm) *Calculator {
	t.Helper()
	return New(prm)
}

func defaultPrm() Prm {
	return Prm{
		Alpha:                0.15,
		ConvergenceTolerance: 1e-12,
		MaxIterations:        1000,
	}
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		name string
		prm  Prm
	}{
		{name: "zero alpha", prm: Prm{Alpha: 0, ConvergenceTolerance: 1e-9, MaxIterations: 10}},
		{name: "alpha above one", prm: Prm{Alpha: 1.5, ConvergenceTolerance: 1e-9, MaxIterations: 10}},
		{name: "zero tolerance", prm: Prm{Alpha: 0.15, ConvergenceTolerance: 0, MaxIterations: 10}},
		{name: "zero iteration cap", prm: Prm{Alpha: 0.15, ConvergenceTolerance: 1e-9, MaxIterations: 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Panics(t, func() {
				New(tc.prm)
			})
		})
	}
}

func TestCalculator_Calculate(t *testing.T) {
	c := testCalculator(t, defaultPrm())

	t.Run("empty matrix", func(t *testing.T) {
		res, err := c.Calculate(NewBuilder(nil).Build(), nil)
		require.NoError(t, err)
		require.True(t, res.Converged)
		require.Empty(t, res.Trust)
	})

	t.Run("three-peer cycle with single pre-trusted peer", func(t *testing.T) {
		peers := testPeers(3)

		b := NewBuilder(peers)
		require.NoError(t, b.PutRow(peers[0], []reputation.Trust{
			reputation.NewTrust(peers[0], peers[1], 1),
		}))
		require.NoError(t, b.PutRow(peers[1], []reputation.Trust{
			reputation.NewTrust(peers[1], peers[2], 1),
		}))
		require.NoError(t, b.PutRow(peers[2], []reputation.Trust{
			reputation.NewTrust(peers[2], peers[0], 1),
		}))

		res, err := c.Calculate(b.Build(), map[reputation.PeerID]reputation.TrustValue{
			peers[0]: 1,
		})
		require.NoError(t, err)
		require.True(t, res.Converged)

		// stationary point of t = (1-a)*C^T*t + a*seed over the cycle
		const alpha = 0.15
		a := alpha / (1 - (1-alpha)*(1-alpha)*(1-alpha))

		require.InDelta(t, a, res.Trust[peers[0]].Float64(), 1e-9)
		require.InDelta(t, (1-alpha)*a, res.Trust[peers[1]].Float64(), 1e-9)
		require.InDelta(t, (1-alpha)*(1-alpha)*a, res.Trust[peers[2]].Float64(), 1e-9)
	})

	t.Run("mass conservation", func(t *testing.T) {
		peers := testPeers(5)

		b := NewBuilder(peers)
		require.NoError(t, b.PutRow(peers[0], []reputation.Trust{
			reputation.NewTrust(peers[0], peers[1], 0.3),
			reputation.NewTrust(peers[0], peers[2], 0.7),
		}))
		require.NoError(t, b.PutRow(peers[1], []reputation.Trust{
			reputation.NewTrust(peers[1], peers[3], 1),
		}))
		// peers 2, 3, 4 are opinion-less: zero rows

		res, err := c.Calculate(b.Build(), nil)
		require.NoError(t, err)

		var sum float64
		for _, v := range res.Trust {
			require.True(t, v.IsValid())
			sum += v.Float64()
		}
		require.InDelta(t, 1.0, sum, 1e-9)
	})

	t.Run("uniform seed without pre-trust", func(t *testing.T) {
		peers := testPeers(2)

		// symmetric mutual trust keeps the uniform vector stationary
		b := NewBuilder(peers)
		require.NoError(t, b.PutRow(peers[0], []reputation.Trust{
			reputation.NewTrust(peers[0], peers[1], 1),
		}))
		require.NoError(t, b.PutRow(peers[1], []reputation.Trust{
			reputation.NewTrust(peers[1], peers[0], 1),
		}))

		res, err := c.Calculate(b.Build(), nil)
		require.NoError(t, err)
		require.InDelta(t, 0.5, res.Trust[peers[0]].Float64(), 1e-9)
		require.InDelta(t, 0.5, res.Trust[peers[1]].Float64(), 1e-9)
	})

	t.Run("pre-trusted peer outside the epoch", func(t *testing.T) {
		peers := testPeers(2)

		b := NewBuilder(peers)
		require.NoError(t, b.PutRow(peers[0], []reputation.Trust{
			reputation.NewTrust(peers[0], peers[1], 1),
		}))

		res, err := c.Calculate(b.Build(), map[reputation.PeerID]reputation.TrustValue{
			reputation.PeerIDFromPublicKey([]byte("absent")): 1,
		})
		require.NoError(t, err)

		// seed degrades to uniform, mass stays conserved
		var sum float64
		for _, v := range res.Trust {
			sum += v.Float64()
		}
		require.InDelta(t, 1.0, sum, 1e-9)
	})

	t.Run("iteration cap", func(t *testing.T) {
		capped := testCalculator(t, Prm{
			Alpha:                0.15,
			ConvergenceTolerance: 1e-15,
			MaxIterations:        1,
		})

		peers := testPeers(3)

		b := NewBuilder(peers)
		require.NoError(t, b.PutRow(peers[0], []reputation.Trust{
			reputation.NewTrust(peers[0], peers[1], 1),
		}))
		require.NoError(t, b.PutRow(peers[1], []reputation.Trust{
			reputation.NewTrust(peers[1], peers[2], 1),
		}))
		require.NoError(t, b.PutRow(peers[2], []reputation.Trust{
			reputation.NewTrust(peers[2], peers[0], 1),
		}))

		res, err := capped.Calculate(b.Build(), nil)
		require.ErrorIs(t, err, ErrNonConvergent)

		// the last vector is still usable
		require.False(t, res.Converged)
		require.EqualValues(t, 1, res.Iterations)
		require.Len(t, res.Trust, 3)
	})

	t.Run("invalid pre-trust weight", func(t *testing.T) {
		peers := testPeers(2)

		b := NewBuilder(peers)

		_, err := c.Calculate(b.Build(), map[reputation.PeerID]reputation.TrustValue{
			peers[0]: -1,
		})
		require.ErrorIs(t, err, ErrMalformedMatrix)
	})
}
