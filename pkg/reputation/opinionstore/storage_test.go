package opinionstore

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"go.etcd.io/bbolt"
)

func testPeer(t *testing.T, seed string) reputation.PeerID {
	t.Helper()
	return reputation.PeerIDFromPublicKey([]byte(seed))
}

func TestStorage_SetOpinion(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	from := testPeer(t, "from")
	to := testPeer(t, "to")

	t.Run("invalid weight", func(t *testing.T) {
		require.ErrorIs(t, s.SetOpinion(from, to, -1), ErrInvalidWeight)
		require.ErrorIs(t, s.SetOpinion(from, to, math.NaN()), ErrInvalidWeight)
		require.ErrorIs(t, s.SetOpinion(from, to, math.Inf(1)), ErrInvalidWeight)

		_, ok := s.NormalizedOpinions(from)
		require.False(t, ok)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.SetOpinion(from, to, 0.3))
		require.NoError(t, s.SetOpinion(from, to, 0.9))

		opinions, ok := s.NormalizedOpinions(from)
		require.True(t, ok)
		require.Len(t, opinions, 1)
		require.Equal(t, reputation.TrustValue(1), opinions[0].Value())
	})
}

func TestStorage_NormalizedOpinions(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	from := testPeer(t, "from")

	t.Run("no opinions", func(t *testing.T) {
		_, ok := s.NormalizedOpinions(from)
		require.False(t, ok)
	})

	t.Run("zero total weight", func(t *testing.T) {
		require.NoError(t, s.SetOpinion(from, testPeer(t, "silent"), 0))

		_, ok := s.NormalizedOpinions(from)
		require.False(t, ok)
	})

	t.Run("normalization", func(t *testing.T) {
		a := testPeer(t, "a")
		b := testPeer(t, "b")
		c := testPeer(t, "c")

		require.NoError(t, s.SetOpinion(from, a, 1))
		require.NoError(t, s.SetOpinion(from, b, 2))
		require.NoError(t, s.SetOpinion(from, c, 1))

		opinions, ok := s.NormalizedOpinions(from)
		require.True(t, ok)
		require.Len(t, opinions, 4)

		var sum float64
		for _, op := range opinions {
			require.Equal(t, from, op.TrustingPeer())
			sum += op.Value().Float64()
		}
		require.InDelta(t, 1.0, sum, 1e-12)

		// canonical order by trusted peer
		for i := 1; i < len(opinions); i++ {
			require.Negative(t, reputation.ComparePeerIDs(opinions[i-1].Peer(), opinions[i].Peer()))
		}
	})
}

func TestStorage_RemovePeer(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	evicted := testPeer(t, "evicted")
	other := testPeer(t, "other")
	third := testPeer(t, "third")

	require.NoError(t, s.SetOpinion(evicted, other, 0.5))
	require.NoError(t, s.SetOpinion(other, evicted, 0.5))
	require.NoError(t, s.SetOpinion(other, third, 0.5))

	s.RemovePeer(evicted)

	_, ok := s.NormalizedOpinions(evicted)
	require.False(t, ok)

	opinions, ok := s.NormalizedOpinions(other)
	require.True(t, ok)
	require.Len(t, opinions, 1)
	require.Equal(t, third, opinions[0].Peer())
	require.Equal(t, reputation.TrustValue(1), opinions[0].Value())

	require.Equal(t, []reputation.PeerID{other}, s.Peers())
}

func TestStorage_Iterate(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	from := testPeer(t, "from")
	require.NoError(t, s.SetOpinion(from, testPeer(t, "a"), 1))
	require.NoError(t, s.SetOpinion(from, testPeer(t, "b"), 2))

	var n int
	require.NoError(t, s.Iterate(func(tr reputation.Trust) error {
		n++
		return nil
	}))
	require.Equal(t, 2, n)

	errStop := errors.New("stop")
	require.ErrorIs(t, s.Iterate(func(reputation.Trust) error {
		return errStop
	}), errStop)
}

func TestStorage_BoltPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opinions.db")

	db, err := bbolt.Open(path, 0o600, nil)
	require.NoError(t, err)

	from := testPeer(t, "from")
	a := testPeer(t, "a")
	b := testPeer(t, "b")

	s, err := New(WithBoltDB(db))
	require.NoError(t, err)

	require.NoError(t, s.SetOpinion(from, a, 1))
	require.NoError(t, s.SetOpinion(from, b, 3))

	require.NoError(t, db.Close())

	db, err = bbolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	restored, err := New(WithBoltDB(db))
	require.NoError(t, err)

	opinions, ok := restored.NormalizedOpinions(from)
	require.True(t, ok)
	require.Len(t, opinions, 2)

	require.InDelta(t, 0.25, opinions[indexOf(t, opinions, a)].Value().Float64(), 1e-12)
	require.InDelta(t, 0.75, opinions[indexOf(t, opinions, b)].Value().Float64(), 1e-12)

	t.Run("purge on eviction", func(t *testing.T) {
		restored.RemovePeer(from)

		again, err := New(WithBoltDB(db))
		require.NoError(t, err)

		_, ok := again.NormalizedOpinions(from)
		require.False(t, ok)
	})
}

func indexOf(t *testing.T, opinions []reputation.Trust, id reputation.PeerID) int {
	t.Helper()

	for i := range opinions {
		if opinions[i].Peer() == id {
			return i
		}
	}

	t.Fatalf("peer %s not found", id)
	return -1
}
