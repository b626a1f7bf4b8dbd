package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
)

func TestMessageCodec(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		id := newCorrelationID()

		data, err := encodeMessage(MsgOpinionRequest, id, OpinionRequest{Epoch: 42})
		require.NoError(t, err)

		env, err := decodeEnvelope(data)
		require.NoError(t, err)
		require.Equal(t, MsgOpinionRequest, env.Type)
		require.Equal(t, id, env.ID)

		var req OpinionRequest
		require.NoError(t, decodePayload(env, MsgOpinionRequest, &req))
		require.EqualValues(t, 42, req.Epoch)
	})

	t.Run("type mismatch", func(t *testing.T) {
		data, err := encodeMessage(MsgOpinionRequest, newCorrelationID(), OpinionRequest{})
		require.NoError(t, err)

		env, err := decodeEnvelope(data)
		require.NoError(t, err)

		var req ProofRequest
		require.Error(t, decodePayload(env, MsgProofRequest, &req))
	})

	t.Run("garbage envelope", func(t *testing.T) {
		_, err := decodeEnvelope([]byte("not json"))
		require.Error(t, err)
	})
}

func TestAssignmentConversion(t *testing.T) {
	from := reputation.PeerIDFromPublicKey([]byte("from"))
	a := reputation.PeerIDFromPublicKey([]byte("a"))
	b := reputation.PeerIDFromPublicKey([]byte("b"))

	opinions := []reputation.Trust{
		reputation.NewTrust(from, a, 0.25),
		reputation.NewTrust(from, b, 0.75),
	}

	restored, err := assignmentsToTrusts(from, trustsToAssignments(opinions))
	require.NoError(t, err)
	require.Equal(t, opinions, restored)

	t.Run("invalid identifier", func(t *testing.T) {
		_, err := assignmentsToTrusts(from, []TrustAssignment{
			{Peer: "not base58 !!!", Weight: 1},
		})
		require.Error(t, err)
	})

	t.Run("invalid weight", func(t *testing.T) {
		_, err := assignmentsToTrusts(from, []TrustAssignment{
			{Peer: a.String(), Weight: -1},
		})
		require.Error(t, err)
	})
}
