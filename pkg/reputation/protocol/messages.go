// Package protocol implements the peer-to-peer reputation exchange: the wire
// messages and the per-peer session state machine collecting opinions and
// proofs for one epoch, plus the inbound responder side.
package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
)

// Message type tags of the wire envelope.
const (
	// MsgOpinionRequest asks a peer for its normalized local opinions of
	// the epoch.
	MsgOpinionRequest byte = iota + 1
	// MsgOpinionResponse carries the claimed opinion vector.
	MsgOpinionResponse
	// MsgProofRequest asks a peer for a proof of its claimed vector.
	MsgProofRequest
	// MsgProofResponse carries the proof and the commitment it opens.
	MsgProofResponse
)

// envelope is the generic structure of any reputation message on the wire.
type envelope struct {
	Type byte `json:"type"`

	// correlation identifier, echoed in the response
	ID string `json:"id"`

	Payload json.RawMessage `json:"payload,omitempty"`
}

// TrustAssignment is the wire form of a single opinion entry.
type TrustAssignment struct {
	// base58 peer identifier
	Peer string `json:"peer"`

	Weight float64 `json:"weight"`
}

// OpinionRequest asks for the sender-directed local opinions of the epoch.
type OpinionRequest struct {
	Epoch uint64 `json:"epoch"`
}

// OpinionResponse carries the claimed normalized opinion vector of the
// responding peer, ordered by trusted peer identifier.
type OpinionResponse struct {
	Epoch uint64 `json:"epoch"`

	Opinions []TrustAssignment `json:"opinions"`
}

// ProofRequest asks for a proof of the previously claimed vector.
type ProofRequest struct {
	Epoch uint64 `json:"epoch"`
}

// ProofResponse carries the proof and the commitment of the claimed vector.
type ProofResponse struct {
	Epoch uint64 `json:"epoch"`

	Proof []byte `json:"proof"`

	Commitment []byte `json:"commitment"`
}

func encodeMessage(typ byte, id string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal message payload")
	}

	data, err := json.Marshal(envelope{
		Type:    typ,
		ID:      id,
		Payload: raw,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal message envelope")
	}

	return data, nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	var e envelope

	if err := json.Unmarshal(data, &e); err != nil {
		return e, errors.Wrap(err, "unmarshal message envelope")
	}

	return e, nil
}

func decodePayload(e envelope, expectedType byte, v interface{}) error {
	if e.Type != expectedType {
		return errors.Errorf("unexpected message type %d, expected %d", e.Type, expectedType)
	}

	if err := json.Unmarshal(e.Payload, v); err != nil {
		return errors.Wrap(err, "unmarshal message payload")
	}

	return nil
}

func newCorrelationID() string {
	return uuid.NewString()
}

// assignmentsToTrusts converts wire opinion entries of the trusting peer
// into the domain form, validating identifiers and weights.
func assignmentsToTrusts(from reputation.PeerID, assignments []TrustAssignment) ([]reputation.Trust, error) {
	res := make([]reputation.Trust, 0, len(assignments))

	for i := range assignments {
		id, err := reputation.DecodePeerID(assignments[i].Peer)
		if err != nil {
			return nil, errors.Wrapf(err, "opinion entry %d", i)
		}

		val := reputation.TrustValueFromFloat64(assignments[i].Weight)
		if !val.IsValid() {
			return nil, errors.Errorf("opinion entry %d: invalid weight %v", i, assignments[i].Weight)
		}

		res = append(res, reputation.NewTrust(from, id, val))
	}

	return res, nil
}

// trustsToAssignments converts domain opinions into the wire form.
func trustsToAssignments(opinions []reputation.Trust) []TrustAssignment {
	res := make([]TrustAssignment, 0, len(opinions))

	for i := range opinions {
		res = append(res, TrustAssignment{
			Peer:   opinions[i].Peer().String(),
			Weight: opinions[i].Value().Float64(),
		})
	}

	return res
}
