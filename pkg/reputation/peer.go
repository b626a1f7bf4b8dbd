package reputation

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// PeerIDSize is the size of PeerID in bytes.
const PeerIDSize = 32

// peerIDContext is the domain separation prefix for deriving
// peer identifiers from public keys.
const peerIDContext = "veritrust:peerid:v1"

// PeerID represents the identifier of a network participant. It is derived
// from the participant's public key and is immutable once assigned.
//
// Zero value is not a valid identifier.
type PeerID [PeerIDSize]byte

// PeerIDFromPublicKey derives PeerID from a binary public key.
func PeerIDFromPublicKey(pub []byte) PeerID {
	h := sha3.New256()
	h.Write([]byte(peerIDContext))
	h.Write(pub)

	var id PeerID
	copy(id[:], h.Sum(nil))

	return id
}

// PeerIDFromBytes restores PeerID from a binary representation.
//
// Returns an error if the slice length is wrong.
func PeerIDFromBytes(data []byte) (PeerID, error) {
	var id PeerID

	if len(data) != PeerIDSize {
		return id, fmt.Errorf("invalid peer ID length %d, expected %d", len(data), PeerIDSize)
	}

	copy(id[:], data)

	return id, nil
}

// DecodePeerID decodes PeerID from its base58 string representation.
func DecodePeerID(s string) (PeerID, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return PeerID{}, fmt.Errorf("decode base58 peer ID: %w", err)
	}

	return PeerIDFromBytes(data)
}

// Bytes returns a binary representation of the PeerID.
func (id PeerID) Bytes() []byte {
	return bytes.Clone(id[:])
}

// IsZero checks if PeerID is a zero (unassigned) value.
func (id PeerID) IsZero() bool {
	return id == PeerID{}
}

// String implements fmt.Stringer. Returns base58 encoding of the identifier.
func (id PeerID) String() string {
	return base58.Encode(id[:])
}

// ComparePeerIDs orders two identifiers lexicographically by their binary
// form. The order is the canonical peer order used when indexing matrices
// and opinion sequences.
func ComparePeerIDs(a, b PeerID) int {
	return bytes.Compare(a[:], b[:])
}
