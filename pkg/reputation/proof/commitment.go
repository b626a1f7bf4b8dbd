package proof

import (
	"fmt"
	"math"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
)

// MaxOpinions is the maximum number of entries in a committed opinion
// vector. The proving circuit is compiled for this fixed width; shorter
// vectors are zero-padded.
const MaxOpinions = 16

// Scale is the fixed-point denominator of committed trust weights. A
// normalized opinion vector scales to integers summing exactly to Scale.
const Scale = uint64(1_000_000_000)

// ScaleOpinions converts a normalized opinion vector into its fixed-point
// representation: per-entry weights multiplied by Scale and rounded, with
// the rounding residual absorbed by the largest entry so that the result
// sums exactly to Scale. The entries keep the order of the input.
//
// Absorption covers rounding error only, at most one unit per entry; a
// vector whose weights do not sum to one is reported as an error, never
// rewritten into a normalized one.
//
// An empty input produces an all-zero vector, the committed form of the
// defined no-opinions state.
func ScaleOpinions(opinions []reputation.Trust) ([MaxOpinions]uint64, error) {
	var scaled [MaxOpinions]uint64

	if len(opinions) > MaxOpinions {
		return scaled, fmt.Errorf("opinion vector of %d entries exceeds the circuit width %d", len(opinions), MaxOpinions)
	}

	if len(opinions) == 0 {
		return scaled, nil
	}

	var (
		sum    uint64
		maxIdx int
	)

	for i, op := range opinions {
		if !op.Value().IsValid() {
			return scaled, fmt.Errorf("invalid weight %s at entry %d", op.Value(), i)
		}

		scaled[i] = uint64(math.Round(op.Value().Float64() * float64(Scale)))
		sum += scaled[i]

		if scaled[i] > scaled[maxIdx] {
			maxIdx = i
		}
	}

	if sum == 0 {
		return scaled, nil
	}

	// each entry rounds by at most half a unit
	residual := int64(sum) - int64(Scale)
	if residual > int64(len(opinions)) || residual < -int64(len(opinions)) {
		return scaled, fmt.Errorf("opinion vector is not normalized, fixed-point sum %d", sum)
	}

	// absorb the rounding residual into the dominant entry
	scaled[maxIdx] = uint64(int64(scaled[maxIdx]) - residual)

	return scaled, nil
}

// PeerField reduces a peer identifier to a BN254 scalar field element. The
// same reduction is applied natively and in-circuit, so the commitment binds
// the peer consistently on both sides.
func PeerField(id reputation.PeerID) fr.Element {
	var e fr.Element
	e.SetBytes(id[:])

	return e
}

// NewCommitment computes the MiMC commitment of the normalized opinion
// vector bound to the peer and the epoch:
//
//	MiMC(peerField, epoch, w_0, ..., w_{MaxOpinions-1})
//
// over the fixed-point form of the weights. Deterministic.
func NewCommitment(opinions []reputation.Trust, epoch uint64, peer reputation.PeerID) (Commitment, error) {
	var c Commitment

	scaled, err := ScaleOpinions(opinions)
	if err != nil {
		return c, err
	}

	h := mimc.NewMiMC()

	writeElement := func(e fr.Element) {
		b := e.Bytes()
		h.Write(b[:])
	}

	writeElement(PeerField(peer))

	var e fr.Element

	e.SetUint64(epoch)
	writeElement(e)

	for i := range scaled {
		e.SetUint64(scaled[i])
		writeElement(e)
	}

	copy(c[:], h.Sum(nil))

	return c, nil
}
