package reputation

import (
	"math"
	"strconv"
)

// TrustValue represents the numeric value of a trust opinion or of a global
// trust score.
//
// Valid values are non-negative and finite.
type TrustValue float64

// TrustZero is a TrustValue of zero trust.
const TrustZero = TrustValue(0)

// TrustValueFromFloat64 converts a float64 to TrustValue.
func TrustValueFromFloat64(v float64) TrustValue {
	return TrustValue(v)
}

// Float64 returns the value as a float64.
func (v TrustValue) Float64() float64 {
	return float64(v)
}

// Add returns the sum of two values.
func (v TrustValue) Add(other TrustValue) TrustValue {
	return v + other
}

// Div returns the quotient of the value and the divisor.
//
// Division by zero returns zero to keep normalization of empty
// distributions well-defined.
func (v TrustValue) Div(divisor TrustValue) TrustValue {
	if divisor == 0 {
		return 0
	}

	return v / divisor
}

// IsValid checks that the value is non-negative and finite.
func (v TrustValue) IsValid() bool {
	f := float64(v)
	return f >= 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// String implements fmt.Stringer.
func (v TrustValue) String() string {
	return strconv.FormatFloat(float64(v), 'f', -1, 64)
}

// Trust represents a quantified opinion of one peer (trusting) about
// another (trusted).
type Trust struct {
	trusting, trusted PeerID

	val TrustValue
}

// TrustHandler describes the handler of a single Trust value.
//
// Returning a non-nil error aborts the iteration that invoked the handler.
type TrustHandler func(Trust) error

// NewTrust composes a Trust from its parts.
func NewTrust(trusting, trusted PeerID, val TrustValue) Trust {
	var t Trust
	t.SetTrustingPeer(trusting)
	t.SetPeer(trusted)
	t.SetValue(val)

	return t
}

// TrustingPeer returns the identifier of the peer the opinion belongs to.
func (t Trust) TrustingPeer() PeerID {
	return t.trusting
}

// SetTrustingPeer sets the identifier of the peer the opinion belongs to.
func (t *Trust) SetTrustingPeer(id PeerID) {
	t.trusting = id
}

// Peer returns the identifier of the peer the opinion is about.
func (t Trust) Peer() PeerID {
	return t.trusted
}

// SetPeer sets the identifier of the peer the opinion is about.
func (t *Trust) SetPeer(id PeerID) {
	t.trusted = id
}

// Value returns the trust value.
func (t Trust) Value() TrustValue {
	return t.val
}

// SetValue sets the trust value.
func (t *Trust) SetValue(val TrustValue) {
	t.val = val
}
