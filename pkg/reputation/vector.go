package reputation

// GlobalTrustVector is the network-wide reputation vector of one epoch:
// non-negative scores per peer summing to one. A published vector is never
// mutated, only superseded by the next epoch's vector.
type GlobalTrustVector map[PeerID]TrustValue

// Copy returns an independent copy of the vector.
func (v GlobalTrustVector) Copy() GlobalTrustVector {
	res := make(GlobalTrustVector, len(v))

	for id, val := range v {
		res[id] = val
	}

	return res
}

// Sum returns the total mass of the vector.
func (v GlobalTrustVector) Sum() TrustValue {
	var sum TrustValue

	for _, val := range v {
		sum = sum.Add(val)
	}

	return sum
}
