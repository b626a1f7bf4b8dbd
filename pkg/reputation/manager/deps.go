package manager

import (
	"sort"
	"time"

	"github.com/veritrust-dev/veritrust-node/pkg/network"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
)

// AddressBook resolves the known peer set and its transport addresses. Peer
// discovery is outside the engine: the book is typically static
// configuration.
type AddressBook interface {
	// Peers returns the identifiers of all known remote peers in
	// canonical order.
	Peers() []reputation.PeerID

	// Address resolves the transport address of the peer.
	Address(reputation.PeerID) (network.Address, bool)
}

// OpinionStorage is the subset of the opinion store consumed by the
// Manager.
type OpinionStorage interface {
	// SetOpinion saves a local trust weight. Invalid weights are
	// rejected.
	SetOpinion(from, to reputation.PeerID, w float64) error

	// NormalizedOpinions returns normalized outgoing opinions of the
	// peer, false for the defined no-opinions state.
	NormalizedOpinions(from reputation.PeerID) ([]reputation.Trust, bool)

	// RemovePeer purges all opinions of and about the peer.
	RemovePeer(id reputation.PeerID)
}

// MetricsRegister is an optional sink of node instrumentation.
type MetricsRegister interface {
	SetEpoch(uint64)
	ObserveEpoch(time.Duration, uint32, bool)
	ObserveSession(state, reason string)
}

// StaticAddressBook is an AddressBook over a fixed identifier-to-address
// map.
type StaticAddressBook struct {
	addrs map[reputation.PeerID]network.Address

	order []reputation.PeerID
}

// NewStaticAddressBook creates an AddressBook over a copy of the given map.
func NewStaticAddressBook(addrs map[reputation.PeerID]network.Address) *StaticAddressBook {
	b := &StaticAddressBook{
		addrs: make(map[reputation.PeerID]network.Address, len(addrs)),
		order: make([]reputation.PeerID, 0, len(addrs)),
	}

	for id, addr := range addrs {
		b.addrs[id] = addr
		b.order = append(b.order, id)
	}

	sort.Slice(b.order, func(i, j int) bool {
		return reputation.ComparePeerIDs(b.order[i], b.order[j]) < 0
	})

	return b
}

// Peers implements AddressBook.
func (b *StaticAddressBook) Peers() []reputation.PeerID {
	res := make([]reputation.PeerID, len(b.order))
	copy(res, b.order)

	return res
}

// Address implements AddressBook.
func (b *StaticAddressBook) Address(id reputation.PeerID) (network.Address, bool) {
	addr, ok := b.addrs[id]
	return addr, ok
}
