package protocol

import (
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
)

// LocalOpinionSource provides the node's own normalized opinions for
// answering inbound requests.
//
// The opinion store satisfies this interface.
type LocalOpinionSource interface {
	// NormalizedOpinions must return the outgoing opinions of the peer
	// with weights summing to one, ordered by the trusted peer
	// identifier. The second value is false for the defined no-opinions
	// state.
	NormalizedOpinions(from reputation.PeerID) ([]reputation.Trust, bool)
}
