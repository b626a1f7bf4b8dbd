package opinionstore

import (
	"fmt"
	"sort"

	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

// SetOpinion saves the local trust weight of the trusting peer towards the
// trusted one. A repeated call for the same pair overwrites the weight.
//
// Returns ErrInvalidWeight if w is negative or non-finite.
func (s *Storage) SetOpinion(from, to reputation.PeerID, w float64) error {
	if !reputation.TrustValueFromFloat64(w).IsValid() {
		return fmt.Errorf("%w: %v", ErrInvalidWeight, w)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	m := s.outgoing[from]
	if m == nil {
		m = make(map[reputation.PeerID]float64, 1)
		s.outgoing[from] = m
	}

	m[to] = w

	rev := s.incoming[to]
	if rev == nil {
		rev = make(map[reputation.PeerID]struct{}, 1)
		s.incoming[to] = rev
	}

	rev[from] = struct{}{}

	if s.opts.db != nil {
		if err := s.persist(from, to, w); err != nil {
			return fmt.Errorf("persist opinion: %w", err)
		}
	}

	s.opts.log.Debug("local opinion saved",
		logger.FieldStringer("from", from),
		logger.FieldStringer("to", to),
		logger.FieldFloat("weight", w),
	)

	return nil
}

// NormalizedOpinions returns the outgoing opinions of the peer with weights
// renormalized to sum to one, ordered by the trusted peer identifier.
//
// The second value is false if the peer has no opinions with positive total
// weight. This is a defined empty state, not an error: such a peer
// contributes no matrix row and receives the seed distribution only.
func (s *Storage) NormalizedOpinions(from reputation.PeerID) ([]reputation.Trust, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	m := s.outgoing[from]
	if len(m) == 0 {
		return nil, false
	}

	var sum float64
	for _, w := range m {
		sum += w
	}

	if sum == 0 {
		return nil, false
	}

	res := make([]reputation.Trust, 0, len(m))

	for to, w := range m {
		res = append(res, reputation.NewTrust(from, to, reputation.TrustValueFromFloat64(w/sum)))
	}

	sort.Slice(res, func(i, j int) bool {
		return reputation.ComparePeerIDs(res[i].Peer(), res[j].Peer()) < 0
	})

	return res, true
}

// RemovePeer purges all outgoing and incoming opinions of the peer. Used on
// eviction of a peer from the active set.
func (s *Storage) RemovePeer(id reputation.PeerID) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for to := range s.outgoing[id] {
		if rev := s.incoming[to]; rev != nil {
			delete(rev, id)

			if len(rev) == 0 {
				delete(s.incoming, to)
			}
		}
	}

	delete(s.outgoing, id)

	for from := range s.incoming[id] {
		if m := s.outgoing[from]; m != nil {
			delete(m, id)

			if len(m) == 0 {
				delete(s.outgoing, from)
			}
		}
	}

	delete(s.incoming, id)

	if s.opts.db != nil {
		if err := s.purge(id); err != nil {
			s.opts.log.Warn("could not purge persisted opinions",
				logger.FieldStringer("peer", id),
				logger.FieldError(err),
			)
		}
	}
}

// Peers returns the identifiers of all peers with at least one outgoing
// opinion, in canonical order.
func (s *Storage) Peers() []reputation.PeerID {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]reputation.PeerID, 0, len(s.outgoing))

	for id := range s.outgoing {
		res = append(res, id)
	}

	sort.Slice(res, func(i, j int) bool {
		return reputation.ComparePeerIDs(res[i], res[j]) < 0
	})

	return res
}

// Iterate passes all stored raw (non-normalized) opinions to h.
//
// Returns errors from h directly.
func (s *Storage) Iterate(h reputation.TrustHandler) error {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for from, m := range s.outgoing {
		for to, w := range m {
			if err := h(reputation.NewTrust(from, to, reputation.TrustValueFromFloat64(w))); err != nil {
				return err
			}
		}
	}

	return nil
}
