package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/eigentrust"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/protocol"
	"github.com/veritrust-dev/veritrust-node/pkg/reputation/publisher"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

// ExcludedPeer is a peer left out of an epoch together with the reason, for
// caller-side auditing of the published vector.
type ExcludedPeer struct {
	ID reputation.PeerID

	Reason protocol.FailureReason
}

// EpochResult is the outcome of one finished epoch.
type EpochResult struct {
	// Epoch the result belongs to.
	Epoch uint64

	// Published global trust vector.
	Vector reputation.GlobalTrustVector

	// Converged reports whether the iteration reached the configured
	// tolerance. A non-converged vector is still published; accepting it
	// is the caller's policy.
	Converged bool

	// Power iterations performed.
	Iterations uint32

	// Peers excluded from the epoch with their reasons.
	Excluded []ExcludedPeer

	// Peers whose proofs were rejected in enough consecutive epochs to
	// warrant removal from the active set. Removal is the caller's
	// decision (RemovePeer), never automatic.
	Escalated []reputation.PeerID
}

// SubmitLocalOpinion saves the local trust weight of the trusting peer
// towards the trusted one. The opinion takes effect from the next epoch; a
// running epoch reads a frozen snapshot.
//
// Returns opinionstore.ErrInvalidWeight on a negative or non-finite weight.
func (m *Manager) SubmitLocalOpinion(from, to reputation.PeerID, w float64) error {
	return m.prm.Opinions.SetOpinion(from, to, w)
}

// CurrentGlobalTrust returns a copy of the most recently published global
// trust vector. Empty before the first finished epoch.
func (m *Manager) CurrentGlobalTrust() reputation.GlobalTrustVector {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	return m.current.Copy()
}

// Epoch returns the number of the next epoch to run.
func (m *Manager) Epoch() uint64 {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	return m.epoch
}

// RemovePeer evicts the peer from the active set and purges its opinions.
// Intended as the caller's response to escalation.
func (m *Manager) RemovePeer(id reputation.PeerID) {
	m.mtx.Lock()
	m.removed[id] = struct{}{}
	delete(m.rejections, id)
	m.mtx.Unlock()

	m.prm.Opinions.RemovePeer(id)

	m.opts.log.Info("peer removed from the active set",
		logger.FieldStringer("peer", id),
	)
}

// BeginEpoch runs one full epoch: fans out sessions to the snapshot of the
// known peer set, waits according to the completion policy, aggregates the
// verified opinions and publishes the resulting global trust vector.
//
// Epochs never overlap: concurrent calls are serialized. Per-session
// failures never abort the epoch; they are reported in
// EpochResult.Excluded. Only an aggregation invariant violation
// (eigentrust.ErrMalformedMatrix) is returned as an error.
func (m *Manager) BeginEpoch(ctx context.Context) (EpochResult, error) {
	m.epochMtx.Lock()
	defer m.epochMtx.Unlock()

	started := time.Now()

	m.mtx.RLock()
	epoch := m.epoch
	m.mtx.RUnlock()

	log := m.opts.log.WithContext(logger.FieldUint("epoch", epoch))

	peers := m.activePeers()

	log.Info("starting epoch",
		logger.FieldInt("peers", int64(len(peers))),
		logger.FieldStringer("policy", m.prm.Policy),
	)

	outcomes, excluded := m.collectOutcomes(ctx, log, epoch, peers)

	matrix, err := m.buildMatrix(outcomes)
	if err != nil {
		return EpochResult{}, fmt.Errorf("build trust matrix for epoch %d: %w", epoch, err)
	}

	res, err := m.prm.Calculator.Calculate(matrix, m.prm.PreTrusted)
	if err != nil && !errors.Is(err, eigentrust.ErrNonConvergent) {
		return EpochResult{}, fmt.Errorf("calculate global trust for epoch %d: %w", epoch, err)
	}

	escalated := m.trackRejections(peers, outcomes)

	for i := range outcomes {
		if outcomes[i].State == protocol.StateFailed {
			excluded = append(excluded, ExcludedPeer{ID: outcomes[i].Peer, Reason: outcomes[i].Reason})
		}
	}

	sort.Slice(excluded, func(i, j int) bool {
		return reputation.ComparePeerIDs(excluded[i].ID, excluded[j].ID) < 0
	})

	vector := reputation.GlobalTrustVector(res.Trust)

	m.mtx.Lock()
	m.current = vector
	m.epoch = epoch + 1
	m.mtx.Unlock()

	m.observeEpoch(epoch, started, res)
	m.publish(log, epoch, vector, res, excluded)

	log.Info("epoch finished",
		logger.FieldBool("converged", res.Converged),
		logger.FieldUint("iterations", uint64(res.Iterations)),
		logger.FieldInt("excluded", int64(len(excluded))),
	)

	return EpochResult{
		Epoch:      epoch,
		Vector:     vector,
		Converged:  res.Converged,
		Iterations: res.Iterations,
		Excluded:   excluded,
		Escalated:  escalated,
	}, nil
}

// activePeers snapshots the known remote peer set minus removed peers and
// the local one.
func (m *Manager) activePeers() []reputation.PeerID {
	m.mtx.RLock()
	defer m.mtx.RUnlock()

	all := m.prm.Book.Peers()
	res := make([]reputation.PeerID, 0, len(all))

	for _, id := range all {
		if id == m.prm.LocalPeer {
			continue
		}

		if _, ok := m.removed[id]; ok {
			continue
		}

		res = append(res, id)
	}

	return res
}

// collectOutcomes fans out one session per addressable peer and gathers
// terminal outcomes according to the completion policy. Unaddressable peers
// are reported as excluded immediately.
func (m *Manager) collectOutcomes(ctx context.Context, log *logger.Logger, epoch uint64, peers []reputation.PeerID) ([]protocol.Outcome, []ExcludedPeer) {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var excluded []ExcludedPeer

	results := make(chan protocol.Outcome, len(peers))
	launched := 0

	for _, id := range peers {
		addr, ok := m.prm.Book.Address(id)
		if !ok {
			log.Warn("peer has no transport address",
				logger.FieldStringer("peer", id),
			)

			excluded = append(excluded, ExcludedPeer{ID: id, Reason: protocol.ReasonTimeout})

			continue
		}

		session := protocol.NewSession(protocol.Prm{
			Peer:      id,
			Addr:      addr,
			Epoch:     epoch,
			Transport: m.prm.Transport,
			Verifier:  m.prm.Verifier,
		},
			protocol.WithLogger(m.opts.log),
			protocol.WithRequestTimeout(m.opts.sessionTimeout),
			protocol.WithResubmissionLimit(m.opts.resubmissionLimit),
		)

		launched++

		task := func() {
			results <- session.Run(sctx)
		}

		if err := m.opts.pool.Submit(task); err != nil {
			// pool saturated or closed, do not stall the epoch
			go task()
		}
	}

	var cutoff <-chan time.Time

	if m.prm.Policy.kind == policyCutoff {
		timer := time.NewTimer(m.prm.Policy.cutoff)
		defer timer.Stop()

		cutoff = timer.C
	}

	outcomes := make([]protocol.Outcome, 0, launched)
	verified := 0

	for len(outcomes) < launched {
		select {
		case out := <-results:
			outcomes = append(outcomes, out)

			if m.opts.metrics != nil {
				m.opts.metrics.ObserveSession(out.State.String(), out.Reason.String())
			}

			if out.State == protocol.StateVerified {
				verified++

				if m.prm.Policy.kind == policyQuorum && verified >= m.prm.Policy.quorum {
					// quorum reached, the rest of the sessions are
					// canceled and collected as timed out
					cancel()
				}
			}
		case <-cutoff:
			log.Info("epoch cutoff reached, canceling pending sessions")

			cancel()

			cutoff = nil
		}
	}

	return outcomes, excluded
}

// buildMatrix composes the epoch's trust matrix from verified sessions and
// the local peer's own opinions.
func (m *Manager) buildMatrix(outcomes []protocol.Outcome) (*eigentrust.Matrix, error) {
	index := []reputation.PeerID{m.prm.LocalPeer}

	for i := range outcomes {
		if outcomes[i].State == protocol.StateVerified {
			index = append(index, outcomes[i].Peer)
		}
	}

	b := eigentrust.NewBuilder(index)

	if local, ok := m.prm.Opinions.NormalizedOpinions(m.prm.LocalPeer); ok {
		if err := b.PutRow(m.prm.LocalPeer, local); err != nil {
			return nil, err
		}
	}

	for i := range outcomes {
		if outcomes[i].State != protocol.StateVerified {
			continue
		}

		if err := b.PutRow(outcomes[i].Peer, outcomes[i].Opinions); err != nil {
			return nil, err
		}
	}

	return b.Build(), nil
}

// trackRejections updates the consecutive-rejection counters and returns
// the peers crossing the escalation threshold, in canonical order.
func (m *Manager) trackRejections(peers []reputation.PeerID, outcomes []protocol.Outcome) []reputation.PeerID {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	rejectedNow := make(map[reputation.PeerID]struct{})

	for i := range outcomes {
		if outcomes[i].State == protocol.StateFailed && outcomes[i].Reason == protocol.ReasonProofRejected {
			rejectedNow[outcomes[i].Peer] = struct{}{}
		}
	}

	var escalated []reputation.PeerID

	for _, id := range peers {
		if _, ok := rejectedNow[id]; ok {
			m.rejections[id]++

			if m.rejections[id] >= m.opts.escalationThreshold {
				escalated = append(escalated, id)
			}

			continue
		}

		delete(m.rejections, id)
	}

	sort.Slice(escalated, func(i, j int) bool {
		return reputation.ComparePeerIDs(escalated[i], escalated[j]) < 0
	})

	return escalated
}

func (m *Manager) observeEpoch(epoch uint64, started time.Time, res eigentrust.Result) {
	if m.opts.metrics == nil {
		return
	}

	m.opts.metrics.SetEpoch(epoch + 1)
	m.opts.metrics.ObserveEpoch(time.Since(started), res.Iterations, res.Converged)
}

func (m *Manager) publish(log *logger.Logger, epoch uint64, vector reputation.GlobalTrustVector, res eigentrust.Result, excluded []ExcludedPeer) {
	if m.opts.pub == nil {
		return
	}

	reasons := make(map[reputation.PeerID]string, len(excluded))
	for i := range excluded {
		reasons[excluded[i].ID] = excluded[i].Reason.String()
	}

	if err := m.opts.pub.Publish(publisher.NewEpochSummary(epoch, vector, res.Converged, res.Iterations, reasons)); err != nil {
		log.Warn("epoch publication failure",
			logger.FieldError(err),
		)
	}
}
