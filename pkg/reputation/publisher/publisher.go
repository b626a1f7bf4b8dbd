// Package publisher delivers finalized epoch results to external consumers.
package publisher

import (
	"github.com/veritrust-dev/veritrust-node/pkg/reputation"
	"github.com/veritrust-dev/veritrust-node/pkg/util/logger"
)

// EpochSummary is the published form of one finalized epoch.
type EpochSummary struct {
	Epoch uint64 `json:"epoch"`

	Converged bool `json:"converged"`

	Iterations uint32 `json:"iterations"`

	// base58 peer identifier -> global trust score
	Trust map[string]float64 `json:"trust"`

	// base58 identifiers of peers excluded from the epoch with the
	// exclusion reason
	Excluded map[string]string `json:"excluded,omitempty"`
}

// Writer describes a sink of finalized epoch results.
type Writer interface {
	// Publish delivers the summary and returns any delivery error
	// encountered. Publication failures never affect the epoch result
	// itself.
	Publish(EpochSummary) error
}

// NewEpochSummary composes the published form of an epoch result.
func NewEpochSummary(epoch uint64, vector reputation.GlobalTrustVector, converged bool, iterations uint32, excluded map[reputation.PeerID]string) EpochSummary {
	s := EpochSummary{
		Epoch:      epoch,
		Converged:  converged,
		Iterations: iterations,
		Trust:      make(map[string]float64, len(vector)),
	}

	for id, val := range vector {
		s.Trust[id.String()] = val.Float64()
	}

	if len(excluded) > 0 {
		s.Excluded = make(map[string]string, len(excluded))

		for id, reason := range excluded {
			s.Excluded[id.String()] = reason
		}
	}

	return s
}

// LogWriter is a Writer which records summaries in the log.
type LogWriter struct {
	log *logger.Logger
}

// NewLogWriter creates a LogWriter over the given logger.
func NewLogWriter(l *logger.Logger) *LogWriter {
	if l == nil {
		l = logger.Nop()
	}

	return &LogWriter{log: l}
}

// Publish implements Writer.
func (w *LogWriter) Publish(s EpochSummary) error {
	w.log.Info("global trust published",
		logger.FieldUint("epoch", s.Epoch),
		logger.FieldBool("converged", s.Converged),
		logger.FieldUint("iterations", uint64(s.Iterations)),
		logger.FieldInt("peers", int64(len(s.Trust))),
		logger.FieldInt("excluded", int64(len(s.Excluded))),
	)

	return nil
}
