package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// natsSubjectFmt is the subject pattern of epoch announcements.
const natsSubjectFmt = "veritrust.epoch.%d"

// NATSWriter is a Writer which announces finalized epochs via NATS.
type NATSWriter struct {
	nc *nats.Conn
}

// NewNATSWriter connects to the NATS endpoint and returns a ready-to-go
// NATSWriter.
func NewNATSWriter(endpoint string) (*NATSWriter, error) {
	nc, err := nats.Connect(endpoint,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", endpoint, err)
	}

	return &NATSWriter{nc: nc}, nil
}

// Publish implements Writer. The summary is delivered as a JSON payload on
// the per-epoch subject.
func (w *NATSWriter) Publish(s EpochSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal epoch summary: %w", err)
	}

	if err := w.nc.Publish(fmt.Sprintf(natsSubjectFmt, s.Epoch), data); err != nil {
		return fmt.Errorf("publish epoch summary: %w", err)
	}

	return nil
}

// Close releases the NATS connection.
func (w *NATSWriter) Close() error {
	w.nc.Close()
	return nil
}
