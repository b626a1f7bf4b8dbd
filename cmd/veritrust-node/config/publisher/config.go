package publisherconfig

import (
	"github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config"
)

const subsection = "publisher"

// NATSEndpoint returns the value of "nats_endpoint" config parameter
// from "publisher" section.
//
// Returns an empty string if the value is not set: epoch summaries are
// then written to the log only.
func NATSEndpoint(c *config.Config) string {
	return config.StringSafe(c.Sub(subsection), "nats_endpoint")
}
