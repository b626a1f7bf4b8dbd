package metricsconfig

import (
	"time"

	"github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config"
)

const (
	subsection = "metrics"

	// ShutdownTimeoutDefault is the default value of metrics HTTP
	// server shutdown timeout.
	ShutdownTimeoutDefault = 30 * time.Second
)

// Address returns the value of "address" config parameter
// from "metrics" section.
//
// Returns an empty string if the value is not set: the metrics
// endpoint is disabled by default.
func Address(c *config.Config) string {
	return config.StringSafe(c.Sub(subsection), "address")
}

// ShutdownTimeout returns the value of "shutdown_timeout" config
// parameter from "metrics" section.
//
// Returns ShutdownTimeoutDefault if the value is not set.
func ShutdownTimeout(c *config.Config) time.Duration {
	v := config.DurationSafe(c.Sub(subsection), "shutdown_timeout")
	if v == 0 {
		return ShutdownTimeoutDefault
	}

	return v
}
