package epochconfig

import (
	"time"

	"github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config"
)

const (
	subsection = "epoch"

	// IntervalDefault is the default pause between epoch rounds.
	IntervalDefault = time.Minute

	// CompletionPolicyDefault is the default epoch completion policy.
	CompletionPolicyDefault = "all_terminal"
)

// Interval returns the value of "interval" config parameter
// from "epoch" section.
//
// Returns IntervalDefault if the value is not set.
func Interval(c *config.Config) time.Duration {
	v := config.DurationSafe(c.Sub(subsection), "interval")
	if v == 0 {
		return IntervalDefault
	}

	return v
}

// CompletionPolicy returns the value of "completion_policy" config
// parameter from "epoch" section together with the "quorum" and
// "timeout" parameters detailing it.
//
// Returns CompletionPolicyDefault as the kind if the value is not set.
func CompletionPolicy(c *config.Config) (kind string, quorum int, timeout time.Duration) {
	sub := c.Sub(subsection)

	kind = config.StringSafe(sub, "completion_policy")
	if kind == "" {
		kind = CompletionPolicyDefault
	}

	return kind,
		config.IntSafe(sub, "quorum"),
		config.DurationSafe(sub, "timeout")
}
