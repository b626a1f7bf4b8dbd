package trustconfig

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
	"github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config"
)

const (
	subsection = "trust"

	// AlphaDefault is the default damping factor of the iteration.
	AlphaDefault = 0.15

	// ConvergenceToleranceDefault is the default L1 convergence tolerance.
	ConvergenceToleranceDefault = 1e-9

	// MaxIterationsDefault is the default iteration cap.
	MaxIterationsDefault = 100

	// SessionTimeoutDefault is the default per-request session deadline.
	SessionTimeoutDefault = 10 * time.Second

	// ResubmissionLimitDefault is the default bound on fresh-proof
	// requests after a rejection.
	ResubmissionLimitDefault = 1

	// EscalationThresholdDefault is the default number of consecutive
	// epochs with rejected proofs escalating a peer for removal.
	EscalationThresholdDefault = 3
)

// Alpha returns the value of "damping_factor" config parameter
// from "trust" section.
//
// Returns AlphaDefault if the value is not set.
func Alpha(c *config.Config) float64 {
	v := config.FloatSafe(c.Sub(subsection), "damping_factor")
	if v == 0 {
		return AlphaDefault
	}

	return v
}

// ConvergenceTolerance returns the value of "convergence_tolerance" config
// parameter from "trust" section.
//
// Returns ConvergenceToleranceDefault if the value is not set.
func ConvergenceTolerance(c *config.Config) float64 {
	v := config.FloatSafe(c.Sub(subsection), "convergence_tolerance")
	if v == 0 {
		return ConvergenceToleranceDefault
	}

	return v
}

// MaxIterations returns the value of "max_iterations" config parameter
// from "trust" section.
//
// Returns MaxIterationsDefault if the value is not set.
func MaxIterations(c *config.Config) uint32 {
	v := config.Uint32Safe(c.Sub(subsection), "max_iterations")
	if v == 0 {
		return MaxIterationsDefault
	}

	return v
}

// PreTrustedPeer is an entry of the "pre_trusted_peers" list.
type PreTrustedPeer struct {
	ID     string
	Weight float64
}

// PreTrusted returns the value of "pre_trusted_peers" config parameter
// from "trust" section as a list of base58 peer identifiers with seed
// weights.
//
// Identifiers are list element fields rather than map keys: map key
// lookup is case-insensitive and would mangle base58.
//
// Panics if an entry is malformed.
func PreTrusted(c *config.Config) []PreTrustedPeer {
	v := c.Sub(subsection).Value("pre_trusted_peers")
	if v == nil {
		return nil
	}

	raw, err := cast.ToSliceE(v)
	if err != nil {
		panic(fmt.Errorf("invalid pre_trusted_peers section: %w", err))
	}

	res := make([]PreTrustedPeer, 0, len(raw))

	for i := range raw {
		m, err := cast.ToStringMapE(raw[i])
		if err != nil {
			panic(fmt.Errorf("invalid pre-trusted entry #%d: %w", i, err))
		}

		id, err := cast.ToStringE(m["id"])
		if err != nil || id == "" {
			panic(fmt.Errorf("invalid identifier of pre-trusted entry #%d", i))
		}

		w, err := cast.ToFloat64E(m["weight"])
		if err != nil {
			panic(fmt.Errorf("invalid weight of pre-trusted peer %s: %w", id, err))
		}

		res = append(res, PreTrustedPeer{
			ID:     id,
			Weight: w,
		})
	}

	return res
}

// SessionTimeout returns the value of "session_timeout" config parameter
// from "trust" section.
//
// Returns SessionTimeoutDefault if the value is not set.
func SessionTimeout(c *config.Config) time.Duration {
	v := config.DurationSafe(c.Sub(subsection), "session_timeout")
	if v == 0 {
		return SessionTimeoutDefault
	}

	return v
}

// ResubmissionLimit returns the value of "resubmission_limit" config
// parameter from "trust" section.
//
// Returns ResubmissionLimitDefault if the value is not set.
func ResubmissionLimit(c *config.Config) uint32 {
	if c.Sub(subsection).Value("resubmission_limit") == nil {
		return ResubmissionLimitDefault
	}

	return config.Uint32Safe(c.Sub(subsection), "resubmission_limit")
}

// EscalationThreshold returns the value of "escalation_threshold" config
// parameter from "trust" section.
//
// Returns EscalationThresholdDefault if the value is not set.
func EscalationThreshold(c *config.Config) uint32 {
	v := config.Uint32Safe(c.Sub(subsection), "escalation_threshold")
	if v == 0 {
		return EscalationThresholdDefault
	}

	return v
}
