package manager

import (
	"fmt"
	"time"
)

type policyKind uint8

const (
	policyAllTerminal policyKind = iota
	policyQuorum
	policyCutoff
)

// CompletionPolicy decides when an epoch stops waiting for outstanding
// sessions and proceeds with what reached the verified state.
type CompletionPolicy struct {
	kind policyKind

	quorum int

	cutoff time.Duration
}

// AllTerminal returns the policy waiting for every session to reach a
// terminal state.
func AllTerminal() CompletionPolicy {
	return CompletionPolicy{kind: policyAllTerminal}
}

// Quorum returns the policy proceeding as soon as n sessions are verified
// (or all sessions are terminal, whichever happens first).
func Quorum(n int) CompletionPolicy {
	return CompletionPolicy{kind: policyQuorum, quorum: n}
}

// Cutoff returns the policy canceling all still-pending sessions after the
// given duration and proceeding with whatever reached the verified state.
func Cutoff(d time.Duration) CompletionPolicy {
	return CompletionPolicy{kind: policyCutoff, cutoff: d}
}

// ParseCompletionPolicy decodes a policy from its configuration form:
// "all_terminal", "quorum" with n > 0, or "timeout" with d > 0.
func ParseCompletionPolicy(s string, quorum int, timeout time.Duration) (CompletionPolicy, error) {
	switch s {
	case "", "all_terminal":
		return AllTerminal(), nil
	case "quorum":
		if quorum <= 0 {
			return CompletionPolicy{}, fmt.Errorf("quorum policy requires a positive quorum, got %d", quorum)
		}

		return Quorum(quorum), nil
	case "timeout":
		if timeout <= 0 {
			return CompletionPolicy{}, fmt.Errorf("timeout policy requires a positive duration, got %s", timeout)
		}

		return Cutoff(timeout), nil
	default:
		return CompletionPolicy{}, fmt.Errorf("unsupported completion policy %q", s)
	}
}

// String implements fmt.Stringer.
func (p CompletionPolicy) String() string {
	switch p.kind {
	case policyQuorum:
		return fmt.Sprintf("quorum(%d)", p.quorum)
	case policyCutoff:
		return fmt.Sprintf("timeout(%s)", p.cutoff)
	default:
		return "all_terminal"
	}
}
