package domain

import "errors"

// Orchestration errors. These are the only conditions under which an
// orchestration call itself fails; partial adapter failure is absorbed into
// error-tagged candidates instead.
var (
	// ErrNoEligibleAdapters indicates no adapter serves the tier/modality
	ErrNoEligibleAdapters = errors.New("no models available for this tier")

	// ErrNoSuccessfulCandidate indicates every adapter failed
	ErrNoSuccessfulCandidate = errors.New("no successful responses from any models")
)

// FailureReason is a structured classification of an adapter failure,
// returned directly by adapters instead of relying on error-message
// substring matching.
type FailureReason string

const (
	FailureNone      FailureReason = ""
	FailureAuth      FailureReason = "auth"
	FailureThrottled FailureReason = "throttled"
	FailureTimeout   FailureReason = "timeout"
	FailureNetwork   FailureReason = "network"
	FailureMalformed FailureReason = "malformed"
	FailureUpstream  FailureReason = "upstream"
	FailureInternal  FailureReason = "internal"
)

// Transient reports whether a failure is worth retrying
func (r FailureReason) Transient() bool {
	switch r {
	case FailureThrottled, FailureTimeout, FailureNetwork, FailureUpstream:
		return true
	default:
		return false
	}
}
