package analysis

import (
	"errors"
	"fmt"
)

// ErrAnalysisBusy indicates a second submission while one is already in
// flight. Enforced by the service gate, not by repositories.
var ErrAnalysisBusy = errors.New("an analysis is already in progress")

// ErrNotFound indicates the session does not exist for this owner. A row
// owned by another identity is indistinguishable from a missing row.
var ErrNotFound = errors.New("session not found")

// ErrConfirmRequired indicates a bulk clear without the explicit confirm flag.
var ErrConfirmRequired = errors.New("confirm_all flag required to clear history")

// ConfigurationError: missing endpoint/credential or unknown provider id.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// NetworkError: the provider was unreachable at the transport layer. Kept
// distinct from UpstreamError so callers can present an actionable message.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error reaching provider: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError: the provider answered with a non-2xx status, or blocked the
// generation outright (Blocked=true, no candidates in the envelope).
type UpstreamError struct {
	Status  int
	Body    string
	Blocked bool
}

func (e *UpstreamError) Error() string {
	if e.Blocked {
		return "provider blocked the generation (no candidates returned)"
	}
	return fmt.Sprintf("provider error (%d): %s", e.Status, e.Body)
}

// ParseError: the normalizer exhausted every fallback stage. RawPrefix keeps
// a short slice of the raw text for diagnostics.
type ParseError struct {
	RawPrefix string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse model output: %q", e.RawPrefix)
}

// AuthError: missing/invalid credential on a protected call.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return "auth error: " + e.Reason }

// AuthorizationError: attempted access to another identity's rows. The
// storage layer rejects these; the message never confirms the row exists.
type AuthorizationError struct {
	Owner string
}

func (e *AuthorizationError) Error() string {
	return "not authorized for the requested resource"
}

// NotConfiguredError: an optional backend is absent when the operation
// requires it (e.g. remote delete with no remote store configured).
type NotConfiguredError struct {
	Backend string
}

func (e *NotConfiguredError) Error() string {
	return e.Backend + " backend is not configured"
}
