package goRefresh

import (
	"errors"

	"github.com/MrEthical07/goRefresh/signer"
)

var (
	// ErrRefreshInvalid is returned when the presented credential resolves to
	// nothing in the store: malformed, expired, or never issued. The three
	// cases are indistinguishable by design.
	ErrRefreshInvalid = errors.New("invalid refresh credential")
	// ErrRefreshReuse is returned when a previously rotated-out credential is
	// presented again. The whole family has been revoked before this error is
	// surfaced.
	ErrRefreshReuse = errors.New("refresh credential reuse detected")
	// ErrFamilyRevoked is returned when the credential resolves to a family
	// that was already revoked before this request.
	ErrFamilyRevoked = errors.New("token family revoked")
	// ErrRotateRateLimited is returned when rotation attempts for a family
	// exceed the configured budget.
	ErrRotateRateLimited = errors.New("rotation rate limited")
	// ErrStoreUnavailable is returned on transient store failures; callers
	// should retry with backoff.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrSignerNotConfigured is returned by the token-pair operations when the
	// engine was built without a signer.
	ErrSignerNotConfigured = errors.New("signer not configured")
	// ErrInternal is returned on invariant violations, entropy failures, and
	// corrupt stored records. Details are logged, never returned.
	ErrInternal = errors.New("internal error")
	// ErrAccessRevoked is returned when a structurally valid access token has
	// been denylisted before its natural expiry.
	ErrAccessRevoked = errors.New("access token revoked")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Retryable reports whether the error is a transient failure that may succeed
// on retry. Replay, revocation, and invalid-credential errors are never
// retryable.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, signer.ErrUnavailable)
}
