package signer

import (
	"context"
	"errors"
)

// ErrUnavailable marks a transient signing backend failure. Retryable.
var ErrUnavailable = errors.New("signer unavailable")

// ErrKeyRotated marks a signing key id the backend no longer serves. Not
// retryable; the caller must reload its key configuration.
var ErrKeyRotated = errors.New("signing key rotated away")

// Signer produces signatures over prepared signing inputs.
//
// Implementations must be safe for concurrent use. Sign must respect ctx
// cancellation when the backend is remote.
type Signer interface {
	// Sign returns the raw signature bytes over payload.
	Sign(ctx context.Context, payload []byte) ([]byte, error)
	// KeyID identifies the key the next Sign call will use.
	KeyID() string
	// Algorithm names the JWS algorithm the signatures verify under.
	Algorithm() string
}
