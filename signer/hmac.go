package signer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
)

// ErrEmptySecret is returned by [NewHMAC] when the secret is empty.
var ErrEmptySecret = errors.New("hmac secret must not be empty")

// HMAC signs with HMAC-SHA256 using an in-process secret. The zero value is
// unusable; construct through [NewHMAC].
type HMAC struct {
	keyID  string
	secret []byte
}

// NewHMAC creates an HS256 [Signer] for the given key id and secret. The
// secret is copied; the caller may zero its slice afterwards.
func NewHMAC(keyID string, secret []byte) (*HMAC, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	owned := make([]byte, len(secret))
	copy(owned, secret)

	return &HMAC{
		keyID:  keyID,
		secret: owned,
	}, nil
}

// Sign computes HMAC-SHA256 over payload. Local computation; ctx is checked
// once for early cancellation.
func (h *HMAC) Sign(ctx context.Context, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(payload)
	return mac.Sum(nil), nil
}

// KeyID returns the configured key id.
func (h *HMAC) KeyID() string {
	return h.keyID
}

// Algorithm returns "HS256".
func (h *HMAC) Algorithm() string {
	return "HS256"
}
