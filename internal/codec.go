package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const credentialRawSize = 32

// ErrEntropyUnavailable is returned when the OS randomness source fails.
var ErrEntropyUnavailable = errors.New("entropy source unavailable")

// ErrInvalidCredential is returned for structurally invalid credential input.
var ErrInvalidCredential = errors.New("invalid credential")

// MintCredential returns a fresh opaque refresh credential: 32 bytes of
// cryptographically strong randomness, base64url without padding.
func MintCredential() (string, error) {
	var raw [credentialRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// Fingerprint returns the SHA-256 digest of the credential text, base64url
// without padding. Deterministic: equal credentials always produce equal
// fingerprints. The credential must be non-empty printable ASCII; anything
// else is rejected as ErrInvalidCredential before hashing.
func Fingerprint(credential string) (string, error) {
	if credential == "" {
		return "", ErrInvalidCredential
	}
	for i := 0; i < len(credential); i++ {
		if credential[i] < 0x21 || credential[i] > 0x7e {
			return "", ErrInvalidCredential
		}
	}

	sum := sha256.Sum256([]byte(credential))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// NewFamilyID returns a random UUID v4 lineage identifier.
func NewFamilyID() string {
	return uuid.NewString()
}

// NewJTI returns a random UUID v4 access-token identifier.
func NewJTI() string {
	return uuid.NewString()
}
