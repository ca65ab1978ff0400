// Package signer defines the signing boundary for access tokens.
//
// The rotation engine never touches key material directly. It hands a
// prepared signing input to a [Signer] and embeds the returned signature.
// Implementations decide where keys live: in-process HMAC secrets, a KMS
// client, an HSM session.
//
// Failures are classified, not hidden: [ErrUnavailable] marks transient
// backend trouble callers may retry, [ErrKeyRotated] marks a key id that the
// backend no longer serves and that requires re-configuration.
package signer
