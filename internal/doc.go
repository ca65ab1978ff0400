// Package internal provides the credential codec: minting of opaque refresh
// credentials, deterministic fingerprinting, and family id generation.
//
// # Credential format
//
// 32 bytes drawn from crypto/rand, base64url-encoded without padding.
// Credentials are never persisted — stores see only the fingerprint, the
// SHA-256 digest of the credential text (base64url, no padding).
//
// # What this package must NOT do
//
//   - Access Redis or any I/O besides the OS randomness source.
//   - Import goRefresh, family, jwt, or signer.
//   - Implement rotation or replay logic.
package internal
