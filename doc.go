// Package goRefresh provides a refresh-token rotation engine with family-based
// replay detection: opaque rotating refresh credentials, Redis-backed lineage
// state, and JWT access tokens signed through a pluggable signer facade.
//
// Clients exchange a refresh credential for a rotated successor (and optionally
// a fresh access token). If a previously rotated-out credential is ever
// presented again, the whole lineage descended from the original issuance is
// revoked irreversibly. The package is designed for concurrent server
// workloads: Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goRefresh is the public surface. It exposes [Engine], [Builder], [Config],
// error variables, and value types (MetricsSnapshot, AuditEvent). Lineage
// state and persistence live in the family sub-package; credential minting and
// fingerprinting in internal/; access-token serialization in jwt/; signing in
// signer/. None of the sub-packages import goRefresh (no import cycles).
//
// # What this package must NOT do
//
//   - Expose Redis clients, Lua scripts, or stored record encodings in its
//     public API.
//   - Log credentials, fingerprints, or stored records at any level.
//   - Open or close the Redis connection — the caller owns the client's
//     lifecycle and pooling.
//
// # Correctness contract
//
// Rotate is the hot path and the whole correctness story: at most one live
// credential per family, a strictly monotonic rotation counter, and
// irreversible revocation on replay, enforced by a single atomic
// compare-and-swap against the store. Security events are published only
// after the corresponding state change is durably persisted.
package goRefresh
