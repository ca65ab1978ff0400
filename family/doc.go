// Package family implements rotation-lineage state and its Redis-backed
// persistence: the durable record for one chain of refresh credentials
// descended from a single issuance.
//
// # State model
//
// A [Family] is a pure value: construction, rotation, and revocation return
// updated copies and never touch I/O. Exactly one fingerprint is current at
// any instant; the rotation counter only grows; revocation is terminal.
//
// # Persistence
//
// [Store] keeps three namespaces in Redis — the JSON family record, the
// fingerprint-to-family index, and the user-to-families set — plus an
// unrelated per-access-token jti denylist that shares the connection.
// Multi-key writes go through a single transactional pipeline; the rotation
// path is one Lua compare-and-swap so that concurrent rotations of the same
// credential have exactly one winner.
//
// # Architecture boundaries
//
// This package owns storage layout and atomicity. Replay policy — what to do
// when the compare fails — is decided here only to the extent of persisting
// the revocation atomically; classification, events, and error mapping are
// the engine's job.
package family
