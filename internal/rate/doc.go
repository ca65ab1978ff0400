// Package rate provides internal primitives used to build Redis-backed rate
// limit keys, errors, and limiter behavior for the rotation path.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefix:
//   - rr: — rotation attempts per presented fingerprint
//
// # What this package must NOT do
//
//   - Implement domain-specific policies (those live in the engine config).
//   - Be imported outside the goRefresh module.
package rate
