// Package middleware exposes HTTP middleware adapters for access-token
// enforcement built on top of goRefresh.Engine validation.
//
// [RequireAccess] reads the Authorization header, calls Engine.ValidateAccess,
// and injects validated claims into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// implement validation logic itself — all decisions are delegated to
// Engine.ValidateAccess.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from ValidateAccess.
package middleware
