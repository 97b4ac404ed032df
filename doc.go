// Package goRecover implements account recovery and password change for a
// web application: classifying a submitted username or email, resolving it to
// an account, issuing single-use recovery tokens, redeeming them, and changing
// a password so that every existing session of the account stops working.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goRecover is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserRepository] contract, and the error taxonomy ([KindOf],
// [StatusOf], [Message]). Flow orchestration, the Redis token store, the rate
// limiter, and audit and mail dispatch live under internal/ and are never
// exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or encoding details in its public API.
//   - Change a credential while sessions of the account may still be live.
//   - Import any sub-package that re-imports goRecover (no import cycles).
package goRecover
