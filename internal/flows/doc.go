// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunRequestRecovery, RunRedeemRecoveryToken,
// RunChangePassword, RunLogin, ...) takes a typed dependency struct of
// function fields and returns results with no side effects beyond those
// dependencies. Flows never import goRecover; errors, metrics IDs, and audit
// event names are injected.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Perform I/O directly; all I/O goes through dependency functions.
package flows
