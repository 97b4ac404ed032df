// Package limiters provides the Redis fixed-window limiter that throttles
// recovery token issuance per identifier and per client IP.
//
// Limiters are nil-safe: calling Check on a nil receiver returns nil.
//
// # What this package must NOT do
//
//   - Import goRecover or any sibling internal package.
//   - Make policy decisions beyond counting; flow functions decide consequences.
package limiters
