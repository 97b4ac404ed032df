// Package internal holds helpers private to goRecover: recovery token
// encoding and anti-forgery crumb generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - delivery: async mail dispatch for recovery messages
//   - flows: orchestrators for every Engine operation
//   - limiters: Redis fixed-window limiter for recovery requests
//   - queue: bounded worker queue shared by audit and mail dispatch
//   - rate: failed-login throttle
//   - stores: Redis-backed single-use recovery token store
//
// # What this package must NOT do
//
//   - Export types that appear in the public goRecover API.
//   - Be imported by any package outside the goRecover module.
package internal
