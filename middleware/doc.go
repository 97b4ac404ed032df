// Package middleware adapts the goRecover engine to net/http.
//
// # Handlers
//
//   - [RequireSession] redirects callers without a live session to the login
//     page and puts their [goRecover.Identity] in the request context.
//   - [OptionalSession] attaches the identity when present.
//   - [Crumb] enforces the double-submit anti-forgery cookie.
//   - [ClientIP] records the caller address for throttling and audit.
//
// # What this package must NOT do
//
//   - Parse session cookies itself. The engine decides what is valid.
//   - Touch Redis or the account store.
package middleware
