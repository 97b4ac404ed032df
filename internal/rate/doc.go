// Package rate throttles failed logins.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys:
//   - <prefix>:n:<name>  failures per lowercased account name
//   - <prefix>:ip:<ip>   failures per client IP
package rate
