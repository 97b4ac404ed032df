// Package session provides Redis-backed session persistence and a compact
// binary session encoding.
//
// # Key layout
//
// Sessions live under {prefix}:{<name>}:{sessionID} and each account keeps the
// set {prefix}:u:{<name>} of its session IDs. The braces around the name are a
// Redis Cluster hash tag, so one account's keys always share a slot.
// [Store.DropUser] reads the set under WATCH and deletes every member and the
// set in one transaction, which is what a password change or recovery
// redemption relies on.
//
// # What this package must NOT do
//
//   - Import goRecover or jwt (no upward imports).
//   - Verify credentials or decide when sessions should be dropped.
package session
