// Package stores provides the Redis-backed recovery token store.
//
// # Design
//
// Each token persists a versioned, binary-encoded record in Redis with a TTL
// equal to the token lifetime. Consume uses WATCH/MULTI optimistic
// transactions with bounded retry on contention, deletes the record before
// returning it, and compares secret hashes in constant time. A token can
// therefore be redeemed at most once.
//
// # What this package must NOT do
//
//   - Import goRecover or any sibling internal package.
//   - Log or expose plaintext secrets.
//   - Use non-constant-time comparisons for secret matching.
package stores
