// Package jwt signs and verifies the session cookie value: a compact JWT whose
// subject is the account name and whose sid claim names the server-side session.
package jwt
