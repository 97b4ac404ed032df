// Package identifier classifies the free-form "username or email" value
// submitted to the account recovery form.
//
// Classification is pure: it never touches a repository and never allocates
// beyond the returned [Result]. Callers map [ReasonEmpty] and
// [ReasonMalformed] to their own user-facing messages.
package identifier
