// Package password hashes and verifies account credentials.
//
// # Output format
//
// New hashes are argon2id PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification also accepts bcrypt ($2a$, $2b$, $2y$) hashes carried over from
// the previous account store; [Hasher.NeedsUpgrade] always reports true for
// them so callers can rehash after the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goRecover package.
//   - Log plaintext passwords.
package password
