package goRecover

import (
	"context"

	"github.com/MrEthical07/goRecover/session"
)

// Account is the user record recovery and password change operate on.
// Email may be empty or syntactically invalid; recovery reports both cases.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
}

// UserRepository is the account store. FindByName returns an error wrapping
// [ErrAccountNotFound] when no account has that name. FindByEmail matches
// case-insensitively and returns an empty slice, not an error, when nothing
// matches. Any other error is treated as the backend being unavailable.
//
//	Adapters: repository/memory, repository/sqlstore, repository/mongostore
type UserRepository interface {
	FindByName(ctx context.Context, name string) (Account, error)
	FindByEmail(ctx context.Context, email string) ([]Account, error)
	UpdatePasswordHash(ctx context.Context, name, hash string) error
}

// RecoveryRequest is the POST /forgot form. SelectedName, when set, is the
// account picked from a disambiguation list and skips classification.
type RecoveryRequest struct {
	NameEmail    string
	SelectedName string
}

// RecoveryResult is a successful recovery request: either a list of candidate
// names for an ambiguous email (Users) or an issued token (Issued). Email is
// the address the recovery link was sent to.
type RecoveryResult struct {
	Users  []string
	Issued bool
	Name   string
	Email  string
}

// Identity is the authenticated caller as established by [Engine.Authenticate].
type Identity struct {
	Name      string
	SessionID string
}

// IdentityFromSession returns the identity carried by sess.
func IdentityFromSession(sess *session.Session) Identity {
	if sess == nil {
		return Identity{}
	}
	return Identity{Name: sess.Name, SessionID: sess.SessionID}
}

// ChangePasswordRequest is the POST /password form plus the identity of the
// caller. The name changed is always Identity.Name.
type ChangePasswordRequest struct {
	Identity Identity
	Current  string
	New      string
	Verify   string
}

// RedeemResult carries the generated password shown once to the account owner.
type RedeemResult struct {
	Name     string
	Password string
}

// LoginResult is an open session and the signed cookie value naming it.
type LoginResult struct {
	Session *session.Session
	Cookie  string
}
