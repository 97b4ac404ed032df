package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goRecover/session"
)

type PasswordChangeRequest struct {
	Name      string
	SessionID string
	Current   string
	New       string
	Verify    string
}

// PasswordChangeResult carries the replacement session. Session is nil when
// the credential changed but a new session could not be created.
type PasswordChangeResult struct {
	Session *session.Session
}

type PasswordChangeMetrics struct {
	PasswordChangeSuccess    int
	PasswordChangeInvalidOld int
	PasswordChangeRejected   int
	PasswordChangeFailure    int
}

type PasswordChangeEvents struct {
	PasswordChangeSuccess    string
	PasswordChangeInvalidOld string
	PasswordChangeFailure    string
}

type PasswordChangeErrors struct {
	EngineNotReady            error
	Unauthorized              error
	FieldsRequired            error
	PasswordMismatch          error
	CurrentPassword           error
	PasswordPolicy            error
	AccountNotFound           error
	SessionInvalidationFailed error
}

type PasswordChangeDeps struct {
	FindByName        func(context.Context, string) (RecoveryAccount, error)
	IsAccountNotFound func(error) bool

	VerifyPassword func(string, string) (bool, error)
	CheckPolicy    func(string) error
	HashPassword   func(string) (string, error)

	DropSessions       func(context.Context, string) (int, error)
	UpdatePasswordHash func(context.Context, string, string) error
	CreateSession      func(context.Context, string) (*session.Session, error)

	Dependency func(op string, err error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics PasswordChangeMetrics
	Events  PasswordChangeEvents
	Errors  PasswordChangeErrors
}

// RunChangePassword validates the request, drops every session of req.Name,
// and only then writes the new hash. A failed drop aborts with the old
// credential intact.
func RunChangePassword(ctx context.Context, req PasswordChangeRequest, deps PasswordChangeDeps) (PasswordChangeResult, error) {
	normalizePasswordChangeDeps(&deps)

	if deps.FindByName == nil || deps.VerifyPassword == nil || deps.HashPassword == nil ||
		deps.DropSessions == nil || deps.UpdatePasswordHash == nil {
		return PasswordChangeResult{}, deps.Errors.EngineNotReady
	}
	if req.Name == "" {
		return PasswordChangeResult{}, deps.Errors.Unauthorized
	}

	switch {
	case req.Current == "" || req.New == "" || req.Verify == "":
		return PasswordChangeResult{}, rejectPasswordChange(ctx, deps, req, deps.Errors.FieldsRequired, "missing_fields")
	case req.New != req.Verify:
		return PasswordChangeResult{}, rejectPasswordChange(ctx, deps, req, deps.Errors.PasswordMismatch, "mismatch")
	}

	account, err := deps.FindByName(ctx, req.Name)
	if err != nil {
		if deps.IsAccountNotFound(err) {
			return PasswordChangeResult{}, failPasswordChange(ctx, deps, req, deps.Errors.AccountNotFound, "user_not_found")
		}
		return PasswordChangeResult{}, failPasswordChange(ctx, deps, req, deps.Dependency("find_by_name", err), "lookup_failed")
	}

	ok, err := deps.VerifyPassword(req.Current, account.PasswordHash)
	if err != nil || !ok {
		deps.MetricInc(deps.Metrics.PasswordChangeInvalidOld)
		deps.EmitAudit(ctx, deps.Events.PasswordChangeInvalidOld, false, req.Name, req.SessionID, deps.Errors.CurrentPassword, nil)
		return PasswordChangeResult{}, deps.Errors.CurrentPassword
	}

	if err := deps.CheckPolicy(req.New); err != nil {
		if !errors.Is(err, deps.Errors.PasswordPolicy) {
			err = deps.Errors.PasswordPolicy
		}
		return PasswordChangeResult{}, rejectPasswordChange(ctx, deps, req, err, "policy")
	}

	newHash, err := deps.HashPassword(req.New)
	if err != nil {
		return PasswordChangeResult{}, failPasswordChange(ctx, deps, req, deps.Dependency("hash_password", err), "hash_failed")
	}

	if _, err := deps.DropSessions(ctx, req.Name); err != nil {
		joined := errors.Join(deps.Errors.SessionInvalidationFailed, err)
		return PasswordChangeResult{}, failPasswordChange(ctx, deps, req, deps.Dependency("drop_sessions", joined), "session_invalidation_failed")
	}

	if err := deps.UpdatePasswordHash(ctx, req.Name, newHash); err != nil {
		return PasswordChangeResult{}, failPasswordChange(ctx, deps, req, deps.Dependency("update_password_hash", err), "update_hash_failed")
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChangeSuccess, true, req.Name, req.SessionID, nil, nil)

	var result PasswordChangeResult
	if deps.CreateSession != nil {
		sess, err := deps.CreateSession(ctx, req.Name)
		if err != nil {
			deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, req.Name, "", err, func() map[string]string {
				return map[string]string{
					"reason": "session_reissue_failed",
				}
			})
		} else {
			result.Session = sess
		}
	}
	return result, nil
}

func rejectPasswordChange(ctx context.Context, deps PasswordChangeDeps, req PasswordChangeRequest, err error, reason string) error {
	deps.MetricInc(deps.Metrics.PasswordChangeRejected)
	deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, req.Name, req.SessionID, err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return err
}

func failPasswordChange(ctx context.Context, deps PasswordChangeDeps, req PasswordChangeRequest, err error, reason string) error {
	deps.MetricInc(deps.Metrics.PasswordChangeFailure)
	deps.EmitAudit(ctx, deps.Events.PasswordChangeFailure, false, req.Name, req.SessionID, err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return err
}

func normalizePasswordChangeDeps(deps *PasswordChangeDeps) {
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(error) bool { return false }
	}
	if deps.CheckPolicy == nil {
		deps.CheckPolicy = func(string) error { return nil }
	}
	if deps.Dependency == nil {
		deps.Dependency = func(_ string, err error) error { return err }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}
