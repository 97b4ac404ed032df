package goRecover

import (
	"context"
	"time"

	internalflows "github.com/MrEthical07/goRecover/internal/flows"
	"github.com/MrEthical07/goRecover/session"
)

// ChangePassword replaces the caller's password. Every session of
// req.Identity.Name is dropped before the new hash is stored; if that fails
// the error wraps [ErrSessionInvalidationFailed] and the old password still
// works.
//
// On success the result holds a fresh session for the caller. It is empty
// when the change was applied but a new session could not be opened.
func (e *Engine) ChangePassword(ctx context.Context, req ChangePasswordRequest) (LoginResult, error) {
	if e == nil {
		return LoginResult{}, ErrEngineNotReady
	}

	res, err := internalflows.RunChangePassword(ctx, internalflows.PasswordChangeRequest{
		Name:      req.Identity.Name,
		SessionID: req.Identity.SessionID,
		Current:   req.Current,
		New:       req.New,
		Verify:    req.Verify,
	}, e.flows.PasswordChange)
	if err != nil {
		return LoginResult{}, err
	}
	if res.Session == nil {
		return LoginResult{}, nil
	}

	cookie, err := e.jwtManager.Issue(res.Session.Name, res.Session.SessionID, time.Unix(res.Session.ExpiresAt, 0))
	if err != nil {
		_ = e.sessionStore.Delete(ctx, res.Session.Name, res.Session.SessionID)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, res.Session.Name, "", newDependencyError("issue_cookie", err), func() map[string]string {
			return map[string]string{
				"reason": "session_reissue_failed",
			}
		})
		return LoginResult{}, nil
	}
	return LoginResult{Session: res.Session, Cookie: cookie}, nil
}

func (e *Engine) passwordChangeFlowDeps() internalflows.PasswordChangeDeps {
	return internalflows.PasswordChangeDeps{
		FindByName:        e.findByName,
		IsAccountNotFound: isAccountNotFound,
		VerifyPassword:    e.hasher.Verify,
		CheckPolicy: func(pw string) error {
			if err := e.hasher.CheckPolicy(pw); err != nil {
				return policyError{min: e.hasher.MinLength()}
			}
			return nil
		},
		HashPassword:       e.hasher.Hash,
		DropSessions:       e.dropSessions,
		UpdatePasswordHash: e.repository.UpdatePasswordHash,
		CreateSession: func(ctx context.Context, name string) (*session.Session, error) {
			sess, err := session.New(name, e.config.Session.Lifetime, time.Now())
			if err != nil {
				return nil, err
			}
			if err := e.sessionStore.Save(ctx, sess); err != nil {
				return nil, err
			}
			return sess, nil
		},
		Dependency: newDependencyError,
		MetricInc:  func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:  e.emitAudit,
		Metrics: internalflows.PasswordChangeMetrics{
			PasswordChangeSuccess:    int(MetricPasswordChangeSuccess),
			PasswordChangeInvalidOld: int(MetricPasswordChangeInvalidOld),
			PasswordChangeRejected:   int(MetricPasswordChangeRejected),
			PasswordChangeFailure:    int(MetricPasswordChangeFailure),
		},
		Events: internalflows.PasswordChangeEvents{
			PasswordChangeSuccess:    auditEventPasswordChangeSuccess,
			PasswordChangeInvalidOld: auditEventPasswordChangeInvalidOld,
			PasswordChangeFailure:    auditEventPasswordChangeFailure,
		},
		Errors: internalflows.PasswordChangeErrors{
			EngineNotReady:            ErrEngineNotReady,
			Unauthorized:              ErrUnauthorized,
			FieldsRequired:            ErrFieldsRequired,
			PasswordMismatch:          ErrPasswordMismatch,
			CurrentPassword:           ErrCurrentPassword,
			PasswordPolicy:            ErrPasswordPolicy,
			AccountNotFound:           ErrAccountNotFound,
			SessionInvalidationFailed: ErrSessionInvalidationFailed,
		},
	}
}

// HashPassword hashes pw with the engine's argon2id parameters after checking
// the length policy. Use it to provision accounts.
func (e *Engine) HashPassword(pw string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	if err := e.hasher.CheckPolicy(pw); err != nil {
		return "", policyError{min: e.hasher.MinLength()}
	}
	return e.hasher.Hash(pw)
}
