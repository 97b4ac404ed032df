package goRecover

import (
	"context"
	"errors"
	"log"
	"time"

	internalflows "github.com/MrEthical07/goRecover/internal/flows"
	"github.com/MrEthical07/goRecover/internal/rate"
)

// Login checks name and password and opens a session. Unknown names and wrong
// passwords both return [ErrInvalidCredentials]; too many of them in a window
// return [ErrLoginRateLimited] until the window expires.
func (e *Engine) Login(ctx context.Context, name, password string) (LoginResult, error) {
	if e == nil {
		return LoginResult{}, ErrEngineNotReady
	}

	res, err := internalflows.RunLogin(ctx, name, password, e.flows.Login)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Session: res.Session, Cookie: res.Cookie}, nil
}

// Authenticate resolves a session cookie value to the caller's identity. The
// session must still exist in Redis, so a cookie stops working as soon as its
// session is dropped.
func (e *Engine) Authenticate(ctx context.Context, cookie string) (Identity, error) {
	if e == nil {
		return Identity{}, ErrEngineNotReady
	}

	sess, err := internalflows.RunAuthenticate(ctx, cookie, e.flows.Login)
	if err != nil {
		return Identity{}, err
	}
	return IdentityFromSession(sess), nil
}

// Logout deletes the session named by cookie. Cookies that do not parse are
// ignored.
func (e *Engine) Logout(ctx context.Context, cookie string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := internalflows.RunLogout(ctx, cookie, e.flows.Logout); err != nil {
		return newDependencyError("delete_session", err)
	}
	e.metricInc(MetricLogout)
	return nil
}

// InvalidateSessions drops every session of name and returns how many were
// removed.
func (e *Engine) InvalidateSessions(ctx context.Context, name string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}

	n, err := e.flows.PasswordChange.DropSessions(ctx, name)
	if err != nil {
		return n, newDependencyError("drop_sessions", err)
	}
	return n, nil
}

// SessionCookieExpiry is how long clients should keep the session cookie.
func (e *Engine) SessionCookieExpiry() time.Duration {
	if e == nil {
		return 0
	}
	return e.config.Session.Lifetime
}

func (e *Engine) loginFlowDeps() internalflows.LoginDeps {
	deps := internalflows.LoginDeps{
		SessionLifetime:   e.config.Session.Lifetime,
		Now:               time.Now,
		FindByName:        e.findByName,
		IsAccountNotFound: isAccountNotFound,
		VerifyPassword:    e.hasher.Verify,
		CheckLimit:        e.checkLoginLimit,
		RecordFailure:     e.recordLoginFailure,
		ResetLimit:        e.resetLoginLimit,
		SessionStore:      e.sessionStore,
		IssueCookie:       e.jwtManager.Issue,
		ParseSession:      e.jwtManager.Parse,
		Dependency:        newDependencyError,
		MetricInc:         func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:         e.emitAudit,
		Metrics: internalflows.LoginMetrics{
			LoginSuccess:      int(MetricLoginSuccess),
			LoginFailure:      int(MetricLoginFailure),
			PasswordRehashed:  int(MetricPasswordRehashed),
			SessionValidation: int(MetricSessionValidation),
			SessionRejected:   int(MetricSessionRejected),
		},
		Events: internalflows.LoginEvents{
			LoginSuccess: auditEventLoginSuccess,
			LoginFailure: auditEventLoginFailure,
		},
		Errors: internalflows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			FieldsRequired:     ErrInvalidCredentials,
			InvalidCredentials: ErrInvalidCredentials,
			Unauthorized:       ErrUnauthorized,
		},
	}
	if e.config.Password.UpgradeOnLogin {
		deps.NeedsUpgrade = e.hasher.NeedsUpgrade
		deps.HashPassword = e.hasher.Hash
		deps.UpdatePasswordHash = e.repository.UpdatePasswordHash
	}
	return deps
}

func (e *Engine) logoutFlowDeps() internalflows.LogoutDeps {
	return internalflows.LogoutDeps{
		ParseSession: e.jwtManager.Parse,
		SessionStore: e.sessionStore,
		EmitAudit:    e.emitAudit,
		Event:        auditEventLogoutSession,
	}
}

func (e *Engine) checkLoginLimit(ctx context.Context, name string) error {
	err := e.loginLimiter.Check(ctx, name, ClientIPFromContext(ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		e.emitRateLimit(ctx, "login", ErrLoginRateLimited, func() map[string]string {
			return map[string]string{"name": name}
		})
		return ErrLoginRateLimited
	default:
		return newDependencyError("login_rate_limit", err)
	}
}

func (e *Engine) recordLoginFailure(ctx context.Context, name string) {
	if err := e.loginLimiter.RecordFailure(ctx, name, ClientIPFromContext(ctx)); err != nil {
		log.Printf("goRecover: record login failure: %v", err)
	}
}

func (e *Engine) resetLoginLimit(ctx context.Context, name string) {
	if err := e.loginLimiter.Reset(ctx, name); err != nil {
		log.Printf("goRecover: reset login limiter: %v", err)
	}
}
