package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goRecover/jwt"
	"github.com/MrEthical07/goRecover/session"
)

type LoginResult struct {
	Session *session.Session
	Cookie  string
}

type LoginMetrics struct {
	LoginSuccess      int
	LoginFailure      int
	PasswordRehashed  int
	SessionValidation int
	SessionRejected   int
}

type LoginEvents struct {
	LoginSuccess string
	LoginFailure string
}

type LoginErrors struct {
	EngineNotReady     error
	FieldsRequired     error
	InvalidCredentials error
	Unauthorized       error
}

type LoginDeps struct {
	SessionLifetime time.Duration

	Now func() time.Time

	FindByName        func(context.Context, string) (RecoveryAccount, error)
	IsAccountNotFound func(error) bool

	VerifyPassword     func(string, string) (bool, error)
	NeedsUpgrade       func(string) (bool, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(context.Context, string, string) error

	// CheckLimit returns an already mapped error when name may not log in
	// right now. RecordFailure and ResetLimit are best effort.
	CheckLimit    func(context.Context, string) error
	RecordFailure func(context.Context, string)
	ResetLimit    func(context.Context, string)

	SessionStore SessionStore
	IssueCookie  func(name, sid string, expiresAt time.Time) (string, error)
	ParseSession func(string) (*jwt.SessionClaims, error)

	Dependency func(op string, err error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin verifies a password and opens a new session. Unknown names and
// wrong passwords return the same error.
func RunLogin(ctx context.Context, name, password string, deps LoginDeps) (LoginResult, error) {
	normalizeLoginDeps(&deps)

	if deps.FindByName == nil || deps.VerifyPassword == nil || deps.SessionStore == nil || deps.IssueCookie == nil {
		return LoginResult{}, deps.Errors.EngineNotReady
	}
	if name == "" || password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, name, "", deps.Errors.FieldsRequired, nil)
		return LoginResult{}, deps.Errors.FieldsRequired
	}

	if err := deps.CheckLimit(ctx, name); err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, name, "", err, nil)
		return LoginResult{}, err
	}

	account, err := deps.FindByName(ctx, name)
	if err != nil {
		if deps.IsAccountNotFound(err) {
			deps.RecordFailure(ctx, name)
			deps.MetricInc(deps.Metrics.LoginFailure)
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, name, "", deps.Errors.InvalidCredentials, nil)
			return LoginResult{}, deps.Errors.InvalidCredentials
		}
		mapped := deps.Dependency("find_by_name", err)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, name, "", mapped, nil)
		return LoginResult{}, mapped
	}

	ok, err := deps.VerifyPassword(password, account.PasswordHash)
	if err != nil || !ok {
		deps.RecordFailure(ctx, name)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, account.Name, "", deps.Errors.InvalidCredentials, nil)
		return LoginResult{}, deps.Errors.InvalidCredentials
	}

	if deps.NeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if upgrade, err := deps.NeedsUpgrade(account.PasswordHash); err == nil && upgrade {
			if newHash, err := deps.HashPassword(password); err == nil {
				if deps.UpdatePasswordHash(ctx, account.Name, newHash) == nil {
					deps.MetricInc(deps.Metrics.PasswordRehashed)
				}
			}
		}
	}

	result, err := RunOpenSession(ctx, account.Name, deps)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, account.Name, "", err, nil)
		return LoginResult{}, err
	}

	deps.ResetLimit(ctx, name)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, account.Name, result.Session.SessionID, nil, nil)
	return result, nil
}

// RunOpenSession creates and persists a session for name and signs its cookie.
func RunOpenSession(ctx context.Context, name string, deps LoginDeps) (LoginResult, error) {
	normalizeLoginDeps(&deps)

	if deps.SessionStore == nil || deps.IssueCookie == nil {
		return LoginResult{}, deps.Errors.EngineNotReady
	}

	sess, err := session.New(name, deps.SessionLifetime, deps.Now())
	if err != nil {
		return LoginResult{}, deps.Dependency("new_session", err)
	}
	if err := deps.SessionStore.Save(ctx, sess); err != nil {
		return LoginResult{}, deps.Dependency("save_session", err)
	}

	cookie, err := deps.IssueCookie(sess.Name, sess.SessionID, time.Unix(sess.ExpiresAt, 0))
	if err != nil {
		_ = deps.SessionStore.Delete(ctx, sess.Name, sess.SessionID)
		return LoginResult{}, deps.Dependency("issue_cookie", err)
	}

	return LoginResult{Session: sess, Cookie: cookie}, nil
}

// RunAuthenticate resolves a cookie value to a live session. Tokens whose
// session has been dropped no longer authenticate.
func RunAuthenticate(ctx context.Context, cookie string, deps LoginDeps) (*session.Session, error) {
	normalizeLoginDeps(&deps)

	if deps.ParseSession == nil || deps.SessionStore == nil {
		return nil, deps.Errors.EngineNotReady
	}
	deps.MetricInc(deps.Metrics.SessionValidation)

	if cookie == "" {
		return nil, deps.Errors.Unauthorized
	}
	claims, err := deps.ParseSession(cookie)
	if err != nil {
		deps.MetricInc(deps.Metrics.SessionRejected)
		return nil, deps.Errors.Unauthorized
	}

	sess, err := deps.SessionStore.Get(ctx, claims.Name(), claims.SID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrCorrupt) {
			deps.MetricInc(deps.Metrics.SessionRejected)
			return nil, deps.Errors.Unauthorized
		}
		return nil, deps.Dependency("get_session", err)
	}
	return sess, nil
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.SessionLifetime <= 0 {
		deps.SessionLifetime = 24 * time.Hour
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(error) bool { return false }
	}
	if deps.Dependency == nil {
		deps.Dependency = func(_ string, err error) error { return err }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.CheckLimit == nil {
		deps.CheckLimit = func(context.Context, string) error { return nil }
	}
	if deps.RecordFailure == nil {
		deps.RecordFailure = func(context.Context, string) {}
	}
	if deps.ResetLimit == nil {
		deps.ResetLimit = func(context.Context, string) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}
