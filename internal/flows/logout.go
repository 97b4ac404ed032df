package flows

import (
	"context"

	"github.com/MrEthical07/goRecover/jwt"
	"github.com/MrEthical07/goRecover/session"
)

// SessionStore is the part of session.Store the session flows use.
type SessionStore interface {
	Save(ctx context.Context, sess *session.Session) error
	Get(ctx context.Context, name, sessionID string) (*session.Session, error)
	Delete(ctx context.Context, name, sessionID string) error
	DropUser(ctx context.Context, name string) (int, error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ParseSession func(string) (*jwt.SessionClaims, error)
	SessionStore SessionStore
	EmitAudit    func(context.Context, string, bool, string, string, error, func() map[string]string)
	Event        string
}

// RunLogout deletes the session named by a cookie value. An unparseable
// cookie is not an error: there is nothing to log out.
func RunLogout(ctx context.Context, cookie string, deps LogoutDeps) error {
	if deps.ParseSession == nil || deps.SessionStore == nil {
		return nil
	}
	claims, err := deps.ParseSession(cookie)
	if err != nil {
		return nil
	}

	err = deps.SessionStore.Delete(ctx, claims.Name(), claims.SID)
	if deps.EmitAudit != nil {
		deps.EmitAudit(ctx, deps.Event, err == nil, claims.Name(), claims.SID, err, nil)
	}
	return err
}
