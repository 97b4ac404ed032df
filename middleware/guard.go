package middleware

import (
	"context"
	"log"
	"net/http"
	"net/url"

	goRecover "github.com/MrEthical07/goRecover"
)

// Authenticator resolves a session cookie value. [goRecover.Engine]
// satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, cookie string) (goRecover.Identity, error)
}

type identityContextKey struct{}

func IdentityFromContext(ctx context.Context) (goRecover.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(goRecover.Identity)
	return id, ok
}

func WithIdentity(ctx context.Context, id goRecover.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// RequireSession lets a request through only with a live session cookie.
// Anyone else is redirected with 302 to loginPath?done=<requested path>.
// A backend failure while checking the session answers 500.
func RequireSession(auth Authenticator, cookieName, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, auth, cookieName)
			if err != nil {
				if goRecover.KindOf(err) == goRecover.KindDependency {
					log.Printf("goRecover: session check failed: %v", err)
					http.Error(w, "Internal error", http.StatusInternalServerError)
					return
				}
				http.Redirect(w, r, loginPath+"?done="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalSession attaches the caller's identity when the cookie is valid
// and otherwise passes the request through untouched.
func OptionalSession(auth Authenticator, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := authenticate(r, auth, cookieName); err == nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(r *http.Request, auth Authenticator, cookieName string) (goRecover.Identity, error) {
	if auth == nil {
		return goRecover.Identity{}, goRecover.ErrEngineNotReady
	}
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return goRecover.Identity{}, goRecover.ErrUnauthorized
	}
	return auth.Authenticate(r.Context(), c.Value)
}
