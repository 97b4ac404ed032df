package middleware

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/MrEthical07/goRecover/internal"
)

// CrumbField is the form field state-changing requests carry the crumb in.
const CrumbField = "crumb"

type crumbContextKey struct{}

// CrumbFromContext returns the crumb templates must echo back in CrumbField.
func CrumbFromContext(ctx context.Context) string {
	v, _ := ctx.Value(crumbContextKey{}).(string)
	return v
}

// Crumb enforces a double-submit anti-forgery token. Safe requests get a
// crumb cookie when they lack one. Any other request must post CrumbField
// equal to the cookie or it is answered 403 before next runs.
func Crumb(cookieName string, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cookieValue string
			if c, err := r.Cookie(cookieName); err == nil {
				cookieValue = c.Value
			}

			if isSafeMethod(r.Method) {
				if cookieValue == "" {
					crumb, err := internal.NewCrumb()
					if err != nil {
						log.Printf("goRecover: crumb generation failed: %v", err)
						http.Error(w, "Internal error", http.StatusInternalServerError)
						return
					}
					cookieValue = crumb
					http.SetCookie(w, &http.Cookie{
						Name:     cookieName,
						Value:    crumb,
						Path:     "/",
						HttpOnly: true,
						Secure:   secure,
						SameSite: http.SameSiteLaxMode,
					})
				}
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), crumbContextKey{}, cookieValue)))
				return
			}

			submitted := r.PostFormValue(CrumbField)
			if cookieValue == "" || submitted == "" ||
				subtle.ConstantTimeCompare([]byte(cookieValue), []byte(submitted)) != 1 {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), crumbContextKey{}, cookieValue)))
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
