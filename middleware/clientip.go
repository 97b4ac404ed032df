package middleware

import (
	"net"
	"net/http"

	goRecover "github.com/MrEthical07/goRecover"
)

// ClientIP records the request's remote host for throttling and audit. Put
// chi's RealIP in front of it when running behind a proxy.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(goRecover.WithClientIP(r.Context(), host)))
	})
}
