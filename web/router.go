package web

import (
	"context"
	"net/http"
	"time"

	goRecover "github.com/MrEthical07/goRecover"
	"github.com/MrEthical07/goRecover/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Service is the engine surface the handlers use. [goRecover.Engine]
// satisfies it.
type Service interface {
	RequestRecovery(ctx context.Context, req goRecover.RecoveryRequest) (goRecover.RecoveryResult, error)
	RedeemRecoveryToken(ctx context.Context, token string) (goRecover.RedeemResult, error)
	ChangePassword(ctx context.Context, req goRecover.ChangePasswordRequest) (goRecover.LoginResult, error)
	Login(ctx context.Context, name, password string) (goRecover.LoginResult, error)
	Logout(ctx context.Context, cookie string) error
	Authenticate(ctx context.Context, cookie string) (goRecover.Identity, error)
	SessionCookieExpiry() time.Duration
}

type Options struct {
	Service  Service
	Renderer Renderer

	SessionCookie string
	CrumbCookie   string
	SecureCookies bool

	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
}

// OptionsFromConfig fills cookie settings from cfg.
func OptionsFromConfig(cfg goRecover.Config, svc Service) Options {
	return Options{
		Service:       svc,
		Renderer:      JSONRenderer{},
		SessionCookie: cfg.Cookie.SessionName,
		CrumbCookie:   cfg.Cookie.CrumbName,
		SecureCookies: cfg.Cookie.Secure,
	}
}

// NewRouter wires every route. Authenticated routes check the session before
// the crumb, so an anonymous POST is redirected rather than refused.
func NewRouter(opts Options) chi.Router {
	if opts.Renderer == nil {
		opts.Renderer = JSONRenderer{}
	}
	if opts.SessionCookie == "" {
		opts.SessionCookie = "session"
	}
	if opts.CrumbCookie == "" {
		opts.CrumbCookie = "crumb"
	}
	h := &handlers{
		svc:           opts.Service,
		render:        opts.Renderer,
		sessionCookie: opts.SessionCookie,
		secure:        opts.SecureCookies,
	}
	crumb := middleware.Crumb(opts.CrumbCookie, opts.SecureCookies)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientIP)

	r.Group(func(r chi.Router) {
		r.Use(crumb)

		r.Get("/forgot", h.forgotForm)
		r.Post("/forgot", h.forgotSubmit)
		r.Get("/forgot/{token}", h.forgotRedeem)

		r.With(middleware.OptionalSession(opts.Service, opts.SessionCookie)).Get("/login", h.loginForm)
		r.Post("/login", h.loginSubmit)
		r.Post("/logout", h.logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(opts.Service, opts.SessionCookie, "/login"))
		r.Use(crumb)

		r.Get("/password", h.passwordForm)
		r.Post("/password", h.passwordSubmit)
		r.Get("/profile", h.profile)
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	return r
}
