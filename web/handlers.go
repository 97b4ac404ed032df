package web

import (
	"log"
	"net/http"
	"strings"

	goRecover "github.com/MrEthical07/goRecover"
	"github.com/MrEthical07/goRecover/middleware"
	"github.com/go-chi/chi/v5"
)

type handlers struct {
	svc           Service
	render        Renderer
	sessionCookie string
	secure        bool
}

func (h *handlers) forgotForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, TemplateRecoveryForm, h.base(r))
}

func (h *handlers) forgotSubmit(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RequestRecovery(r.Context(), goRecover.RecoveryRequest{
		NameEmail:    r.PostFormValue("name_email"),
		SelectedName: r.PostFormValue("selected_name"),
	})
	if err != nil {
		h.fail(w, r, TemplateRecoveryForm, err)
		return
	}

	data := h.base(r)
	if len(res.Users) > 0 {
		data["users"] = res.Users
	} else {
		data["sent"] = res.Issued
	}
	h.render.Render(w, http.StatusOK, TemplateRecoveryForm, data)
}

func (h *handlers) forgotRedeem(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RedeemRecoveryToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, TemplateRecoveryForm, err)
		return
	}
	h.render.Render(w, http.StatusOK, TemplatePasswordChanged, map[string]any{
		"name":     res.Name,
		"password": res.Password,
	})
}

func (h *handlers) passwordForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, TemplatePassword, h.base(r))
}

func (h *handlers) passwordSubmit(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())

	res, err := h.svc.ChangePassword(r.Context(), goRecover.ChangePasswordRequest{
		Identity: id,
		Current:  r.PostFormValue("current"),
		New:      r.PostFormValue("new"),
		Verify:   r.PostFormValue("verify"),
	})
	if err != nil {
		h.fail(w, r, TemplatePassword, err)
		return
	}

	if res.Cookie != "" {
		h.setSession(w, res.Cookie)
	} else {
		h.clearSession(w)
	}
	http.Redirect(w, r, "/profile", http.StatusFound)
}

func (h *handlers) loginForm(w http.ResponseWriter, r *http.Request) {
	done := safeRedirect(r.URL.Query().Get("done"))
	if _, ok := middleware.IdentityFromContext(r.Context()); ok {
		http.Redirect(w, r, done, http.StatusFound)
		return
	}
	data := h.base(r)
	data["done"] = done
	h.render.Render(w, http.StatusOK, TemplateLogin, data)
}

func (h *handlers) loginSubmit(w http.ResponseWriter, r *http.Request) {
	done := safeRedirect(r.PostFormValue("done"))

	res, err := h.svc.Login(r.Context(), r.PostFormValue("name"), r.PostFormValue("password"))
	if err != nil {
		if goRecover.KindOf(err) == goRecover.KindDependency {
			h.internal(w, err)
			return
		}
		data := h.base(r)
		data["done"] = done
		data["error"] = goRecover.Message(err)
		h.render.Render(w, goRecover.StatusOf(err), TemplateLogin, data)
		return
	}

	h.setSession(w, res.Cookie)
	http.Redirect(w, r, done, http.StatusFound)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.sessionCookie); err == nil && c.Value != "" {
		if err := h.svc.Logout(r.Context(), c.Value); err != nil {
			log.Printf("goRecover: logout: %v", err)
		}
	}
	h.clearSession(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *handlers) profile(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	h.render.Render(w, http.StatusOK, TemplateProfile, map[string]any{"name": id.Name})
}

// fail renders template with the user-facing message and status of err.
// Backend failures get the internal error page instead.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, template string, err error) {
	if goRecover.KindOf(err) == goRecover.KindDependency {
		h.internal(w, err)
		return
	}
	data := h.base(r)
	data["error"] = goRecover.Message(err)
	h.render.Render(w, goRecover.StatusOf(err), template, data)
}

func (h *handlers) internal(w http.ResponseWriter, err error) {
	log.Printf("goRecover: request failed: %v", err)
	h.render.Render(w, http.StatusInternalServerError, TemplateInternalError, nil)
}

func (h *handlers) base(r *http.Request) map[string]any {
	return map[string]any{"crumb": middleware.CrumbFromContext(r.Context())}
}

func (h *handlers) setSession(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.svc.SessionCookieExpiry().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handlers) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeRedirect keeps redirects on this site.
func safeRedirect(done string) string {
	if !strings.HasPrefix(done, "/") || strings.HasPrefix(done, "//") || strings.HasPrefix(done, "/\\") {
		return "/profile"
	}
	return done
}
