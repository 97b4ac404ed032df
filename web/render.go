package web

import (
	"encoding/json"
	"log"
	"net/http"
)

// Template names rendered by the handlers.
const (
	TemplateRecoveryForm    = "user/password-recovery-form"
	TemplatePasswordChanged = "user/password-changed"
	TemplatePassword        = "user/password"
	TemplateLogin           = "user/login"
	TemplateProfile         = "user/profile"
	TemplateInternalError   = "errors/internal"
)

// Renderer writes a named view with its context. Implementations must set
// the status code.
type Renderer interface {
	Render(w http.ResponseWriter, status int, template string, data map[string]any)
}

// View is what [JSONRenderer] writes.
type View struct {
	Template string         `json:"template"`
	Context  map[string]any `json:"context"`
}

// JSONRenderer writes the view as a JSON document. It stands in for an HTML
// template layer and makes responses easy to assert on.
type JSONRenderer struct{}

func (JSONRenderer) Render(w http.ResponseWriter, status int, template string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(View{Template: template, Context: data}); err != nil {
		log.Printf("goRecover: render %s: %v", template, err)
	}
}
