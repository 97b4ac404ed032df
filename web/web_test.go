package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	goRecover "github.com/MrEthical07/goRecover"
	"github.com/MrEthical07/goRecover/mail"
	"github.com/MrEthical07/goRecover/repository/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type chanMailer chan mail.Message

func (c chanMailer) Send(_ context.Context, msg mail.Message) error {
	c <- msg
	return nil
}

type fixture struct {
	engine *goRecover.Engine
	mr     *miniredis.Miniredis
	mail   chanMailer
	server *httptest.Server
}

func newFixture(t *testing.T, wrap func(Service) Service) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goRecover.DefaultConfig()
	cfg.Recovery.BaseURL = "https://npm.example"
	cfg.Cookie.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false

	repo := memory.New()
	mailer := make(chanMailer, 8)
	engine, err := goRecover.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepository(repo).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	for _, a := range []goRecover.Account{
		{Name: "fakeuser", Email: "fakeuser@example.com"},
		{Name: "forrest", Email: "forrest@example.com"},
		{Name: "forrest2", Email: "forrest@example.com"},
	} {
		a.PasswordHash, err = engine.HashPassword(a.Name + "-password")
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		if err := repo.Create(context.Background(), a); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var svc Service = engine
	if wrap != nil {
		svc = wrap(engine)
	}
	opts := OptionsFromConfig(cfg, svc)
	server := httptest.NewServer(NewRouter(opts))
	t.Cleanup(server.Close)

	return &fixture{engine: engine, mr: mr, mail: mailer, server: server}
}

type client struct {
	t       *testing.T
	base    string
	http    *http.Client
	cookies map[string]string
}

func (f *fixture) client(t *testing.T) *client {
	return &client{
		t:    t,
		base: f.server.URL,
		http: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		cookies: map[string]string{},
	}
}

type response struct {
	status   int
	location string
	view     View
}

func (c *client) do(method, path string, form url.Values) response {
	c.t.Helper()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	for _, ck := range resp.Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}

	out := response{status: resp.StatusCode, location: resp.Header.Get("Location")}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&out.view); err != nil {
			c.t.Fatalf("decode view: %v", err)
		}
	}
	return out
}

// crumb fetches a form page so the crumb cookie is set and returns it.
func (c *client) crumb() string {
	c.t.Helper()
	c.do(http.MethodGet, "/forgot", nil)
	v := c.cookies["crumb"]
	if v == "" {
		c.t.Fatal("no crumb cookie issued")
	}
	return v
}

func (c *client) login(name string) {
	c.t.Helper()
	res := c.do(http.MethodPost, "/login", url.Values{
		"crumb":    {c.crumb()},
		"name":     {name},
		"password": {name + "-password"},
	})
	if res.status != http.StatusFound || c.cookies["session"] == "" {
		c.t.Fatalf("login %s: status %d", name, res.status)
	}
}

func (f *fixture) nextMail(t *testing.T) mail.Message {
	t.Helper()
	select {
	case msg := <-f.mail:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail")
		return mail.Message{}
	}
}

func tokenFrom(t *testing.T, msg mail.Message) string {
	t.Helper()
	_, rest, ok := strings.Cut(msg.Body, "/forgot/")
	if !ok {
		t.Fatalf("no recovery link in %q", msg.Body)
	}
	return strings.Fields(rest)[0]
}

func TestForgotFormIssuesCrumb(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)

	res := c.do(http.MethodGet, "/forgot", nil)
	if res.status != http.StatusOK || res.view.Template != TemplateRecoveryForm {
		t.Fatalf("unexpected response %+v", res)
	}
	if res.view.Context["crumb"] == "" || res.view.Context["crumb"] != c.cookies["crumb"] {
		t.Fatalf("form crumb %v must match cookie %q", res.view.Context["crumb"], c.cookies["crumb"])
	}
}

func TestForgotSubmit(t *testing.T) {
	cases := []struct {
		name   string
		form   url.Values
		status int
		check  func(t *testing.T, v View)
	}{
		{
			name:   "empty",
			form:   url.Values{},
			status: http.StatusBadRequest,
			check: func(t *testing.T, v View) {
				if v.Context["error"] != "All fields are required" {
					t.Fatalf("error = %v", v.Context["error"])
				}
			},
		},
		{
			name:   "unknown name",
			form:   url.Values{"name_email": {"mr-perdido"}},
			status: http.StatusNotFound,
			check: func(t *testing.T, v View) {
				if v.Context["error"] != "user mr-perdido not found" {
					t.Fatalf("error = %v", v.Context["error"])
				}
			},
		},
		{
			name:   "unknown email",
			form:   url.Values{"name_email": {"nobody@boom.com"}},
			status: http.StatusBadRequest,
		},
		{
			name:   "shared email lists users",
			form:   url.Values{"name_email": {"forrest@example.com"}},
			status: http.StatusOK,
			check: func(t *testing.T, v View) {
				users, _ := v.Context["users"].([]any)
				if len(users) != 2 || users[0] != "forrest" || users[1] != "forrest2" {
					t.Fatalf("users = %v", v.Context["users"])
				}
			},
		},
		{
			name:   "name sends mail",
			form:   url.Values{"name_email": {"fakeuser"}},
			status: http.StatusOK,
			check: func(t *testing.T, v View) {
				if v.Context["sent"] != true {
					t.Fatalf("sent = %v", v.Context["sent"])
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			c := f.client(t)
			tc.form.Set("crumb", c.crumb())

			res := c.do(http.MethodPost, "/forgot", tc.form)
			if res.status != tc.status || res.view.Template != TemplateRecoveryForm {
				t.Fatalf("status %d template %q, want %d", res.status, res.view.Template, tc.status)
			}
			if tc.check != nil {
				tc.check(t, res.view)
			}
		})
	}
}

func TestForgotSubmitRequiresCrumb(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)
	c.crumb()

	res := c.do(http.MethodPost, "/forgot", url.Values{"name_email": {"fakeuser"}})
	if res.status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.status)
	}
	select {
	case <-f.mail:
		t.Fatal("forged request must not send mail")
	default:
	}
}

func TestForgotSubmitRedisDownIs500(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)
	crumb := c.crumb()

	f.mr.SetError("ERR simulated outage")
	res := c.do(http.MethodPost, "/forgot", url.Values{"crumb": {crumb}, "name_email": {"fakeuser"}})
	if res.status != http.StatusInternalServerError || res.view.Template != TemplateInternalError {
		t.Fatalf("expected internal error page, got %d %q", res.status, res.view.Template)
	}
}

func TestRecoveryLinkRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)

	res := c.do(http.MethodPost, "/forgot", url.Values{"crumb": {c.crumb()}, "name_email": {"fakeuser"}})
	if res.status != http.StatusOK {
		t.Fatalf("issue: %d", res.status)
	}
	token := tokenFrom(t, f.nextMail(t))

	res = c.do(http.MethodGet, "/forgot/"+token, nil)
	if res.status != http.StatusOK || res.view.Template != TemplatePasswordChanged {
		t.Fatalf("redeem: %d %q", res.status, res.view.Template)
	}
	pw, _ := res.view.Context["password"].(string)
	if res.view.Context["name"] != "fakeuser" || pw == "" {
		t.Fatalf("unexpected context %v", res.view.Context)
	}

	if _, err := f.engine.Login(context.Background(), "fakeuser", pw); err != nil {
		t.Fatalf("generated password must log in: %v", err)
	}

	res = c.do(http.MethodGet, "/forgot/"+token, nil)
	if res.status != http.StatusNotFound || res.view.Context["error"] == nil {
		t.Fatalf("second redemption must fail with 404, got %d", res.status)
	}
}

func TestRecoveryLinkGarbageIs404(t *testing.T) {
	f := newFixture(t, nil)
	res := f.client(t).do(http.MethodGet, "/forgot/not-a-token", nil)
	if res.status != http.StatusNotFound || res.view.Template != TemplateRecoveryForm {
		t.Fatalf("expected 404 form, got %d %q", res.status, res.view.Template)
	}
}

func TestPasswordRequiresSession(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)

	res := c.do(http.MethodGet, "/password", nil)
	if res.status != http.StatusFound || res.location != "/login?done=%2Fpassword" {
		t.Fatalf("expected login redirect, got %d %q", res.status, res.location)
	}

	res = c.do(http.MethodPost, "/password", url.Values{"current": {"x"}})
	if res.status != http.StatusFound {
		t.Fatalf("anonymous POST must redirect before the crumb check, got %d", res.status)
	}
}

func TestPasswordChangeFlow(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)
	c.login("fakeuser")
	oldSession := c.cookies["session"]

	res := c.do(http.MethodGet, "/password", nil)
	if res.status != http.StatusOK || res.view.Template != TemplatePassword {
		t.Fatalf("form: %d %q", res.status, res.view.Template)
	}

	res = c.do(http.MethodPost, "/password", url.Values{
		"current": {"fakeuser-password"},
		"new":     {"a-much-better-secret"},
		"verify":  {"a-much-better-secret"},
	})
	if res.status != http.StatusForbidden {
		t.Fatalf("missing crumb must be refused, got %d", res.status)
	}

	res = c.do(http.MethodPost, "/password", url.Values{
		"crumb":   {c.cookies["crumb"]},
		"current": {"fakeuser-password"},
		"new":     {"a-much-better-secret"},
		"verify":  {"a-much-better-secrex"},
	})
	if res.status != http.StatusBadRequest || res.view.Context["error"] != "Passwords don't match" {
		t.Fatalf("mismatch: %d %v", res.status, res.view.Context)
	}

	res = c.do(http.MethodPost, "/password", url.Values{
		"crumb":   {c.cookies["crumb"]},
		"current": {"fakeuser-password"},
		"new":     {"a-much-better-secret"},
		"verify":  {"a-much-better-secret"},
	})
	if res.status != http.StatusFound || res.location != "/profile" {
		t.Fatalf("change: %d %q", res.status, res.location)
	}
	if c.cookies["session"] == "" || c.cookies["session"] == oldSession {
		t.Fatal("expected a fresh session cookie")
	}
	if _, err := f.engine.Authenticate(context.Background(), oldSession); !errors.Is(err, goRecover.ErrUnauthorized) {
		t.Fatalf("old session must be gone, got %v", err)
	}

	res = c.do(http.MethodGet, "/profile", nil)
	if res.status != http.StatusOK || res.view.Context["name"] != "fakeuser" {
		t.Fatalf("profile: %d %v", res.status, res.view.Context)
	}
}

type failingChange struct {
	Service
}

func (failingChange) ChangePassword(context.Context, goRecover.ChangePasswordRequest) (goRecover.LoginResult, error) {
	return goRecover.LoginResult{}, goRecover.ErrSessionInvalidationFailed
}

func TestPasswordChangeBackendFailureIs500(t *testing.T) {
	f := newFixture(t, func(s Service) Service { return failingChange{s} })
	c := f.client(t)
	c.login("fakeuser")
	c.do(http.MethodGet, "/password", nil)

	res := c.do(http.MethodPost, "/password", url.Values{
		"crumb":   {c.cookies["crumb"]},
		"current": {"fakeuser-password"},
		"new":     {"a-much-better-secret"},
		"verify":  {"a-much-better-secret"},
	})
	if res.status != http.StatusInternalServerError || res.view.Template != TemplateInternalError {
		t.Fatalf("expected internal error page, got %d %q", res.status, res.view.Template)
	}
}

func TestLoginRedirectsToDone(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)

	res := c.do(http.MethodGet, "/login?done=%2Fpassword", nil)
	if res.status != http.StatusOK || res.view.Context["done"] != "/password" {
		t.Fatalf("login form: %d %v", res.status, res.view.Context)
	}

	res = c.do(http.MethodPost, "/login", url.Values{
		"crumb":    {c.cookies["crumb"]},
		"name":     {"fakeuser"},
		"password": {"wrong"},
		"done":     {"/password"},
	})
	if res.status != http.StatusBadRequest || res.view.Context["error"] == nil {
		t.Fatalf("bad credentials: %d %v", res.status, res.view.Context)
	}

	res = c.do(http.MethodPost, "/login", url.Values{
		"crumb":    {c.cookies["crumb"]},
		"name":     {"fakeuser"},
		"password": {"fakeuser-password"},
		"done":     {"//evil.example/steal"},
	})
	if res.status != http.StatusFound || res.location != "/profile" {
		t.Fatalf("offsite done must fall back to /profile, got %d %q", res.status, res.location)
	}

	res = c.do(http.MethodGet, "/login?done=%2Fpassword", nil)
	if res.status != http.StatusFound || res.location != "/password" {
		t.Fatalf("signed-in users skip the form, got %d %q", res.status, res.location)
	}
}

func TestLoginLockoutIs429(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)
	crumb := c.crumb()

	var res response
	for i := 0; i < goRecover.DefaultConfig().Login.MaxAttempts+1; i++ {
		res = c.do(http.MethodPost, "/login", url.Values{"crumb": {crumb}, "name": {"fakeuser"}, "password": {"nope"}})
	}
	if res.status != http.StatusTooManyRequests || res.view.Template != TemplateLogin {
		t.Fatalf("expected 429 login form, got %d %q", res.status, res.view.Template)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	f := newFixture(t, nil)
	c := f.client(t)
	c.login("fakeuser")
	session := c.cookies["session"]

	res := c.do(http.MethodPost, "/logout", url.Values{"crumb": {c.cookies["crumb"]}})
	if res.status != http.StatusFound || res.location != "/" {
		t.Fatalf("logout: %d %q", res.status, res.location)
	}
	if c.cookies["session"] != "" {
		t.Fatal("session cookie must be cleared")
	}
	if _, err := f.engine.Authenticate(context.Background(), session); err == nil {
		t.Fatal("session must be deleted server side")
	}
}

func TestMetricsRouteOptional(t *testing.T) {
	f := newFixture(t, nil)
	if res := f.client(t).do(http.MethodGet, "/metrics", nil); res.status != http.StatusNotFound {
		t.Fatalf("metrics must be absent by default, got %d", res.status)
	}

	router := NewRouter(Options{
		Service: f.engine,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }),
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("metrics: %d %q", rec.Code, rec.Body.String())
	}
}

func TestSafeRedirect(t *testing.T) {
	for in, want := range map[string]string{
		"":                 "/profile",
		"/password":        "/password",
		"https://evil":     "/profile",
		"//evil":           "/profile",
		"/\\evil":          "/profile",
		"/package/foo?x=1": "/package/foo?x=1",
	} {
		if got := safeRedirect(in); got != want {
			t.Fatalf("safeRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}
