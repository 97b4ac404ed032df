package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Issuer: "recoverd"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueParseRoundTrip(t *testing.T) {
	m := newHSManager(t)

	token, err := m.Issue("fakeuser", "sid-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Name() != "fakeuser" || claims.SID != "sid-1" || claims.Issuer != "recoverd" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsTampering(t *testing.T) {
	m := newHSManager(t)

	token, err := m.Issue("fakeuser", "sid-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(token, ".")
	other, _ := m.Issue("forrest", "sid-2", time.Now().Add(time.Hour))
	forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]
	if _, err := m.Parse(forged); err == nil {
		t.Fatal("expected forged payload to fail")
	}

	otherKey, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("z", 32)), Issuer: "recoverd"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := otherKey.Parse(token); err == nil {
		t.Fatal("expected wrong key to fail")
	}
}

func TestParseRejectsExpiredAndWrongIssuer(t *testing.T) {
	m := newHSManager(t)

	expired, _ := m.Issue("fakeuser", "sid-1", time.Now().Add(-time.Minute))
	if _, err := m.Parse(expired); err == nil {
		t.Fatal("expected expired token to fail")
	}

	claims := SessionClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "fakeuser",
		Issuer:    "other",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if _, err := m.Parse(tok); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	noExp := SessionClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{Subject: "fakeuser", Issuer: "recoverd"}}
	tok, _ = gjwt.NewWithClaims(gjwt.SigningMethodHS256, noExp).SignedString(testSecret)
	if _, err := m.Parse(tok); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestParseRejectsMissingSubject(t *testing.T) {
	m := newHSManager(t)

	if _, err := m.Issue("", "sid", time.Now().Add(time.Hour)); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject, got %v", err)
	}

	claims := SessionClaims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "fakeuser",
		Issuer:    "recoverd",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if _, err := m.Parse(tok); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected ErrMissingSubject for missing sid, got %v", err)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.Issue("fakeuser", "sid-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(token); err != nil {
		t.Fatalf("ed25519 round trip: %v", err)
	}

	claims := SessionClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "fakeuser",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	hs, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if _, err := m.Parse(hs); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("short")}); err == nil {
		t.Fatal("expected short hs256 key to be rejected")
	}
	if _, err := NewManager(Config{SigningMethod: "none", PrivateKey: testSecret}); err == nil {
		t.Fatal("expected unsupported method to be rejected")
	}
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: time.Hour}); err == nil {
		t.Fatal("expected large leeway to be rejected")
	}
}

// FuzzParse exercises the parser with arbitrary cookie values.
func FuzzParse(f *testing.F) {
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret})
	if err != nil {
		f.Fatal(err)
	}
	valid, err := m.Issue("fakeuser", "sid1", time.Now().Add(time.Hour))
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := m.Parse(input)
		if err != nil {
			return
		}
		if claims == nil || claims.Subject == "" {
			t.Fatal("Parse returned empty claims without error")
		}
	})
}
