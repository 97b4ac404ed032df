package internal

import (
	"strings"
	"testing"
)

func TestRecoveryTokenEncoding(t *testing.T) {
	id, secret, token, err := NewRecoveryToken()
	if err != nil {
		t.Fatalf("NewRecoveryToken failed: %v", err)
	}
	if strings.ContainsAny(token, "+/=") {
		t.Fatalf("token must be URL safe: %q", token)
	}

	gotID, gotSecret, err := DecodeRecoveryToken(token)
	if err != nil {
		t.Fatalf("DecodeRecoveryToken failed: %v", err)
	}
	if gotID != id || gotSecret != secret {
		t.Fatal("decoded token does not match generated parts")
	}

	parsed, err := ParseTokenID(id.String())
	if err != nil || parsed != id {
		t.Fatalf("ParseTokenID round trip failed: %v", err)
	}
}

func TestDecodeRecoveryTokenRejectsWrongSize(t *testing.T) {
	if _, _, err := DecodeRecoveryToken("dG9vLXNob3J0"); err == nil {
		t.Fatal("expected size error")
	}
	if _, err := ParseTokenID("dG9vLXNob3J0"); err == nil {
		t.Fatal("expected size error for token id")
	}
}

func TestHashTokenSecretDiffers(t *testing.T) {
	_, s1, _, _ := NewRecoveryToken()
	_, s2, _, _ := NewRecoveryToken()
	if HashTokenSecret(s1) == HashTokenSecret(s2) {
		t.Fatal("distinct secrets must hash differently")
	}
}

func TestNewCrumb(t *testing.T) {
	a, err := NewCrumb()
	if err != nil {
		t.Fatalf("NewCrumb failed: %v", err)
	}
	b, _ := NewCrumb()
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty crumbs, got %q and %q", a, b)
	}
}
