package identifier

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		kind   Kind
		reason Reason
		value  string
	}{
		{name: "empty", input: "", kind: KindInvalid, reason: ReasonEmpty},
		{name: "whitespace", input: " \t\n ", kind: KindInvalid, reason: ReasonEmpty},
		{name: "plain username", input: "fakeuser", kind: KindUsername, value: "fakeuser"},
		{name: "username with dash and underscore", input: "mr-perdido_2", kind: KindUsername, value: "mr-perdido_2"},
		{name: "trimmed username", input: "  forrest  ", kind: KindUsername, value: "forrest"},
		{name: "leading dot", input: ".baduser", kind: KindInvalid, reason: ReasonMalformed, value: ".baduser"},
		{name: "inner dot", input: "bad.user", kind: KindInvalid, reason: ReasonMalformed, value: "bad.user"},
		{name: "space inside", input: "bad user", kind: KindInvalid, reason: ReasonMalformed, value: "bad user"},
		{name: "email", input: "forrest@example.com", kind: KindEmail, value: "forrest@example.com"},
		{name: "email subdomain", input: "a.b+c@mail.boom.co.uk", kind: KindEmail, value: "a.b+c@mail.boom.co.uk"},
		{name: "email without dotted domain", input: "bad@email", kind: KindInvalid, reason: ReasonMalformed, value: "bad@email"},
		{name: "two at signs", input: "a@b@example.com", kind: KindInvalid, reason: ReasonMalformed, value: "a@b@example.com"},
		{name: "empty local part", input: "@example.com", kind: KindInvalid, reason: ReasonMalformed, value: "@example.com"},
		{name: "double dot local", input: "a..b@example.com", kind: KindInvalid, reason: ReasonMalformed, value: "a..b@example.com"},
		{name: "numeric tld", input: "a@example.123", kind: KindInvalid, reason: ReasonMalformed, value: "a@example.123"},
		{name: "hyphen edge label", input: "a@-example.com", kind: KindInvalid, reason: ReasonMalformed, value: "a@-example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			if got.Kind != tt.kind {
				t.Fatalf("Classify(%q).Kind = %v, want %v", tt.input, got.Kind, tt.kind)
			}
			if got.Reason != tt.reason {
				t.Fatalf("Classify(%q).Reason = %v, want %v", tt.input, got.Reason, tt.reason)
			}
			if got.Value != tt.value {
				t.Fatalf("Classify(%q).Value = %q, want %q", tt.input, got.Value, tt.value)
			}
			if got.Valid() != (tt.kind != KindInvalid) {
				t.Fatalf("Valid() mismatch for %q", tt.input)
			}
		})
	}
}

func TestValidUsernameLength(t *testing.T) {
	if !ValidUsername(strings.Repeat("a", MaxUsernameLength)) {
		t.Fatal("expected max-length username to be valid")
	}
	if ValidUsername(strings.Repeat("a", MaxUsernameLength+1)) {
		t.Fatal("expected over-long username to be rejected")
	}
}

func TestValidEmailRejectsOverlongAddress(t *testing.T) {
	local := strings.Repeat("a", 64)
	domain := strings.Repeat("b", 60) + "." + strings.Repeat("c", 60) + "." + strings.Repeat("d", 60) + "." + strings.Repeat("e", 60) + ".com"
	if ValidEmail(local + "@" + domain) {
		t.Fatal("expected address longer than 254 bytes to be rejected")
	}
}

func TestKindString(t *testing.T) {
	if KindEmail.String() != "email" || KindUsername.String() != "username" || KindInvalid.String() != "invalid" {
		t.Fatal("unexpected Kind string values")
	}
}
