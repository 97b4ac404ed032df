package session

import (
	"strings"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	in := &Session{
		SessionID: "ignored",
		Name:      "forrest",
		IPHash:    [32]byte{1, 2, 3},
		CreatedAt: 1700000000,
		ExpiresAt: 1700003600,
	}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.SessionID != "" {
		t.Fatalf("session id must come from the key, got %q", out.SessionID)
	}
	out.SessionID = in.SessionID
	if *out != *in {
		t.Fatalf("mismatch: %+v vs %+v", out, in)
	}

	if _, err := Decode(append(data, 0)); err == nil {
		t.Fatal("expected trailing byte error")
	}
	if _, err := Encode(&Session{Name: strings.Repeat("a", 256)}); err == nil {
		t.Fatal("expected long name error")
	}
}

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	_, err := Decode([]byte{99})
	if err == nil || !strings.Contains(err.Error(), "unsupported session schema version") {
		t.Fatalf("expected unsupported schema version error, got %v", err)
	}
}

// FuzzSessionDecode exercises the binary session decoder with arbitrary inputs.
func FuzzSessionDecode(f *testing.F) {
	encoded, err := Encode(&Session{Name: "fakeuser", CreatedAt: 1700000000, ExpiresAt: 1700003600})
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:10])
	}
	f.Add([]byte{})
	f.Add([]byte{1})
	f.Add([]byte{255, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(s); err != nil {
			t.Fatalf("re-encode of decoded session failed: %v", err)
		}
	})
}
