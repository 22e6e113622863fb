package crypto

import (
	"errors"
	"strings"
	"testing"
)

const testSecret = "test-secret-key-for-unit-tests-0123456789"

func TestDeriveKey(t *testing.T) {
	key, err := DeriveKey(testSecret, "oidc-state")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key))
	}

	// Deterministic: same secret and purpose → same key.
	key2, _ := DeriveKey(testSecret, "oidc-state")
	if string(key) != string(key2) {
		t.Fatal("DeriveKey not deterministic")
	}

	// Different purpose → independent key.
	other, _ := DeriveKey(testSecret, "something-else")
	if string(key) == string(other) {
		t.Fatal("purposes should derive different keys")
	}
}

func TestDeriveKeyRequiresInputs(t *testing.T) {
	if _, err := DeriveKey("", "oidc-state"); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := DeriveKey(testSecret, ""); err == nil {
		t.Error("expected error for empty purpose")
	}
}

func TestSealRoundTrip(t *testing.T) {
	s, err := NewSealer(testSecret, "oidc-state")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}

	original := "3f9a|/admin/users?tab=deleted"
	sealed := s.Seal(original)
	if !strings.HasPrefix(sealed, sealedPrefix) || strings.Contains(sealed, original) {
		t.Fatalf("unexpected sealed value %q", sealed)
	}
	if strings.ContainsAny(sealed, "+/=;, ") {
		t.Fatalf("sealed value is not cookie-safe: %q", sealed)
	}

	opened, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != original {
		t.Fatalf("round-trip failed: got %q, want %q", opened, original)
	}

	// Random nonce: sealing twice differs.
	if s.Seal(original) == sealed {
		t.Error("expected different ciphertexts for the same plaintext")
	}
}

func TestOpenRejectsForeignOrTamperedValues(t *testing.T) {
	s, _ := NewSealer(testSecret, "oidc-state")
	other, _ := NewSealer(testSecret, "another-purpose")
	sealed := s.Seal("payload")

	tampered := []byte(sealed)
	mid := len(sealedPrefix) + 5
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	cases := map[string]string{
		"empty":           "",
		"no prefix":       "payload",
		"bad base64":      sealedPrefix + "!!!",
		"tampered":        string(tampered),
		"truncated":       sealed[:len(sealed)-4],
		"other purpose":   other.Seal("payload"),
		"unknown version": "v2." + strings.TrimPrefix(sealed, sealedPrefix),
	}
	for name, value := range cases {
		if _, err := s.Open(value); !errors.Is(err, ErrInvalidSeal) {
			t.Errorf("%s: expected ErrInvalidSeal, got %v", name, err)
		}
	}
}
