package hrac

import (
	"testing"

	"github.com/manishvishnoi2/nucypher/pkg/pre/umbral"
)

func mustKey(t *testing.T) *umbral.PublicKey {
	t.Helper()
	sk, err := umbral.GenerateSecretKey()
	if err != nil {
		t.Fatalf("GenerateSecretKey: %v", err)
	}
	return sk.PublicKey()
}

func TestDeriveDeterministic(t *testing.T) {
	alice, bob := mustKey(t), mustKey(t)
	h1, err := Derive(alice, bob, []byte("test"))
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	h2, err := Derive(alice, bob, []byte("test"))
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !h1.Equal(h2) {
		t.Fatal("same inputs produced different HRACs")
	}
	if h1.IsZero() {
		t.Fatal("HRAC is zero")
	}
}

func TestDeriveSensitivity(t *testing.T) {
	alice, bob, carol := mustKey(t), mustKey(t), mustKey(t)
	base, _ := Derive(alice, bob, []byte("test"))

	variants := map[string]func() (HRAC, error){
		"label":   func() (HRAC, error) { return Derive(alice, bob, []byte("test2")) },
		"grantee": func() (HRAC, error) { return Derive(alice, carol, []byte("test")) },
		"grantor": func() (HRAC, error) { return Derive(carol, bob, []byte("test")) },
		"swapped": func() (HRAC, error) { return Derive(bob, alice, []byte("test")) },
	}
	for name, fn := range variants {
		h, err := fn()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if h.Equal(base) {
			t.Fatalf("%s change did not change the HRAC", name)
		}
	}
}

func TestDeriveNilKey(t *testing.T) {
	if _, err := Derive(nil, mustKey(t), nil); err != ErrNilKey {
		t.Fatalf("expected ErrNilKey, got %v", err)
	}
}

func TestEncoding(t *testing.T) {
	h, _ := Derive(mustKey(t), mustKey(t), []byte("label"))
	parsed, err := Parse(h.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !parsed.Equal(h) {
		t.Fatal("hex round trip mismatch")
	}
	b := h.Bytes()
	b[0] ^= 0xFF
	if h.Bytes()[0] == b[0] {
		t.Fatal("Bytes returned an alias")
	}
	if _, err := FromBytes(b[:31]); err == nil {
		t.Fatal("expected length error")
	}
}
