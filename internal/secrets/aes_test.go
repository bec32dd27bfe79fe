package secrets

import (
	"encoding/base64"
	"strings"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestAESStoreRoundTrip(t *testing.T) {
	store, err := NewAESStore(testKeyHex)
	if err != nil {
		t.Fatalf("NewAESStore() error = %v", err)
	}

	plaintexts := []string{
		"sk-live-abc123def456",
		"",
		"xi-0123456789abcdef",
		strings.Repeat("k", 4096),
	}

	for _, pt := range plaintexts {
		ct, err := store.Encrypt(pt)
		if err != nil {
			t.Fatalf("Encrypt(%q) error = %v", pt, err)
		}
		if ct == pt && pt != "" {
			t.Errorf("Encrypt(%q) returned plaintext", pt)
		}

		got, err := store.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt() error = %v", err)
		}
		if got != pt {
			t.Errorf("round trip = %q, want %q", got, pt)
		}
	}
}

func TestAESStoreNonceUniqueness(t *testing.T) {
	store, err := NewAESStore(testKeyHex)
	if err != nil {
		t.Fatalf("NewAESStore() error = %v", err)
	}

	a, _ := store.Encrypt("same input")
	b, _ := store.Encrypt("same input")
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical ciphertexts")
	}
}

func TestNewAESStoreKeyFormats(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"hex", testKeyHex, false},
		{"base64 std", base64.StdEncoding.EncodeToString(raw), false},
		{"base64 raw", base64.RawStdEncoding.EncodeToString(raw), false},
		{"empty", "", true},
		{"too short", "abcd", true},
		{"wrong length hex", strings.Repeat("ab", 16), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAESStore(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAESStore(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	store, _ := NewAESStore(testKeyHex)

	if _, err := store.Decrypt("not base64!!"); err == nil {
		t.Error("Decrypt accepted invalid base64")
	}
	if _, err := store.Decrypt(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Error("Decrypt accepted ciphertext shorter than nonce")
	}
}

func TestPlaintextStore(t *testing.T) {
	var store SecretStore = PlaintextStore{}

	ct, err := store.Encrypt("sk-abc")
	if err != nil || ct != "sk-abc" {
		t.Errorf("Encrypt = (%q, %v), want passthrough", ct, err)
	}
	pt, err := store.Decrypt("sk-abc")
	if err != nil || pt != "sk-abc" {
		t.Errorf("Decrypt = (%q, %v), want passthrough", pt, err)
	}
}
