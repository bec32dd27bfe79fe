package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint computes the SHA256 hex digest of submitted key material.
// It is the only form of a vendor key that leaves the secrets layer for
// logging and stats purposes; the plaintext never does.
func Fingerprint(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// ShortFingerprint returns the first 16 hex chars, enough for log correlation.
func ShortFingerprint(key string) string {
	return Fingerprint(key)[:16]
}
