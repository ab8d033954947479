// Package otp generates and verifies short-lived numeric one-time passcodes.
// Codes are stored as SHA-256 hashes; the plaintext only exists long enough to
// be delivered to the user.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

const digits = 6

// Generate returns a 6-digit numeric OTP string (e.g. "123456") and its expiry,
// offset from now by the given validity window. Uses crypto/rand for randomness.
func Generate(validity time.Duration) (string, time.Time, error) {
	b := make([]byte, digits)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	s := make([]byte, digits)
	for i := 0; i < digits; i++ {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), time.Now().UTC().Add(validity), nil
}

// Hash returns a SHA-256 hash of the OTP string, hex-encoded.
func Hash(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// Verify reports whether submitted matches the stored hash and has not expired
// as of now. A missing hash or zero expiry never verifies. Comparison is
// constant-time. Verify does not clear the stored code; that is the caller's
// responsibility on success.
func Verify(submitted, storedHash string, expiresAt, now time.Time) bool {
	if storedHash == "" || expiresAt.IsZero() {
		return false
	}
	if now.After(expiresAt) {
		return false
	}
	submittedHash := Hash(submitted)
	return subtle.ConstantTimeCompare([]byte(submittedHash), []byte(storedHash)) == 1
}
