// Package utils holds the small cryptographic primitives the storage
// adapter consumes as pure functions: random token generation, keyed
// one-way hashing of one-time tokens, and password hashing for callers
// that want a default implementation.
package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// tokenBytes is the entropy of a generated one-time token.
const tokenBytes = 32

// GenerateToken returns a fresh cryptographically random token as a
// hex-encoded string. The raw token is handed to the caller exactly once;
// only its hash (see HashToken) is ever persisted.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("error generating random token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// HashToken computes the keyed one-way hash of a raw one-time token using
// HMAC-SHA256 and returns it hex-encoded. The same (token, hashKey) pair
// always produces the same digest, so a presented token can be located by
// equality on the stored hash.
func HashToken(token string, hashKey string) string {
	hasher := hmac.New(sha256.New, []byte(hashKey))
	hasher.Write([]byte(token))
	return hex.EncodeToString(hasher.Sum(nil))
}

// HashPassword derives a bcrypt hash from a plaintext password. Provided as
// the default password-hash primitive for callers; the adapter itself only
// ever stores the opaque result.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
