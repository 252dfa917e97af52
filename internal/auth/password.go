package auth

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// studentTokenLength is the fixed size of generated login tokens, in hex chars.
const studentTokenLength = 10

// HashPassword returns the bcrypt hash of a plaintext password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext password matches the hash
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewStudentToken generates a short opaque login handle from uuid hex.
// Uniqueness is not guaranteed here; the storage layer's unique index is the
// guarantee and callers retry on collision.
func NewStudentToken() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return hex[:studentTokenLength]
}
