// Package security implements password hashing and verification using
// bcrypt. The hash string embeds its own salt and cost, so verification is
// self-describing.
package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type PasswordHasher struct {
	cost int
}

func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.DefaultCost}
}

// Hash salts and hashes the cleartext password. The same cleartext produces
// a different hash on every call (the salt varies); Verify still succeeds
// for any of them.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether the cleartext password matches the stored hash.
// Malformed hashes yield false, never an error. The comparison is
// constant-time with respect to where a mismatch occurs.
func (h *PasswordHasher) Verify(password string, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
