// internal/app/system/authutil/password.go
package authutil

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Share password limits. bcrypt ignores input past 72 bytes, so longer
// passwords are rejected rather than silently truncated.
const (
	MinPasswordLength = 4
	MaxPasswordLength = 72
	DefaultBcryptCost = 12
)

// Password validation errors
var (
	ErrPasswordTooShort = errors.New("share password must be at least 4 characters")
	ErrPasswordTooLong  = errors.New("share password must be at most 72 bytes")
)

// ValidatePassword checks if a share password meets the length requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// Hasher hashes and checks share passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. A cost outside bcrypt's range falls back to
// DefaultBcryptCost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return Hasher{cost: cost}
}

// Hash hashes a password. Validate it with ValidatePassword first.
func (h Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Check compares a plain-text password with a bcrypt hash.
func (h Hasher) Check(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
