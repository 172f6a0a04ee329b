package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to self registration and the seeded admin.
const MinPasswordLength = 8

var ErrWeakPassword = errors.New("password must be 8 to 72 bytes long")

// ValidatePassword enforces the length bounds; bcrypt ignores bytes past 72.
func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLength || len(pw) > 72 {
		return ErrWeakPassword
	}
	return nil
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword returns nil when pw matches the stored hash.
func CheckPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}
