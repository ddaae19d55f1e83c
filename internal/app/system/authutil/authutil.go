// internal/app/system/authutil/authutil.go
package authutil

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Password length bounds. bcrypt ignores bytes past 72.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters")
)

// PasswordRules is the user-facing summary of ValidatePassword.
const PasswordRules = "Passwords are 8 to 72 characters."

// ValidatePassword checks length bounds.
func ValidatePassword(pw string) error {
	switch {
	case len(pw) < MinPasswordLen:
		return ErrPasswordTooShort
	case len(pw) > MaxPasswordLen:
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword returns a bcrypt hash of pw.
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether pw matches hash.
func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
