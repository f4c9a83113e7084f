package authkit

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for stored password hashes.
const PasswordCost = 10

// ErrMalformedCredential indicates a stored hash that bcrypt cannot parse.
var ErrMalformedCredential = errors.New("password.malformed_hash")

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("password.hash: %w", err)
	}
	return string(hashed), nil
}

// CheckPasswordHash reports whether password matches hash. A mismatch is
// false with a nil error; an unparseable hash yields ErrMalformedCredential.
func CheckPasswordHash(password string, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("password.check: %w: %v", ErrMalformedCredential, err)
}
