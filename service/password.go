package service

import (
	"go-auth-api/logger"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword derives a salted bcrypt hash of the password. The work factor
// makes hashing deliberately slow.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), err
}

// CheckPasswordHash reports whether password matches the stored hash. A
// mismatch is a plain false, never an error, and the comparison does not
// short-circuit on the first differing byte.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
