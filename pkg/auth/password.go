package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a bcrypt hash of the plain-text password.
func HashPassword(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hash against the plain-text candidate.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashAnswer hashes a security-question answer. Answers are normalised
// (trimmed, case-folded) so "Blue " and "blue" match.
func HashAnswer(answer string) (string, error) {
	return HashPassword(normaliseAnswer(answer))
}

// CheckAnswer is CheckPassword for security answers.
func CheckAnswer(hash, answer string) bool {
	return CheckPassword(hash, normaliseAnswer(answer))
}

func normaliseAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
