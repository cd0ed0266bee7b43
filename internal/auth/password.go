package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const minAdminTokenLength = 16

// ValidateAdminToken checks minimal admin token requirements.
func ValidateAdminToken(token string) error {
	if len(strings.TrimSpace(token)) < minAdminTokenLength {
		return fmt.Errorf("admin token must be at least %d characters", minAdminTokenLength)
	}
	return nil
}

// HashAdminToken hashes a plaintext admin token for the config file.
func HashAdminToken(token string) (string, error) {
	if err := ValidateAdminToken(token); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyAdminToken verifies a plaintext token against a bcrypt hash.
func VerifyAdminToken(tokenHash, candidate string) bool {
	if strings.TrimSpace(tokenHash) == "" || candidate == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(candidate)) == nil
}
