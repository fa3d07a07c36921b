package storage

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost matches the work factor the service has always used for
// stored credentials. Raising it only affects newly created hashes.
const passwordHashCost = 10

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func verifyPassword(encodedHash, candidate string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(candidate))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("verify password: %w", err)
	}
	return nil
}
