package taskapp

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// ValidPassword is the password acceptance rule applied at signup and
// on password updates: at least 7 characters and not containing the
// literal word "password" in any casing.
func ValidPassword() validation.Rule {
	return validation.By(func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return ErrNoEmptyString
		}
		if len(s) < 7 {
			return errors.New("password must be at least 7 characters", errors.CategoryValidation)
		}
		if strings.Contains(strings.ToLower(s), "password") {
			return errors.New(`password cannot contain "password"`, errors.CategoryValidation)
		}
		return nil
	})
}
