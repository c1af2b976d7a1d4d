package auth

import (
	"chat-relay/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRequest carries the registration fields the original client sends.
type RegisterRequest struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Number   string `validate:"required"`
	Password string `validate:"required,min=8,max=72"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if !hasLetterAndDigit(req.Password) {
		return errors.ErrInvalidPassword
	}
	return nil
}

func hasLetterAndDigit(s string) bool {
	hasLetter, hasDigit := false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}
