package ui

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is the shortest password the forms accept.
const MinPasswordLength = 6

var fieldValidator = validator.New()

// Form field errors, worded for display.
var (
	ErrInvalidEmail    = errors.New("Please enter a valid email address")
	ErrShortPassword   = errors.New("Password must be at least 6 characters")
	ErrPasswordsDiffer = errors.New("Passwords don't match")
)

// ValidateEmail checks an email field.
func ValidateEmail(s string) error {
	if err := fieldValidator.Var(s, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword checks a password field.
func ValidatePassword(s string) error {
	if err := fieldValidator.Var(s, "min=6"); err != nil {
		return ErrShortPassword
	}
	return nil
}

// ValidateConfirmation returns a validator for a confirmation field that
// must be a valid password equal to *password.
func ValidateConfirmation(password *string) func(string) error {
	return func(s string) error {
		if err := ValidatePassword(s); err != nil {
			return err
		}
		if s != *password {
			return ErrPasswordsDiffer
		}
		return nil
	}
}
