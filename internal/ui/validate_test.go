package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ada@example.com"))
	assert.ErrorIs(t, ValidateEmail(""), ErrInvalidEmail)
	assert.ErrorIs(t, ValidateEmail("ada"), ErrInvalidEmail)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret"))
	assert.ErrorIs(t, ValidatePassword("12345"), ErrShortPassword)
}

func TestValidateConfirmation(t *testing.T) {
	password := "secret1"
	check := ValidateConfirmation(&password)

	assert.NoError(t, check("secret1"))
	assert.ErrorIs(t, check("secret2"), ErrPasswordsDiffer)
	assert.ErrorIs(t, check("abc"), ErrShortPassword)

	password = "changed"
	assert.NoError(t, check("changed"), "reads the current value")
}

func TestScreenString(t *testing.T) {
	assert.Equal(t, "landing", ScreenLanding.String())
	assert.Equal(t, "reset-password", ScreenResetPassword.String())
	assert.Equal(t, "unknown", Screen(99).String())
}
