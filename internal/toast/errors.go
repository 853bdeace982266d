package toast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidArgument is returned by Enqueue when a request fails validation.
var ErrInvalidArgument = errors.New("invalid argument")

// invalidArgument converts a validator failure into an ErrInvalidArgument
// chain naming the offending fields.
func invalidArgument(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	details := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, fmt.Sprintf("%s failed %q", strings.ToLower(e.Field()), e.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidArgument, strings.Join(details, ", "))
}
