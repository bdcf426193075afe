package workflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRequestNotFound is returned when the request does not exist
	ErrRequestNotFound = errors.New("authorization request not found")
)

// ValidationError reports the required intake fields a creation request
// is missing. Nothing is persisted when it is returned.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// IsValidationError reports whether err is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
