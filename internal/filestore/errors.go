package filestore

import (
	"errors"
	"fmt"
)

// Validation constraints reported by ValidationError.
const (
	ConstraintSize      = "size"
	ConstraintMimeType  = "mime_type"
	ConstraintExtension = "extension"
	ConstraintName      = "name"
)

// ValidationError reports an upload or update rejected before any disk I/O.
type ValidationError struct {
	Constraint string
	Message    string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(constraint, format string, args ...any) error {
	return &ValidationError{Constraint: constraint, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
