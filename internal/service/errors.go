package service

import (
	"errors"
	"fmt"
)

// Every error returned by the ledger components wraps one of these.
var (
	ErrValidation             = errors.New("validation failed")
	ErrConflict               = errors.New("already exists")
	ErrNotFound               = errors.New("not found")
	ErrAuthenticationRequired = errors.New("api key required")
	ErrAuthorization          = errors.New("invalid api key")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
