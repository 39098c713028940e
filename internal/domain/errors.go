package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a connection signal is not
	// allowed from the current state.
	ErrInvalidTransition = errors.New("invalid connection transition")
	// ErrSuperseded marks an aggregation result replaced by a newer refresh.
	ErrSuperseded = errors.New("aggregation superseded by a newer request")
	// ErrSourceUnavailable wraps failures of a domain data source.
	ErrSourceUnavailable = errors.New("data source unavailable")
)

// ValidationError reports a malformed layout mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
