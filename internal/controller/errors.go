package controller

import (
	"errors"
	"fmt"
)

// InputError reports a malformed request from the editor. It is raised
// before anything reaches the store.
type InputError struct {
	// Field names the offending field of the request.
	Field string
	// Message describes what is wrong with it.
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsInputError reports whether err is, or wraps, an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
