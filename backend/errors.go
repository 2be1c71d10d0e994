package backend

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a response body cannot be decoded or
// lacks the field its handler needs.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError reports a non-success HTTP status
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
