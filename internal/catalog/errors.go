package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an entity lookup matches nothing.
var ErrNotFound = errors.New("catalog entity not found")

// RequestError captures the detail of a failed remote catalog call so
// run error messages can name the offending request.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
