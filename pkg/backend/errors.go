package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTimeout           = errors.New("bot service request timed out")
	ErrNoContent         = errors.New("bot service response has no message")
	ErrMalformedResponse = errors.New("bot service response is malformed")
)

// StatusError is returned for error statuses other than 403.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	if e.Body == "" {
		return fmt.Sprintf("bot service returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}

	return fmt.Sprintf("bot service returned %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// StatusCodeFromError returns the HTTP status carried by err, or 0.
func StatusCodeFromError(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
