package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed API call.
type Kind int

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = iota + 1
	// KindHTTP means the API answered with a 4xx/5xx status.
	KindHTTP
	// KindUnauthorized means the API answered 401; the session has been invalidated.
	KindUnauthorized
	// KindDecode means the response body could not be decoded.
	KindDecode
)

// Sentinel errors matched with errors.Is against *Error.
var (
	ErrNetwork      = errors.New("network error")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error is the normalized failure of an API call. Message is human readable
// and is what gets shown to the user.
type Error struct {
	Err     error
	Message string
	Op      string
	Kind    Kind
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the package sentinels by kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	}

	return false
}

// IsNetwork reports whether err is a network failure (no response).
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}

	return 0
}

// httpMessage picks the text shown for an HTTP error: the envelope error field,
// then its message, then a status line.
func httpMessage(status int, errField, message string) string {
	if errField != "" {
		return errField
	}
	if message != "" {
		return message
	}

	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}
