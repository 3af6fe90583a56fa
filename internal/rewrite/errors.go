package rewrite

import (
	"errors"
	"net/http"
)

// Failure causes
var (
	ErrTextRequired    = errors.New("text is required")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingAPIKey   = errors.New("no API key configured for provider")
	ErrRateLimited     = errors.New("rate limit exceeded, please try again in a moment")
	ErrPaymentRequired = errors.New("AI credits exhausted, please add funds to continue")
	ErrUpstream        = errors.New("AI service error")
	ErrEmptyCompletion = errors.New("AI service returned no text")
)

// Error is a gateway failure with the HTTP status it maps to
type Error struct {
	Status    int
	Retriable bool
	Err       error
	Detail    string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Err.Error() + ": " + e.Detail
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user
func (e *Error) Message() string {
	return e.Err.Error()
}

func newError(status int, err error, detail string) *Error {
	return &Error{
		Status:    status,
		Retriable: status == http.StatusTooManyRequests,
		Err:       err,
		Detail:    detail,
	}
}

// StatusOf returns the HTTP status for err
func StatusOf(err error) int {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Status
	}
	return http.StatusInternalServerError
}

// IsRetriable reports whether the user may retry the request
func IsRetriable(err error) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Retriable
}

// upstreamError maps a non-2xx upstream status
func upstreamError(status int, body string) *Error {
	switch status {
	case http.StatusTooManyRequests:
		return newError(http.StatusTooManyRequests, ErrRateLimited, body)
	case http.StatusPaymentRequired:
		return newError(http.StatusPaymentRequired, ErrPaymentRequired, body)
	default:
		return newError(http.StatusInternalServerError, ErrUpstream, body)
	}
}
