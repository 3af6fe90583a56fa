package validation

import "errors"

// ErrInvalid is the cause of every validation Error.
var ErrInvalid = errors.New("validation failed")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Error carries the field errors of a rejected value.
type Error struct {
	Err    error
	Fields []FieldError
}

// NewError wraps err with the given field errors.
func NewError(err error, flds ...FieldError) *Error {
	return &Error{Err: err, Fields: flds}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError reports whether err is a validation Error and returns it.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
