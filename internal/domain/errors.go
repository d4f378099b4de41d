package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidOrExpired   = errors.New("invalid or expired")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUpstream           = errors.New("upstream failure")
)

// Error pairs a taxonomy kind with the message shown to the end user.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func E(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches a cause that is logged but not shown to the client.
func Wrap(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// MessageOf returns the user-facing message of err, or fallback.
func MessageOf(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}
