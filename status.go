package dardanova

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrNoUpdates       = Statusf(400, "No updates specified")
	ErrMissingRequired = Statusf(400, "Missing required fields")

	ErrNotFound = Statusf(404, "Not found")

	ErrUnauthenticated    = Statusf(401, "You must be authenticated to do this")
	ErrUserNotFound       = Statusf(400, "No user with that email address")
	ErrInvalidCredentials = Statusf(400, "Invalid email or password")
	ErrReauthFailed       = Statusf(400, "Current password is incorrect")

	ErrUnknownError = Statusf(500, "Unknown error occured")
)

var _ error = &StatusError{}

// StatusError is an error carrying the HTTP status that should be reported to the client.
type StatusError struct {
	Code int
	Text string

	WrappedError error
}

func (s *StatusError) LogValue() slog.Value {
	if s == nil {
		return slog.Value{}
	}
	if s.WrappedError != nil {
		return slog.GroupValue(slog.String("text", s.Text), slog.Any("wrapped", s.WrappedError))
	}
	return slog.StringValue(s.Text)
}

func (s *StatusError) Error() string {
	if s.WrappedError != nil {
		return fmt.Sprintf("%s: %v", s.Text, s.WrappedError)
	}
	return s.Text
}

func (s *StatusError) Unwrap() error {
	return s.WrappedError
}

func (s *StatusError) Is(target error) bool {
	if err, ok := target.(*StatusError); ok {
		return err.Text == s.Text && err.Code == s.Code
	}
	return false
}

// Message returns the text without the wrapped error, safe to show to a visitor.
func (s *StatusError) Message() string {
	return s.Text
}

func Statusf(status int, format string, args ...any) *StatusError {
	return &StatusError{Code: status, Text: fmt.Sprintf(format, args...)}
}

// WrapError wraps err with a human readable text.
// Status errors keep their code, everything else is reported as 500.
func WrapError(err error, text string) *StatusError {
	if err == nil {
		return nil
	}
	code := 500
	var err2 *StatusError
	if errors.As(err, &err2) {
		code = err2.Code
	}
	return &StatusError{Code: code, Text: text, WrappedError: err}
}

func ErrorCode(err error) int {
	if err == nil {
		return 200
	}
	var err2 *StatusError
	if errors.As(err, &err2) {
		return err2.Code
	}
	return 500
}

// ErrorMessage returns the visitor-facing message of the outermost status error in err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var err2 *StatusError
	if errors.As(err, &err2) {
		return err2.Message()
	}
	return ErrUnknownError.Text
}
