package sudoapi

import (
	"github.com/dardanova/dardanova"
)

var (
	ErrNoUpdates       = dardanova.ErrNoUpdates
	ErrMissingRequired = dardanova.ErrMissingRequired

	ErrNotFound        = dardanova.ErrNotFound
	ErrUnauthenticated = dardanova.ErrUnauthenticated
	ErrUnknownError    = dardanova.ErrUnknownError
)

type StatusError = dardanova.StatusError

// Reimplement Statusf and WrapError functions here for faster reference

func Statusf(status int, format string, args ...any) *StatusError {
	return dardanova.Statusf(status, format, args...)
}

func WrapError(err error, text string) *StatusError {
	return dardanova.WrapError(err, text)
}
