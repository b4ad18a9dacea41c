// Package common defines shared constants and sentinel errors used across
// the userhub server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrEmailRegistered = errors.New("email registered")
	ErrInvalidInput    = errors.New("invalid input")

	// Storage setup errors.
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
)
