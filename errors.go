package esmirror

import "github.com/kailas-cloud/esmirror/internal/domain"

// ErrInvalidState is returned when a request does not match the local mirror
// or an input is unusable. Use errors.Is() to check.
var ErrInvalidState = domain.ErrInvalidState

// Typed errors wrapping ErrInvalidState. Use errors.As() to inspect them.
type (
	InvalidFileError     = domain.InvalidFileError
	UnknownDocumentError = domain.UnknownDocumentError
	UnknownTypeError     = domain.UnknownTypeError
)
