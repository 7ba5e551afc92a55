package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidState signals that a request does not match the local mirror, or that an
// input such as a bulk-load file is unusable.
var ErrInvalidState = errors.New("invalid local state or input")

// InvalidFileError wraps ErrInvalidState with the offending bulk-load path.
type InvalidFileError struct {
	Path string
}

func (e *InvalidFileError) Error() string {
	return fmt.Sprintf("%s is not a valid file: %s", e.Path, ErrInvalidState.Error())
}

func (e *InvalidFileError) Unwrap() error { return ErrInvalidState }

// NewInvalidFile creates an invalid file error.
func NewInvalidFile(path string) error {
	return &InvalidFileError{Path: path}
}

// UnknownDocumentError reports a read against a triple the mirror has never seen.
type UnknownDocumentError struct {
	Index string
	Type  string
	ID    int
}

func (e *UnknownDocumentError) Error() string {
	return fmt.Sprintf("%s/%s/%d is not in the mirror: %s", e.Index, e.Type, e.ID, ErrInvalidState.Error())
}

func (e *UnknownDocumentError) Unwrap() error { return ErrInvalidState }

// UnknownTypeError reports a search against an index/type pair without known ids.
type UnknownTypeError struct {
	Index string
	Type  string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("%s/%s has no documents in the mirror: %s", e.Index, e.Type, ErrInvalidState.Error())
}

func (e *UnknownTypeError) Unwrap() error { return ErrInvalidState }
