// Package errors holds the sentinel errors shared by storage backends.
package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data")
	ErrEntityExists = errors.New("entity already exists")
	ErrClosed       = errors.New("storage closed")
)
