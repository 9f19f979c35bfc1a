package store

import "errors"

var (
	// ErrEmptyRoot is returned when a store is created without a root directory.
	ErrEmptyRoot = errors.New("store root directory is empty")

	// ErrEmptyPath is returned when a write is requested without a path.
	ErrEmptyPath = errors.New("artifact path is empty")
)
