package database

import "errors"

var (
	// ErrNotFound is returned when the database file does not exist and
	// Options.CreateIfNotExists is false.
	ErrNotFound = errors.New("history database not found")

	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrNilReport is returned by SaveRun for a nil report.
	ErrNilReport = errors.New("report is nil")
)
