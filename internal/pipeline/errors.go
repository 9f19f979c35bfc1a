package pipeline

import "errors"

var (
	// ErrNoCapture is returned by steps that run before anything was fetched.
	ErrNoCapture = errors.New("run has no capture")

	// ErrNoDocument is returned by steps that run before extraction.
	ErrNoDocument = errors.New("run has no extracted document")

	// ErrNoReport is returned by steps that run before synthesis.
	ErrNoReport = errors.New("run has no report")

	// ErrNoArtifactPaths is returned when artifact paths were not reserved.
	ErrNoArtifactPaths = errors.New("run has no artifact paths")
)
