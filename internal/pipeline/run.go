package pipeline

import (
	"github.com/nao1215/darkthread/internal/model"
)

// Run is the state of one scrape. It is owned by the goroutine executing
// its pipeline.
type Run struct {
	// Target is the thread URL.
	Target string

	// Capture is the fetched page.
	Capture *model.RawCapture

	// Attempts is the number of fetch attempts made.
	Attempts int

	// Files are the artifact paths reserved for this run.
	Files model.ArtifactPaths

	// Duplicate is set when the page body was already processed.
	Duplicate bool

	// Document is the extracted thread.
	Document *model.Document

	// Report is the synthesized report. Once set it is not modified, even
	// when a later write fails.
	Report *model.Report

	// HistoryID is the database ID of the stored run, 0 if not stored.
	HistoryID int64

	// NewPosts is the number of posts the history had not seen before.
	NewPosts int

	// Steps lists the steps that completed, in order.
	Steps []string

	// Warnings collects errors of optional steps.
	Warnings []error

	// Err is the error that ended the run.
	Err error
}

// NewRun returns a Run for target.
func NewRun(target string) *Run {
	return &Run{Target: target}
}

// Failed reports whether the run ended with an error.
func (r *Run) Failed() bool {
	return r.Err != nil
}

// Done reports whether the run needs no further steps.
func (r *Run) Done() bool {
	return r.Duplicate
}
