package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nao1215/darkthread/internal/database"
	"github.com/nao1215/darkthread/internal/dedup"
	"github.com/nao1215/darkthread/internal/fetch"
	"github.com/nao1215/darkthread/internal/forum"
	"github.com/nao1215/darkthread/internal/model"
	"github.com/nao1215/darkthread/internal/report"
	"github.com/nao1215/darkthread/internal/store"
)

// Fetcher retrieves one page. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetch.Result
}

// History persists finished reports. *database.ThreadDB implements it.
type History interface {
	SaveRun(ctx context.Context, report *model.Report) (database.SaveResult, error)
}

// Seen is a Deduplicator that can be shared by the runs of a batch.
type Seen struct {
	mu sync.Mutex
	d  *dedup.Deduplicator
}

// NewSeen returns an empty Seen.
func NewSeen() *Seen {
	return &Seen{d: dedup.New()}
}

// IsNew records fp and reports whether it was unseen.
func (s *Seen) IsNew(fp uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.IsNewFingerprint(fp)
}

// Len returns the number of distinct fingerprints recorded.
func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Len()
}

// FetchStep downloads the target page.
type FetchStep struct {
	fetcher Fetcher
}

// NewFetchStep creates a fetch step.
func NewFetchStep(fetcher Fetcher) *FetchStep {
	return &FetchStep{fetcher: fetcher}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do fetches run.Target into run.Capture.
func (s *FetchStep) Do(ctx context.Context, run *Run) error {
	res := s.fetcher.Fetch(ctx, run.Target)
	run.Attempts = res.Attempts
	if !res.OK() {
		if res.Err == nil {
			return fmt.Errorf("failed to fetch %s: %w", run.Target, ErrNoCapture)
		}
		return fmt.Errorf("failed to fetch %s: %w", run.Target, res.Err)
	}
	run.Capture = res.Capture
	return nil
}

// ArchiveStep reserves the run's artifact paths and stores the raw capture.
type ArchiveStep struct {
	store *store.Store
}

// NewArchiveStep creates an archive step.
func NewArchiveStep(st *store.Store) *ArchiveStep {
	return &ArchiveStep{store: st}
}

// Name returns the step name.
func (s *ArchiveStep) Name() string {
	return "archive_raw"
}

// Do writes the capture bytes unchanged to the raw HTML path.
func (s *ArchiveStep) Do(_ context.Context, run *Run) error {
	if run.Capture == nil {
		return ErrNoCapture
	}
	run.Files = s.store.Reserve(run.Capture.Timestamp())
	if err := s.store.SaveRaw(run.Files.RawHTML, run.Capture.Raw); err != nil {
		return fmt.Errorf("failed to archive capture: %w", err)
	}
	return nil
}

// DedupStep ends the run when the same page body was already processed.
type DedupStep struct {
	seen   *Seen
	logger *slog.Logger
}

// DedupStepOption configures a DedupStep.
type DedupStepOption func(*DedupStep)

// WithDedupLogger sets a custom logger for the dedup step.
func WithDedupLogger(logger *slog.Logger) DedupStepOption {
	return func(s *DedupStep) {
		s.logger = logger
	}
}

// NewDedupStep creates a dedup step backed by seen.
func NewDedupStep(seen *Seen, opts ...DedupStepOption) *DedupStep {
	s := &DedupStep{
		seen:   seen,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *DedupStep) Name() string {
	return "dedup_check"
}

// Do fingerprints the decoded body.
func (s *DedupStep) Do(_ context.Context, run *Run) error {
	if run.Capture == nil {
		return ErrNoCapture
	}
	fp := dedup.Fingerprint(run.Capture.Body)
	if !s.seen.IsNew(fp) {
		s.logger.Info("skipping duplicate page",
			"url", run.Target,
			"hash", dedup.ShortHash(fp),
		)
		run.Duplicate = true
	}
	return nil
}

// ExtractStep turns the capture into a structured document.
type ExtractStep struct {
	extractor *forum.Extractor
}

// NewExtractStep creates an extract step.
func NewExtractStep(extractor *forum.Extractor) *ExtractStep {
	return &ExtractStep{extractor: extractor}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do never fails on markup: missing structure yields empty fields.
func (s *ExtractStep) Do(_ context.Context, run *Run) error {
	if run.Capture == nil {
		return ErrNoCapture
	}
	run.Document = s.extractor.Extract(run.Capture.Body, run.Capture.URL)
	return nil
}

// SaveParsedStep stores the extracted document as indented JSON.
type SaveParsedStep struct {
	store *store.Store
}

// NewSaveParsedStep creates a save-parsed step.
func NewSaveParsedStep(st *store.Store) *SaveParsedStep {
	return &SaveParsedStep{store: st}
}

// Name returns the step name.
func (s *SaveParsedStep) Name() string {
	return "save_parsed"
}

// Do writes run.Document to the parsed JSON path.
func (s *SaveParsedStep) Do(_ context.Context, run *Run) error {
	if run.Document == nil {
		return ErrNoDocument
	}
	if run.Files.ParsedJSON == "" {
		return ErrNoArtifactPaths
	}
	err := s.store.Write(run.Files.ParsedJSON, func(w io.Writer) error {
		_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).WriteValue(run.Document)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save parsed document: %w", err)
	}
	return nil
}

// SynthesizeStep builds the report from the capture and the document.
type SynthesizeStep struct {
	synthesizer *report.Synthesizer
}

// NewSynthesizeStep creates a synthesize step.
func NewSynthesizeStep(synthesizer *report.Synthesizer) *SynthesizeStep {
	return &SynthesizeStep{synthesizer: synthesizer}
}

// Name returns the step name.
func (s *SynthesizeStep) Name() string {
	return "synthesize"
}

// Do sets run.Report.
func (s *SynthesizeStep) Do(_ context.Context, run *Run) error {
	if run.Capture == nil {
		return ErrNoCapture
	}
	run.Report = s.synthesizer.Synthesize(run.Capture.Meta(), run.Document, run.Files)
	return nil
}

// WriteReportsStep renders the report as JSON and Markdown files.
type WriteReportsStep struct {
	store *store.Store
}

// NewWriteReportsStep creates a write-reports step.
func NewWriteReportsStep(st *store.Store) *WriteReportsStep {
	return &WriteReportsStep{store: st}
}

// Name returns the step name.
func (s *WriteReportsStep) Name() string {
	return "write_reports"
}

// Do writes both renderings. The report itself is left untouched on failure.
func (s *WriteReportsStep) Do(_ context.Context, run *Run) error {
	if run.Report == nil {
		return ErrNoReport
	}
	if run.Files.ReportJSON == "" || run.Files.ReportMarkdown == "" {
		return ErrNoArtifactPaths
	}

	err := s.store.Write(run.Files.ReportJSON, func(w io.Writer) error {
		_, err := report.NewJSONWriter(w, report.WithPrettyPrint()).Write(run.Report)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	err = s.store.Write(run.Files.ReportMarkdown, func(w io.Writer) error {
		_, err := report.NewMarkdownWriter(w).Write(run.Report)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write Markdown report: %w", err)
	}
	return nil
}

// HistoryStep records the report in the history database. It is optional:
// a failure is reported as a warning and the run still succeeds.
type HistoryStep struct {
	history History
	logger  *slog.Logger
}

// HistoryStepOption configures a HistoryStep.
type HistoryStepOption func(*HistoryStep)

// WithHistoryLogger sets a custom logger for the history step.
func WithHistoryLogger(logger *slog.Logger) HistoryStepOption {
	return func(s *HistoryStep) {
		s.logger = logger
	}
}

// NewHistoryStep creates a history step.
func NewHistoryStep(history History, opts ...HistoryStepOption) *HistoryStep {
	s := &HistoryStep{
		history: history,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "persist_history"
}

// Optional reports that a history failure does not fail the run.
func (s *HistoryStep) Optional() bool {
	return true
}

// Do saves run.Report.
func (s *HistoryStep) Do(ctx context.Context, run *Run) error {
	if run.Report == nil {
		return ErrNoReport
	}
	res, err := s.history.SaveRun(ctx, run.Report)
	if err != nil {
		return fmt.Errorf("failed to save run history: %w", err)
	}
	run.HistoryID = res.ID
	run.NewPosts = res.NewPosts

	s.logger.Debug("run saved to history",
		"url", run.Target,
		"id", res.ID,
		"new_posts", res.NewPosts,
		"known_posts", res.KnownPosts,
	)
	return nil
}

// Components are the collaborators of the default pipeline.
type Components struct {
	// Fetcher downloads the target. Required.
	Fetcher Fetcher

	// Store receives the artifacts. Required.
	Store *store.Store

	// Seen is shared by every run of a batch. A nil Seen disables the
	// duplicate check.
	Seen *Seen

	// Extractor defaults to forum.NewExtractor().
	Extractor *forum.Extractor

	// Synthesizer defaults to report.NewSynthesizer().
	Synthesizer *report.Synthesizer

	// History is optional; nil skips the history step.
	History History

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultPipeline creates the standard scrape pipeline:
// fetch, archive raw, dedup check, extract, save parsed, synthesize,
// write reports and, when a history is configured, persist history.
func DefaultPipeline(c Components, opts ...Option) *Pipeline {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	extractor := c.Extractor
	if extractor == nil {
		extractor = forum.NewExtractor(forum.WithLogger(logger))
	}
	synthesizer := c.Synthesizer
	if synthesizer == nil {
		synthesizer = report.NewSynthesizer()
	}

	p := New(append([]Option{WithLogger(logger)}, opts...)...)
	p.AddStep(NewFetchStep(c.Fetcher))
	p.AddStep(NewArchiveStep(c.Store))
	if c.Seen != nil {
		p.AddStep(NewDedupStep(c.Seen, WithDedupLogger(logger)))
	}
	p.AddSteps(
		NewExtractStep(extractor),
		NewSaveParsedStep(c.Store),
		NewSynthesizeStep(synthesizer),
		NewWriteReportsStep(c.Store),
	)
	if c.History != nil {
		p.AddStep(NewHistoryStep(c.History, WithHistoryLogger(logger)))
	}
	return p
}
