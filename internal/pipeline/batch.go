package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of targets processed at once.
const DefaultConcurrency = 2

// BatchProcessor runs one pipeline per target with bounded concurrency.
// A failed target never cancels the others; its error stays on its Run.
type BatchProcessor struct {
	// pipelineFactory builds a fresh pipeline for each target.
	pipelineFactory func(target string) *Pipeline

	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(target string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch runs every target and returns their runs in input order.
// The error is non-nil only when ctx was cancelled; targets that never
// started then carry the context error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*Run, error) {
	runs := make([]*Run, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(run *Run, index int) {
		runs[index] = run
	})
	return runs, err
}

// ProcessBatchWithCallback runs every target and calls callback with each
// finished run and its index in targets. The callback is called from the
// goroutine that finished the run, so it must be safe for concurrent use
// when it touches shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(run *Run, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			run := NewRun(target)

			if err := ctx.Err(); err != nil {
				run.Err = err
				callback(run, i)
				return nil
			}

			bp.logger.Info("scraping thread",
				"url", target,
				"index", i+1,
				"total", len(targets),
			)

			if err := bp.pipelineFactory(target).Execute(ctx, run); err != nil {
				bp.logger.Warn("scrape failed",
					"url", target,
					"error", err,
				)
			} else if run.Duplicate {
				bp.logger.Info("scrape skipped", "url", target)
			} else {
				bp.logger.Info("scrape completed", "url", target)
			}

			callback(run, i)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return an error

	bp.logger.Info("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)
	return ctx.Err()
}
