package pipeline

import (
	"context"
	"log/slog"
)

// Step is one stage of a run.
type Step interface {
	// Do executes the step. A returned error ends the run unless the
	// step is optional.
	Do(ctx context.Context, run *Run) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// OptionalStep is implemented by steps whose failure should not end the run.
type OptionalStep interface {
	Step
	Optional() bool
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in sequence until one fails, the run is done or
// ctx is cancelled. The error that ended the run is also stored in run.Err.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"url", run.Target,
				"reason", err,
			)
			run.Err = err
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"url", run.Target,
		)

		if err := step.Do(ctx, run); err != nil {
			if isOptional(step) {
				p.logger.Warn("optional step failed",
					"step", step.Name(),
					"url", run.Target,
					"error", err,
				)
				run.Warnings = append(run.Warnings, err)
				continue
			}

			p.logger.Error("step failed",
				"step", step.Name(),
				"url", run.Target,
				"error", err,
			)
			run.Err = err
			return err
		}

		run.Steps = append(run.Steps, step.Name())

		if run.Done() {
			p.logger.Debug("run finished early",
				"step", step.Name(),
				"url", run.Target,
			)
			return nil
		}
	}
	return nil
}

func isOptional(step Step) bool {
	o, ok := step.(OptionalStep)
	return ok && o.Optional()
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
