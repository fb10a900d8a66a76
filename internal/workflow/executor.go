package workflow

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/logger"
	"github.com/spigell/smart-applier/internal/state"
)

// Option configures a compiled workflow.
type Option func(*Compiled)

// WithLogger sets the logger used by Invoke.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Compiled) {
		c.logger = logger
	}
}

// Compiled is an immutable, executable workflow. It is safe for concurrent
// invocations.
type Compiled struct {
	name   string
	chain  []string
	stages map[string]Stage
	logger *zap.Logger
}

// Status describes one stage of a compiled workflow.
type Status struct {
	Name     string
	Position int
	Next     string
	Details  map[string]string
}

// statusProvider is implemented by stages that can describe their inputs and
// outputs.
type statusProvider interface {
	Details() map[string]string
}

func (c *Compiled) init() {
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
}

// Name returns the workflow name.
func (c *Compiled) Name() string { return c.name }

// Stages returns stage names in execution order.
func (c *Compiled) Stages() []string {
	return slices.Clone(c.chain)
}

// Describe returns status entries for every stage in execution order.
func (c *Compiled) Describe() []Status {
	statuses := make([]Status, 0, len(c.chain))
	for i, name := range c.chain {
		next := End
		if i+1 < len(c.chain) {
			next = c.chain[i+1]
		}

		status := Status{Name: name, Position: i + 1, Next: next}
		if reporter, ok := c.stages[name].(statusProvider); ok {
			status.Details = reporter.Details()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Invoke runs the workflow from its entry stage until End and returns the
// final record. A failing stage stops the run with a *StageExecutionError.
func (c *Compiled) Invoke(ctx context.Context, initial state.Record) (state.Record, error) {
	if err := initial.Validate(); err != nil {
		return state.Record{}, fmt.Errorf("workflow %q: initial state: %w", c.name, err)
	}

	log := c.logger.With(logger.RunFields(c.name, uuid.NewString(), initial.UserID)...)
	log.Info("workflow started", zap.Strings("stages", c.chain), zap.Strings("initial_fields", initial.Fields()))

	started := time.Now()
	current := initial.Clone()
	for _, name := range c.chain {
		if err := ctx.Err(); err != nil {
			return state.Record{}, &StageExecutionError{Graph: c.name, Stage: name, Err: err, Partial: current}
		}

		stageStarted := time.Now()
		update, err := c.runStage(ctx, name, current.Clone())
		if err != nil {
			log.Error("stage failed",
				zap.String(logger.FieldStage, name),
				zap.Duration("duration", time.Since(stageStarted)),
				zap.Error(err),
			)
			return state.Record{}, &StageExecutionError{Graph: c.name, Stage: name, Err: err, Partial: current}
		}

		current = current.Merge(update)
		log.Info("stage finished",
			zap.String(logger.FieldStage, name),
			zap.Duration("duration", time.Since(stageStarted)),
			zap.Strings("written", update.Fields()),
		)
	}

	log.Info("workflow finished",
		zap.Duration("duration", time.Since(started)),
		zap.Strings("fields", current.Fields()),
	)

	return current, nil
}

func (c *Compiled) runStage(ctx context.Context, name string, in state.Record) (out state.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return c.stages[name].Run(ctx, in)
}
