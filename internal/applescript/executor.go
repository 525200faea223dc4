package applescript

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/profitble/bridge/internal/metrics"
)

// Executor retries fallible external commands with exponential backoff. It
// holds no mutable state across calls, so concurrent Execute calls for
// different recipients are safe; ordering sends to one recipient is the
// caller's job.
type Executor struct {
	runner     Runner
	maxRetries int
	baseDelay  time.Duration
	logger     zerolog.Logger
}

// NewExecutor creates an executor. maxRetries is the total attempt budget
// (minimum 1); baseDelay seeds the backoff schedule.
func NewExecutor(runner Runner, maxRetries int, baseDelay time.Duration, logger zerolog.Logger) *Executor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Executor{
		runner:     runner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// backoffDelay returns baseDelay * 2^attempt, attempt zero-based.
func (e *Executor) backoffDelay(attempt int) time.Duration {
	return e.baseDelay << uint(attempt)
}

// Execute runs the command until it succeeds or the retry budget is spent.
// Failures never propagate past this boundary; the result is a boolean. The
// backoff sleep is cancellable through ctx, while an attempt already handed
// to the runner finishes on its own so the Messages UI is not left mid-action.
func (e *Executor) Execute(ctx context.Context, cmd Command) bool {
	script := cmd.Script()

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		e.logger.Debug().
			Str("command", cmd.Kind.String()).
			Int("attempt", attempt+1).
			Int("max_attempts", e.maxRetries).
			Msg("executing command")

		err := e.runner.Run(ctx, script)
		if err == nil {
			e.logger.Info().
				Str("command", cmd.Kind.String()).
				Str("recipient", cmd.Recipient).
				Msg("command succeeded")
			return true
		}
		e.logger.Error().
			Err(err).
			Str("command", cmd.Kind.String()).
			Int("attempt", attempt+1).
			Msg("command failed")

		if attempt == e.maxRetries-1 {
			break
		}

		metrics.SendRetries.Inc()
		delay := e.backoffDelay(attempt)
		e.logger.Info().Dur("delay", delay).Msg("retrying after backoff")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}
	}

	e.logger.Error().
		Str("command", cmd.Kind.String()).
		Str("recipient", cmd.Recipient).
		Int("attempts", e.maxRetries).
		Msg("command exhausted retries")
	return false
}
