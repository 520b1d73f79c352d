package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexiqai/doc-narrator/internal/observability"
	"github.com/rs/zerolog"
)

// ErrAttemptTimeout is returned when a single attempt exceeds its deadline
var ErrAttemptTimeout = errors.New("attempt timed out")

// ExecutorConfig holds configuration for the resilient call executor
type ExecutorConfig struct {
	MaxAttempts       int           // Attempts before giving up
	Timeout           time.Duration // Hard deadline for a single attempt
	RateLimitCooldown time.Duration // Wait after a rate-limited attempt
}

// DefaultExecutorConfig returns the default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxAttempts:       3,
		Timeout:           60 * time.Second,
		RateLimitCooldown: 61 * time.Second,
	}
}

// Result is the outcome of one attempt: a value when Class is ClassNone,
// otherwise the error and how it was classified.
type Result[T any] struct {
	Value T
	Err   error
	Class ErrorClass
}

// Ok reports whether the attempt succeeded
func (r Result[T]) Ok() bool { return r.Class == ClassNone }

// Stats describes how a call went
type Stats struct {
	Attempts int
	Elapsed  time.Duration
}

// Executor runs remote calls with a per-attempt timeout and bounded retries
type Executor struct {
	name     string
	config   ExecutorConfig
	classify func(error) ErrorClass
	sleep    func(ctx context.Context, d time.Duration) error
	logger   zerolog.Logger
}

// ExecutorOption customizes an Executor
type ExecutorOption func(*Executor)

// WithClassifier replaces ClassifyRemoteError
func WithClassifier(fn func(error) ErrorClass) ExecutorOption {
	return func(e *Executor) { e.classify = fn }
}

// WithSleep replaces the cooldown wait
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) { e.sleep = fn }
}

// WithLogger sets the executor logger
func WithLogger(logger zerolog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor creates a new executor; name labels logs and metrics
func NewExecutor(name string, config ExecutorConfig, opts ...ExecutorOption) *Executor {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	e := &Executor{
		name:     name,
		config:   config,
		classify: ClassifyRemoteError,
		sleep:    sleepContext,
		logger:   observability.Component("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the executor configuration
func (e *Executor) Config() ExecutorConfig { return e.config }

// Do runs op until it succeeds, fails fatally or runs out of attempts.
// Each attempt runs on its own goroutine and races the attempt timeout; a
// result that arrives after the timeout is discarded.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, Stats, error) {
	var zero T
	start := time.Now()
	stats := Stats{}
	var lastErr error

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(start)
			return zero, stats, err
		}

		stats.Attempts = attempt
		res := runAttempt(ctx, e.config.Timeout, e.classify, op)
		observability.RecordRemoteAttempt(e.name, res.Class.String())

		if res.Ok() {
			stats.Elapsed = time.Since(start)
			return res.Value, stats, nil
		}
		lastErr = res.Err

		log := e.logger.With().
			Str("operation", e.name).
			Int("attempt", attempt).
			Int("max_attempts", e.config.MaxAttempts).
			Str("class", res.Class.String()).
			Err(res.Err).
			Logger()

		if ctx.Err() != nil {
			stats.Elapsed = time.Since(start)
			return zero, stats, ctx.Err()
		}

		switch res.Class {
		case ClassFatal:
			log.Error().Msg("Remote call failed with non-retryable error")
			stats.Elapsed = time.Since(start)
			return zero, stats, fmt.Errorf("%s: %w", e.name, res.Err)

		case ClassRateLimited:
			if attempt == e.config.MaxAttempts {
				log.Warn().Msg("Rate limited on final attempt")
				continue
			}
			log.Warn().Dur("cooldown", e.config.RateLimitCooldown).Msg("Rate limited, cooling down")
			observability.RecordRateLimitCooldown(e.name)
			if err := e.sleep(ctx, e.config.RateLimitCooldown); err != nil {
				stats.Elapsed = time.Since(start)
				return zero, stats, err
			}

		case ClassTimeout:
			log.Warn().Dur("timeout", e.config.Timeout).Msg("Attempt timed out, retrying")

		default:
			log.Warn().Msg("Attempt failed, retrying")
		}
	}

	stats.Elapsed = time.Since(start)
	return zero, stats, fmt.Errorf("%s failed after %d attempts: %w", e.name, stats.Attempts, lastErr)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, classify func(error) ErrorClass, op func(ctx context.Context) (T, error)) Result[T] {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so an abandoned attempt can always deliver and exit
	done := make(chan Result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Result[T]{Err: fmt.Errorf("remote call panicked: %v", r), Class: ClassRetryable}
			}
		}()
		v, err := op(attemptCtx)
		if err != nil {
			done <- Result[T]{Err: err, Class: classify(err)}
			return
		}
		done <- Result[T]{Value: v, Class: ClassNone}
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case res := <-done:
		if res.Class == ClassNone && res.Err != nil {
			res.Class = ClassRetryable
		}
		return res
	case <-timer:
		return Result[T]{Err: ErrAttemptTimeout, Class: ClassTimeout}
	case <-ctx.Done():
		return Result[T]{Err: ctx.Err(), Class: ClassFatal}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
