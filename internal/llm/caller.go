// Package llm wraps Genkit model calls with the cross-cutting concerns
// every caller needs: rate limiting, retry with exponential backoff, and
// call logging. Classification, instruction rewriting and chat all route
// through a single Caller so backoff behavior stays consistent.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/datajar/datajar/internal/log"
)

// RetryConfig configures the retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int           // maximum number of retry attempts
	InitialInterval time.Duration // initial backoff interval
	MaxInterval     time.Duration // maximum backoff interval
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Caller executes Genkit generate calls with rate limiting and retry.
// Only idempotent read-style calls belong here; anything with side effects
// must not be retried through a Caller.
type Caller struct {
	g       *genkit.Genkit
	limiter *rate.Limiter
	retry   RetryConfig
	logger  log.Logger
}

// Option configures a Caller.
type Option func(*Caller)

// WithRetryConfig overrides the default retry configuration.
func WithRetryConfig(rc RetryConfig) Option {
	return func(c *Caller) { c.retry = rc }
}

// WithRateLimit caps the sustained request rate with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Caller) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewCaller creates a Caller for the given Genkit instance.
func NewCaller(g *genkit.Genkit, logger log.Logger, opts ...Option) *Caller {
	c := &Caller{
		g:      g,
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate runs genkit.Generate with rate limiting and exponential backoff.
// Each attempt is rate limited individually. Non-retryable errors fail
// immediately; context cancellation aborts the backoff wait.
func (c *Caller) Generate(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
	var lastErr error
	delay := c.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		resp, err := genkit.Generate(ctx, c.g, opts...)
		if err == nil {
			c.logger.Debug("model call succeeded",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return resp, nil
		}

		lastErr = err

		if !retryableError(err) {
			return nil, fmt.Errorf("generate: %w", err)
		}
		if attempt == c.retry.MaxRetries {
			break
		}

		c.logger.Debug("retrying model call",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, c.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		c.retry.MaxRetries, time.Since(start), lastErr)
}
