package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"ai-fitness-coach/internal/logger"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds how rate-limited generation calls are retried.
// MaxRetries is in addition to the first call.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
	Sleep      SleepFunc
}

// DefaultRetryPolicy is three retries, starting at 2s and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		Multiplier: 2,
		Sleep:      SleepContext,
	}
}

func (p RetryPolicy) attempts() int {
	return p.MaxRetries + 1
}

// Delay returns the wait before the given retry (1 for the first retry).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(retry-1)))
}

// SleepContext is the production SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryingGenerator decorates a TextGenerator with exponential backoff on
// rate-limit errors. Other errors fail immediately.
type RetryingGenerator struct {
	next   TextGenerator
	policy RetryPolicy
	log    *logger.Logger
	name   string
}

// NewRetryingGenerator wraps next. name is only used in log lines.
func NewRetryingGenerator(name string, next TextGenerator, policy RetryPolicy, log *logger.Logger) *RetryingGenerator {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.Sleep == nil {
		policy.Sleep = SleepContext
	}
	return &RetryingGenerator{
		next:   next,
		policy: policy,
		log:    log.With("generator", name),
		name:   name,
	}
}

func (g *RetryingGenerator) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	var lastErr error
	attempts := g.policy.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := g.next.GenerateContent(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRateLimited(err) {
			return ContentResponse{}, fmt.Errorf("%w: %s: %w", ErrGenerationFailed, g.name, err)
		}
		if attempt == attempts {
			break
		}

		delay := g.policy.Delay(attempt)
		g.log.Warn("rate limited, backing off", "attempt", attempt, "delay", delay, "error", err)
		if err := g.policy.Sleep(ctx, delay); err != nil {
			return ContentResponse{}, fmt.Errorf("%w: %s: %w", ErrGenerationFailed, g.name, err)
		}
	}

	g.log.Error("retry attempts exhausted", "attempts", attempts, "error", lastErr)
	return ContentResponse{}, fmt.Errorf("%w: %s: %w: %w", ErrGenerationFailed, g.name, ErrRetryExhausted, lastErr)
}

// IsRateLimited reports whether err belongs to the rate-limit class.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code == http.StatusTooManyRequests {
		return true
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPCode() == http.StatusTooManyRequests {
		return true
	}

	msg := err.Error()
	return strings.Contains(strings.ToUpper(msg), "RESOURCE_EXHAUSTED") || status429.MatchString(msg)
}

// status429 matches a 429 reported as a status, not any number containing it.
var status429 = regexp.MustCompile(`(?i)(?:\b(?:error|status|code|http)\s*[:=]?\s*429\b|\b429\s+too many requests)`)
