package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/platformbuilds/vigilante-core/internal/logging"
	"github.com/platformbuilds/vigilante-core/internal/metrics"
)

// minRetryWait is the floor of the wait between attempts, in units.
const minRetryWait = 0.1

// RetryingAdvisor retries a failed Complete up to maxAttempts times,
// waiting base^(attempt-1) seconds (at least 100ms) after failed attempt n.
type RetryingAdvisor struct {
	next        AdvisorService
	maxAttempts int
	base        float64
	unit        time.Duration
	logger      logging.Logger
}

func NewRetryingAdvisor(next AdvisorService, maxAttempts int, base float64, logger logging.Logger) *RetryingAdvisor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryingAdvisor{
		next:        next,
		maxAttempts: maxAttempts,
		base:        base,
		unit:        time.Second,
		logger:      logging.OrNop(logger),
	}
}

// powerBackOff yields base^(n-1) units for the n-th retry.
type powerBackOff struct {
	base    float64
	unit    time.Duration
	attempt int
}

func (b *powerBackOff) Reset() { b.attempt = 0 }

func (b *powerBackOff) NextBackOff() time.Duration {
	b.attempt++
	wait := math.Max(minRetryWait, math.Pow(b.base, float64(b.attempt-1)))
	return time.Duration(wait * float64(b.unit))
}

func (r *RetryingAdvisor) Complete(ctx context.Context, prompt string) (*AdvisorResponse, error) {
	provider := r.next.GetProviderName()
	start := time.Now()
	attempt := 0

	resp, err := backoff.Retry(ctx, func() (*AdvisorResponse, error) {
		attempt++
		return r.next.Complete(ctx, prompt)
	},
		backoff.WithBackOff(&powerBackOff{base: r.base, unit: r.unit}),
		backoff.WithMaxTries(uint(r.maxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			metrics.AdvisorRetries.WithLabelValues(provider).Inc()
			r.logger.Warn("Advisor request failed, retrying",
				"provider", provider,
				"attempt", attempt,
				"max_attempts", r.maxAttempts,
				"wait", wait.String(),
				"error", err)
		}),
	)

	metrics.AdvisorRequestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AdvisorRequestsTotal.WithLabelValues(provider, "error").Inc()
		return nil, fmt.Errorf("advisor request failed after %d attempts: %w", attempt, err)
	}

	metrics.AdvisorRequestsTotal.WithLabelValues(provider, "success").Inc()
	metrics.AdvisorTokensUsed.WithLabelValues(provider).Add(float64(resp.TokensUsed))
	return resp, nil
}

func (r *RetryingAdvisor) GetProviderName() string { return r.next.GetProviderName() }

func (r *RetryingAdvisor) GetModelName() string { return r.next.GetModelName() }
