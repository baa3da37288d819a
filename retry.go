package xoblog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xostack/xoblog/apierr"
	"github.com/xostack/xoblog/config"
)

// RetryPolicy bounds how a failed generation is retried.
//
// Rate limits are retried up to MaxRateLimitRetries times with exponential
// backoff starting at Backoff (or the provider's Retry-After, if given),
// capped at MaxBackoff. Timeouts are retried TimeoutRetries times without
// delay. Every other failure is returned immediately.
type RetryPolicy struct {
	MaxRateLimitRetries int
	Backoff             time.Duration
	MaxBackoff          time.Duration
	TimeoutRetries      int
	// RequestTimeout bounds each attempt. 0 leaves it to the provider.
	RequestTimeout time.Duration
}

// DefaultRetryPolicy returns the policy used when nothing is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRateLimitRetries: 3,
		Backoff:             1 * time.Second,
		MaxBackoff:          30 * time.Second,
		TimeoutRetries:      1,
		RequestTimeout:      60 * time.Second,
	}
}

// PolicyFromConfig derives a RetryPolicy from the [retry] section and the
// request timeout of cfg.
func PolicyFromConfig(cfg config.Config) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRateLimitRetries = cfg.Retry.MaxRateLimitRetries
	p.TimeoutRetries = cfg.Retry.TimeoutRetries
	p.Backoff = time.Duration(cfg.Retry.BackoffSeconds) * time.Second
	if cfg.RequestTimeoutSeconds > 0 {
		p.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}
	return p
}

type retryClient struct {
	Client
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps c so that every Generate call follows policy.
func WithRetry(c Client, policy RetryPolicy) Client {
	return &retryClient{Client: c, policy: policy, sleep: sleepContext}
}

func (r *retryClient) Generate(ctx context.Context, prompt string) (string, error) {
	rateRetries, timeoutRetries := 0, 0

	for attempt := 1; ; attempt++ {
		text, err := r.attempt(ctx, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", err
		}

		if !apierr.IsRetryable(err) {
			return "", giveUp(attempt, err)
		}

		var delay time.Duration
		switch {
		case errors.Is(err, apierr.ErrRateLimited) && rateRetries < r.policy.MaxRateLimitRetries:
			delay = r.backoff(rateRetries, apierr.RetryAfter(err))
			rateRetries++
		case errors.Is(err, apierr.ErrGenerationTimeout) && timeoutRetries < r.policy.TimeoutRetries:
			timeoutRetries++
		default:
			return "", giveUp(attempt, err)
		}

		log.Warn().Err(err).Str("provider", r.ProviderName()).Int("attempt", attempt).
			Dur("delay", delay).Msg("generation failed, retrying")
		if err := r.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

func giveUp(attempts int, err error) error {
	if attempts > 1 {
		return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
	}
	return err
}

func (r *retryClient) attempt(ctx context.Context, prompt string) (string, error) {
	if r.policy.RequestTimeout <= 0 {
		return r.Client.Generate(ctx, prompt)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.RequestTimeout)
	defer cancel()

	text, err := r.Client.Generate(attemptCtx, prompt)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) &&
		!errors.Is(err, apierr.ErrGenerationTimeout) {
		return "", apierr.Wrap(apierr.ErrGenerationTimeout, r.ProviderName(), err)
	}
	return text, err
}

func (r *retryClient) backoff(retry int, retryAfter time.Duration) time.Duration {
	delay := r.policy.Backoff << retry
	if retryAfter > delay {
		delay = retryAfter
	}
	if r.policy.MaxBackoff > 0 && delay > r.policy.MaxBackoff {
		delay = r.policy.MaxBackoff
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
