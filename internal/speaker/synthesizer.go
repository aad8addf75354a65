package speaker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"hearsay/internal/types"
)

// Synthesizer converts notification text into raw 16-bit mono PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// RetryPolicy configures retry behavior for the HTTP synthesizer.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns defaults tuned for an interactive pipeline: a
// notification delayed past a few seconds is better skipped than spoken late.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinWait:    200 * time.Millisecond,
		MaxWait:    2 * time.Second,
	}
}

// HTTPSynthesizer calls an HTTP TTS endpoint, wrapping every request in a
// circuit breaker so a dead provider degrades the pipeline to log-only
// delivery instead of stalling the consumer on timeouts.
type HTTPSynthesizer struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	retry   RetryPolicy
	sleepFn func(time.Duration)
}

var _ Synthesizer = (*HTTPSynthesizer)(nil)

// HTTPSynthesizerOption is a functional option for NewHTTPSynthesizer.
type HTTPSynthesizerOption func(*HTTPSynthesizer)

// WithSleepFunc overrides the sleep between retries. Intended for tests.
func WithSleepFunc(fn func(time.Duration)) HTTPSynthesizerOption {
	return func(s *HTTPSynthesizer) { s.sleepFn = fn }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) HTTPSynthesizerOption {
	return func(s *HTTPSynthesizer) { s.retry = p }
}

// NewHTTPSynthesizer builds a synthesizer posting to the given TTS endpoint.
func NewHTTPSynthesizer(url string, timeout time.Duration, opts ...HTTPSynthesizerOption) *HTTPSynthesizer {
	s := &HTTPSynthesizer{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		retry:   DefaultRetryPolicy(),
		sleepFn: time.Sleep,
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "tts",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize posts the text and returns the PCM payload, retrying transient
// failures with exponential backoff and full jitter. Circuit breaker open,
// rate limiting, and exhausted retries map to upstream AppError codes.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var lastStatus int
	var lastErr error

	maxAttempts := 1 + s.retry.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		pcm, status, err := s.attempt(ctx, text)
		if err == nil {
			return pcm, nil
		}
		lastStatus, lastErr = status, err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		// Only transient statuses are worth retrying.
		if status != 0 && status != http.StatusTooManyRequests && status < 500 {
			break
		}
		if attempt < maxAttempts-1 {
			s.sleepFn(s.computeBackoff(attempt))
		}
	}

	return nil, s.mapError(lastStatus, lastErr)
}

// attempt performs one breaker-guarded request. The returned status is zero
// for transport-level failures.
func (s *HTTPSynthesizer) attempt(ctx context.Context, text string) ([]byte, int, error) {
	var status int
	pcm, err := s.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBufferString(text))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		if id := types.GetRequestID(ctx); id != "" {
			req.Header.Set("X-Request-ID", id)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("tts provider returned %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	return pcm, status, err
}

// computeBackoff returns the wait before the next attempt: exponential with
// full jitter, clamped to [MinWait, MaxWait].
func (s *HTTPSynthesizer) computeBackoff(attempt int) time.Duration {
	base := float64(s.retry.MinWait) * math.Pow(2, float64(attempt))
	if max := float64(s.retry.MaxWait); base > max {
		base = max
	}
	min := float64(s.retry.MinWait)
	if base <= min {
		return s.retry.MinWait
	}
	return time.Duration(min + rand.Float64()*(base-min))
}

// mapError translates transport failures into domain AppErrors.
func (s *HTTPSynthesizer) mapError(status int, err error) *types.AppError {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return types.NewAppError(types.ErrCodeUpstreamTTS,
			"circuit breaker open; tts provider unavailable", err)
	case status == http.StatusTooManyRequests:
		return types.NewAppError(types.ErrCodeUpstreamRateLimit,
			"tts provider rate limit exceeded", err)
	case status >= 500:
		return types.NewAppError(types.ErrCodeUpstreamTTS,
			fmt.Sprintf("tts provider returned %d after retries", status), err)
	default:
		return types.NewAppError(types.ErrCodeUpstreamTTS, "tts request failed", err)
	}
}
