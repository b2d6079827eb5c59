// Package github implements a rate-limit-aware client for the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relsync/relsync/internal/config"
	"github.com/relsync/relsync/internal/metrics"
)

const (
	userAgent    = "relsync/1.0"
	acceptHeader = "application/vnd.github.v3+json"

	// Requests kept in reserve before the quota wait kicks in.
	defaultSafetyBuffer = 5

	// Longest acceptable wait for a quota reset; beyond this the call
	// fails fast instead of stalling the whole pass.
	maxQuotaWait = time.Hour

	// Extra slack after the advertised reset instant.
	quotaWaitMargin = 10 * time.Second

	// Backoff units: quota rejections back off in minutes, transient
	// network errors in multiples of five seconds.
	quotaBackoffUnit     = 60 * time.Second
	transientBackoffUnit = 5 * time.Second
)

var (
	// ErrNotFound indicates the requested resource does not exist upstream.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden indicates a definitive rejection unrelated to rate limits.
	ErrForbidden = errors.New("access forbidden")

	// ErrQuotaWaitTooLong indicates the quota reset is further away than the
	// bounded wait ceiling.
	ErrQuotaWaitTooLong = errors.New("rate limit reset too far away")
)

// RequestError carries the last observed status after retries are exhausted.
type RequestError struct {
	URL      string
	Status   int
	Attempts int
	Err      error
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("request to %s failed after %d attempts: HTTP %d", e.URL, e.Attempts, e.Status)
	}
	return fmt.Sprintf("request to %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// RateLimit is a snapshot of the core API quota.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// Client issues GitHub API requests while respecting the upstream quota.
// All waits are bounded and abort when the context is cancelled.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	api        config.APIConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a client. An empty token means anonymous access.
func New(cfg config.GitHubConfig) *Client {
	timeout := cfg.API.RequestTimeout
	if timeout == 0 {
		timeout = config.DefaultRequestTimeout
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}

	if cfg.Token != "" {
		log.Info().Msg("Using authenticated GitHub API access (5000 req/hour)")
	} else {
		log.Info().Msg("Using anonymous GitHub API access (60 req/hour)")
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      cfg.Token,
		api:        cfg.API,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// RateLimit queries the current core API quota.
func (c *Client) RateLimit(ctx context.Context) (*RateLimit, error) {
	req, err := c.newRequest(ctx, c.baseURL+"/rate_limit")
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying rate limit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("querying rate limit: HTTP %d", resp.StatusCode)
	}

	var payload rateLimitResponse
	if err := decodeJSON(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("decoding rate limit response: %w", err)
	}

	rl := &RateLimit{
		Limit:     payload.Rate.Limit,
		Remaining: payload.Rate.Remaining,
		Reset:     time.Unix(payload.Rate.Reset, 0),
	}
	metrics.SetQuotaRemaining(rl.Remaining)
	return rl, nil
}

// waitForQuota blocks until enough quota is available, the bounded ceiling
// is exceeded, or the context is cancelled. With rate limit checks disabled
// it returns immediately.
func (c *Client) waitForQuota(ctx context.Context) error {
	if !c.api.RespectRateLimit {
		return nil
	}

	rl, err := c.RateLimit(ctx)
	if err != nil {
		// The probe itself failing should not block the real request.
		log.Warn().Err(err).Msg("Failed to query rate limit info")
		return nil
	}

	buffer := c.api.SafetyBuffer
	if buffer <= 0 {
		buffer = defaultSafetyBuffer
	}

	if rl.Remaining > buffer {
		return nil
	}

	wait := rl.Reset.Sub(c.now())
	log.Warn().
		Int("remaining", rl.Remaining).
		Time("reset", rl.Reset).
		Msg("API quota nearly exhausted")

	if !c.api.RetryOnLimit || wait <= 0 {
		return nil
	}

	if wait > maxQuotaWait {
		log.Error().
			Dur("wait", wait).
			Msg("Rate limit reset too far away, failing fast")
		return ErrQuotaWaitTooLong
	}

	log.Info().
		Dur("wait", wait+quotaWaitMargin).
		Msg("Waiting for rate limit reset")
	return c.sleep(ctx, wait+quotaWaitMargin)
}

// Get performs a rate-limited GET with retries per the failure taxonomy:
// quota rejections and transient errors back off exponentially, definitive
// client errors fail immediately.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	maxRetries := c.api.MaxRetries
	factor := c.api.BackoffFactor
	if factor < 1 {
		factor = config.DefaultBackoffFactor
	}

	var lastStatus int
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.waitForQuota(ctx); err != nil {
			return nil, err
		}

		req, err := c.newRequest(ctx, url)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			lastStatus = 0
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int("max_attempts", maxRetries+1).
				Str("url", url).
				Msg("Request failed")
			if attempt < maxRetries {
				if serr := c.sleep(ctx, backoff(factor, attempt, transientBackoffUnit)); serr != nil {
					return nil, serr
				}
				continue
			}
			break
		}

		metrics.RecordAPIRequest(resp.StatusCode)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusForbidden:
			body := readBody(resp)
			if strings.Contains(strings.ToLower(body), "rate limit") {
				lastStatus = resp.StatusCode
				lastErr = nil
				log.Warn().
					Int("attempt", attempt+1).
					Str("url", url).
					Msg("Hit API rate limit")
				if attempt < maxRetries {
					if serr := c.sleep(ctx, backoff(factor, attempt, quotaBackoffUnit)); serr != nil {
						return nil, serr
					}
					continue
				}
				break
			}
			log.Error().Str("url", url).Str("body", body).Msg("API access forbidden")
			return nil, fmt.Errorf("%w: %s", ErrForbidden, url)

		case resp.StatusCode == http.StatusNotFound:
			drainBody(resp)
			log.Error().Str("url", url).Msg("Resource not found")
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)

		default:
			// Server-side and unexpected statuses are treated as transient.
			drainBody(resp)
			lastStatus = resp.StatusCode
			lastErr = nil
			log.Warn().
				Int("status", resp.StatusCode).
				Int("attempt", attempt+1).
				Str("url", url).
				Msg("Unexpected response status")
			if attempt < maxRetries {
				if serr := c.sleep(ctx, backoff(factor, attempt, transientBackoffUnit)); serr != nil {
					return nil, serr
				}
				continue
			}
		}
		break
	}

	log.Error().Str("url", url).Msg("Request failed after all retries")
	return nil, &RequestError{
		URL:      url,
		Status:   lastStatus,
		Attempts: maxRetries + 1,
		Err:      lastErr,
	}
}

func (c *Client) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	return req, nil
}

// backoff computes factor^attempt * unit.
func backoff(factor float64, attempt int, unit time.Duration) time.Duration {
	return time.Duration(math.Pow(factor, float64(attempt)) * float64(unit))
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return string(body)
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
