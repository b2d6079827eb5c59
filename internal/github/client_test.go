package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/relsync/relsync/internal/config"
)

func testClient(baseURL string, api config.APIConfig) *Client {
	c := New(config.GitHubConfig{
		Token:   "test-token",
		BaseURL: baseURL,
		API:     api,
	})
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func rateLimitHandler(remaining int, reset time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"rate":{"limit":5000,"remaining":%d,"reset":%d}}`, remaining, reset.Unix())
	}
}

func TestClient_Get_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", rateLimitHandler(4000, time.Now().Add(time.Hour)))
	mux.HandleFunc("/repos/owner/repo/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "token test-token" {
			t.Errorf("Authorization header = %q", got)
		}
		if got := r.Header.Get("Accept"); got != acceptHeader {
			t.Errorf("Accept header = %q", got)
		}
		w.Write([]byte(`{"tag_name":"v1.0.0"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv.URL, config.APIConfig{RespectRateLimit: true, MaxRetries: 3, BackoffFactor: 2})

	resp, err := c.Get(context.Background(), srv.URL+"/repos/owner/repo/releases/latest")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
}

func TestClient_Get_NotFoundFailsImmediately(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL, config.APIConfig{MaxRetries: 3, BackoffFactor: 2})

	_, err := c.Get(context.Background(), srv.URL+"/missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if requests != 1 {
		t.Errorf("404 should not be retried, got %d requests", requests)
	}
}

func TestClient_Get_ForbiddenFailsImmediately(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Must have admin rights"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, config.APIConfig{MaxRetries: 3, BackoffFactor: 2})

	_, err := c.Get(context.Background(), srv.URL+"/private")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("Expected ErrForbidden, got %v", err)
	}
	if requests != 1 {
		t.Errorf("Definitive 403 should not be retried, got %d requests", requests)
	}
}

func TestClient_Get_RateLimit403Backoff(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message":"API rate limit exceeded"}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, config.APIConfig{MaxRetries: 3, BackoffFactor: 2})
	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	resp, err := c.Get(context.Background(), srv.URL+"/thing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	// Quota rejections back off as factor^attempt minutes
	want := []time.Duration{60 * time.Second, 120 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("Expected %d waits, got %v", len(want), waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("Wait %d = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestClient_Get_TransientBackoff(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL, config.APIConfig{MaxRetries: 3, BackoffFactor: 2})
	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := c.Get(context.Background(), srv.URL+"/flaky")

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Expected RequestError, got %v", err)
	}
	if reqErr.Status != http.StatusBadGateway {
		t.Errorf("RequestError.Status = %d, want 502", reqErr.Status)
	}
	if reqErr.Attempts != 4 {
		t.Errorf("RequestError.Attempts = %d, want 4", reqErr.Attempts)
	}
	if requests != 4 {
		t.Errorf("Expected 4 requests, got %d", requests)
	}

	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("Expected %d waits, got %v", len(want), waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("Wait %d = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestClient_RateLimit(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", rateLimitHandler(1234, reset))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(srv.URL, config.APIConfig{})

	rl, err := c.RateLimit(context.Background())
	if err != nil {
		t.Fatalf("RateLimit failed: %v", err)
	}
	if rl.Limit != 5000 {
		t.Errorf("Limit = %d, want 5000", rl.Limit)
	}
	if rl.Remaining != 1234 {
		t.Errorf("Remaining = %d, want 1234", rl.Remaining)
	}
	if !rl.Reset.Equal(reset) {
		t.Errorf("Reset = %v, want %v", rl.Reset, reset)
	}
}

func TestClient_WaitForQuota(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		resetIn   time.Duration
		retry     bool
		wantWait  time.Duration
		wantErr   error
	}{
		{"plenty of quota", 1000, time.Hour, true, 0, nil},
		{"exhausted short reset", 2, 10 * time.Minute, true, 10*time.Minute + quotaWaitMargin, nil},
		{"exhausted no retry", 2, 10 * time.Minute, false, 0, nil},
		{"reset too far away", 2, 2 * time.Hour, true, 0, ErrQuotaWaitTooLong},
		{"reset already passed", 2, -time.Minute, true, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
			mux := http.NewServeMux()
			mux.HandleFunc("/rate_limit", rateLimitHandler(tt.remaining, now.Add(tt.resetIn)))
			srv := httptest.NewServer(mux)
			defer srv.Close()

			c := testClient(srv.URL, config.APIConfig{
				RespectRateLimit: true,
				RetryOnLimit:     tt.retry,
				SafetyBuffer:     5,
			})
			c.now = func() time.Time { return now }

			var slept time.Duration
			c.sleep = func(ctx context.Context, d time.Duration) error {
				slept += d
				return nil
			}

			err := c.waitForQuota(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("waitForQuota error = %v, want %v", err, tt.wantErr)
			}
			if slept != tt.wantWait {
				t.Errorf("Slept %v, want %v", slept, tt.wantWait)
			}
		})
	}
}

func TestClient_WaitForQuota_ProbeFailureProceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL, config.APIConfig{RespectRateLimit: true, RetryOnLimit: true})

	// A failing probe must not block the real request
	if err := c.waitForQuota(context.Background()); err != nil {
		t.Errorf("waitForQuota should ignore probe failures, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		factor  float64
		attempt int
		unit    time.Duration
		want    time.Duration
	}{
		{2, 0, 60 * time.Second, 60 * time.Second},
		{2, 1, 60 * time.Second, 120 * time.Second},
		{2, 2, 60 * time.Second, 240 * time.Second},
		{2, 0, 5 * time.Second, 5 * time.Second},
		{2, 2, 5 * time.Second, 20 * time.Second},
		{1.5, 1, 60 * time.Second, 90 * time.Second},
	}

	for _, tt := range tests {
		if got := backoff(tt.factor, tt.attempt, tt.unit); got != tt.want {
			t.Errorf("backoff(%v, %d, %v) = %v, want %v", tt.factor, tt.attempt, tt.unit, got, tt.want)
		}
	}
}
