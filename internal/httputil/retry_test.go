// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

func TestDoWithRetryStatusHandling(t *testing.T) {
	cases := []struct {
		name       string
		failures   int32 // leading 429 responses before the final status
		final      int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{"first call succeeds", 0, http.StatusOK, 5, http.StatusOK, 1},
		{"429 twice then ok", 2, http.StatusOK, 5, http.StatusOK, 3},
		{"429 until retries run out", 100, http.StatusOK, 3, http.StatusTooManyRequests, 4},
		{"zero max retries uses default", 100, http.StatusOK, 0, http.StatusTooManyRequests, 4},
		{"server error is not retried", 0, http.StatusInternalServerError, 5, http.StatusInternalServerError, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if atomic.AddInt32(&calls, 1) <= tc.failures {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				w.WriteHeader(tc.final)
			}))
			defer ts.Close()

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tc.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, tc.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestDoWithRetryStopsOnDeadline(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoWithRetry_RewindsBody(t *testing.T) {
	var calls int32
	var bodies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(data))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"query":"go"}`))
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 2)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{`{"query":"go"}`, `{"query":"go"}`}, bodies)
}

func TestClient_SetsUserAgentAndLimits(t *testing.T) {
	var agents []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.UserAgent())
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := NewClient(types.HTTPConfig{Timeout: time.Second, UserAgent: "research-assistant/test"}, 1000)
	require.NotNil(t, c.Limiter)

	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
		require.NoError(t, err)
		resp, err := c.Do(context.Background(), req)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, []string{"research-assistant/test", "research-assistant/test", "research-assistant/test"}, agents)
}

func TestClient_LimiterHonoursContext(t *testing.T) {
	c := NewClient(types.HTTPConfig{Timeout: time.Second}, 0.001)
	// Drain the single token.
	require.True(t, c.Limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:1", nil)
	require.NoError(t, err)

	_, err = c.Do(ctx, req)
	assert.Error(t, err)
}

func TestReadError(t *testing.T) {
	resp := &http.Response{StatusCode: 503, Body: io.NopCloser(strings.NewReader("unavailable"))}
	assert.EqualError(t, ReadError(resp), "HTTP 503: unavailable")
}

func TestRetryAfterHeader(t *testing.T) {
	cases := map[string]time.Duration{
		"":      0,
		"soon":  0,
		"-1":    0,
		"2":     2 * time.Second,
		"86400": maxRetryAfter,
	}
	for header, want := range cases {
		resp := &http.Response{Header: http.Header{}}
		if header != "" {
			resp.Header.Set("Retry-After", header)
		}
		assert.Equal(t, want, retryAfter(resp), "Retry-After %q", header)
	}
}
