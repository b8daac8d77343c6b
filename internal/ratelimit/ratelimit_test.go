package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newLimiter(t *testing.T, cfg Config) *Limiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return New(ctx, cfg)
}

func TestLimiter_Allow(t *testing.T) {
	limiter := newLimiter(t, Config{SessionsPerMinute: 3})

	host := "10.0.0.1"

	for i := 0; i < 3; i++ {
		if !limiter.Allow(host) {
			t.Errorf("Session %d should be allowed", i+1)
		}
	}

	if limiter.Allow(host) {
		t.Error("Fourth session should be blocked due to rate limit")
	}
}

func TestLimiter_DifferentHosts(t *testing.T) {
	limiter := newLimiter(t, Config{SessionsPerMinute: 1})

	if !limiter.Allow("a") {
		t.Error("host a first session should be allowed")
	}
	if !limiter.Allow("b") {
		t.Error("host b first session should be allowed")
	}
	if limiter.Allow("a") {
		t.Error("host a second session should be blocked")
	}
	if limiter.Allow("b") {
		t.Error("host b second session should be blocked")
	}
}

func TestLimiter_Remaining(t *testing.T) {
	limiter := newLimiter(t, Config{SessionsPerMinute: 5})

	if remaining := limiter.Remaining("h"); remaining != 5 {
		t.Errorf("Remaining() = %d, want 5", remaining)
	}

	limiter.Allow("h")
	limiter.Allow("h")
	limiter.Allow("h")

	if remaining := limiter.Remaining("h"); remaining != 2 {
		t.Errorf("Remaining() = %d, want 2", remaining)
	}

	limiter.Allow("h")
	limiter.Allow("h")

	if remaining := limiter.Remaining("h"); remaining != 0 {
		t.Errorf("Remaining() = %d, want 0", remaining)
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	limiter := newLimiter(t, Config{SessionsPerMinute: 1, Window: time.Minute})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("h") {
		t.Fatal("first session should be allowed")
	}
	if got := limiter.ResetTime("h"); !got.Equal(now.Add(time.Minute)) {
		t.Errorf("ResetTime() = %v, want %v", got, now.Add(time.Minute))
	}

	now = now.Add(61 * time.Second)
	if !limiter.Allow("h") {
		t.Error("session after the window should be allowed")
	}

	now = now.Add(2 * time.Minute)
	limiter.removeStale()
	if _, ok := limiter.requests["h"]; ok {
		t.Error("removeStale() should drop idle hosts")
	}
}

func TestLimiter_DefaultConfig(t *testing.T) {
	limiter := newLimiter(t, Config{})

	for i := 0; i < DefaultSessionsPerMinute; i++ {
		if !limiter.Allow("h") {
			t.Errorf("Session %d should be allowed with default config", i+1)
		}
	}

	if limiter.Allow("h") {
		t.Error("session over the default limit should be blocked")
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := newLimiter(t, Config{SessionsPerMinute: 100})

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 20; j++ {
				limiter.Allow("h")
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	if remaining := limiter.Remaining("h"); remaining != 0 {
		t.Errorf("Remaining() = %d, want 0 after concurrent access", remaining)
	}
}

type countingRecorder struct {
	rejected int
}

func (r *countingRecorder) RecordSessionRejected() { r.rejected++ }

func TestLimiter_Middleware(t *testing.T) {
	rec := &countingRecorder{}
	limiter := newLimiter(t, Config{SessionsPerMinute: 1, Recorder: rec})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), nil)

	req := httptest.NewRequest(http.MethodGet, "/party", nil)
	req.RemoteAddr = "192.0.2.7:5000"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("first request status = %d, want 204", w.Code)
	}

	req.RemoteAddr = "192.0.2.7:5001"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header is missing")
	}
	if rec.rejected != 1 {
		t.Errorf("rejected = %d, want 1", rec.rejected)
	}
}
