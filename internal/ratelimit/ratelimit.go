// Package ratelimit ограничивает частоту новых сессий с одного адреса.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultSessionsPerMinute = 60
	cleanupInterval          = 5 * time.Minute
)

// Recorder считает отказы; реализуется метриками
type Recorder interface {
	RecordSessionRejected()
}

type nopRecorder struct{}

func (nopRecorder) RecordSessionRejected() {}

// Limiter - sliding window по ключу (обычно host клиента)
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
	recorder Recorder
}

type Config struct {
	SessionsPerMinute int
	Window            time.Duration
	Recorder          Recorder
}

// New запускает фоновую очистку, которая живет до отмены ctx
func New(ctx context.Context, cfg Config) *Limiter {
	limit := cfg.SessionsPerMinute
	if limit <= 0 {
		limit = DefaultSessionsPerMinute
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}

	l := &Limiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		recorder: recorder,
	}
	go l.cleanup(ctx)
	return l
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	fresh := l.fresh(key, now)
	if len(fresh) >= l.limit {
		l.requests[key] = fresh
		return false
	}

	l.requests[key] = append(fresh, now)
	return true
}

func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rem := l.limit - len(l.fresh(key, l.now())); rem > 0 {
		return rem
	}
	return 0
}

// ResetTime - когда освободится ближайший слот
func (l *Limiter) ResetTime(key string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.fresh(key, l.now())
	if len(ts) == 0 {
		return l.now()
	}
	// timestamps идут по возрастанию
	return ts[0].Add(l.window)
}

// Middleware отвечает 429, если адрес исчерпал лимит
func (l *Limiter) Middleware(next http.Handler, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientHost(r)
		if !l.Allow(key) {
			l.recorder.RecordSessionRejected()
			retry := time.Until(l.ResetTime(key)).Round(time.Second)
			logger.Warn("session rate limited", zap.String("client", key), zap.Duration("retry_after", retry))
			w.Header().Set("Retry-After", strconv.Itoa(max(1, int(retry.Seconds()))))
			http.Error(w, "too many sessions", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// fresh вызывается под mu
func (l *Limiter) fresh(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	old := l.requests[key]
	fresh := old[:0]
	for _, t := range old {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}
	return fresh
}

func (l *Limiter) cleanup(ctx context.Context) {
	tick := time.NewTicker(cleanupInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			l.removeStale()
		}
	}
}

func (l *Limiter) removeStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key := range l.requests {
		if fresh := l.fresh(key, now); len(fresh) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = fresh
		}
	}
}
