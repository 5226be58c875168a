package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	apperrors "metro/pkg/errors"
	httputil "metro/pkg/http"
	"metro/pkg/logger"
	"metro/pkg/sanitizer"
)

const PhoneHeader = "X-Phone-Number"

// KeyExtractor picks the identities a request is rate limited under. The
// request passes only if every key is under the limit. No keys bypasses the
// limiter.
type KeyExtractor func(r *http.Request) []string

// RateLimiter is a sliding-window limiter keyed by caller identity.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	extract  KeyExtractor
	log      *logger.Logger
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(limit int, window time.Duration, extractor KeyExtractor, log *logger.Logger) *RateLimiter {
	if extractor == nil {
		extractor = CallerKeys
	}
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		extract:  extractor,
		log:      log,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, ts := range rl.requests {
				if len(ts) == 0 || now.Sub(ts[len(ts)-1]) >= rl.window {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	return rl.AllowAll([]string{key})
}

// AllowAll records one request against every key, or against none when any
// key is already at the limit.
func (rl *RateLimiter) AllowAll(keys []string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windows := make([][]time.Time, len(keys))
	allowed := true
	for i, key := range keys {
		valid := rl.requests[key][:0]
		for _, ts := range rl.requests[key] {
			if now.Sub(ts) < rl.window {
				valid = append(valid, ts)
			}
		}
		rl.requests[key] = valid
		windows[i] = valid
		if len(valid) >= rl.limit {
			allowed = false
		}
	}
	if !allowed {
		return false
	}
	for i, key := range keys {
		rl.requests[key] = append(windows[i], now)
	}
	return true
}

func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keys := limiter.extract(r)
			if limiter.AllowAll(keys) {
				next.ServeHTTP(w, r)
				return
			}

			limiter.log.Warn("Rate limit exceeded",
				"request_id", logger.RequestID(r.Context()),
				"keys", keys,
				"path", r.URL.Path,
			)
			if err := httputil.WriteError(w, apperrors.RateLimited("Rate limit exceeded")); err != nil {
				limiter.log.Error("failed to write error response", "error", err)
			}
		})
	}
}

// CallerKeys limits every request by remote address and, when the phone
// header holds a valid number, by that number in E.164 as well.
func CallerKeys(r *http.Request) []string {
	var keys []string

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host != "" {
		keys = append(keys, "ip:"+host)
	}
	if phone, ok := sanitizer.NormalizePhone(r.Header.Get(PhoneHeader)); ok {
		keys = append(keys, "phone:"+phone)
	}
	return keys
}
