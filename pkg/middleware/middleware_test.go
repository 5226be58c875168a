package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "metro/pkg/errors"
	"metro/pkg/logger"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestRequestLogging_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf})

	var seen string
	h := RequestLogging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil))

	if seen == "" {
		t.Fatal("request id not in context")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(RequestIDHeader), seen)
	}
	if !strings.Contains(buf.String(), `"status":418`) {
		t.Errorf("completion log missing status: %s", buf.String())
	}
}

func TestRequestLogging_ReusesCallerID(t *testing.T) {
	h := RequestLogging(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "trace-123" {
		t.Errorf("request id = %q", got)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("ledger corrupted")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Code != apperrors.CodeInternal || strings.Contains(body.Message, "ledger") {
		t.Errorf("body = %+v", body)
	}
}

func TestContentTypeValidation(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := ContentTypeValidation(logger.Nop())(ok)

	tests := []struct {
		name        string
		method      string
		contentType string
		want        int
	}{
		{"json post", http.MethodPost, "application/json", http.StatusNoContent},
		{"json with charset", http.MethodPost, "application/json; charset=utf-8", http.StatusNoContent},
		{"form post", http.MethodPost, "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"missing on post", http.MethodPost, "", http.StatusUnsupportedMediaType},
		{"get without header", http.MethodGet, "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/bookings", strings.NewReader("{}"))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	h := MaxRequestSize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("tiny")))
	if rec.Code != http.StatusOK {
		t.Errorf("small body status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("much too large")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("declared large body status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("much too large"))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("streamed large body status = %d", rec.Code)
	}
}

func TestRequestTimeout(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	})
	rec := httptest.NewRecorder()
	RequestTimeout(20*time.Millisecond)(slow).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != apperrors.CodeTimeout {
		t.Errorf("code = %s", body.Code)
	}

	fast := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Route", "ok")
		w.WriteHeader(http.StatusCreated)
	})
	rec = httptest.NewRecorder()
	RequestTimeout(time.Second)(fast).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusCreated || rec.Header().Get("X-Route") != "ok" {
		t.Errorf("fast handler status = %d headers = %v", rec.Code, rec.Header())
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, nil, logger.Nop())
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request within window should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other keys are independent")
	}
	if !rl.Allow("") {
		t.Error("empty key bypasses the limiter")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("window should have slid")
	}
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, nil, logger.Nop())
	defer rl.Stop()
	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(addr, phone string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		req.RemoteAddr = addr
		if phone != "" {
			req.Header.Set(PhoneHeader, phone)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("rotating phone numbers share the address limit", func(t *testing.T) {
		for i, phone := range []string{"+919700011111", "+919812345678"} {
			if code := send("10.0.0.1:4000", phone); code != http.StatusOK {
				t.Errorf("request %d = %d", i, code)
			}
		}
		if code := send("10.0.0.1:4000", "+919898989898"); code != http.StatusTooManyRequests {
			t.Errorf("third phone from same address = %d", code)
		}
	})

	t.Run("one phone is limited across addresses", func(t *testing.T) {
		phone := "+91 98765 43210"
		if code := send("10.0.1.1:4000", phone); code != http.StatusOK {
			t.Errorf("first = %d", code)
		}
		if code := send("10.0.1.2:4000", "+919876543210"); code != http.StatusOK {
			t.Errorf("second = %d", code)
		}
		if code := send("10.0.1.3:4000", phone); code != http.StatusTooManyRequests {
			t.Errorf("third address, same phone = %d", code)
		}
	})

	t.Run("rejected requests do not consume other keys", func(t *testing.T) {
		if code := send("10.0.1.3:4000", ""); code != http.StatusOK {
			t.Errorf("address without phone = %d", code)
		}
	})
}

func TestCallerKeys(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	if got := CallerKeys(req); len(got) != 1 || got[0] != "ip:10.0.0.7" {
		t.Errorf("keys = %q", got)
	}

	req.Header.Set(PhoneHeader, "98765 43210")
	got := CallerKeys(req)
	if len(got) != 2 || got[0] != "ip:10.0.0.7" || got[1] != "phone:+919876543210" {
		t.Errorf("keys = %q", got)
	}

	req.Header.Set(PhoneHeader, "not-a-phone")
	if got := CallerKeys(req); len(got) != 1 {
		t.Errorf("invalid phone header should be ignored, keys = %q", got)
	}
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
	}))

	send := func(key, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
		req.Header.Set(IdempotencyKeyHeader, key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("k1", "/api/v1/bookings")
	second := send("k1", "/api/v1/bookings")

	if calls.Load() != 1 {
		t.Errorf("handler calls = %d, want 1", calls.Load())
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replay = %d %s", second.Code, second.Body.String())
	}
	if second.Header().Get(ReplayedHeader) != "true" {
		t.Error("replay header missing")
	}

	send("k1", "/api/v1/bookings/release")
	if calls.Load() != 2 {
		t.Error("same key on another path must not replay")
	}
}

// staleStore answers its first Get with a miss once release is closed,
// like a lookup that raced a concurrent Set.
type staleStore struct {
	*InMemoryIdempotencyStore
	held    atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *staleStore) Get(key string) (*CachedResponse, bool) {
	if s.held.CompareAndSwap(false, true) {
		close(s.entered)
		<-s.release
		return nil, false
	}
	return s.InMemoryIdempotencyStore.Get(key)
}

func TestIdempotency_StaleLookupStillReplays(t *testing.T) {
	store := &staleStore{
		InMemoryIdempotencyStore: NewInMemoryIdempotencyStore(time.Hour),
		entered:                  make(chan struct{}),
		release:                  make(chan struct{}),
	}
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"seats":3}`))
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader("{}"))
		req.Header.Set(IdempotencyKeyHeader, "k")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	late := make(chan *httptest.ResponseRecorder)
	go func() { late <- send() }()
	<-store.entered

	first := send()
	close(store.release)
	second := <-late

	if calls.Load() != 1 {
		t.Errorf("handler calls = %d, want 1", calls.Load())
	}
	if first.Code != http.StatusCreated {
		t.Errorf("first = %d", first.Code)
	}
	if second.Code != http.StatusCreated || second.Header().Get(ReplayedHeader) != "true" {
		t.Errorf("second = %d replayed=%q", second.Code, second.Header().Get(ReplayedHeader))
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("second body = %s", second.Body.String())
	}
}

func TestIdempotency_DoesNotCacheFailures(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls atomic.Int32
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		req.Header.Set(IdempotencyKeyHeader, "k")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls.Load() != 2 {
		t.Errorf("handler calls = %d, want 2", calls.Load())
	}
}

func TestIdempotency_ExpiredEntry(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	now := time.Now()
	store.now = func() time.Time { return now }
	store.Set("k", &CachedResponse{StatusCode: http.StatusOK})

	if _, ok := store.Get("k"); !ok {
		t.Fatal("entry should be present")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := store.Get("k"); ok {
		t.Error("entry should have expired")
	}
}
