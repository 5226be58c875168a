package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	"metro/pkg/config"
	httputil "metro/pkg/http"
	"metro/pkg/logger"
	"metro/pkg/middleware"
)

type echoHandler struct{}

func (echoHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/echo/:word", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		_ = httputil.WriteSuccess(w, map[string]string{"word": ps.ByName("word")})
	})
	router.POST("/api/v1/echo", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body map[string]string
		if err := httputil.DecodeJSON(r, &body); err != nil {
			_ = httputil.WriteError(w, err)
			return
		}
		_ = httputil.WriteCreated(w, body)
	})
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg, err := config.New("metro-test")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Log = logger.Nop()
	a := NewApplication(cfg)
	return a
}

func start(t *testing.T, a *Application) {
	t.Helper()
	a.SetApp(echoHandler{})
	t.Cleanup(a.Stop)
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	start(t, a)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %s", body.Status)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]ReadinessCheck
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantBody:   "ready",
			wantChecks: map[string]string{},
		},
		{
			name: "all pass",
			checks: map[string]ReadinessCheck{
				"network": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantBody:   "ready",
			wantChecks: map[string]string{"network": "ok"},
		},
		{
			name: "one fails",
			checks: map[string]ReadinessCheck{
				"network": func(context.Context) error { return nil },
				"kafka":   func(context.Context) error { return errors.New("broker down") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unavailable",
			wantChecks: map[string]string{"network": "ok", "kafka": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t)
			for name, check := range tt.checks {
				a.AddReadinessCheck(name, check)
			}
			start(t, a)

			rec := httptest.NewRecorder()
			a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("status = %s, want %s", body.Status, tt.wantBody)
			}
			for name, want := range tt.wantChecks {
				if body.Checks[name] != want {
					t.Errorf("check %s = %s, want %s", name, body.Checks[name], want)
				}
			}
		})
	}
}

func TestAppRoutes_GoThroughMiddleware(t *testing.T) {
	a := newTestApp(t)
	start(t, a)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/echo/hello", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("request id header missing")
	}
	if !strings.Contains(rec.Body.String(), "hello") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAppRoutes_RejectsWrongContentType(t *testing.T) {
	a := newTestApp(t)
	start(t, a)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader("word=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAppRoutes_IdempotentReplay(t *testing.T) {
	a := newTestApp(t)
	start(t, a)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader(`{"word":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.IdempotencyKeyHeader, "key-1")
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		return rec
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d", first.Code)
	}
	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("second status = %d", second.Code)
	}
	if second.Header().Get(middleware.ReplayedHeader) != "true" {
		t.Error("second response should be a replay")
	}
}

func TestStop_RunsClosersOnceInReverse(t *testing.T) {
	a := newTestApp(t)

	var order []string
	a.AddCloser(func() error {
		order = append(order, "producer")
		return nil
	})
	a.AddCloser(func() error {
		order = append(order, "consumer")
		return errors.New("already closed")
	})
	a.SetApp(echoHandler{})

	a.Stop()
	a.Stop()

	if got := strings.Join(order, ","); got != "consumer,producer" {
		t.Errorf("close order = %q", got)
	}
}

func TestStop_BeforeSetApp(t *testing.T) {
	a := newTestApp(t)
	a.Stop()
}
