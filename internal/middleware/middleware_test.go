package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/burntop/burntop/internal/api"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCorrelationMintsID(t *testing.T) {
	var seen string
	handler := Correlation(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = api.CorrelationID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	echoed := rec.Header().Get(CorrelationHeader)
	if echoed == "" {
		t.Fatal("expected a minted correlation id on the response")
	}
	if seen != echoed {
		t.Errorf("context id %q should match response header %q", seen, echoed)
	}
}

func TestCorrelationKeepsClientID(t *testing.T) {
	handler := Correlation(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "client-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(CorrelationHeader); got != "client-supplied-id" {
		t.Errorf("client-supplied id should be echoed, got %q", got)
	}
}

func TestPayloadLimitRejectsOversized(t *testing.T) {
	handler := PayloadLimit(64)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 200)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var envelope api.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("expected error envelope: %v", err)
	}
	if envelope.ErrorCode != api.CodeBadRequest {
		t.Errorf("unexpected error code %q", envelope.ErrorCode)
	}
}

func TestPayloadLimitPassesSmallBody(t *testing.T) {
	handler := PayloadLimit(64)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	handler := rl.Middleware(okHandler())

	var lastCode int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code

		if rec.Header().Get("X-RateLimit-Limit") != "60" {
			t.Errorf("request %d: missing X-RateLimit-Limit header", i)
		}
		if i < 2 && rec.Code != http.StatusOK {
			t.Errorf("request %d within burst should pass, got %d", i, rec.Code)
		}
	}
	if lastCode != http.StatusTooManyRequests {
		t.Errorf("request past the burst should be limited, got %d", lastCode)
	}
}

func TestRateLimiterSetsRetryAfter(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	handler := rl.Middleware(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.2:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i == 1 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			if rec.Header().Get("Retry-After") == "" {
				t.Error("expected Retry-After header on 429")
			}
			var envelope api.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
				t.Fatal(err)
			}
			if envelope.ErrorCode != api.CodeRateLimitExceeded {
				t.Errorf("unexpected error code %q", envelope.ErrorCode)
			}
		}
	}
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	handler := rl.Middleware(okHandler())

	for _, addr := range []string{"10.0.0.3:1", "10.0.0.4:1", "10.0.0.5:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("client %s should have its own bucket, got %d", addr, rec.Code)
		}
	}
}

func TestRateLimiterKeysByBearerToken(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	handler := rl.Middleware(okHandler())

	// Same IP, different tokens: independent buckets
	for _, token := range []string{"alpha", "beta"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.6:1"
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("token %s should have its own bucket, got %d", token, rec.Code)
		}
	}
}

func TestContextTimeout(t *testing.T) {
	handler := ContextTimeout(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); !ok {
			t.Error("expected a deadline on the request context")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestContextTimeoutSkipsWebSocket(t *testing.T) {
	handler := ContextTimeout(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Error("websocket upgrades must not get a deadline")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
}
