package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/homecrate/homecrate/internal/circuitbreaker"
	"github.com/homecrate/homecrate/internal/session"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRequestIDHeader(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	a, b := first.Header().Get("X-Request-ID"), second.Header().Get("X-Request-ID")
	if a == "" || b == "" {
		t.Fatal("X-Request-ID not set")
	}
	if a == b {
		t.Errorf("request ids repeated: %s", a)
	}
}

func TestRecoveryConvertsPanic(t *testing.T) {
	handler := Recovery(discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rec.Code)
	}
	var out errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error.Kind != "INTERNAL" {
		t.Errorf("kind: got %q, want INTERNAL", out.Error.Kind)
	}
}

func TestLoggingPreservesStatus(t *testing.T) {
	handler := Logging(discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status: got %d, want 418", rec.Code)
	}
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	called := false
	handler := Auth(nil, discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called {
		t.Error("handler not reached with auth disabled")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestAuthRejectsMissingCookie(t *testing.T) {
	// The cookie check happens before any store call, so a store with no
	// live backend is fine here.
	sessions := session.NewStore(nil, circuitbreaker.New(1, time.Second), time.Minute)
	handler := Auth(sessions, discard)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestTokenFromContext(t *testing.T) {
	ctx := withToken(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "tok")
	got, ok := TokenFromContext(ctx)
	if !ok || got != "tok" {
		t.Errorf("TokenFromContext: got %q, %v", got, ok)
	}
	if _, ok := TokenFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()); ok {
		t.Error("token reported on a bare context")
	}
}
