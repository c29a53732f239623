package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	applog "ledger/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Output: &buf, Component: "test"})

	var seenID string
	var observed int
	m := NewMiddleware(logger, func(*http.Request) string { return "192.0.2.1" }, func(r *http.Request, status int, d time.Duration) {
		observed = status
	})
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		applog.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Fatalf("unexpected request id %q", seenID)
	}
	if rec.Header().Get(HeaderRequestID) != seenID {
		t.Fatalf("response header %q != context id %q", rec.Header().Get(HeaderRequestID), seenID)
	}
	if observed != http.StatusTeapot {
		t.Fatalf("observer saw status %d", observed)
	}
	if m.TotalRequests() != 1 {
		t.Fatalf("expected 1 request counted, got %d", m.TotalRequests())
	}

	out := buf.String()
	if !strings.Contains(out, "inside handler") || !strings.Contains(out, "request_id="+seenID) {
		t.Fatalf("handler log missing request id:\n%s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "status_code=418") {
		t.Fatalf("4xx completion should log at warn:\n%s", out)
	}
}

func TestMiddleware_KeepsUpstreamRequestID(t *testing.T) {
	m := NewMiddleware(nil, nil, nil)
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "edge-1234")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "edge-1234" {
		t.Fatalf("expected upstream id, got %q", seen)
	}

	r.Header.Set(HeaderRequestID, "bad id with spaces")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("invalid upstream id should be replaced, got %q", seen)
	}
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}
