package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/sarathi/internal/infrastructure/logger"
)

func TestLoggingMiddlewareTagsRequest(t *testing.T) {
	var buf bytes.Buffer
	mw := NewLoggingMiddleware(zerolog.New(&buf))

	var inner bytes.Buffer
	handler := chimiddleware.RequestID(mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.FromContext(r.Context(), zerolog.New(&inner))
		l.Info().Msg("handler")
		w.WriteHeader(http.StatusServiceUnavailable)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["level"] != "error" {
		t.Fatalf("expected 5xx to log at error, got %v", entry["level"])
	}
	if entry["status"] != float64(http.StatusServiceUnavailable) || entry["path"] != "/health" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
	if id, _ := entry["request_id"].(string); id == "" {
		t.Fatalf("expected request id in log entry")
	}
	if inner.Len() != 0 {
		t.Fatalf("expected handler to log through the request logger, fallback got %s", inner.String())
	}
}
