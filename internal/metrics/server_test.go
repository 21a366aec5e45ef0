package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pmiaudio/audiobook-api/internal/logging"
)

func TestServerEndpoints(t *testing.T) {
	logger, err := logging.NewLogger(logging.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	s := NewServer(9999, logger)

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected /health to return 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected /health body OK, got %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected /metrics to return 200, got %d", w.Code)
	}
}
