package httputil

import (
	"errors"
	"net/http"
	"testing"
)

// TestProbeHealthy verifies a 200 response yields no error.
func TestProbeHealthy(t *testing.T) {
	m := NewMockHTTPClient()
	m.AddResponse(http.StatusOK, `{"status":"ok"}`)

	if err := Probe(m, "http://localhost:8080/healthz"); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if m.RequestCount() != 1 {
		t.Errorf("RequestCount() = %d, want 1", m.RequestCount())
	}
}

func TestProbeBadStatus(t *testing.T) {
	m := NewMockHTTPClient()
	m.AddResponse(http.StatusServiceUnavailable, "down")

	if err := Probe(m, "http://localhost:8080/healthz"); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestProbeConnectionError(t *testing.T) {
	m := NewMockHTTPClient()
	wantErr := errors.New("dial tcp: connection refused")
	m.AddErrorResponse(wantErr)

	if err := Probe(m, "http://localhost:8080/healthz"); !errors.Is(err, wantErr) {
		t.Errorf("Probe error = %v, want wrapped %v", err, wantErr)
	}
}
