package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marmos91/sessionfsd/pkg/fileio"
	"github.com/marmos91/sessionfsd/pkg/observer"
	"github.com/marmos91/sessionfsd/pkg/pathgate"
	"github.com/marmos91/sessionfsd/pkg/session"
)

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	fake := fileio.NewFake()
	gate, err := pathgate.New(fake, "/srv/sessions")
	if err != nil {
		t.Fatalf("pathgate.New: %v", err)
	}
	return session.NewManager(session.Config{
		IO:   fake,
		Gate: gate,
		Tree: observer.NewTree(nil),
	})
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(newTestManager(t), time.Now())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Liveness(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status field = %q, want %q", resp.Status, "healthy")
	}
}

func TestHealthHandler_ReadinessWithoutManager(t *testing.T) {
	h := NewHealthHandler(nil, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	h.Readiness(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHealthHandler_ReadinessWithManager(t *testing.T) {
	h := NewHealthHandler(newTestManager(t), time.Now())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	h.Readiness(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
