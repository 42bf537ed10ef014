package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s: decode body: %v", path, err)
	}
	return rec.Code, body
}

// TestLivenessIgnoresReadiness checks /health before startup completes.
func TestLivenessIgnoresReadiness(t *testing.T) {
	s := New(0)
	if code, _ := get(t, s.Handler(), "/health"); code != http.StatusOK {
		t.Fatalf("/health = %d", code)
	}
	if code, _ := get(t, s.Handler(), "/healthz"); code != http.StatusServiceUnavailable {
		t.Fatalf("/healthz before ready = %d", code)
	}
}

// TestReadyzRunsChecks checks that failed checks degrade readiness.
func TestReadyzRunsChecks(t *testing.T) {
	s := New(0)
	s.SetReady(true)

	ok := true
	s.AddCheck("ffmpeg", func() error {
		if ok {
			return nil
		}
		return errors.New("not found")
	})

	if code, body := get(t, s.Handler(), "/readyz"); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("/readyz = %d %v", code, body)
	}

	ok = false
	code, body := get(t, s.Handler(), "/readyz")
	if code != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Fatalf("/readyz = %d %v", code, body)
	}
	checks, _ := body["checks"].(map[string]any)
	if checks["ffmpeg"] != "not found" {
		t.Fatalf("checks = %v", checks)
	}
}
