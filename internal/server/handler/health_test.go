package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheckReportsEngineState(t *testing.T) {
	h := NewHealthHandler(3)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Status        string `json:"status"`
		Structures    int    `json:"structures"`
		UptimeSeconds int64  `json:"uptime_seconds"`
		Time          string `json:"time"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if body.Status != "ok" {
		t.Errorf("status = %q", body.Status)
	}
	if body.Structures != 3 {
		t.Errorf("structures = %d, want 3", body.Structures)
	}
	if body.UptimeSeconds < 0 {
		t.Errorf("uptime_seconds = %d", body.UptimeSeconds)
	}
	if body.Time == "" {
		t.Error("time missing")
	}
}
