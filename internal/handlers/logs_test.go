package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"servopanel/internal/models"
	"servopanel/internal/service"
)

func TestLogsHandler_ListAndValidation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	events := []models.Event{
		{EventID: "e1", OccurredAt: now, Type: models.EventCommand, ActuatorID: "servo_0", Description: "set angle 120"},
		{EventID: "e2", OccurredAt: now.Add(1 * time.Second), Type: models.EventRejected, ActuatorID: "servo_0", Description: "Servo disabled"},
	}
	logs := &mockEventLog{resp: events}
	r := newTestRouter(&service.Service{EventLog: logs})

	// Invalid 'from' → 400
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs?from=notatime", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}

	// Valid range, type and actuator (lowercase type normalized to upper)
	w = httptest.NewRecorder()
	q := "/api/v1/logs?from=" + now.Format(time.RFC3339) +
		"&to=" + now.Add(2*time.Second).Format(time.RFC3339) +
		"&type=rejected&actuator=servo_0&limit=10"
	req = httptest.NewRequest(http.MethodGet, q, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int            `json:"count"`
		Events []models.Event `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	f := logs.lastFilter
	if f.Type != models.EventRejected || f.ActuatorID != "servo_0" || f.Limit != 10 {
		t.Fatalf("unexpected filter: %+v", f)
	}
	if !f.From.Equal(now) || !f.To.Equal(now.Add(2*time.Second)) {
		t.Fatalf("unexpected range: %v..%v", f.From, f.To)
	}
}

func TestLogsHandler_DateOnlyToIsEndOfDay(t *testing.T) {
	logs := &mockEventLog{}
	r := newTestRouter(&service.Service{EventLog: logs})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs?from=2025-08-01&to=2025-08-01", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	want := time.Date(2025, 8, 1, 23, 59, 59, 999999999, time.UTC)
	if !logs.lastFilter.To.Equal(want) {
		t.Fatalf("to=%v, want %v", logs.lastFilter.To, want)
	}
}

func TestLogsHandler_BadRequests(t *testing.T) {
	r := newTestRouter(&service.Service{EventLog: &mockEventLog{}})

	cases := []struct {
		name string
		q    string
	}{
		{"bad_to", "?to=yesterday"},
		{"from_after_to", "?from=2025-08-02&to=2025-08-01T00:00:00Z"},
		{"zero_limit", "?limit=0"},
		{"negative_limit", "?limit=-3"},
		{"text_limit", "?limit=many"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs"+tc.q, nil))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestLogsHandler_ServiceError(t *testing.T) {
	r := newTestRouter(&service.Service{EventLog: &mockEventLog{err: errors.New("db down")}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
