package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"servopanel/internal/models"
	"servopanel/internal/repository/db"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, mock
}

const insertQuery = `
		INSERT INTO servo_events (id, occurred_at, type, actuator_id, message, meta)
		VALUES (?, ?, ?, ?, ?, ?)
	`

const selectQuery = `SELECT id, occurred_at, type, actuator_id, message, meta FROM servo_events`

var eventColumns = []string{"id", "occurred_at", "type", "actuator_id", "message", "meta"}

func TestAppend_Success_WithDefaults(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)
	repo := NewEventSQLite(conn)

	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "COMMAND", "servo_0", "set angle 120°", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.Event{
		Type:        "  command ",
		ActuatorID:  "servo_0",
		Description: "set angle 120°",
		Metadata:    map[string]any{"requested": 120},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_FleetWideEventHasNullActuator(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)
	repo := NewEventSQLite(conn)

	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.FixedZone("X", 3600))
	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs("e1", "2025-03-01 08:30:00.000", "CENTER_ALL", nil, "centered 2 of 3 servos", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(ctx(t), models.Event{
		EventID:     "e1",
		OccurredAt:  at,
		Type:        models.EventCenterAll,
		Description: "centered 2 of 3 servos",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestAppend_DBError(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)
	repo := NewEventSQLite(conn)

	mock.ExpectExec("INSERT INTO servo_events").
		WillReturnError(errors.New("down"))

	err := repo.Append(ctx(t), models.Event{Type: "sweep", Description: "x"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_NoFilters_And_MetadataParsing(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)
	repo := NewEventSQLite(conn)

	js, _ := json.Marshal(map[string]any{"angle": 118})
	rows := sqlmock.NewRows(eventColumns).
		AddRow("1", "2025-01-01 10:00:00.000", "COMMAND", "servo_0", "m1", string(js)).
		AddRow("2", "2025-01-01 11:00:00.000", "FLEET", nil, "m2", nil)

	mock.ExpectQuery(regexp.QuoteMeta(selectQuery + ` ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), EventQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2, got %d", len(got))
	}
	if got[0].ActuatorID != "servo_0" || got[1].ActuatorID != "" {
		t.Fatalf("unexpected actuators: %q, %q", got[0].ActuatorID, got[1].ActuatorID)
	}
	if want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC); !got[0].OccurredAt.Equal(want) {
		t.Fatalf("occurred_at = %v, want %v", got[0].OccurredAt, want)
	}
	b1, _ := json.Marshal(got[0].Metadata)
	if string(b1) != string(js) {
		t.Fatalf("metadata mismatch: %s vs %s", string(b1), string(js))
	}
	if got[1].Metadata != nil {
		t.Fatalf("expected nil meta, got %#v", got[1].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_WithFilters_OrderAndArgs(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)
	repo := NewEventSQLite(conn)

	from := time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	query := selectQuery + ` WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? AND actuator_id = ? ORDER BY occurred_at ASC LIMIT ?`
	rows := sqlmock.NewRows(eventColumns).
		AddRow("2", "2025-01-01 11:00:00.000", "REJECTED", "servo_1", "b", nil)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("2025-01-01 11:00:00.000", "2025-01-01 12:00:00.000", "REJECTED", "servo_1", 10).
		WillReturnRows(rows)

	got, err := repo.List(ctx(t), EventQuery{From: from, To: to, Type: " rejected ", ActuatorID: "servo_1", Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "2" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestList_BadTimestamp(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)
	repo := NewEventSQLite(conn)

	rows := sqlmock.NewRows(eventColumns).
		AddRow("x", "yesterday", "COMMAND", nil, "msg", nil)
	mock.ExpectQuery(regexp.QuoteMeta(selectQuery + ` ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	if _, err := repo.List(ctx(t), EventQuery{}); err == nil {
		t.Fatalf("expected parse error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestEventSQLite_RoundTrip(t *testing.T) {
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	repo := NewRepository(conn, t.TempDir()).EventRepo

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, e := range []models.Event{
		{Type: models.EventCommand, ActuatorID: "servo_0", Description: "a"},
		{Type: models.EventSweep, ActuatorID: "servo_1", Description: "b"},
		{Type: models.EventCommand, ActuatorID: "servo_1", Description: "c", Metadata: map[string]int{"angle": 45}},
	} {
		e.OccurredAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.Append(ctx(t), e); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	got, err := repo.List(ctx(t), EventQuery{Type: "command", ActuatorID: "servo_1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Description != "c" {
		t.Fatalf("unexpected results: %+v", got)
	}

	got, err = repo.List(ctx(t), EventQuery{From: base.Add(30 * time.Second)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Description != "b" {
		t.Fatalf("unexpected range results: %+v", got)
	}
}
