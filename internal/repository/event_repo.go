package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"servopanel/internal/models"
)

// timeLayout sorts lexically, so range filters work on the stored text.
const timeLayout = "2006-01-02 15:04:05.000"

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

// Append inserts a journal entry, filling EventID and OccurredAt when empty.
func (r *EventSQLite) Append(ctx context.Context, e models.Event) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	} else {
		e.OccurredAt = e.OccurredAt.UTC()
	}

	var metaPtr *string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			s := string(b)
			metaPtr = &s
		}
	}

	var actuator *string
	if e.ActuatorID != "" {
		actuator = &e.ActuatorID
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO servo_events (id, occurred_at, type, actuator_id, message, meta)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		e.EventID,
		e.OccurredAt.Format(timeLayout),
		strings.ToUpper(strings.TrimSpace(e.Type)),
		actuator,
		e.Description,
		metaPtr,
	)
	return err
}

// List returns entries matching q, oldest first.
func (r *EventSQLite) List(ctx context.Context, q EventQuery) ([]models.Event, error) {
	var (
		conds []string
		args  []any
	)

	if !q.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, q.From.UTC().Format(timeLayout))
	}
	if !q.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, q.To.UTC().Format(timeLayout))
	}
	if typ := strings.ToUpper(strings.TrimSpace(q.Type)); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}
	if id := strings.TrimSpace(q.ActuatorID); id != "" {
		conds = append(conds, "actuator_id = ?")
		args = append(args, id)
	}

	query := `SELECT id, occurred_at, type, actuator_id, message, meta FROM servo_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY occurred_at ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Event, 0, 64)
	for rows.Next() {
		var (
			ev       models.Event
			at       string
			actuator sql.NullString
			metaStr  sql.NullString
		)
		if err := rows.Scan(&ev.EventID, &at, &ev.Type, &actuator, &ev.Description, &metaStr); err != nil {
			return nil, err
		}
		if ev.OccurredAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, err
		}
		ev.ActuatorID = actuator.String

		if metaStr.Valid && metaStr.String != "" {
			var v any
			if err := json.Unmarshal([]byte(metaStr.String), &v); err == nil {
				ev.Metadata = v
			} else {
				ev.Metadata = metaStr.String // keep raw if malformed
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
