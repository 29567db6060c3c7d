package repository

import (
	"context"
	"database/sql"
	"time"

	"servopanel/internal/models"
)

// EventQuery filters the command journal. Zero fields match everything.
type EventQuery struct {
	From       time.Time
	To         time.Time
	Type       string
	ActuatorID string
	Limit      int
}

type EventRepo interface {
	Append(ctx context.Context, e models.Event) error
	List(ctx context.Context, q EventQuery) ([]models.Event, error)
}

type Repository struct {
	EventRepo    EventRepo
	SnapshotRepo SnapshotRepo
}

// NewRepository builds the journal over db and the fleet snapshot store under
// snapshotDir.
func NewRepository(db *sql.DB, snapshotDir string) *Repository {
	return &Repository{
		EventRepo:    NewEventSQLite(db),
		SnapshotRepo: NewSnapshotDiskv(snapshotDir),
	}
}
