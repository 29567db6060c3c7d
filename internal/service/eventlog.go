package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"servopanel/internal/logger"
	"servopanel/internal/models"
	"servopanel/internal/repository"
)

// LogFilter selects journal entries.
type LogFilter struct {
	From       time.Time // inclusive; zero means no lower bound
	To         time.Time // inclusive; zero means no upper bound
	Type       string    // "", "COMMAND", "REJECTED", "SWEEP", ...
	ActuatorID string
	Limit      int
}

// journaled lists the event types persisted to the command journal. Position,
// moving and status traffic is too chatty to keep.
var journaled = map[string]bool{
	models.EventCommand:      true,
	models.EventRejected:     true,
	models.EventTransport:    true,
	models.EventSweep:        true,
	models.EventCenterAll:    true,
	models.EventConnectivity: true,
	models.EventFleet:        true,
	models.EventConfig:       true,
}

type EventLogService struct {
	eventRepo repository.EventRepo
	log       *logger.Logger
}

func NewEventLogService(eventRepo repository.EventRepo, log *logger.Logger) *EventLogService {
	return &EventLogService{eventRepo: eventRepo, log: log.Named("journal")}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (repository.EventQuery, error) {
	q := repository.EventQuery{
		From:       normalizeToUTC(f.From),
		To:         normalizeToUTC(f.To),
		Type:       normalizeEventType(f.Type),
		ActuatorID: strings.TrimSpace(f.ActuatorID),
		Limit:      f.Limit,
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return repository.EventQuery{}, errInvalidTimeRange
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	return q, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.Event, error) {
	q, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, q)
}

// Record appends e if its type belongs in the journal.
func (s *EventLogService) Record(ctx context.Context, e models.Event) error {
	if !journaled[e.Type] {
		return nil
	}
	return s.eventRepo.Append(ctx, e)
}

// Consume records events until ctx is canceled or events is closed.
func (s *EventLogService) Consume(ctx context.Context, events <-chan models.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := s.Record(ctx, e); err != nil {
				s.log.Warnw("journal_append_failed", "type", e.Type, "err", err)
			}
		}
	}
}
