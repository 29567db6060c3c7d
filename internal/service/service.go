package service

import (
	"context"
	"time"

	"servopanel/internal/backend"
	"servopanel/internal/logger"
	"servopanel/internal/models"
	"servopanel/internal/repository"
)

// Backend is the actuator backend contract the coordinator consumes.
type Backend interface {
	ListServos(ctx context.Context) ([]backend.Servo, error)
	SetAngle(ctx context.Context, id string, angle int) (int, error)
	Sweep(ctx context.Context, id string, p models.SweepParams) error
	CenterAll(ctx context.Context) (map[string]int, error)
	Positions(ctx context.Context) (map[string]int, error)
	Health(ctx context.Context) (backend.Health, error)
	AddServo(ctx context.Context, id string, cfg models.ActuatorConfig) (string, error)
	UpdateServo(ctx context.Context, id string, cfg models.ActuatorConfig) (string, error)
	RemoveServo(ctx context.Context, id string) (string, error)
}

// Reconciler re-reads positions from the backend on demand.
type Reconciler interface {
	ReconcilePositions(ctx context.Context)
}

// Fleet exposes the registry and the backend-authoritative CRUD.
type Fleet interface {
	Reload(ctx context.Context) error
	List() []models.Actuator
	Get(id string) (models.Actuator, error)
	EnabledCount() int
	Add(ctx context.Context, id string, cfg models.ActuatorConfig) error
	Update(ctx context.Context, id string, cfg models.ActuatorConfig) error
	Remove(ctx context.Context, id string) error
}

// Motion exposes the command path.
type Motion interface {
	Schedule(id string, angle int) (int, error)
	Nudge(id string, delta int) (int, error)
	Preset(id, name string) (int, error)
	SetAngle(ctx context.Context, id string, angle int) (models.Actuator, error)
	Sweep(ctx context.Context, id string, p models.SweepParams) error
	CenterAll(ctx context.Context) (map[string]int, error)
	Busy() bool
}

// Monitoring exposes connectivity and status messages.
type Monitoring interface {
	Connectivity() models.ConnectivityReport
	CheckHealth(ctx context.Context) models.ConnectivityReport
	Statuses() []models.StatusMessage
}

// EventLog exposes the command journal.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.Event, error)
}

// Events is the live event feed.
type Events interface {
	Subscribe(buffer int) (<-chan models.Event, func())
}

// Reconciliation runs the background poll loops. Stop via context
// cancellation.
type Reconciliation interface {
	Run(ctx context.Context) error
}

// Options tunes the coordinator. Zero values fall back to defaults.
type Options struct {
	Debounce        time.Duration
	SweepSettle     time.Duration
	SweepMargin     time.Duration
	DefaultSweep    models.SweepParams
	NudgeStep       int
	StatusTTL       time.Duration
	PositionsEvery  time.Duration
	HealthEvery     time.Duration
	FollowUpTimeout time.Duration
}

// Service aggregates the coordinator components.
type Service struct {
	Fleet          Fleet
	Motion         Motion
	Monitoring     Monitoring
	EventLog       EventLog
	Events         Events
	Reconciliation Reconciliation

	journal     *EventLogService
	journalFeed <-chan models.Event
	stopJournal func()
	broker      *Broker
	status      *StatusPresenter
	motion      *MotionService
}

const journalBuffer = 256

// NewService wires the coordinator over b. Debounced commands are issued
// under ctx.
func NewService(ctx context.Context, repos *repository.Repository, b Backend, log *logger.Logger, opts Options) *Service {
	broker := NewBroker()
	registry := NewRegistry()
	lock := &FleetLock{}
	status := NewStatusPresenter(opts.StatusTTL, broker)
	poller := NewPollerService(b, registry, broker, log, opts.PositionsEvery, opts.HealthEvery)
	dispatcher := NewDispatcher(b, registry, lock, status, broker, log, DispatcherOptions{
		SweepSettle:     opts.SweepSettle,
		SweepMargin:     opts.SweepMargin,
		DefaultSweep:    opts.DefaultSweep,
		FollowUpRead:    poller,
		FollowUpTimeout: opts.FollowUpTimeout,
	})
	motion := NewMotionService(ctx, registry, lock, dispatcher, status, log, opts.Debounce, opts.NudgeStep)
	journal := NewEventLogService(repos.EventRepo, log)
	// Subscribed up front so events published before RunJournal starts are kept.
	journalFeed, stopJournal := broker.Subscribe(journalBuffer)

	return &Service{
		Fleet:          NewFleetService(b, registry, repos.SnapshotRepo, status, broker, log),
		Motion:         motion,
		Monitoring:     NewMonitoringService(poller, status),
		EventLog:       journal,
		Events:         broker,
		Reconciliation: poller,

		journal:     journal,
		journalFeed: journalFeed,
		stopJournal: stopJournal,
		broker:      broker,
		status:      status,
		motion:      motion,
	}
}

// RunJournal persists journal-worthy events until ctx is canceled.
func (s *Service) RunJournal(ctx context.Context) {
	s.journal.Consume(ctx, s.journalFeed)
}

// Close stops pending timers and disconnects subscribers.
func (s *Service) Close() {
	s.motion.Close()
	s.status.Close()
	s.stopJournal()
	s.broker.Close()
}
