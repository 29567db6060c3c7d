package service

import (
	"context"
	"fmt"
	"strings"

	"servopanel/internal/logger"
	"servopanel/internal/models"
	"servopanel/internal/repository"
)

// Hardware limits of the PWM driver board.
const (
	MinChannel  = 0
	MaxChannel  = 15
	HardwareMin = 0
	HardwareMax = 180
	MinPulseUs  = 100
	MaxPulseUs  = 3000
)

// FleetService owns the registry lifecycle. Every edit is a pass-through to
// the backend followed by a full reload.
type FleetService struct {
	backend   Backend
	registry  *Registry
	snapshots repository.SnapshotRepo
	status    *StatusPresenter
	broker    *Broker
	log       *logger.Logger
}

// NewFleetService builds the fleet owner. snapshots may be nil.
func NewFleetService(b Backend, reg *Registry, snapshots repository.SnapshotRepo, status *StatusPresenter, broker *Broker, log *logger.Logger) *FleetService {
	return &FleetService{
		backend:   b,
		registry:  reg,
		snapshots: snapshots,
		status:    status,
		broker:    broker,
		log:       log.Named("fleet"),
	}
}

// Reload replaces the registry with the backend's listing.
func (s *FleetService) Reload(ctx context.Context) error {
	servos, err := s.backend.ListServos(ctx)
	if err != nil {
		s.status.Global(fmt.Sprintf("Failed to load servos: %v", err), models.LevelError)
		s.log.Warnw("reload_failed", "err", err)
		return err
	}
	s.registry.Replace(servos)
	if s.snapshots != nil {
		if err := s.snapshots.SaveFleet(s.registry.Snapshot()); err != nil {
			s.log.Warnw("snapshot_save_failed", "err", err)
		}
	}
	n, enabled := s.registry.Len(), s.registry.EnabledCount()
	s.broker.Publish(models.Event{
		Type:        models.EventFleet,
		Description: fmt.Sprintf("%d servos active", enabled),
		Metadata:    map[string]int{"count": n, "enabled": enabled},
	})
	s.log.Infow("fleet_reloaded", "count", n, "enabled", enabled)
	return nil
}

func (s *FleetService) List() []models.Actuator {
	return s.registry.Snapshot()
}

func (s *FleetService) Get(id string) (models.Actuator, error) {
	a, ok := s.registry.Get(id)
	if !ok {
		return models.Actuator{}, fmt.Errorf("%w: %s", ErrUnknownActuator, id)
	}
	return a, nil
}

func (s *FleetService) EnabledCount() int {
	return s.registry.EnabledCount()
}

// Add creates a new actuator.
func (s *FleetService) Add(ctx context.Context, id string, cfg models.ActuatorConfig) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("servo_id", "must not be empty")
	}
	if _, exists := s.registry.Get(id); exists {
		return invalid("servo_id", "%q already exists", id)
	}
	cfg.ID = id
	if err := s.Validate(id, cfg); err != nil {
		return err
	}
	msg, err := s.backend.AddServo(ctx, id, cfg)
	return s.afterEdit(ctx, "add", id, msg, err, "Servo added successfully", "Failed to add servo: ", "Add servo error")
}

// Update replaces the definition of id wholesale.
func (s *FleetService) Update(ctx context.Context, id string, cfg models.ActuatorConfig) error {
	if _, ok := s.registry.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActuator, id)
	}
	cfg.ID = id
	if err := s.Validate(id, cfg); err != nil {
		return err
	}
	msg, err := s.backend.UpdateServo(ctx, id, cfg)
	return s.afterEdit(ctx, "update", id, msg, err, "Servo updated successfully", "Failed to update servo: ", "Update servo error")
}

func (s *FleetService) Remove(ctx context.Context, id string) error {
	if _, ok := s.registry.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActuator, id)
	}
	msg, err := s.backend.RemoveServo(ctx, id)
	return s.afterEdit(ctx, "remove", id, msg, err, "Servo deleted successfully", "Failed to delete servo: ", "Delete servo error")
}

func (s *FleetService) afterEdit(ctx context.Context, op, id, msg string, err error, okMsg, rejectedPrefix, transportMsg string) error {
	if err != nil {
		if reason, rejected := rejectionMessage(err); rejected {
			s.status.Global(rejectedPrefix+reason, models.LevelError)
		} else {
			s.status.Global(transportMsg, models.LevelError)
		}
		s.log.Warnw("fleet_edit_failed", "op", op, "actuator", id, "err", err)
		return err
	}

	s.broker.Publish(models.Event{
		Type:        models.EventConfig,
		ActuatorID:  id,
		Description: fmt.Sprintf("%s servo", op),
		Metadata:    map[string]string{"op": op, "message": msg},
	})
	s.status.Global(okMsg, models.LevelSuccess)
	return s.Reload(ctx)
}

// Validate checks cfg against the hardware limits and the rest of the fleet.
// It is advisory: the backend re-validates authoritatively.
func (s *FleetService) Validate(id string, cfg models.ActuatorConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return invalid("name", "must not be empty")
	}
	if cfg.Channel < MinChannel || cfg.Channel > MaxChannel {
		return invalid("channel", "%d outside %d..%d", cfg.Channel, MinChannel, MaxChannel)
	}
	for _, other := range s.registry.Snapshot() {
		if other.ID != id && other.Channel == cfg.Channel {
			return invalid("channel", "%d already used by %s", cfg.Channel, other.ID)
		}
	}
	if cfg.MinAngle < HardwareMin || cfg.MaxAngle > HardwareMax {
		return invalid("angle", "bounds must lie within %d..%d", HardwareMin, HardwareMax)
	}
	if cfg.MinAngle > cfg.MaxAngle {
		return invalid("angle", "min_angle %d greater than max_angle %d", cfg.MinAngle, cfg.MaxAngle)
	}
	if cfg.MinPulseUs < MinPulseUs || cfg.MaxPulseUs > MaxPulseUs {
		return invalid("pulse", "bounds must lie within %d..%dus", MinPulseUs, MaxPulseUs)
	}
	if cfg.MinPulseUs >= cfg.MaxPulseUs {
		return invalid("pulse", "min_pulse_us %d must be below max_pulse_us %d", cfg.MinPulseUs, cfg.MaxPulseUs)
	}
	if cfg.DefaultAngle < cfg.MinAngle || cfg.DefaultAngle > cfg.MaxAngle {
		return invalid("default_angle", "%d outside %d..%d", cfg.DefaultAngle, cfg.MinAngle, cfg.MaxAngle)
	}
	for field, v := range map[string]*int{"open_angle": cfg.OpenAngle, "close_angle": cfg.CloseAngle} {
		if v != nil && (*v < cfg.MinAngle || *v > cfg.MaxAngle) {
			return invalid(field, "%d outside %d..%d", *v, cfg.MinAngle, cfg.MaxAngle)
		}
	}
	return nil
}
