package service

import (
	"context"
	"fmt"
	"time"

	"servopanel/internal/logger"
	"servopanel/internal/models"
)

// DefaultNudgeStep is the relative move applied by a nudge without a delta.
const DefaultNudgeStep = 5

// Preset names accepted by Preset.
const (
	PresetMin    = "min"
	PresetCenter = "center"
	PresetMax    = "max"
	PresetOpen   = "open"
	PresetClose  = "close"
)

// MotionService is the user-facing command path: debounced targets, nudges
// and presets feed the dispatcher; sweeps and bulk centering go straight
// through.
type MotionService struct {
	registry   *Registry
	lock       *FleetLock
	dispatcher *Dispatcher
	debouncer  *Debouncer
	status     *StatusPresenter
	log        *logger.Logger
	nudgeStep  int
	fireCtx    context.Context
}

// NewMotionService wires a debouncer whose expiry dispatches through d.
// Commands fired by the debouncer run under ctx.
func NewMotionService(ctx context.Context, reg *Registry, lock *FleetLock, d *Dispatcher, status *StatusPresenter, log *logger.Logger, window time.Duration, nudgeStep int) *MotionService {
	if nudgeStep <= 0 {
		nudgeStep = DefaultNudgeStep
	}
	m := &MotionService{
		registry:   reg,
		lock:       lock,
		dispatcher: d,
		status:     status,
		log:        log.Named("motion"),
		nudgeStep:  nudgeStep,
		fireCtx:    ctx,
	}
	m.debouncer = NewDebouncer(window, m.fire)
	return m
}

// fire runs when a debounce window closes. The lock is re-checked here: a
// command whose window closes during a sweep is dropped, never queued.
func (m *MotionService) fire(id string, angle int) {
	if m.lock.Held() {
		m.status.Show(id, msgPleaseWait, models.LevelError)
		m.log.Debugw("debounced_command_dropped", "actuator", id, "angle", angle)
		return
	}
	if _, err := m.dispatcher.SetAngle(m.fireCtx, id, angle); err != nil {
		m.log.Debugw("debounced_command_failed", "actuator", id, "err", err)
	}
}

func (m *MotionService) enabled(id string) (models.Actuator, error) {
	a, ok := m.registry.Get(id)
	if !ok {
		return a, fmt.Errorf("%w: %s", ErrUnknownActuator, id)
	}
	if !a.Enabled {
		return a, fmt.Errorf("%w: %s", ErrActuatorDisabled, id)
	}
	return a, nil
}

// Schedule sets the UI target of id and (re)starts its debounce window. It
// returns the clamped target.
func (m *MotionService) Schedule(id string, angle int) (int, error) {
	if _, err := m.enabled(id); err != nil {
		return 0, err
	}
	target, _ := m.registry.SetTarget(id, angle)
	m.debouncer.Schedule(id, target)
	return target, nil
}

// Nudge moves the target of id by delta; a zero delta uses the default step.
func (m *MotionService) Nudge(id string, delta int) (int, error) {
	a, err := m.enabled(id)
	if err != nil {
		return 0, err
	}
	if delta == 0 {
		delta = m.nudgeStep
	}
	base := a.TargetAngle
	if pending, ok := m.debouncer.Pending(id); ok {
		base = pending
	}
	return m.Schedule(id, base+delta)
}

// Preset schedules a named angle.
func (m *MotionService) Preset(id, name string) (int, error) {
	a, err := m.enabled(id)
	if err != nil {
		return 0, err
	}
	var angle int
	switch name {
	case PresetMin:
		angle = a.MinAngle
	case PresetCenter:
		angle = a.Center()
	case PresetMax:
		angle = a.MaxAngle
	case PresetOpen:
		if a.OpenAngle == nil {
			return 0, invalid("preset", "%s has no open angle", id)
		}
		angle = *a.OpenAngle
	case PresetClose:
		if a.CloseAngle == nil {
			return 0, invalid("preset", "%s has no close angle", id)
		}
		angle = *a.CloseAngle
	default:
		return 0, invalid("preset", "unknown preset %q", name)
	}
	return m.Schedule(id, angle)
}

// SetAngle bypasses the debouncer and waits for the backend answer. A
// pending debounced target for id is discarded.
func (m *MotionService) SetAngle(ctx context.Context, id string, angle int) (models.Actuator, error) {
	if !m.lock.Held() {
		m.debouncer.Cancel(id)
	}
	return m.dispatcher.SetAngle(ctx, id, angle)
}

func (m *MotionService) Sweep(ctx context.Context, id string, p models.SweepParams) error {
	return m.dispatcher.Sweep(ctx, id, p)
}

func (m *MotionService) CenterAll(ctx context.Context) (map[string]int, error) {
	return m.dispatcher.CenterAll(ctx)
}

// Busy reports whether the fleet lock is held.
func (m *MotionService) Busy() bool {
	return m.lock.Held()
}

// Close cancels pending debounce timers and the sweep follow-up.
func (m *MotionService) Close() {
	m.debouncer.Close()
	m.dispatcher.Close()
}
