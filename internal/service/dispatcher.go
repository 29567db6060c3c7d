package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"servopanel/internal/logger"
	"servopanel/internal/models"
)

// DefaultSweepSettle is the delay between a finished sweep and the follow-up
// position read.
const DefaultSweepSettle = 500 * time.Millisecond

// DefaultSweepMargin is added to the expected duration of a sweep to form
// its deadline.
const DefaultSweepMargin = 5 * time.Second

const (
	msgPleaseWait      = "Please wait for current movement"
	msgPleaseWaitFleet = "Please wait for current movements"
	msgConnectionError = "Connection error"
)

// DispatcherOptions tunes a Dispatcher.
type DispatcherOptions struct {
	SweepSettle     time.Duration
	SweepMargin     time.Duration
	DefaultSweep    models.SweepParams
	FollowUpRead    Reconciler
	FollowUpTimeout time.Duration
}

// Dispatcher issues motion commands and applies their results. Every command
// takes a per-actuator sequence number at dispatch; a result whose number has
// been superseded is dropped without touching the registry. The moving flag
// is cleared by the newest result, or by the last in-flight command of an
// actuator once it settles.
type Dispatcher struct {
	backend  Backend
	registry *Registry
	lock     *FleetLock
	status   *StatusPresenter
	broker   *Broker
	log      *logger.Logger
	opts     DispatcherOptions

	mu      sync.Mutex
	seq     map[string]uint64
	pending map[string]int
	settle  *time.Timer
	closed  bool
}

func NewDispatcher(b Backend, reg *Registry, lock *FleetLock, status *StatusPresenter, broker *Broker, log *logger.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.SweepSettle <= 0 {
		opts.SweepSettle = DefaultSweepSettle
	}
	if opts.SweepMargin <= 0 {
		opts.SweepMargin = DefaultSweepMargin
	}
	if opts.DefaultSweep.Step <= 0 {
		opts.DefaultSweep.Step = 15
	}
	if opts.DefaultSweep.Delay <= 0 {
		opts.DefaultSweep.Delay = 0.05
	}
	return &Dispatcher{
		backend:  b,
		registry: reg,
		lock:     lock,
		status:   status,
		broker:   broker,
		log:      log.Named("dispatcher"),
		opts:     opts,
		seq:      map[string]uint64{},
		pending:  map[string]int{},
	}
}

func (d *Dispatcher) nextSeq(id string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq[id]++
	return d.seq[id]
}

// begin numbers a command for id and counts it as in flight until settled.
func (d *Dispatcher) begin(id string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq[id]++
	d.pending[id]++
	return d.seq[id]
}

// finish ends a command started by begin. The moving flag is cleared when seq
// is still the newest dispatch for id, or when nothing else is in flight for
// it; fn runs only in the first case. It reports both conditions.
func (d *Dispatcher) finish(id string, seq uint64, fn func()) (current, idle bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[id] > 1 {
		d.pending[id]--
	} else {
		delete(d.pending, id)
		idle = true
	}
	current = d.seq[id] == seq
	if current || idle {
		d.registry.SetMoving(id, false)
	}
	if current {
		fn()
	}
	return current, idle
}

// applyIfCurrent runs fn only while seq is still the newest dispatch for id.
func (d *Dispatcher) applyIfCurrent(id string, seq uint64, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seq[id] != seq {
		return false
	}
	fn()
	return true
}

func (d *Dispatcher) lookup(id string) (models.Actuator, error) {
	a, ok := d.registry.Get(id)
	if !ok {
		return models.Actuator{}, fmt.Errorf("%w: %s", ErrUnknownActuator, id)
	}
	if !a.Enabled {
		return a, fmt.Errorf("%w: %s", ErrActuatorDisabled, id)
	}
	return a, nil
}

// SetAngle sends one move for id, clamped to its bounds, and caches the angle
// the backend confirms. While the fleet lock is held nothing is sent; while
// the move is in flight no sweep can take the lock.
func (d *Dispatcher) SetAngle(ctx context.Context, id string, angle int) (models.Actuator, error) {
	if !d.lock.TryEnterShared() {
		d.status.Show(id, msgPleaseWait, models.LevelError)
		return models.Actuator{}, ErrFleetBusy
	}
	defer d.lock.ExitShared()
	a, err := d.lookup(id)
	if err != nil {
		return a, err
	}

	target := a.Clamp(angle)
	seq := d.begin(id)
	d.setMoving(id, true)
	d.status.Show(id, fmt.Sprintf("Moving to %d°...", target), models.LevelInfo)
	d.log.Debugw("set_angle_dispatched", "actuator", id, "angle", target, "seq", seq)

	confirmed, err := d.backend.SetAngle(ctx, id, target)

	var (
		applied int
		changed bool
	)
	current, idle := d.finish(id, seq, func() {
		if err == nil {
			applied, changed, _ = d.registry.ApplyPosition(id, confirmed)
		}
	})
	if current || idle {
		d.publishMoving(id, false)
	}
	if !current {
		d.log.Debugw("set_angle_stale", "actuator", id, "seq", seq)
		snap, _ := d.registry.Get(id)
		return snap, nil
	}

	if err != nil {
		d.reportFailure(id, "set angle", err, func(msg string) string { return "Error: " + msg }, msgConnectionError)
		return models.Actuator{}, err
	}

	d.status.Show(id, fmt.Sprintf("Position: %d°", applied), models.LevelSuccess)
	d.broker.Publish(models.Event{
		Type:        models.EventCommand,
		ActuatorID:  id,
		Description: fmt.Sprintf("set angle %d°, confirmed %d°", target, applied),
		Metadata:    map[string]any{"requested": target, "confirmed": applied, "seq": seq},
	})
	if changed {
		d.publishPosition(id, applied, "command")
	}
	snap, _ := d.registry.Get(id)
	return snap, nil
}

// Sweep holds the fleet lock for the whole backend call and releases it on
// every outcome. Zero params fall back to the configured defaults. The call
// outlives a cancelled ctx; its deadline comes from sweepBudget.
func (d *Dispatcher) Sweep(ctx context.Context, id string, p models.SweepParams) error {
	a, err := d.lookup(id)
	if err != nil {
		return err
	}
	if p.Step <= 0 {
		p.Step = d.opts.DefaultSweep.Step
	}
	if p.Delay <= 0 {
		p.Delay = d.opts.DefaultSweep.Delay
	}
	if !d.lock.TryEnterExclusive() {
		d.status.Show(id, msgPleaseWait, models.LevelError)
		return ErrFleetBusy
	}
	defer d.lock.Exit()

	// Numbered like a move; any result still carrying an older number is stale.
	seq := d.begin(id)
	d.setMoving(id, true)
	d.status.Show(id, "Sweeping...", models.LevelInfo)
	d.broker.Publish(models.Event{
		Type:        models.EventSweep,
		ActuatorID:  id,
		Description: "sweep started",
		Metadata:    map[string]any{"step": p.Step, "delay": p.Delay, "seq": seq},
	})
	budget := d.sweepBudget(a, p)
	d.log.Infow("sweep_started", "actuator", id, "step", p.Step, "delay", p.Delay, "deadline", budget)

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)
	err = d.backend.Sweep(sctx, id, p)
	cancel()

	if current, idle := d.finish(id, seq, func() {}); current || idle {
		d.publishMoving(id, false)
	}

	if err != nil {
		d.reportFailure(id, "sweep", err, func(msg string) string { return "Sweep failed: " + msg }, "Sweep error")
		return err
	}

	d.status.Show(id, "Sweep complete", models.LevelSuccess)
	d.broker.Publish(models.Event{
		Type:        models.EventSweep,
		ActuatorID:  id,
		Description: "sweep complete",
		Metadata:    map[string]any{"step": p.Step, "delay": p.Delay, "seq": seq},
	})
	d.log.Infow("sweep_complete", "actuator", id)
	d.scheduleFollowUp()
	return nil
}

// sweepBudget is the expected duration of a sweep across the full range of a,
// one delay per step, plus the configured margin.
func (d *Dispatcher) sweepBudget(a models.Actuator, p models.SweepParams) time.Duration {
	span := a.MaxAngle - a.MinAngle
	if span < 0 {
		span = -span
	}
	steps := time.Duration(span/p.Step + 1)
	delay := time.Duration(p.Delay * float64(time.Second))
	return steps*delay + d.opts.SweepMargin
}

// scheduleFollowUp reads positions once after the settle delay; the resting
// angle of a sweep is only known to the backend.
func (d *Dispatcher) scheduleFollowUp() {
	if d.opts.FollowUpRead == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.settle != nil {
		d.settle.Stop()
	}
	d.settle = time.AfterFunc(d.opts.SweepSettle, func() {
		ctx := context.Background()
		if d.opts.FollowUpTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.opts.FollowUpTimeout)
			defer cancel()
		}
		d.opts.FollowUpRead.ReconcilePositions(ctx)
	})
}

// CenterAll moves every actuator to its center in one bulk request. Results
// are applied only to actuators with no newer dispatch; actuators missing
// from the answer keep their cached position.
func (d *Dispatcher) CenterAll(ctx context.Context) (map[string]int, error) {
	if !d.lock.TryEnterShared() {
		d.status.Global(msgPleaseWaitFleet, models.LevelError)
		return nil, ErrFleetBusy
	}
	defer d.lock.ExitShared()
	d.status.Global("Centering all servos...", models.LevelInfo)

	ids := d.registry.IDs()
	seqs := make(map[string]uint64, len(ids))
	for _, id := range ids {
		seqs[id] = d.nextSeq(id)
	}

	results, err := d.backend.CenterAll(ctx)
	if err != nil {
		d.reportFailure(globalStatusKey, "center all", err, func(msg string) string { return "Failed to center servos: " + msg }, "Center all failed")
		return nil, err
	}

	applied := make(map[string]int, len(results))
	for id, angle := range results {
		seq, known := seqs[id]
		if !known {
			continue
		}
		var (
			pos     int
			changed bool
		)
		ok := d.applyIfCurrent(id, seq, func() {
			pos, changed, _ = d.registry.ApplyPosition(id, angle)
		})
		if !ok {
			continue
		}
		applied[id] = pos
		if changed {
			d.publishPosition(id, pos, "center_all")
		}
	}

	d.status.Global("All servos centered", models.LevelSuccess)
	d.broker.Publish(models.Event{
		Type:        models.EventCenterAll,
		Description: fmt.Sprintf("centered %d of %d servos", len(applied), len(ids)),
		Metadata:    applied,
	})
	d.log.Infow("center_all_complete", "applied", len(applied), "known", len(ids))
	return applied, nil
}

// Close stops the pending follow-up read.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.settle != nil {
		d.settle.Stop()
	}
}

func (d *Dispatcher) setMoving(id string, moving bool) {
	d.registry.SetMoving(id, moving)
	d.publishMoving(id, moving)
}

func (d *Dispatcher) publishMoving(id string, moving bool) {
	d.broker.Publish(models.Event{
		Type:        models.EventMoving,
		ActuatorID:  id,
		Description: fmt.Sprintf("moving=%t", moving),
		Metadata:    map[string]any{"moving": moving},
	})
}

func (d *Dispatcher) publishPosition(id string, angle int, source string) {
	d.broker.Publish(models.Event{
		Type:        models.EventPosition,
		ActuatorID:  id,
		Description: fmt.Sprintf("position %d°", angle),
		Metadata:    map[string]any{"angle": angle, "source": source},
	})
}

// reportFailure surfaces a rejected or unreachable command. statusID may be
// the global key.
func (d *Dispatcher) reportFailure(statusID, op string, err error, rejected func(string) string, transport string) {
	if reason, ok := rejectionMessage(err); ok {
		d.status.Show(statusID, rejected(reason), models.LevelError)
		d.broker.Publish(models.Event{
			Type:        models.EventRejected,
			ActuatorID:  statusID,
			Description: fmt.Sprintf("%s rejected: %s", op, reason),
		})
		d.log.Infow("command_rejected", "op", op, "actuator", statusID, "reason", reason)
		return
	}
	d.status.Show(statusID, transport, models.LevelError)
	d.broker.Publish(models.Event{
		Type:        models.EventTransport,
		ActuatorID:  statusID,
		Description: fmt.Sprintf("%s failed: %v", op, err),
	})
	d.log.Warnw("command_transport_error", "op", op, "actuator", statusID, "err", err)
}
