package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"servopanel/internal/logger"
	"servopanel/internal/models"
)

const (
	DefaultPositionInterval = 5 * time.Second
	DefaultHealthInterval   = 10 * time.Second

	healthyStatus = "healthy"
)

// PollerService reconciles the registry and the connectivity indicator with
// the backend. Reads are idempotent, so ticks may overlap; failures are
// swallowed and retried on the next tick.
type PollerService struct {
	backend  Backend
	registry *Registry
	broker   *Broker
	log      *logger.Logger

	positionsEvery time.Duration
	healthEvery    time.Duration
	now            func() time.Time

	inflight sync.WaitGroup

	mu     sync.RWMutex
	report models.ConnectivityReport
}

func NewPollerService(b Backend, reg *Registry, broker *Broker, log *logger.Logger, positionsEvery, healthEvery time.Duration) *PollerService {
	if positionsEvery <= 0 {
		positionsEvery = DefaultPositionInterval
	}
	if healthEvery <= 0 {
		healthEvery = DefaultHealthInterval
	}
	return &PollerService{
		backend:        b,
		registry:       reg,
		broker:         broker,
		log:            log.Named("poller"),
		positionsEvery: positionsEvery,
		healthEvery:    healthEvery,
		now:            time.Now,
		report:         models.ConnectivityReport{State: models.Disconnected},
	}
}

// Run drives both loops until ctx is canceled. It returns only after every
// in-flight tick has finished, so nothing is applied after it returns.
func (p *PollerService) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.loop(gctx, p.positionsEvery, p.ReconcilePositions)
		return nil
	})
	g.Go(func() error {
		p.loop(gctx, p.healthEvery, func(c context.Context) { p.CheckHealth(c) })
		return nil
	})
	err := g.Wait()
	p.inflight.Wait()
	return err
}

// loop fires tick immediately and then every interval. Each tick runs in its
// own goroutine and is never awaited by the loop.
func (p *PollerService) loop(ctx context.Context, every time.Duration, tick func(context.Context)) {
	t := time.NewTicker(every)
	defer t.Stop()

	p.spawn(ctx, tick)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.spawn(ctx, tick)
		}
	}
}

func (p *PollerService) spawn(ctx context.Context, tick func(context.Context)) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		tick(ctx)
	}()
}

// ReconcilePositions applies every position the backend reports. Actuators
// missing from the answer are left alone.
func (p *PollerService) ReconcilePositions(ctx context.Context) {
	positions, err := p.backend.Positions(ctx)
	if err != nil {
		p.log.Debugw("reconcile_positions_failed", "err", err)
		return
	}
	if ctx.Err() != nil {
		return
	}
	for id, angle := range positions {
		applied, changed, ok := p.registry.ApplyPosition(id, angle)
		if !ok || !changed {
			continue
		}
		p.broker.Publish(models.Event{
			Type:        models.EventPosition,
			ActuatorID:  id,
			Description: "position reconciled",
			Metadata:    map[string]any{"angle": applied, "source": "poll"},
		})
	}
}

// CheckHealth probes the backend and updates the connectivity indicator.
func (p *PollerService) CheckHealth(ctx context.Context) models.ConnectivityReport {
	h, err := p.backend.Health(ctx)
	report := models.ConnectivityReport{CheckedAt: p.now().UTC()}
	switch {
	case err != nil:
		report.State = models.Disconnected
		p.log.Debugw("health_check_failed", "err", err)
	case h.Status == healthyStatus:
		report.State = models.Connected
	default:
		report.State = models.Degraded
	}
	if err == nil {
		report.BackendStatus = h.Status
		report.BackendRunning = h.BackendRunning
		report.BackendURL = h.BackendURL
		report.ServoCount = h.ServoCount
	}
	if ctx.Err() != nil {
		return report
	}

	p.mu.Lock()
	prev := p.report.State
	p.report = report
	p.mu.Unlock()

	if prev != report.State {
		p.log.Infow("connectivity_changed", "from", prev, "to", report.State)
		p.broker.Publish(models.Event{
			Type:        models.EventConnectivity,
			Description: string(report.State),
			Metadata:    report,
		})
	}
	return report
}

// Connectivity returns the last probe outcome.
func (p *PollerService) Connectivity() models.ConnectivityReport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.report
}
