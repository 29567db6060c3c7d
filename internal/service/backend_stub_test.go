package service

import (
	"context"
	"sync"

	"servopanel/internal/backend"
	"servopanel/internal/models"
)

// backendStub is a hand-written Backend. Each hook is optional; calls are
// recorded for assertions.
type backendStub struct {
	mu sync.Mutex

	servos    []backend.Servo
	listErr   error
	positions map[string]int
	posErr    error
	health    backend.Health
	healthErr error
	editErr   error

	setAngleFn  func(ctx context.Context, id string, angle int) (int, error)
	sweepFn     func(ctx context.Context, id string, p models.SweepParams) error
	centerAllFn func(ctx context.Context) (map[string]int, error)

	setAngleCalls  []angleCall
	sweepCalls     []string
	centerAllCalls int
	positionCalls  int
	listCalls      int
	edits          []string
}

type angleCall struct {
	id    string
	angle int
}

func (b *backendStub) ListServos(ctx context.Context) ([]backend.Servo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++
	return append([]backend.Servo(nil), b.servos...), b.listErr
}

func (b *backendStub) SetAngle(ctx context.Context, id string, angle int) (int, error) {
	b.mu.Lock()
	b.setAngleCalls = append(b.setAngleCalls, angleCall{id, angle})
	fn := b.setAngleFn
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, id, angle)
	}
	return angle, nil
}

func (b *backendStub) Sweep(ctx context.Context, id string, p models.SweepParams) error {
	b.mu.Lock()
	b.sweepCalls = append(b.sweepCalls, id)
	fn := b.sweepFn
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx, id, p)
	}
	return nil
}

func (b *backendStub) CenterAll(ctx context.Context) (map[string]int, error) {
	b.mu.Lock()
	b.centerAllCalls++
	fn := b.centerAllFn
	b.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return map[string]int{}, nil
}

func (b *backendStub) Positions(ctx context.Context) (map[string]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positionCalls++
	out := make(map[string]int, len(b.positions))
	for k, v := range b.positions {
		out[k] = v
	}
	return out, b.posErr
}

func (b *backendStub) Health(ctx context.Context) (backend.Health, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.health, b.healthErr
}

func (b *backendStub) AddServo(ctx context.Context, id string, cfg models.ActuatorConfig) (string, error) {
	return b.edit("add "+id, backend.Servo{ActuatorConfig: cfg})
}

func (b *backendStub) UpdateServo(ctx context.Context, id string, cfg models.ActuatorConfig) (string, error) {
	return b.edit("update "+id, backend.Servo{})
}

func (b *backendStub) RemoveServo(ctx context.Context, id string) (string, error) {
	return b.edit("remove "+id, backend.Servo{})
}

func (b *backendStub) edit(what string, added backend.Servo) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.edits = append(b.edits, what)
	if b.editErr != nil {
		return "", b.editErr
	}
	if added.ID != "" {
		b.servos = append(b.servos, added)
	}
	return "ok", nil
}

func (b *backendStub) angleCalls() []angleCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]angleCall(nil), b.setAngleCalls...)
}

func (b *backendStub) positionReads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positionCalls
}

// servo builds a listing entry with bounds [lo, hi].
func servo(id string, channel, lo, hi, pos int, enabled bool) backend.Servo {
	return backend.Servo{
		ActuatorConfig: models.ActuatorConfig{
			ID:           id,
			Name:         id,
			Channel:      channel,
			MinAngle:     lo,
			MaxAngle:     hi,
			MinPulseUs:   500,
			MaxPulseUs:   2500,
			DefaultAngle: (lo + hi) / 2,
			Enabled:      enabled,
		},
		CurrentPosition: float64(pos),
	}
}

// threeServos is servo_0 and servo_2 enabled, servo_1 disabled.
func threeServos() []backend.Servo {
	return []backend.Servo{
		servo("servo_0", 0, 0, 180, 90, true),
		servo("servo_1", 1, 0, 180, 45, false),
		servo("servo_2", 2, 0, 90, 10, true),
	}
}
