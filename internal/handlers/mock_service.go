package handlers

import (
	"context"
	"sync"

	"servopanel/internal/models"
	"servopanel/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockFleet struct {
	servos    []models.Actuator
	getErr    error
	reloadErr error
	editErr   error

	reloadCalls int
	lastID      string
	lastConfig  models.ActuatorConfig
	removed     []string
}

func (m *mockFleet) Reload(ctx context.Context) error {
	m.reloadCalls++
	return m.reloadErr
}
func (m *mockFleet) List() []models.Actuator { return m.servos }
func (m *mockFleet) Get(id string) (models.Actuator, error) {
	if m.getErr != nil {
		return models.Actuator{}, m.getErr
	}
	for _, s := range m.servos {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Actuator{}, service.ErrUnknownActuator
}
func (m *mockFleet) EnabledCount() int {
	n := 0
	for _, s := range m.servos {
		if s.Enabled {
			n++
		}
	}
	return n
}
func (m *mockFleet) Add(ctx context.Context, id string, cfg models.ActuatorConfig) error {
	m.lastID, m.lastConfig = id, cfg
	return m.editErr
}
func (m *mockFleet) Update(ctx context.Context, id string, cfg models.ActuatorConfig) error {
	m.lastID, m.lastConfig = id, cfg
	return m.editErr
}
func (m *mockFleet) Remove(ctx context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.editErr
}

type mockMotion struct {
	target    int
	actuator  models.Actuator
	centered  map[string]int
	err       error
	busy      bool
	lastID    string
	lastAngle int
	lastDelta int
	lastName  string
	lastSweep models.SweepParams
}

func (m *mockMotion) Schedule(id string, angle int) (int, error) {
	m.lastID, m.lastAngle = id, angle
	return m.target, m.err
}
func (m *mockMotion) Nudge(id string, delta int) (int, error) {
	m.lastID, m.lastDelta = id, delta
	return m.target, m.err
}
func (m *mockMotion) Preset(id, name string) (int, error) {
	m.lastID, m.lastName = id, name
	return m.target, m.err
}
func (m *mockMotion) SetAngle(ctx context.Context, id string, angle int) (models.Actuator, error) {
	m.lastID, m.lastAngle = id, angle
	return m.actuator, m.err
}
func (m *mockMotion) Sweep(ctx context.Context, id string, p models.SweepParams) error {
	m.lastID, m.lastSweep = id, p
	return m.err
}
func (m *mockMotion) CenterAll(ctx context.Context) (map[string]int, error) {
	return m.centered, m.err
}
func (m *mockMotion) Busy() bool { return m.busy }

type mockMonitoring struct {
	report   models.ConnectivityReport
	probed   models.ConnectivityReport
	messages []models.StatusMessage
	probes   int
}

func (m *mockMonitoring) Connectivity() models.ConnectivityReport { return m.report }
func (m *mockMonitoring) CheckHealth(ctx context.Context) models.ConnectivityReport {
	m.probes++
	return m.probed
}
func (m *mockMonitoring) Statuses() []models.StatusMessage { return m.messages }

type mockEventLog struct {
	resp       []models.Event
	err        error
	lastFilter service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.Event, error) {
	m.lastFilter = f
	return m.resp, m.err
}

// mockEvents hands out one channel per subscriber; tests push via publish.
type mockEvents struct {
	mu   sync.Mutex
	subs []chan models.Event
	sub  chan struct{}
}

func newMockEvents() *mockEvents {
	return &mockEvents{sub: make(chan struct{}, 8)}
}

func (m *mockEvents) Subscribe(buffer int) (<-chan models.Event, func()) {
	ch := make(chan models.Event, buffer)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	m.sub <- struct{}{}
	return ch, func() {}
}

func (m *mockEvents) publish(e models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		ch <- e
	}
}

func (m *mockEvents) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		close(ch)
	}
	m.subs = nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil)
	return h.InitRoutes()
}

func intPtr(v int) *int { return &v }

func actuator(id string, pos int, enabled bool) models.Actuator {
	return models.Actuator{
		ActuatorConfig: models.ActuatorConfig{
			ID: id, Name: id, Channel: 0, MinAngle: 0, MaxAngle: 180,
			MinPulseUs: 500, MaxPulseUs: 2500, DefaultAngle: 90, Enabled: enabled,
		},
		CurrentPosition: pos,
		TargetAngle:     pos,
	}
}
