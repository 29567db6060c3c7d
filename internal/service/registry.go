package service

import (
	"math"
	"sync"

	"servopanel/internal/backend"
	"servopanel/internal/models"
)

// Registry is the local cache of the fleet. It is written by reloads, command
// results and reconciliation polls, from any goroutine.
type Registry struct {
	mu    sync.RWMutex
	items map[string]*models.Actuator
	order []string
}

func NewRegistry() *Registry {
	return &Registry{items: map[string]*models.Actuator{}}
}

// Replace swaps the whole map for the given listing. Actuators absent from
// servos disappear.
func (r *Registry) Replace(servos []backend.Servo) {
	items := make(map[string]*models.Actuator, len(servos))
	order := make([]string, 0, len(servos))
	for _, s := range servos {
		if _, dup := items[s.ID]; dup {
			continue
		}
		pos := s.ActuatorConfig.Clamp(roundAngle(s.CurrentPosition))
		items[s.ID] = &models.Actuator{
			ActuatorConfig:  s.ActuatorConfig,
			CurrentPosition: pos,
			TargetAngle:     pos,
		}
		order = append(order, s.ID)
	}

	r.mu.Lock()
	r.items = items
	r.order = order
	r.mu.Unlock()
}

// Get returns a copy of one entry.
func (r *Registry) Get(id string) (models.Actuator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return models.Actuator{}, false
	}
	return *a, true
}

// Snapshot returns copies of every entry in backend listing order.
func (r *Registry) Snapshot() []models.Actuator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Actuator, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.items[id])
	}
	return out
}

// IDs returns the known actuator ids in listing order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// EnabledCount is the number of enabled actuators.
func (r *Registry) EnabledCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, a := range r.items {
		if a.Enabled {
			n++
		}
	}
	return n
}

// ApplyPosition stores a confirmed angle, clamped to the actuator's bounds.
// It returns the stored value and whether it differs from the previous one.
// Unknown ids are ignored.
func (r *Registry) ApplyPosition(id string, angle int) (applied int, changed bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, found := r.items[id]
	if !found {
		return 0, false, false
	}
	applied = a.Clamp(angle)
	changed = applied != a.CurrentPosition
	a.CurrentPosition = applied
	if !a.Moving {
		a.TargetAngle = applied
	}
	return applied, changed, true
}

// SetTarget records the UI target while input is being debounced.
func (r *Registry) SetTarget(id string, angle int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return 0, false
	}
	a.TargetAngle = a.Clamp(angle)
	return a.TargetAngle, true
}

func (r *Registry) SetMoving(id string, moving bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return false
	}
	a.Moving = moving
	return true
}

func roundAngle(a float64) int {
	return int(math.Round(a))
}
