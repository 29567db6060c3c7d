package service

import (
	"sort"
	"sync"
	"time"

	"servopanel/internal/models"
)

// DefaultStatusTTL is how long a status message stays visible.
const DefaultStatusTTL = 3 * time.Second

const globalStatusKey = ""

type statusEntry struct {
	msg   models.StatusMessage
	timer *time.Timer
	gen   uint64
}

// StatusPresenter keeps one expiring message per actuator card plus one
// global message. Each new message replaces the previous one for its slot.
type StatusPresenter struct {
	ttl    time.Duration
	broker *Broker
	now    func() time.Time

	mu      sync.Mutex
	gen     uint64
	entries map[string]*statusEntry
	closed  bool
}

func NewStatusPresenter(ttl time.Duration, broker *Broker) *StatusPresenter {
	if ttl <= 0 {
		ttl = DefaultStatusTTL
	}
	return &StatusPresenter{
		ttl:     ttl,
		broker:  broker,
		now:     time.Now,
		entries: map[string]*statusEntry{},
	}
}

// Show posts message on the card of actuatorID; an empty id targets the
// global bar.
func (p *StatusPresenter) Show(actuatorID, message, level string) {
	msg := models.StatusMessage{
		ActuatorID: actuatorID,
		Message:    message,
		Level:      level,
		ExpiresAt:  p.now().Add(p.ttl).UTC(),
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if old, ok := p.entries[actuatorID]; ok {
		old.timer.Stop()
	}
	p.gen++
	gen := p.gen
	p.entries[actuatorID] = &statusEntry{
		msg:   msg,
		gen:   gen,
		timer: time.AfterFunc(p.ttl, func() { p.expire(actuatorID, gen) }),
	}
	p.mu.Unlock()

	if p.broker != nil {
		p.broker.Publish(models.Event{
			Type:        models.EventStatus,
			ActuatorID:  actuatorID,
			Description: message,
			Metadata:    msg,
		})
	}
}

// Global posts on the global bar.
func (p *StatusPresenter) Global(message, level string) {
	p.Show(globalStatusKey, message, level)
}

func (p *StatusPresenter) expire(actuatorID string, gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[actuatorID]; ok && e.gen == gen {
		delete(p.entries, actuatorID)
	}
}

// Get returns the live message for actuatorID.
func (p *StatusPresenter) Get(actuatorID string) (models.StatusMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[actuatorID]
	if !ok || !p.now().Before(e.msg.ExpiresAt) {
		return models.StatusMessage{}, false
	}
	return e.msg, true
}

// Current lists every live message, global first, then by actuator id.
func (p *StatusPresenter) Current() []models.StatusMessage {
	p.mu.Lock()
	now := p.now()
	out := make([]models.StatusMessage, 0, len(p.entries))
	for _, e := range p.entries {
		if now.Before(e.msg.ExpiresAt) {
			out = append(out, e.msg)
		}
	}
	p.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ActuatorID < out[j].ActuatorID })
	return out
}

func (p *StatusPresenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for id, e := range p.entries {
		e.timer.Stop()
		delete(p.entries, id)
	}
}
