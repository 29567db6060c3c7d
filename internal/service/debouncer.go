package service

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiescence window applied to bursts of input.
const DefaultDebounce = 150 * time.Millisecond

type pendingCommand struct {
	timer *time.Timer
	gen   uint64
	angle int
}

// Debouncer coalesces bursts of Schedule calls per actuator into a single
// call of fire carrying the last angle.
type Debouncer struct {
	window time.Duration
	fire   func(id string, angle int)

	mu      sync.Mutex
	gen     uint64
	pending map[string]*pendingCommand
	closed  bool
}

func NewDebouncer(window time.Duration, fire func(id string, angle int)) *Debouncer {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Debouncer{
		window:  window,
		fire:    fire,
		pending: map[string]*pendingCommand{},
	}
}

// Schedule records angle for id and restarts its window, replacing any timer
// already running for id.
func (d *Debouncer) Schedule(id string, angle int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if p, ok := d.pending[id]; ok {
		p.timer.Stop()
	}
	d.gen++
	gen := d.gen
	p := &pendingCommand{gen: gen, angle: angle}
	p.timer = time.AfterFunc(d.window, func() { d.expire(id, gen) })
	d.pending[id] = p
}

// expire fires only if gen still owns the slot; a timer that was replaced
// after it had already started running is a no-op.
func (d *Debouncer) expire(id string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[id]
	if !ok || p.gen != gen || d.closed {
		d.mu.Unlock()
		return
	}
	delete(d.pending, id)
	angle := p.angle
	d.mu.Unlock()

	d.fire(id, angle)
}

// Pending returns the angle waiting for id, if any.
func (d *Debouncer) Pending(id string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pending[id]
	if !ok {
		return 0, false
	}
	return p.angle, true
}

// Cancel drops the pending command for id.
func (d *Debouncer) Cancel(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pending[id]; ok {
		p.timer.Stop()
		delete(d.pending, id)
	}
}

// Close stops every pending timer; later Schedule calls are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, id)
	}
}
