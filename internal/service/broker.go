package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"servopanel/internal/models"
)

const defaultSubscriberBuffer = 64

// Broker fans coordinator events out to subscribers. Publish never blocks:
// a subscriber that falls behind loses events.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]chan models.Event
	nextID int
	closed bool
	now    func() time.Time
}

func NewBroker() *Broker {
	return &Broker{
		subs: map[int]chan models.Event{},
		now:  time.Now,
	}
}

// Publish stamps evt with an id and time (when missing) and delivers it.
func (b *Broker) Publish(evt models.Event) {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = b.now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a new listener. The returned cancel func closes the
// channel and is safe to call more than once.
func (b *Broker) Subscribe(buffer int) (<-chan models.Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan models.Event, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Close disconnects every subscriber.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
