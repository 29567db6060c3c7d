package service

import "sync"

// FleetLock gates the right to issue motion commands. A sweep holds it
// exclusively for the whole fleet; per-actuator commands hold a shared entry
// from before their send until the backend answers. The two never overlap.
type FleetLock struct {
	mu        sync.Mutex
	exclusive bool
	inflight  int
}

// TryEnterExclusive takes the lock, or reports false if it is already held
// or a shared command is still in flight.
func (l *FleetLock) TryEnterExclusive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.exclusive || l.inflight > 0 {
		return false
	}
	l.exclusive = true
	return true
}

// Exit releases the exclusive hold.
func (l *FleetLock) Exit() {
	l.mu.Lock()
	l.exclusive = false
	l.mu.Unlock()
}

// TryEnterShared counts one command as in flight, or reports false while the
// lock is held exclusively. Every successful entry must be paired with
// ExitShared.
func (l *FleetLock) TryEnterShared() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.exclusive {
		return false
	}
	l.inflight++
	return true
}

// ExitShared ends one in-flight command.
func (l *FleetLock) ExitShared() {
	l.mu.Lock()
	if l.inflight > 0 {
		l.inflight--
	}
	l.mu.Unlock()
}

// Held reports whether the lock is held exclusively.
func (l *FleetLock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exclusive
}
