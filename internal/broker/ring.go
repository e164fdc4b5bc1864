// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package broker

// eventRing is a bounded FIFO of recent events for one user, supporting
// replay-on-reconnect. Eviction is oldest-first. The ring is not safe for
// concurrent use; callers hold the owning user entry's lock.
type eventRing struct {
	buf  []Event
	head int // index of the oldest event
	size int
}

func newEventRing(capacity int) *eventRing {
	return &eventRing{buf: make([]Event, capacity)}
}

// append adds ev, evicting the oldest event when full.
// Returns true when an eviction occurred.
func (r *eventRing) append(ev Event) bool {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = ev
		r.size++
		return false
	}
	// Full: overwrite the oldest slot and advance head.
	r.buf[r.head] = ev
	r.head = (r.head + 1) % len(r.buf)
	return true
}

// oldestID returns the ID of the oldest retained event, or (0, false)
// when the ring is empty.
func (r *eventRing) oldestID() (uint64, bool) {
	if r.size == 0 {
		return 0, false
	}
	return r.buf[r.head].ID, true
}

// since returns all retained events with ID > afterID, oldest first.
// The result is a copy; the ring may be mutated afterwards.
func (r *eventRing) since(afterID uint64) []Event {
	var out []Event
	for i := 0; i < r.size; i++ {
		ev := r.buf[(r.head+i)%len(r.buf)]
		if ev.ID > afterID {
			out = append(out, ev)
		}
	}
	return out
}

// len returns the number of retained events.
func (r *eventRing) len() int {
	return r.size
}
