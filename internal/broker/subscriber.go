// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package broker

// SubscriberState tracks a subscriber's lifecycle:
// Connecting -> Active -> Closed.
type SubscriberState int32

const (
	// StateConnecting covers the window between registration and the end
	// of replay, before live delivery starts.
	StateConnecting SubscriberState = iota

	// StateActive means the subscriber receives live events.
	StateActive

	// StateClosed is terminal: client disconnect, server teardown, or
	// shedding after persistent buffer saturation.
	StateClosed
)

// Subscriber is one live stream connection's view of the broker. The broker
// owns all mutable fields; they are only touched under the owning user
// entry's lock. Consumers read delivered events from Events().
type Subscriber struct {
	userID       string
	connectionID string

	// types is the subscriber's interest filter; empty means all types.
	types map[EventType]struct{}

	// ch is the bounded outbound delivery buffer. Delivery is a
	// non-blocking enqueue; see Broker.deliverLocked for the drop policy.
	ch chan Event

	state SubscriberState

	// drops counts events shed from this subscriber's buffer. Once it
	// crosses the broker's degrade threshold the subscriber is closed.
	drops int

	// lastEnqueuedID is the highest event ID placed in the buffer,
	// for observability only; clients track their own replay cursor.
	lastEnqueuedID uint64
}

func newSubscriber(userID, connectionID string, types []EventType, buffer int) *Subscriber {
	var filter map[EventType]struct{}
	if len(types) > 0 {
		filter = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			filter[t] = struct{}{}
		}
	}
	return &Subscriber{
		userID:       userID,
		connectionID: connectionID,
		types:        filter,
		ch:           make(chan Event, buffer),
		state:        StateConnecting,
	}
}

// Events returns the subscriber's delivery channel. The channel is closed
// when the subscription ends; consumers must treat a closed channel as
// end-of-stream and resubscribe if they want to continue.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// UserID returns the user this subscriber belongs to.
func (s *Subscriber) UserID() string {
	return s.userID
}

// ConnectionID returns the unique ID of the underlying stream connection.
func (s *Subscriber) ConnectionID() string {
	return s.connectionID
}

// wants reports whether the subscriber's filter admits events of type t.
// An empty filter admits everything.
func (s *Subscriber) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// degraded reports whether the subscriber has shed at least one event.
func (s *Subscriber) degraded() bool {
	return s.drops > 0
}
