// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

// Package broker implements the in-memory per-user event broker: a
// subscriber registry with bounded per-user replay rings, fan-out to live
// stream sessions, and backpressure shedding for slow consumers.
//
// Scope is a single process. Horizontal scaling would put an external
// pub/sub system behind the same interface; that is future work.
//
// Ordering: sequence IDs are assigned atomically, and ring append plus
// delivery happen under the owning user's lock, so each subscriber observes
// one user's events in publish order. No ordering holds across users.
package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/praxis-edu/praxis/internal/logging"
	"github.com/praxis-edu/praxis/internal/metrics"
)

var (
	// ErrClosed is returned by operations on a shut-down broker.
	ErrClosed = errors.New("broker: closed")

	// ErrInvalidType is returned when publishing a type outside the
	// closed domain enumeration.
	ErrInvalidType = errors.New("broker: invalid event type")
)

// Config holds broker tunables. The drop/degrade constants are design
// choices, not protocol requirements; they only bound the memory a slow
// client can pin.
type Config struct {
	// RingCapacity is the per-user replay buffer size.
	RingCapacity int

	// SubscriberBuffer is each subscriber's outbound queue length.
	// Must be at least RingCapacity so replay never sheds events.
	SubscriberBuffer int

	// DegradeAfterDrops closes a subscriber once it has shed this many
	// events in total.
	DegradeAfterDrops int

	// SweepInterval is the period of the idle-user cleanup in Serve.
	SweepInterval time.Duration

	// IdleUserRetention is how long an entry with no subscribers keeps
	// its ring after the last publish.
	IdleUserRetention time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		RingCapacity:      50,
		SubscriberBuffer:  64,
		DegradeAfterDrops: 32,
		SweepInterval:     30 * time.Second,
		IdleUserRetention: time.Hour,
	}
}

// userEntry owns one user's ring buffer and subscriber set. All fields are
// guarded by mu. Lock ordering is Broker.mu before userEntry.mu, never the
// reverse.
type userEntry struct {
	mu          sync.Mutex
	ring        *eventRing
	subs        map[string]*Subscriber
	lastID      uint64 // highest event ID published for this user
	lastPublish time.Time
}

// Broker is the process-wide event broker. Create with New, inject into
// handlers, and run Serve under the supervisor for lifecycle management.
type Broker struct {
	cfg Config

	mu    sync.RWMutex
	users map[string]*userEntry
	conns map[string]string // connectionID -> userID

	seq    atomic.Uint64
	closed atomic.Bool
}

// New creates a Broker. Zero-value config fields fall back to defaults.
func New(cfg Config) *Broker {
	def := DefaultConfig()
	if cfg.RingCapacity <= 0 {
		cfg.RingCapacity = def.RingCapacity
	}
	if cfg.SubscriberBuffer < cfg.RingCapacity {
		cfg.SubscriberBuffer = cfg.RingCapacity
	}
	if cfg.DegradeAfterDrops <= 0 {
		cfg.DegradeAfterDrops = def.DegradeAfterDrops
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.IdleUserRetention <= 0 {
		cfg.IdleUserRetention = def.IdleUserRetention
	}

	return &Broker{
		cfg:   cfg,
		users: make(map[string]*userEntry),
		conns: make(map[string]string),
	}
}

// entry returns the user's entry, creating it if needed.
func (b *Broker) entry(userID string) *userEntry {
	b.mu.RLock()
	e, ok := b.users[userID]
	b.mu.RUnlock()
	if ok {
		return e
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok = b.users[userID]; ok {
		return e
	}
	e = &userEntry{
		ring: newEventRing(b.cfg.RingCapacity),
		subs: make(map[string]*Subscriber),
	}
	b.users[userID] = e
	return e
}

// Publish assigns the next sequence ID, appends the event to the user's
// replay ring, and fans it out to every active subscriber for that user
// whose filter admits the type. Delivery is fire-and-forget: a slow or dead
// subscriber is shed, never waited on.
func (b *Broker) Publish(userID string, typ EventType, payload any) (Event, error) {
	if b.closed.Load() {
		return Event{}, ErrClosed
	}
	if !ValidType(typ) {
		return Event{}, ErrInvalidType
	}

	ev := Event{
		ID:        b.seq.Add(1),
		UserID:    userID,
		Type:      typ,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	e := b.entry(userID)

	var shed []string
	e.mu.Lock()
	e.ring.append(ev)
	e.lastID = ev.ID
	e.lastPublish = time.Now()
	for connID, sub := range e.subs {
		if !sub.wants(typ) {
			continue
		}
		if closed := b.deliverLocked(e, sub, ev); closed {
			shed = append(shed, connID)
		}
	}
	e.mu.Unlock()

	b.forgetConns(shed)

	metrics.EventsPublished.WithLabelValues(string(typ)).Inc()
	return ev, nil
}

// deliverLocked enqueues ev into sub's buffer, shedding the oldest
// undelivered event when the buffer is full. Returns true when the
// subscriber crossed the degrade threshold and was closed. Caller holds
// the entry lock.
func (b *Broker) deliverLocked(e *userEntry, sub *Subscriber, ev Event) bool {
	select {
	case sub.ch <- ev:
		sub.lastEnqueuedID = ev.ID
		return false
	default:
	}

	// Buffer full: drop the oldest undelivered event to make room.
	select {
	case <-sub.ch:
	default:
	}
	sub.drops++
	metrics.EventsDropped.Inc()

	select {
	case sub.ch <- ev:
		sub.lastEnqueuedID = ev.ID
	default:
		// The consumer raced us to refill the buffer; count the new
		// event itself as dropped.
		sub.drops++
		metrics.EventsDropped.Inc()
	}

	if sub.drops >= b.cfg.DegradeAfterDrops {
		logging.Warn().
			Str("user_id", sub.userID).
			Str("connection_id", sub.connectionID).
			Int("drops", sub.drops).
			Msg("closing degraded subscriber")
		b.closeSubscriberLocked(e, sub)
		metrics.DegradedSubscribersClosed.Inc()
		return true
	}
	return false
}

// closeSubscriberLocked removes sub from the entry and closes its channel.
// Caller holds the entry lock and must remove the connection from the
// registry afterwards via forgetConns.
func (b *Broker) closeSubscriberLocked(e *userEntry, sub *Subscriber) {
	if sub.state == StateClosed {
		return
	}
	sub.state = StateClosed
	delete(e.subs, sub.connectionID)
	close(sub.ch)
	metrics.ActiveSubscribers.Dec()
}

// forgetConns drops connection IDs from the registry. Separate from the
// entry-locked paths to preserve lock ordering.
func (b *Broker) forgetConns(connIDs []string) {
	if len(connIDs) == 0 {
		return
	}
	b.mu.Lock()
	for _, id := range connIDs {
		delete(b.conns, id)
	}
	b.mu.Unlock()
}

// Subscribe registers a subscriber for userID under the unique connectionID.
//
// When lastEventID is non-zero and the user has published past it, buffered
// events with ID > lastEventID are replayed oldest-first before live
// delivery begins. If the requested history was already evicted from the
// ring, a single replay-gap signal is enqueued instead and no partial
// replay happens: the client must reconcile with a full refetch. The type
// filter applies to replayed domain events but never to the gap signal.
func (b *Broker) Subscribe(userID, connectionID string, types []EventType, lastEventID uint64) (*Subscriber, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}

	e := b.entry(userID)

	b.mu.Lock()
	b.conns[connectionID] = userID
	b.mu.Unlock()

	sub := newSubscriber(userID, connectionID, types, b.cfg.SubscriberBuffer)

	e.mu.Lock()
	if lastEventID > 0 && e.lastID > lastEventID {
		oldest, ok := e.ring.oldestID()
		if !ok || lastEventID+1 < oldest {
			// History evicted: signal the gap, skip replay entirely.
			sub.ch <- Event{
				ID:     e.lastID,
				UserID: userID,
				Type:   TypeReplayGap,
				Payload: GapPayload{
					RequestedID:    lastEventID,
					OldestRetained: oldest,
				},
				CreatedAt: time.Now().UTC(),
			}
			sub.lastEnqueuedID = e.lastID
			metrics.ReplayGaps.Inc()
		} else {
			for _, ev := range e.ring.since(lastEventID) {
				if sub.wants(ev.Type) {
					// Buffer capacity >= ring capacity, so replay
					// always fits into a fresh subscriber.
					sub.ch <- ev
					sub.lastEnqueuedID = ev.ID
				}
			}
		}
	}
	sub.state = StateActive
	e.subs[connectionID] = sub
	e.mu.Unlock()

	metrics.ActiveSubscribers.Inc()
	logging.Debug().
		Str("user_id", userID).
		Str("connection_id", connectionID).
		Uint64("last_event_id", lastEventID).
		Msg("subscriber registered")
	return sub, nil
}

// Unsubscribe removes the subscriber for connectionID and closes its
// channel. Idempotent: unknown or already-removed connections are no-ops.
func (b *Broker) Unsubscribe(connectionID string) {
	b.mu.Lock()
	userID, ok := b.conns[connectionID]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.conns, connectionID)
	e := b.users[userID]
	b.mu.Unlock()

	if e == nil {
		return
	}

	e.mu.Lock()
	if sub, ok := e.subs[connectionID]; ok {
		b.closeSubscriberLocked(e, sub)
	}
	e.mu.Unlock()
}

// SubscriberCount returns the number of active subscribers for userID.
func (b *Broker) SubscriberCount(userID string) int {
	b.mu.RLock()
	e := b.users[userID]
	b.mu.RUnlock()
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// ConnectionCount returns the total number of registered connections.
func (b *Broker) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}

// LastEventID returns the highest event ID published for userID.
func (b *Broker) LastEventID(userID string) uint64 {
	b.mu.RLock()
	e := b.users[userID]
	b.mu.RUnlock()
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastID
}

// Serve runs the broker under supervision: it sweeps idle user entries on
// a fixed interval and, when the context is canceled, closes every
// subscriber and returns ctx.Err(). Designed for suture.
func (b *Broker) Serve(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return ctx.Err()
		case <-ticker.C:
			b.sweepIdle()
		}
	}
}

// String names the broker service in supervisor logs.
func (b *Broker) String() string {
	return "event-broker"
}

// sweepIdle removes user entries that have no subscribers and have not
// published within the retention window. Their rings are unreachable for
// replay anyway once a client's Last-Event-ID ages past retention.
func (b *Broker) sweepIdle() {
	cutoff := time.Now().Add(-b.cfg.IdleUserRetention)

	b.mu.Lock()
	defer b.mu.Unlock()
	for userID, e := range b.users {
		e.mu.Lock()
		idle := len(e.subs) == 0 && e.lastPublish.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(b.users, userID)
		}
	}
}

// shutdown closes all subscribers and marks the broker closed.
func (b *Broker) shutdown() {
	b.closed.Store(true)

	b.mu.Lock()
	users := make([]*userEntry, 0, len(b.users))
	for _, e := range b.users {
		users = append(users, e)
	}
	b.conns = make(map[string]string)
	b.mu.Unlock()

	closedCount := 0
	for _, e := range users {
		e.mu.Lock()
		for _, sub := range e.subs {
			sub.state = StateClosed
			close(sub.ch)
			closedCount++
			metrics.ActiveSubscribers.Dec()
		}
		e.subs = make(map[string]*Subscriber)
		e.mu.Unlock()
	}

	logging.Info().
		Str("component", "event-broker").
		Int("subscribers_closed", closedCount).
		Msg("event broker stopped")
}
