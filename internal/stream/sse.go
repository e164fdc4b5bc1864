// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

// Package stream bridges broker subscriptions onto long-lived HTTP
// connections. Server-Sent Events is the primary transport; a WebSocket
// bridge (ws.go) serves clients that already hold a socket open.
//
// One session owns exactly one broker subscription. Sessions are never
// restartable: when the transport fails or the client goes away, the
// session unsubscribes synchronously and a new connection must resubscribe
// (carrying Last-Event-ID to resume).
package stream

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/praxis-edu/praxis/internal/broker"
	"github.com/praxis-edu/praxis/internal/logging"
	"github.com/praxis-edu/praxis/internal/metrics"
)

// Options holds stream session tunables.
type Options struct {
	// HeartbeatInterval is the period of the no-op ping frame that keeps
	// intermediary proxies from timing out the idle connection.
	HeartbeatInterval time.Duration

	// WriteTimeout bounds a single frame write on the WebSocket
	// transport. SSE writes rely on the server's write deadline.
	WriteTimeout time.Duration

	// AllowedOrigins lists origins accepted for WebSocket upgrades, in
	// the same form as the CORS configuration ("*" or exact origins).
	// Same-origin requests are always accepted; an empty list rejects
	// everything else.
	AllowedOrigins []string
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		HeartbeatInterval: 25 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Manager creates stream sessions on top of the event broker.
type Manager struct {
	broker   *broker.Broker
	opts     Options
	upgrader websocket.Upgrader
}

// NewManager creates a stream session manager.
func NewManager(b *broker.Broker, opts Options) *Manager {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultOptions().HeartbeatInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultOptions().WriteTimeout
	}
	m := &Manager{broker: b, opts: opts}
	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, m.opts.AllowedOrigins)
		},
	}
	return m
}

// ServeSSE runs one Server-Sent Events session for the resolved user until
// the client disconnects, a write fails, or the broker closes the
// subscription. The request may carry:
//
//   - "types": comma-separated event-type filter (unknown types ignored)
//   - "Last-Event-ID" header or "last_event_id" query param: replay cursor
func (m *Manager) ServeSSE(w http.ResponseWriter, r *http.Request, userID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	connID := uuid.NewString()
	sub, err := m.broker.Subscribe(userID, connID, parseTypes(r), parseLastEventID(r))
	if err != nil {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer m.broker.Unsubscribe(connID)

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable reverse-proxy buffering; SSE requires every frame to reach
	// the client immediately.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.StreamSessions.WithLabelValues("sse").Inc()
	defer metrics.StreamSessions.WithLabelValues("sse").Dec()
	logging.Debug().Str("user_id", userID).Str("connection_id", connID).Msg("sse session opened")

	heartbeat := time.NewTicker(m.opts.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logging.Debug().Str("connection_id", connID).Msg("sse client disconnected")
			return

		case ev, ok := <-sub.Events():
			if !ok {
				// Broker closed the subscription (shutdown or
				// degradation shed).
				return
			}
			if err := writeSSEEvent(w, ev); err != nil {
				logging.Debug().Err(err).Str("connection_id", connID).Msg("sse write failed")
				return
			}
			flusher.Flush()

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				logging.Debug().Err(err).Str("connection_id", connID).Msg("sse heartbeat failed")
				return
			}
			flusher.Flush()
			metrics.StreamHeartbeats.Inc()
		}
	}
}

// writeSSEEvent writes one event as an SSE frame:
//
//	id: 42
//	event: portfolio-update
//	data: {...}
func writeSSEEvent(w http.ResponseWriter, ev broker.Event) error {
	data, err := json.Marshal(sseData{Payload: ev.Payload, CreatedAt: ev.CreatedAt})
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", ev.ID, err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
	return err
}

// sseData is the JSON body of one SSE frame. The event ID and type travel
// in the SSE fields themselves.
type sseData struct {
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// parseTypes extracts the event-type filter from the "types" query param.
// Unknown types are dropped; an empty result means no filter.
func parseTypes(r *http.Request) []broker.EventType {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return nil
	}
	var types []broker.EventType
	for _, part := range strings.Split(raw, ",") {
		t := broker.EventType(strings.TrimSpace(part))
		if broker.ValidType(t) {
			types = append(types, t)
		}
	}
	return types
}

// parseLastEventID extracts the replay cursor from the standard
// Last-Event-ID header, falling back to the last_event_id query param for
// clients that cannot set headers on EventSource reconnects.
func parseLastEventID(r *http.Request) uint64 {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		raw = r.URL.Query().Get("last_event_id")
	}
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
