// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package stream

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/praxis-edu/praxis/internal/broker"
	"github.com/praxis-edu/praxis/internal/logging"
	"github.com/praxis-edu/praxis/internal/metrics"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // inbound frames carry no payloads
)

// originAllowed implements the upgrade origin policy. Requests without an
// Origin header (non-browser clients) and same-origin requests are always
// accepted; cross-origin requests must match the configured allow list,
// which honors the "*" wildcard.
func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// wsClient bridges one broker subscription onto a websocket connection.
type wsClient struct {
	broker *broker.Broker
	sub    *broker.Subscriber
	conn   *websocket.Conn
	connID string

	writeTimeout time.Duration
}

// ServeWS upgrades the request and runs one websocket stream session for
// the resolved user. Events are written as JSON frames carrying the same
// envelope as the SSE transport; the replay cursor and type filter use the
// same query params.
func (m *Manager) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	connID := uuid.NewString()
	sub, err := m.broker.Subscribe(userID, connID, parseTypes(r), parseLastEventID(r))
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "stream unavailable"),
			time.Now().Add(m.opts.WriteTimeout))
		_ = conn.Close()
		return
	}

	c := &wsClient{
		broker:       m.broker,
		sub:          sub,
		conn:         conn,
		connID:       connID,
		writeTimeout: m.opts.WriteTimeout,
	}

	metrics.StreamSessions.WithLabelValues("websocket").Inc()
	logging.Debug().Str("user_id", userID).Str("connection_id", connID).Msg("websocket session opened")

	go c.writePump()
	go c.readPump()
}

// readPump consumes the inbound side until the client disconnects. Clients
// send nothing meaningful; the pump only services pong deadlines. Exiting
// unsubscribes, which closes the event channel and stops writePump.
func (c *wsClient) readPump() {
	defer func() {
		c.broker.Unsubscribe(c.connID)
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
		metrics.StreamSessions.WithLabelValues("websocket").Dec()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			return
		}
	}
}

// writePump pumps broker events to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	for {
		select {
		case ev, ok := <-c.sub.Events():
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The broker closed the subscription.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Debug().Err(err).Msg("failed to write close message")
				}
				return
			}

			if err := c.conn.WriteJSON(ev); err != nil {
				logging.Debug().Err(err).Str("connection_id", c.connID).Msg("failed to write event frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
