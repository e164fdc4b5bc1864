// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package auth

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per client IP. The general API
// rate limit is far too generous for credential guessing, so login gets
// its own token bucket.
type LoginLimiter struct {
	mu       sync.Mutex
	clients  map[string]*loginClient
	rate     rate.Limit
	burst    int
	lastSeen time.Duration
}

type loginClient struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewLoginLimiter allows `attempts` logins per `window` per IP, with a
// burst of the same size.
func NewLoginLimiter(attempts int, window time.Duration) *LoginLimiter {
	if attempts <= 0 {
		attempts = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &LoginLimiter{
		clients:  make(map[string]*loginClient),
		rate:     rate.Every(window / time.Duration(attempts)),
		burst:    attempts,
		lastSeen: 10 * window,
	}
}

// Allow reports whether the request's client IP may attempt a login now.
func (l *LoginLimiter) Allow(r *http.Request) bool {
	ip := clientIP(r)

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		c = &loginClient{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[ip] = c
		l.evictStaleLocked()
	}
	c.seen = time.Now()
	return c.limiter.Allow()
}

// evictStaleLocked drops entries idle past the retention window so the map
// cannot grow without bound. Called on insert; caller holds the lock.
func (l *LoginLimiter) evictStaleLocked() {
	cutoff := time.Now().Add(-l.lastSeen)
	for ip, c := range l.clients {
		if c.seen.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// clientIP extracts the remote IP, trusting X-Forwarded-For only for its
// first hop since the service runs behind a single reverse proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
