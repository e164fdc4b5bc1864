// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/praxis-edu/praxis/internal/broker"
)

// syncRecorder guards the response body so tests can poll it while the
// handler goroutine is still writing.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func newSyncRecorder() *syncRecorder {
	return &syncRecorder{ResponseRecorder: httptest.NewRecorder()}
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) BodyString() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}

func newTestBroker(t *testing.T) *broker.Broker {
	t.Helper()
	b := broker.New(broker.Config{
		RingCapacity:      8,
		SubscriberBuffer:  16,
		DegradeAfterDrops: 4,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = b.Serve(ctx)
	})
	return b
}

func TestServeSSEWritesFrames(t *testing.T) {
	b := newTestBroker(t)
	m := NewManager(b, Options{HeartbeatInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/v1/events", nil).WithContext(ctx)
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		m.ServeSSE(rec, req, "alice")
		close(done)
	}()

	// Wait for the subscription to register before publishing.
	waitFor(t, func() bool { return b.ConnectionCount() == 1 })

	if _, err := b.Publish("alice", broker.TypeNotification, map[string]string{"title": "hi"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	waitFor(t, func() bool { return strings.Contains(rec.BodyString(), "data:") })
	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
	if ab := rec.Header().Get("X-Accel-Buffering"); ab != "no" {
		t.Errorf("X-Accel-Buffering = %q, want no", ab)
	}

	body := rec.BodyString()
	if !strings.Contains(body, "id: 1\n") {
		t.Errorf("frame missing id field: %q", body)
	}
	if !strings.Contains(body, "event: notification\n") {
		t.Errorf("frame missing event field: %q", body)
	}
	if !strings.Contains(body, `"title":"hi"`) {
		t.Errorf("frame missing payload: %q", body)
	}
	if b.ConnectionCount() != 0 {
		t.Errorf("connection not released after disconnect: %d", b.ConnectionCount())
	}
}

func TestServeSSEHeartbeat(t *testing.T) {
	b := newTestBroker(t)
	m := NewManager(b, Options{HeartbeatInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/v1/events", nil).WithContext(ctx)
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		m.ServeSSE(rec, req, "alice")
		close(done)
	}()

	waitFor(t, func() bool { return strings.Contains(rec.BodyString(), ": ping\n\n") })
	cancel()
	<-done
}

func TestServeSSEReplaysAfterReconnect(t *testing.T) {
	b := newTestBroker(t)
	m := NewManager(b, Options{HeartbeatInterval: time.Hour})

	for i := 0; i < 3; i++ {
		if _, err := b.Publish("alice", broker.TypeActivity, map[string]int{"n": i}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/v1/events", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1")
	rec := newSyncRecorder()

	done := make(chan struct{})
	go func() {
		m.ServeSSE(rec, req, "alice")
		close(done)
	}()

	waitFor(t, func() bool { return strings.Contains(rec.BodyString(), "id: 3\n") })
	cancel()
	<-done

	body := rec.BodyString()
	if strings.Contains(body, "id: 1\n") {
		t.Errorf("replay included already-seen event 1: %q", body)
	}
	if !strings.Contains(body, "id: 2\n") || !strings.Contains(body, "id: 3\n") {
		t.Errorf("replay missing events 2 and 3: %q", body)
	}
}

func TestParseLastEventID(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   uint64
	}{
		{"absent", "", "", 0},
		{"header", "42", "", 42},
		{"query fallback", "", "7", 7},
		{"header wins", "42", "7", 42},
		{"garbage", "abc", "", 0},
		{"negative", "-1", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/api/v1/events"
			if tt.query != "" {
				url += "?last_event_id=" + tt.query
			}
			req := httptest.NewRequest("GET", url, nil)
			if tt.header != "" {
				req.Header.Set("Last-Event-ID", tt.header)
			}
			if got := parseLastEventID(req); got != tt.want {
				t.Errorf("parseLastEventID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseTypes(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/events?types=notification,%20activity,bogus", nil)
	got := parseTypes(req)
	if len(got) != 2 {
		t.Fatalf("parseTypes() = %v, want 2 valid types", got)
	}
	if got[0] != broker.TypeNotification || got[1] != broker.TypeActivity {
		t.Errorf("parseTypes() = %v", got)
	}

	if got := parseTypes(httptest.NewRequest("GET", "/api/v1/events", nil)); got != nil {
		t.Errorf("parseTypes() without param = %v, want nil", got)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
