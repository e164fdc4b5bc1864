// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package broker

import "time"

// EventType tags a domain event. The set is closed: handlers publish only
// these types, and subscribers may filter on them.
type EventType string

const (
	TypeActivity            EventType = "activity"
	TypeNotification        EventType = "notification"
	TypePortfolioUpdate     EventType = "portfolio-update"
	TypeSkillProgress       EventType = "skill-progress"
	TypeRoadmapUpdate       EventType = "roadmap-update"
	TypeQuizCompleted       EventType = "quiz-completed"
	TypeAchievementUnlocked EventType = "achievement-unlocked"

	// TypeReplayGap is a signal, not a domain event: it tells a
	// reconnecting client that part of its requested replay history was
	// evicted and a full refetch is required. It is never stored in the
	// ring and never counted against a subscriber's type filter.
	TypeReplayGap EventType = "replay-gap"
)

// domainTypes is the closed enumeration accepted by Publish.
var domainTypes = map[EventType]struct{}{
	TypeActivity:            {},
	TypeNotification:        {},
	TypePortfolioUpdate:     {},
	TypeSkillProgress:       {},
	TypeRoadmapUpdate:       {},
	TypeQuizCompleted:       {},
	TypeAchievementUnlocked: {},
}

// ValidType reports whether t is a publishable domain event type.
func ValidType(t EventType) bool {
	_, ok := domainTypes[t]
	return ok
}

// Event is an immutable domain event. IDs are assigned from a process-wide
// monotonic sequence at publish time; within a single user they reflect
// publish order.
type Event struct {
	ID        uint64    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      EventType `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GapPayload is the payload carried by a replay-gap signal event.
type GapPayload struct {
	// RequestedID is the last event ID the client claimed to have seen.
	RequestedID uint64 `json:"requested_id"`

	// OldestRetained is the oldest event ID still held in the ring,
	// or zero if the ring is empty.
	OldestRetained uint64 `json:"oldest_retained"`
}
