// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

// Package models defines the persisted domain entities and the shared API
// response envelope. All entities are owned by exactly one user; cross-user
// sharing happens at the API layer, never in storage.
package models

import "time"

// PortfolioItem is one piece of work in a user's portfolio.
type PortfolioItem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	MediaURL    string    `json:"media_url,omitempty"`
	Visibility  string    `json:"visibility"` // "private", "school", "public"
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Skill tracks a user's progress in one competency.
type Skill struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Level     int       `json:"level"`    // 0-100
	Progress  float64   `json:"progress"` // fraction toward next level, 0.0-1.0
	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Roadmap is an ordered learning plan.
type Roadmap struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Steps       []RoadmapStep `json:"steps"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// RoadmapStep is one milestone inside a roadmap.
type RoadmapStep struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Notification is a message delivered to one user. Read state is tracked
// per notification; unread counts are derived, never stored.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Kind      string    `json:"kind,omitempty"` // e.g. "reminder", "grade", "system"
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is one entry in a user's activity feed.
type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Verb      string    `json:"verb"` // e.g. "completed", "created", "earned"
	Object    string    `json:"object,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// QuizResult records one quiz attempt.
type QuizResult struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	QuizID      string    `json:"quiz_id"`
	Score       float64   `json:"score"` // 0.0-100.0
	MaxScore    float64   `json:"max_score"`
	Passed      bool      `json:"passed"`
	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Achievement is a badge earned by a user.
type Achievement struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Badge     string    `json:"badge,omitempty"`
	EarnedAt  time.Time `json:"earned_at"`
	CreatedAt time.Time `json:"created_at"`
}
