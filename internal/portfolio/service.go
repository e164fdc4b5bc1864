// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

// Package portfolio implements the application service tying the datastore,
// the response cache, and the event broker together.
//
// Every mutation runs the same three steps in order:
//
//  1. datastore write; a failure aborts the operation and propagates
//  2. cache invalidation for the affected user and entity kind
//  3. event publish to the user's stream
//
// Steps 2 and 3 never fail the operation: once the write is durable the
// mutation has happened, and a stale cache entry or a missed live event
// degrades freshness, not correctness. Failures there are logged and
// swallowed.
package portfolio

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/praxis-edu/praxis/internal/broker"
	"github.com/praxis-edu/praxis/internal/cache"
	"github.com/praxis-edu/praxis/internal/logging"
	"github.com/praxis-edu/praxis/internal/models"
	"github.com/praxis-edu/praxis/internal/store"
)

// TTLs holds the per-kind response cache lifetimes. Fast-moving feeds get
// short TTLs; curated content tolerates longer staleness.
type TTLs struct {
	Notifications time.Duration
	Activities    time.Duration
	Portfolio     time.Duration
	Skills        time.Duration
	Roadmaps      time.Duration
}

// DefaultTTLs returns production cache lifetimes.
func DefaultTTLs() TTLs {
	return TTLs{
		Notifications: 30 * time.Second,
		Activities:    30 * time.Second,
		Portfolio:     300 * time.Second,
		Skills:        300 * time.Second,
		Roadmaps:      300 * time.Second,
	}
}

// Service coordinates entity mutations and cached reads.
type Service struct {
	store  *store.Store
	cache  *cache.Store
	broker *broker.Broker
	ttls   TTLs
}

// NewService creates the application service. Zero TTL fields fall back to
// defaults.
func NewService(st *store.Store, c *cache.Store, b *broker.Broker, ttls TTLs) *Service {
	def := DefaultTTLs()
	if ttls.Notifications <= 0 {
		ttls.Notifications = def.Notifications
	}
	if ttls.Activities <= 0 {
		ttls.Activities = def.Activities
	}
	if ttls.Portfolio <= 0 {
		ttls.Portfolio = def.Portfolio
	}
	if ttls.Skills <= 0 {
		ttls.Skills = def.Skills
	}
	if ttls.Roadmaps <= 0 {
		ttls.Roadmaps = def.Roadmaps
	}
	return &Service{store: st, cache: c, broker: b, ttls: ttls}
}

// finishWrite runs the post-write steps of a mutation: invalidate the
// user's cached responses for the affected kind, then publish the event.
// Neither step can fail the mutation.
func (s *Service) finishWrite(kind, userID string, typ broker.EventType, payload any) {
	removed := s.cache.DeletePattern(cache.Key(kind, userID) + cache.Delimiter + "*")
	if removed > 0 {
		logging.Debug().
			Str("kind", kind).
			Str("user_id", userID).
			Int("invalidated", removed).
			Msg("cache invalidated after write")
	}

	if _, err := s.broker.Publish(userID, typ, payload); err != nil {
		logging.Error().Err(err).
			Str("user_id", userID).
			Str("event_type", string(typ)).
			Msg("event publish failed after durable write")
	}
}

// stamp fills in the ID and timestamps for a new entity.
func stamp(id *string, createdAt, updatedAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	now := time.Now().UTC()
	if createdAt != nil && createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt != nil {
		*updatedAt = now
	}
}

// Portfolio items.

// CreatePortfolioItem persists a new item and announces it on the user's
// stream.
func (s *Service) CreatePortfolioItem(ctx context.Context, item *models.PortfolioItem) error {
	stamp(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if item.Visibility == "" {
		item.Visibility = "private"
	}
	if err := s.store.PutPortfolioItem(ctx, item); err != nil {
		return err
	}
	s.finishWrite(store.KindPortfolio, item.UserID, broker.TypePortfolioUpdate, item)
	return nil
}

// UpdatePortfolioItem overwrites an existing item. The item must exist.
func (s *Service) UpdatePortfolioItem(ctx context.Context, item *models.PortfolioItem) error {
	existing, err := s.store.GetPortfolioItem(ctx, item.UserID, item.ID)
	if err != nil {
		return err
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	if err := s.store.PutPortfolioItem(ctx, item); err != nil {
		return err
	}
	s.finishWrite(store.KindPortfolio, item.UserID, broker.TypePortfolioUpdate, item)
	return nil
}

// DeletePortfolioItem removes an item.
func (s *Service) DeletePortfolioItem(ctx context.Context, userID, id string) error {
	if err := s.store.DeletePortfolioItem(ctx, userID, id); err != nil {
		return err
	}
	s.finishWrite(store.KindPortfolio, userID, broker.TypePortfolioUpdate,
		map[string]string{"id": id, "deleted": "true"})
	return nil
}

// Skills.

// UpsertSkill creates or updates a skill and announces the progress change.
func (s *Service) UpsertSkill(ctx context.Context, skill *models.Skill) error {
	stamp(&skill.ID, &skill.CreatedAt, &skill.UpdatedAt)
	if err := s.store.PutSkill(ctx, skill); err != nil {
		return err
	}
	s.finishWrite(store.KindSkill, skill.UserID, broker.TypeSkillProgress, skill)
	return nil
}

// DeleteSkill removes a skill.
func (s *Service) DeleteSkill(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteSkill(ctx, userID, id); err != nil {
		return err
	}
	s.finishWrite(store.KindSkill, userID, broker.TypeSkillProgress,
		map[string]string{"id": id, "deleted": "true"})
	return nil
}

// Roadmaps.

// UpsertRoadmap creates or updates a roadmap.
func (s *Service) UpsertRoadmap(ctx context.Context, rm *models.Roadmap) error {
	stamp(&rm.ID, &rm.CreatedAt, &rm.UpdatedAt)
	if err := s.store.PutRoadmap(ctx, rm); err != nil {
		return err
	}
	s.finishWrite(store.KindRoadmap, rm.UserID, broker.TypeRoadmapUpdate, rm)
	return nil
}

// DeleteRoadmap removes a roadmap.
func (s *Service) DeleteRoadmap(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteRoadmap(ctx, userID, id); err != nil {
		return err
	}
	s.finishWrite(store.KindRoadmap, userID, broker.TypeRoadmapUpdate,
		map[string]string{"id": id, "deleted": "true"})
	return nil
}

// Notifications.

// CreateNotification persists and delivers a notification.
func (s *Service) CreateNotification(ctx context.Context, n *models.Notification) error {
	stamp(&n.ID, &n.CreatedAt, nil)
	if err := s.store.PutNotification(ctx, n); err != nil {
		return err
	}
	s.finishWrite(store.KindNotification, n.UserID, broker.TypeNotification, n)
	return nil
}

// MarkNotificationRead flips the read flag. Already-read notifications are
// a no-op write; the event still fires so other open tabs converge.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, id string) error {
	n, err := s.store.GetNotification(ctx, userID, id)
	if err != nil {
		return err
	}
	n.Read = true
	if err := s.store.PutNotification(ctx, n); err != nil {
		return err
	}
	s.finishWrite(store.KindNotification, userID, broker.TypeNotification, n)
	return nil
}

// Activities.

// RecordActivity appends an entry to the user's activity feed.
func (s *Service) RecordActivity(ctx context.Context, a *models.Activity) error {
	stamp(&a.ID, &a.CreatedAt, nil)
	if err := s.store.PutActivity(ctx, a); err != nil {
		return err
	}
	s.finishWrite(store.KindActivity, a.UserID, broker.TypeActivity, a)
	return nil
}

// Quiz results.

// RecordQuizResult persists a quiz attempt and announces completion.
func (s *Service) RecordQuizResult(ctx context.Context, q *models.QuizResult) error {
	stamp(&q.ID, &q.CreatedAt, nil)
	if q.CompletedAt.IsZero() {
		q.CompletedAt = q.CreatedAt
	}
	if err := s.store.PutQuizResult(ctx, q); err != nil {
		return err
	}
	s.finishWrite(store.KindQuizResult, q.UserID, broker.TypeQuizCompleted, q)
	return nil
}

// Achievements.

// AwardAchievement persists a badge and announces it.
func (s *Service) AwardAchievement(ctx context.Context, a *models.Achievement) error {
	stamp(&a.ID, &a.CreatedAt, nil)
	if a.EarnedAt.IsZero() {
		a.EarnedAt = a.CreatedAt
	}
	if err := s.store.PutAchievement(ctx, a); err != nil {
		return err
	}
	s.finishWrite(store.KindAchievement, a.UserID, broker.TypeAchievementUnlocked, a)
	return nil
}

// DeleteUserData removes all of a user's entities, cached responses, and
// nothing else; stream subscriptions close on their own when the client
// disconnects.
func (s *Service) DeleteUserData(ctx context.Context, userID string) (int, error) {
	removed, err := s.store.DeleteUser(ctx, userID)
	if err != nil {
		return removed, err
	}
	s.cache.InvalidateUser(userID)
	return removed, nil
}

// Ping reports whether the datastore is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
