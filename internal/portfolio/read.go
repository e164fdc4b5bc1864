// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package portfolio

import (
	"context"
	"time"

	"github.com/praxis-edu/praxis/internal/cache"
	"github.com/praxis-edu/praxis/internal/models"
	"github.com/praxis-edu/praxis/internal/store"
)

// ListResult carries a cached read's payload plus the metadata handlers
// need for the response envelope.
type ListResult[T any] struct {
	Items     []T
	Cached    bool
	QueryTime time.Duration
}

// fetchCached is the read-through helper: derive the canonical key from the
// kind, owner, and query params, serve from cache on a hit, otherwise fetch
// from the datastore and populate the cache with the kind's TTL.
//
// Concurrent misses for the same key may fetch redundantly; last write
// wins and both callers get correct data, so there is no single-flight.
func fetchCached[T any](s *Service, kind, userID string, params any, ttl time.Duration,
	fetch func() ([]T, error)) (ListResult[T], error) {

	key := cache.QueryKey(kind, userID, params)

	if v, ok := s.cache.Get(key); ok {
		if items, ok := v.([]T); ok {
			return ListResult[T]{Items: items, Cached: true}, nil
		}
		// A type mismatch means the key collided across shapes; treat as
		// a miss and overwrite below.
	}

	start := time.Now()
	items, err := fetch()
	if err != nil {
		return ListResult[T]{}, err
	}
	s.cache.Set(key, items, ttl)
	return ListResult[T]{Items: items, QueryTime: time.Since(start)}, nil
}

// applyListParams pages and trims a fetched slice. Entities are stored in
// key order; Sort beyond that is out of scope for the store and handled
// client-side.
func applyListParams[T any](items []T, p models.ListParams) []T {
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	startIdx := (p.Page - 1) * p.Limit
	if startIdx >= len(items) {
		return []T{}
	}
	end := startIdx + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[startIdx:end]
}

// ListPortfolioItems returns the user's portfolio page, cached.
func (s *Service) ListPortfolioItems(ctx context.Context, userID string, p models.ListParams) (ListResult[models.PortfolioItem], error) {
	return fetchCached(s, store.KindPortfolio, userID, p, s.ttls.Portfolio, func() ([]models.PortfolioItem, error) {
		items, err := s.store.ListPortfolioItems(ctx, userID)
		if err != nil {
			return nil, err
		}
		return applyListParams(items, p), nil
	})
}

// GetPortfolioItem returns one item, uncached: single-entity reads hit the
// datastore directly, only collection responses are cached.
func (s *Service) GetPortfolioItem(ctx context.Context, userID, id string) (*models.PortfolioItem, error) {
	return s.store.GetPortfolioItem(ctx, userID, id)
}

// ListSkills returns the user's skills, cached.
func (s *Service) ListSkills(ctx context.Context, userID string, p models.ListParams) (ListResult[models.Skill], error) {
	return fetchCached(s, store.KindSkill, userID, p, s.ttls.Skills, func() ([]models.Skill, error) {
		skills, err := s.store.ListSkills(ctx, userID)
		if err != nil {
			return nil, err
		}
		return applyListParams(skills, p), nil
	})
}

// ListRoadmaps returns the user's roadmaps, cached.
func (s *Service) ListRoadmaps(ctx context.Context, userID string, p models.ListParams) (ListResult[models.Roadmap], error) {
	return fetchCached(s, store.KindRoadmap, userID, p, s.ttls.Roadmaps, func() ([]models.Roadmap, error) {
		rms, err := s.store.ListRoadmaps(ctx, userID)
		if err != nil {
			return nil, err
		}
		return applyListParams(rms, p), nil
	})
}

// GetRoadmap returns one roadmap, uncached.
func (s *Service) GetRoadmap(ctx context.Context, userID, id string) (*models.Roadmap, error) {
	return s.store.GetRoadmap(ctx, userID, id)
}

// ListNotifications returns the user's notifications, cached with the
// short feed TTL.
func (s *Service) ListNotifications(ctx context.Context, userID string, p models.ListParams) (ListResult[models.Notification], error) {
	return fetchCached(s, store.KindNotification, userID, p, s.ttls.Notifications, func() ([]models.Notification, error) {
		ns, err := s.store.ListNotifications(ctx, userID)
		if err != nil {
			return nil, err
		}
		return applyListParams(ns, p), nil
	})
}

// ListActivities returns the user's activity feed, cached with the short
// feed TTL.
func (s *Service) ListActivities(ctx context.Context, userID string, p models.ListParams) (ListResult[models.Activity], error) {
	return fetchCached(s, store.KindActivity, userID, p, s.ttls.Activities, func() ([]models.Activity, error) {
		as, err := s.store.ListActivities(ctx, userID)
		if err != nil {
			return nil, err
		}
		return applyListParams(as, p), nil
	})
}

// ListQuizResults returns the user's quiz history, cached with the feed TTL.
func (s *Service) ListQuizResults(ctx context.Context, userID string, p models.ListParams) (ListResult[models.QuizResult], error) {
	return fetchCached(s, store.KindQuizResult, userID, p, s.ttls.Activities, func() ([]models.QuizResult, error) {
		qs, err := s.store.ListQuizResults(ctx, userID)
		if err != nil {
			return nil, err
		}
		return applyListParams(qs, p), nil
	})
}

// ListAchievements returns the user's badges, cached with the curated TTL.
func (s *Service) ListAchievements(ctx context.Context, userID string, p models.ListParams) (ListResult[models.Achievement], error) {
	return fetchCached(s, store.KindAchievement, userID, p, s.ttls.Portfolio, func() ([]models.Achievement, error) {
		as, err := s.store.ListAchievements(ctx, userID)
		if err != nil {
			return nil, err
		}
		return applyListParams(as, p), nil
	})
}
