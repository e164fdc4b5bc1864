// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package store

import (
	"context"

	"github.com/praxis-edu/praxis/internal/models"
)

// Portfolio items.

func (s *Store) PutPortfolioItem(ctx context.Context, item *models.PortfolioItem) error {
	return s.put(ctx, KindPortfolio, item.UserID, item.ID, item)
}

func (s *Store) GetPortfolioItem(ctx context.Context, userID, id string) (*models.PortfolioItem, error) {
	var item models.PortfolioItem
	if err := s.get(ctx, KindPortfolio, userID, id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPortfolioItems(ctx context.Context, userID string) ([]models.PortfolioItem, error) {
	return listInto[models.PortfolioItem](ctx, s, KindPortfolio, userID)
}

func (s *Store) DeletePortfolioItem(ctx context.Context, userID, id string) error {
	return s.delete(ctx, KindPortfolio, userID, id)
}

// Skills.

func (s *Store) PutSkill(ctx context.Context, skill *models.Skill) error {
	return s.put(ctx, KindSkill, skill.UserID, skill.ID, skill)
}

func (s *Store) GetSkill(ctx context.Context, userID, id string) (*models.Skill, error) {
	var skill models.Skill
	if err := s.get(ctx, KindSkill, userID, id, &skill); err != nil {
		return nil, err
	}
	return &skill, nil
}

func (s *Store) ListSkills(ctx context.Context, userID string) ([]models.Skill, error) {
	return listInto[models.Skill](ctx, s, KindSkill, userID)
}

func (s *Store) DeleteSkill(ctx context.Context, userID, id string) error {
	return s.delete(ctx, KindSkill, userID, id)
}

// Roadmaps.

func (s *Store) PutRoadmap(ctx context.Context, rm *models.Roadmap) error {
	return s.put(ctx, KindRoadmap, rm.UserID, rm.ID, rm)
}

func (s *Store) GetRoadmap(ctx context.Context, userID, id string) (*models.Roadmap, error) {
	var rm models.Roadmap
	if err := s.get(ctx, KindRoadmap, userID, id, &rm); err != nil {
		return nil, err
	}
	return &rm, nil
}

func (s *Store) ListRoadmaps(ctx context.Context, userID string) ([]models.Roadmap, error) {
	return listInto[models.Roadmap](ctx, s, KindRoadmap, userID)
}

func (s *Store) DeleteRoadmap(ctx context.Context, userID, id string) error {
	return s.delete(ctx, KindRoadmap, userID, id)
}

// Notifications.

func (s *Store) PutNotification(ctx context.Context, n *models.Notification) error {
	return s.put(ctx, KindNotification, n.UserID, n.ID, n)
}

func (s *Store) GetNotification(ctx context.Context, userID, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.get(ctx, KindNotification, userID, id, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	return listInto[models.Notification](ctx, s, KindNotification, userID)
}

func (s *Store) DeleteNotification(ctx context.Context, userID, id string) error {
	return s.delete(ctx, KindNotification, userID, id)
}

// Activities.

func (s *Store) PutActivity(ctx context.Context, a *models.Activity) error {
	return s.put(ctx, KindActivity, a.UserID, a.ID, a)
}

func (s *Store) ListActivities(ctx context.Context, userID string) ([]models.Activity, error) {
	return listInto[models.Activity](ctx, s, KindActivity, userID)
}

// Quiz results.

func (s *Store) PutQuizResult(ctx context.Context, q *models.QuizResult) error {
	return s.put(ctx, KindQuizResult, q.UserID, q.ID, q)
}

func (s *Store) ListQuizResults(ctx context.Context, userID string) ([]models.QuizResult, error) {
	return listInto[models.QuizResult](ctx, s, KindQuizResult, userID)
}

// Achievements.

func (s *Store) PutAchievement(ctx context.Context, a *models.Achievement) error {
	return s.put(ctx, KindAchievement, a.UserID, a.ID, a)
}

func (s *Store) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	return listInto[models.Achievement](ctx, s, KindAchievement, userID)
}
