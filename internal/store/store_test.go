// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/praxis-edu/praxis/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("") // in-memory
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPortfolioItemRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &models.PortfolioItem{
		ID:         "item-1",
		UserID:     "alice",
		Title:      "Science Fair Project",
		Tags:       []string{"science", "biology"},
		Visibility: "private",
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := s.PutPortfolioItem(ctx, item); err != nil {
		t.Fatalf("PutPortfolioItem: %v", err)
	}

	got, err := s.GetPortfolioItem(ctx, "alice", "item-1")
	if err != nil {
		t.Fatalf("GetPortfolioItem: %v", err)
	}
	if got.Title != item.Title || len(got.Tags) != 2 {
		t.Errorf("got %+v, want %+v", got, item)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPortfolioItem(context.Background(), "alice", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPortfolioItem(missing) = %v, want ErrNotFound", err)
	}
}

func TestDeleteNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.DeleteSkill(context.Background(), "alice", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteSkill(missing) = %v, want ErrNotFound", err)
	}
}

func TestListScopedToUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.PutSkill(ctx, &models.Skill{
			ID:     fmt.Sprintf("skill-%d", i),
			UserID: "alice",
			Name:   fmt.Sprintf("Skill %d", i),
		})
		if err != nil {
			t.Fatalf("PutSkill: %v", err)
		}
	}
	if err := s.PutSkill(ctx, &models.Skill{ID: "skill-0", UserID: "bob", Name: "Bob's"}); err != nil {
		t.Fatalf("PutSkill: %v", err)
	}

	skills, err := s.ListSkills(ctx, "alice")
	if err != nil {
		t.Fatalf("ListSkills: %v", err)
	}
	if len(skills) != 3 {
		t.Fatalf("ListSkills returned %d, want 3", len(skills))
	}
	for _, sk := range skills {
		if sk.UserID != "alice" {
			t.Errorf("leaked skill owned by %q", sk.UserID)
		}
	}
}

func TestPutOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := &models.Notification{ID: "n-1", UserID: "alice", Title: "first", Read: false}
	if err := s.PutNotification(ctx, n); err != nil {
		t.Fatalf("PutNotification: %v", err)
	}
	n.Read = true
	if err := s.PutNotification(ctx, n); err != nil {
		t.Fatalf("PutNotification: %v", err)
	}

	got, err := s.GetNotification(ctx, "alice", "n-1")
	if err != nil {
		t.Fatalf("GetNotification: %v", err)
	}
	if !got.Read {
		t.Error("overwrite did not persist read flag")
	}

	list, _ := s.ListNotifications(ctx, "alice")
	if len(list) != 1 {
		t.Errorf("overwrite created duplicate: %d entries", len(list))
	}
}

func TestDeleteUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.PutPortfolioItem(ctx, &models.PortfolioItem{ID: "p-1", UserID: "alice"}) //nolint:errcheck
	s.PutSkill(ctx, &models.Skill{ID: "s-1", UserID: "alice"})                 //nolint:errcheck
	s.PutActivity(ctx, &models.Activity{ID: "a-1", UserID: "alice"})           //nolint:errcheck
	s.PutSkill(ctx, &models.Skill{ID: "s-1", UserID: "bob"})                   //nolint:errcheck

	removed, err := s.DeleteUser(ctx, "alice")
	if err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if removed != 3 {
		t.Errorf("DeleteUser removed %d, want 3", removed)
	}

	if _, err := s.GetSkill(ctx, "bob", "s-1"); err != nil {
		t.Errorf("DeleteUser removed another user's data: %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.PutActivity(ctx, &models.Activity{ID: "a", UserID: "alice"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Put with canceled ctx = %v, want context.Canceled", err)
	}
	if _, err := s.ListActivities(ctx, "alice"); !errors.Is(err, context.Canceled) {
		t.Errorf("List with canceled ctx = %v, want context.Canceled", err)
	}
}
