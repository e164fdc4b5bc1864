// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(Options{DefaultTTL: time.Minute, CleanupInterval: time.Hour})
	t.Cleanup(s.Close)
	return s
}

func TestSetGet(t *testing.T) {
	s := newTestStore(t)

	s.Set("portfolio:42:list", []string{"a", "b"}, time.Minute)

	got, ok := s.Get("portfolio:42:list")
	if !ok {
		t.Fatal("Get returned miss for fresh entry")
	}
	items, ok := got.([]string)
	if !ok || len(items) != 2 {
		t.Errorf("Get = %v, want [a b]", got)
	}
}

func TestGetMissOnAbsentKey(t *testing.T) {
	s := newTestStore(t)

	if _, ok := s.Get("nope"); ok {
		t.Error("Get reported hit for absent key")
	}
	st := s.GetStats()
	if st.Misses != 1 {
		t.Errorf("Misses = %d, want 1", st.Misses)
	}
}

func TestExpiryIsInclusive(t *testing.T) {
	s := newTestStore(t)

	s.Set("k", "v", 20*time.Millisecond)
	if _, ok := s.Get("k"); !ok {
		t.Fatal("entry expired before its TTL")
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := s.Get("k"); ok {
		t.Error("entry readable past its TTL")
	}

	// The lazy expiry removed the key.
	if s.Len() != 0 {
		t.Errorf("Len = %d after lazy expiry, want 0", s.Len())
	}
}

func TestSetOverwritesAndRefreshesTTL(t *testing.T) {
	s := newTestStore(t)

	s.Set("k", "old", 20*time.Millisecond)
	s.Set("k", "new", time.Minute)

	time.Sleep(30 * time.Millisecond)
	got, ok := s.Get("k")
	if !ok || got != "new" {
		t.Errorf("Get = %v,%v, want new,true after refresh", got, ok)
	}
}

func TestZeroTTLUsesDefault(t *testing.T) {
	s := New(Options{DefaultTTL: time.Minute, CleanupInterval: time.Hour})
	defer s.Close()

	s.Set("k", "v", 0)
	if _, ok := s.Get("k"); !ok {
		t.Error("entry with default TTL expired immediately")
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	s.Set("k", "v", time.Minute)
	s.Delete("k")
	if _, ok := s.Get("k"); ok {
		t.Error("Get hit after Delete")
	}

	// Deleting an absent key is a no-op.
	s.Delete("never-there")
}

func TestDeletePattern(t *testing.T) {
	s := newTestStore(t)

	s.Set("portfolio:42:list", 1, time.Minute)
	s.Set("portfolio:42:item-7", 2, time.Minute)
	s.Set("portfolio:99:list", 3, time.Minute)
	s.Set("skills:42:list", 4, time.Minute)

	removed := s.DeletePattern("portfolio:42:*")
	if removed != 2 {
		t.Errorf("DeletePattern removed %d, want 2", removed)
	}
	if _, ok := s.Get("portfolio:99:list"); !ok {
		t.Error("pattern delete removed another user's key")
	}
	if _, ok := s.Get("skills:42:list"); !ok {
		t.Error("pattern delete removed another kind's key")
	}

	if removed := s.DeletePattern("portfolio:42:*"); removed != 0 {
		t.Errorf("second DeletePattern removed %d, want 0", removed)
	}
}

func TestDeletePatternWithoutWildcard(t *testing.T) {
	s := newTestStore(t)

	s.Set("exact", 1, time.Minute)
	s.Set("exactly-not", 2, time.Minute)

	s.DeletePattern("exact")
	if _, ok := s.Get("exact"); ok {
		t.Error("exact key survived")
	}
	if _, ok := s.Get("exactly-not"); !ok {
		t.Error("prefix sibling removed without wildcard")
	}
}

func TestInvalidateUser(t *testing.T) {
	s := newTestStore(t)

	s.Set(Key("portfolio", "42", "list"), 1, time.Minute)
	s.Set(Key("skills", "42", "abc"), 2, time.Minute)
	s.Set(Key("user", "42", "profile"), 3, time.Minute)
	s.Set(Key("portfolio", "9942", "list"), 4, time.Minute)
	s.Set(Key("portfolio", "99", "list"), 5, time.Minute)

	removed := s.InvalidateUser("42")
	if removed != 3 {
		t.Errorf("InvalidateUser removed %d, want 3", removed)
	}
	if _, ok := s.Get(Key("portfolio", "9942", "list")); !ok {
		t.Error("substring user ID wrongly invalidated")
	}
	if _, ok := s.Get(Key("portfolio", "99", "list")); !ok {
		t.Error("other user's key invalidated")
	}
}

func TestKeyEscapesDelimiter(t *testing.T) {
	if Key("a:b") == Key("a", "b") {
		t.Error("segment containing delimiter collides with segment structure")
	}
}

func TestQueryKeyDeterministic(t *testing.T) {
	type params struct {
		Page  int    `json:"page"`
		Sort  string `json:"sort"`
		Limit int    `json:"limit"`
	}

	k1 := QueryKey("portfolio", "42", params{Page: 1, Sort: "date", Limit: 20})
	k2 := QueryKey("portfolio", "42", params{Page: 1, Sort: "date", Limit: 20})
	if k1 != k2 {
		t.Errorf("identical params produced different keys:\n%s\n%s", k1, k2)
	}

	k3 := QueryKey("portfolio", "42", params{Page: 2, Sort: "date", Limit: 20})
	if k1 == k3 {
		t.Error("different params produced the same key")
	}

	k4 := QueryKey("portfolio", "99", params{Page: 1, Sort: "date", Limit: 20})
	if k1 == k4 {
		t.Error("different owners produced the same key")
	}

	// Maps marshal with sorted keys, so insertion order cannot matter.
	m1 := QueryKey("skills", "42", map[string]any{"a": 1, "b": 2})
	m2 := QueryKey("skills", "42", map[string]any{"b": 2, "a": 1})
	if m1 != m2 {
		t.Error("map param order changed the key")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 10; i++ {
		s.Set(fmt.Sprintf("k%d", i), i, time.Minute)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", s.Len())
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	s := newTestStore(t)

	s.Set("stale", 1, 10*time.Millisecond)
	s.Set("fresh", 2, time.Minute)
	time.Sleep(20 * time.Millisecond)

	s.cleanup()
	if s.Len() != 1 {
		t.Errorf("Len = %d after cleanup, want 1", s.Len())
	}
	if _, ok := s.Get("fresh"); !ok {
		t.Error("cleanup removed a live entry")
	}
}

func TestTotalKeysTracksEveryMutation(t *testing.T) {
	s := newTestStore(t)

	s.Set(Key("skills", "42", "a"), 1, time.Minute)
	s.Set(Key("skills", "42", "b"), 2, time.Minute)
	s.Set(Key("portfolio", "7", "c"), 3, time.Minute)
	if got := s.GetStats().TotalKeys; got != 3 {
		t.Fatalf("TotalKeys after sets = %d, want 3", got)
	}

	s.Delete(Key("portfolio", "7", "c"))
	if got := s.GetStats().TotalKeys; got != 2 {
		t.Errorf("TotalKeys after Delete = %d, want 2", got)
	}

	s.DeletePattern(Key("skills", "42") + Delimiter + "*")
	if got := s.GetStats().TotalKeys; got != 0 {
		t.Errorf("TotalKeys after DeletePattern = %d, want 0", got)
	}

	s.Set(Key("notifications", "42", "n1"), 4, time.Minute)
	s.InvalidateUser("42")
	if got := s.GetStats().TotalKeys; got != 0 {
		t.Errorf("TotalKeys after InvalidateUser = %d, want 0", got)
	}

	// Lazy expiry on read also refreshes the count.
	s.Set(Key("skills", "42", "a"), 1, time.Nanosecond)
	time.Sleep(2 * time.Millisecond)
	if _, ok := s.Get(Key("skills", "42", "a")); ok {
		t.Fatal("expired entry returned a hit")
	}
	if got := s.GetStats().TotalKeys; got != 0 {
		t.Errorf("TotalKeys after lazy expiry = %d, want 0", got)
	}
}

func TestHitRate(t *testing.T) {
	s := newTestStore(t)

	if rate := s.HitRate(); rate != 0.0 {
		t.Errorf("HitRate with no traffic = %f, want 0", rate)
	}

	s.Set("k", "v", time.Minute)
	s.Get("k")    // hit
	s.Get("k")    // hit
	s.Get("nope") // miss

	got := s.HitRate()
	want := 100.0 * 2.0 / 3.0
	if got < want-0.01 || got > want+0.01 {
		t.Errorf("HitRate = %f, want %f", got, want)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("k%d", i%10)
				switch i % 4 {
				case 0:
					s.Set(key, g, time.Minute)
				case 1:
					s.Get(key)
				case 2:
					s.Delete(key)
				default:
					s.InvalidateUser("42")
				}
			}
		}(g)
	}
	wg.Wait()
}
