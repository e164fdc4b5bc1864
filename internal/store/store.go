// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

// Package store implements the durable entity datastore on BadgerDB.
//
// Every entity is stored under "<kind>:<user-id>:<entity-id>" with a JSON
// value, so listing a user's entities of one kind is a single prefix scan
// and no cross-user read is possible by construction.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/praxis-edu/praxis/internal/logging"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("store: entity not found")

// Entity kinds used as key prefixes. These double as the cache-key kinds,
// so renaming one invalidates cached responses on deploy.
const (
	KindPortfolio    = "portfolio"
	KindSkill        = "skills"
	KindRoadmap      = "roadmaps"
	KindNotification = "notifications"
	KindActivity     = "activities"
	KindQuizResult   = "quizzes"
	KindAchievement  = "achievements"
)

// Store is the BadgerDB-backed entity datastore.
type Store struct {
	db *badger.DB
}

// Open opens the datastore at path. An empty path opens an in-memory
// instance, used by tests and development setups without a data volume.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	logging.Info().Str("path", path).Bool("in_memory", path == "").Msg("datastore opened")
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is open and readable. Used by readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

// entityKey builds the storage key for one entity.
func entityKey(kind, userID, id string) []byte {
	return []byte(kind + ":" + userID + ":" + id)
}

// userPrefix is the scan prefix for all of a user's entities of one kind.
func userPrefix(kind, userID string) []byte {
	return []byte(kind + ":" + userID + ":")
}

// put stores v under the entity key, overwriting any previous value.
func (s *Store) put(ctx context.Context, kind, userID, id string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entityKey(kind, userID, id), data)
	})
}

// get loads the entity into out, returning ErrNotFound when absent.
func (s *Store) get(ctx context.Context, kind, userID, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entityKey(kind, userID, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", kind, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
}

// delete removes the entity, returning ErrNotFound when absent.
func (s *Store) delete(ctx context.Context, kind, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := entityKey(kind, userID, id)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return fmt.Errorf("check %s: %w", kind, err)
		}
		return txn.Delete(key)
	})
}

// listRaw returns the raw JSON values of every entity of kind owned by
// userID, in key order.
func (s *Store) listRaw(ctx context.Context, kind, userID string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var values [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := userPrefix(kind, userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				cp := make([]byte, len(val))
				copy(cp, val)
				values = append(values, cp)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", kind, err)
	}
	return values, nil
}

// listInto decodes every entity of kind owned by userID into a slice of T.
func listInto[T any](ctx context.Context, s *Store, kind, userID string) ([]T, error) {
	raw, err := s.listRaw(ctx, kind, userID)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, data := range raw {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", kind, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DeleteUser removes every entity of every kind owned by userID and
// returns the number of keys removed. Used by account deletion.
func (s *Store) DeleteUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	kinds := []string{
		KindPortfolio, KindSkill, KindRoadmap, KindNotification,
		KindActivity, KindQuizResult, KindAchievement,
	}

	removed := 0
	for _, kind := range kinds {
		var keys [][]byte
		err := s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()

			prefix := userPrefix(kind, userID)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("scan %s for delete: %w", kind, err)
		}

		err = s.db.Update(func(txn *badger.Txn) error {
			for _, key := range keys {
				if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("delete %s keys: %w", kind, err)
		}
		removed += len(keys)
	}
	return removed, nil
}
