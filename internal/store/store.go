// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package store provides the durable offline key-value store backing every
// cached entity. Keys are namespaced strings (see keys.go), values are
// JSON-serialized envelopes, and writes are atomic per key. Data survives
// process restarts; that is the whole point.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/metrics"
)

// ErrQuotaExceeded is returned when the underlying store rejects a write
// for size reasons. Callers log it and degrade: the cache simply misses.
var ErrQuotaExceeded = errors.New("store: quota exceeded")

// Store is a Badger-backed key-value store with JSON values.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at dir. An empty dir opens an
// in-memory store, used by tests and demo-only runs.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put serializes value and writes it under key in a single transaction.
// Quota failures are logged and reported as ErrQuotaExceeded so read paths
// keep working.
func (s *Store) Put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		if errors.Is(err, badger.ErrTxnTooBig) {
			logging.Error().Str("key", key).Int("bytes", len(data)).Msg("store write rejected, cache degrades")
			metrics.StoreWriteFailures.Inc()
			return ErrQuotaExceeded
		}
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get reads and unmarshals the value under key into out. Returns false
// with no error when the key is absent; absence is a cache miss, not a
// failure.
func (s *Store) Get(key string, out any) (bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Has reports whether key exists.
func (s *Store) Has(key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys lists every key with the given prefix.
func (s *Store) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().Key()))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", prefix, err)
	}
	return keys, nil
}

// RunGC runs one round of value-log garbage collection. Returns
// badger.ErrNoRewrite when nothing needed collecting; callers treat that
// as success. No-op for in-memory stores.
func (s *Store) RunGC() error {
	if s.db.Opts().InMemory {
		return nil
	}
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// FlexiStructureKeys lists the extraids of every cached flexi structure in
// the given namespace ("" for live, DemoPrefix for demo).
func (s *Store) FlexiStructureKeys(namespace string) ([]string, error) {
	prefix := namespace + "viking_flexi_structure_"
	keys, err := s.Keys(prefix)
	if err != nil {
		return nil, err
	}
	extraIDs := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimPrefix(k, prefix)
		id = strings.TrimSuffix(id, "_offline")
		extraIDs = append(extraIDs, id)
	}
	return extraIDs, nil
}
