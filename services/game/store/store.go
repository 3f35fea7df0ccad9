// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists session records in BadgerDB.
//
// BadgerDB gives us low-latency embedded key-value storage. One record
// is kept per session code under the key "session:<CODE>", holding the
// full JSON-serialized session including its action log. The store is
// the single source of truth for session state; every mutation in the
// service is a read-modify-write against it.
//
// There is deliberately no version stamp or conditional write: two
// concurrent writers to the same code race last-writer-wins. See the
// design notes for why this is accepted.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/jinterlante1206/DefuseLocal/services/game/datatypes"
)

// ErrNotFound is returned when no record exists for a session code.
var ErrNotFound = errors.New("session not found")

// keyPrefix namespaces session records within the database.
const keyPrefix = "session:"

// Config holds configuration for the session store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output.
	// If nil, BadgerDB logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable writes at the
// given path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a BadgerDB-backed session store.
//
// # Thread Safety
//
// Safe for concurrent use. Individual operations are atomic; sequences
// of Get followed by Put are not.
type Store struct {
	db *badger.DB
}

// Open creates and opens a session store with the given configuration.
//
// # Inputs
//
//   - cfg: Store configuration. Path is required unless InMemory is true.
//
// # Outputs
//
//   - *Store: The opened store. Caller must call Close() when done.
//   - error: Non-nil if the path is invalid or the database cannot open.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store for testing. Data is lost on
// Close.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes the full session record under its code.
//
// # Inputs
//
//   - ctx: Cancellation context, checked before the write.
//   - session: The session to persist. Code must be non-empty.
//
// # Outputs
//
//   - error: Non-nil on serialization or storage failure.
func (s *Store) Put(ctx context.Context, session *datatypes.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session == nil || session.Code == "" {
		return errors.New("session code must not be empty")
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.Code, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+session.Code), raw)
	})
	if err != nil {
		return fmt.Errorf("put session %s: %w", session.Code, err)
	}
	return nil
}

// Get loads the session stored under a code.
//
// # Outputs
//
//   - *datatypes.Session: The deserialized record.
//   - error: ErrNotFound if no record exists; other errors are storage
//     or decode failures.
func (s *Store) Get(ctx context.Context, code string) (*datatypes.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session datatypes.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + code))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", code, err)
	}
	return &session, nil
}

// Delete removes the record for a code. Deleting an absent code is not
// an error.
func (s *Store) Delete(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + code))
	})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", code, err)
	}
	return nil
}

// Codes enumerates the codes of every stored session.
//
// # Description
//
// Iterates the key space without loading values. Used by the admin REST
// surface; the real-time path never scans, it looks up by code.
func (s *Store) Codes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var codes []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			codes = append(codes, strings.TrimPrefix(key, keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list session codes: %w", err)
	}
	return codes, nil
}
