// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

// Package store persists analysis reports in BadgerDB.
//
// Keys:
//
//	report:<id>                      JSON-encoded analysis.Report
//	report_time:<started_at>:<id>    index for newest-first listing
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/harakiri/internal/analysis"
)

const (
	reportKeyPrefix     = "report:"
	reportTimeKeyPrefix = "report_time:"

	// timeKeyLayout sorts lexically in time order.
	timeKeyLayout = "20060102T150405.000000000Z"
)

// ErrReportNotFound is returned when no report has the requested id.
var ErrReportNotFound = errors.New("report not found")

// ErrInvalidReport is returned for a report without an id.
var ErrInvalidReport = errors.New("invalid report")

// Config configures the store.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in memory (tests, ephemeral runs).
	InMemory bool
	// SyncWrites fsyncs every write.
	SyncWrites bool
}

// Store is a BadgerDB-backed report store.
type Store struct {
	db *badger.DB
}

// Open opens or creates the store.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for reports: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger db: %w", err)
	}
	return nil
}

func timeKey(r *analysis.Report) []byte {
	return []byte(reportTimeKeyPrefix + r.StartedAt.UTC().Format(timeKeyLayout) + ":" + r.ID)
}

// Save stores a report, replacing any report with the same id.
func (s *Store) Save(ctx context.Context, r *analysis.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r == nil || r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidReport)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(reportKeyPrefix + r.ID)

		// Drop the index entry of a previous version.
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var prev analysis.Report
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &prev) }); err != nil {
				return fmt.Errorf("unmarshal previous report: %w", err)
			}
			if err := txn.Delete(timeKey(&prev)); err != nil {
				return fmt.Errorf("delete time index: %w", err)
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("get report: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set report: %w", err)
		}
		if err := txn.Set(timeKey(r), []byte(r.ID)); err != nil {
			return fmt.Errorf("set time index: %w", err)
		}
		return nil
	})
}

// Get returns the report with the given id.
func (s *Store) Get(ctx context.Context, id string) (*analysis.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var report analysis.Report
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(reportKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrReportNotFound
		}
		if err != nil {
			return fmt.Errorf("get report: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &report)
		})
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns up to limit reports, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*analysis.Report, error) {
	var reports []*analysis.Report
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(reportTimeKeyPrefix)
		seek := append(append([]byte(nil), prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(reports) >= limit {
				return nil
			}

			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return fmt.Errorf("read time index: %w", err)
			}

			item, err := txn.Get([]byte(reportKeyPrefix + id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue // index entry without report
			}
			if err != nil {
				return fmt.Errorf("get report %s: %w", id, err)
			}
			var report analysis.Report
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &report)
			}); err != nil {
				return fmt.Errorf("unmarshal report %s: %w", id, err)
			}
			reports = append(reports, &report)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// Delete removes a report. Deleting a missing report returns ErrReportNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	report, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(reportKeyPrefix + id)); err != nil {
			return fmt.Errorf("delete report: %w", err)
		}
		if err := txn.Delete(timeKey(report)); err != nil {
			return fmt.Errorf("delete time index: %w", err)
		}
		return nil
	})
}
