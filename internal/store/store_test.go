// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/harakiri/internal/analysis"
	"github.com/tomtom215/harakiri/internal/detection"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func testReport(id string, started time.Time) *analysis.Report {
	return &analysis.Report{
		ID:         id,
		Source:     "frames.ndjson",
		Status:     analysis.StatusCompleted,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Frames:     6,
		Channels:   []analysis.ChannelSummary{{Name: "predicted", Samples: 6, Anomalous: 3}},
		Intervals:  []detection.Interval{{StartSecond: 3, EndSecond: 5, Samples: 3, Channels: []string{"predicted"}}},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Save(ctx, testReport("r1", started)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "r1" || got.Frames != 6 || !got.StartedAt.Equal(started) {
		t.Errorf("report = %+v", got)
	}
	if len(got.Intervals) != 1 || got.Intervals[0].EndSecond != 5 {
		t.Errorf("intervals = %+v", got.Intervals)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("Get(missing) = %v, want ErrReportNotFound", err)
	}
}

func TestSaveRequiresID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(context.Background(), &analysis.Report{}); !errors.Is(err, ErrInvalidReport) {
		t.Errorf("Save(no id) = %v, want ErrInvalidReport", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		if err := s.Save(ctx, testReport(id, base.Add(offsets[i]))); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, r := range all {
		ids = append(ids, r.ID)
	}
	want := []string{"newest", "middle", "old"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2): %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "newest" {
		t.Errorf("List(2) = %d reports", len(limited))
	}
}

func TestSaveReplacesIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Save(ctx, testReport("r1", base)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, testReport("r1", base.Add(time.Minute))); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List after resave = %d reports, want 1", len(all))
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testReport("r1", time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "r1"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("Get after Delete = %v, want ErrReportNotFound", err)
	}
	if err := s.Delete(ctx, "r1"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("second Delete = %v, want ErrReportNotFound", err)
	}
	all, err := s.List(ctx, 0)
	if err != nil || len(all) != 0 {
		t.Errorf("List after Delete = %d, %v", len(all), err)
	}
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Save(ctx, testReport("persisted", time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(ctx, "persisted"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}
