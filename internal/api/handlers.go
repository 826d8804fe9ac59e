// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/harakiri/internal/analysis"
	"github.com/tomtom215/harakiri/internal/detection"
	"github.com/tomtom215/harakiri/internal/store"
	"github.com/tomtom215/harakiri/internal/validation"
)

const defaultReportLimit = 50

// SnapshotProvider exposes the live pipeline state.
type SnapshotProvider interface {
	Snapshot() detection.Snapshot
}

// ReportStore reads stored analysis reports.
type ReportStore interface {
	Get(ctx context.Context, id string) (*analysis.Report, error)
	List(ctx context.Context, limit int) ([]*analysis.Report, error)
}

// Handler serves the API endpoints. Either dependency may be nil.
type Handler struct {
	snapshots SnapshotProvider
	reports   ReportStore
}

// NewHandler creates a Handler.
func NewHandler(snapshots SnapshotProvider, reports ReportStore) *Handler {
	return &Handler{snapshots: snapshots, reports: reports}
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status   string `json:"status"`
	Pipeline bool   `json:"pipeline"`
	Finished bool   `json:"finished"`
	Store    bool   `json:"store"`
}

// IntervalsResponse is the /api/v1/intervals body.
type IntervalsResponse struct {
	Intervals   []detection.Interval `json:"intervals"`
	Provisional *detection.Interval  `json:"provisional,omitempty"`
	Finished    bool                 `json:"finished"`
}

// reportsQuery holds the validated /api/v1/reports parameters.
type reportsQuery struct {
	Limit int `query:"limit" validate:"min=1,max=1000"`
}

// Health reports liveness. It always returns 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Pipeline: h.snapshots != nil,
		Store:    h.reports != nil,
	}
	if h.snapshots != nil {
		resp.Finished = h.snapshots.Snapshot().Finished
	}
	NewResponseWriter(w, r).Success(resp)
}

// Snapshot returns the pipeline snapshot, optionally limited to one channel.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.snapshots == nil {
		rw.ServiceUnavailable("no analysis is attached")
		return
	}

	snap := h.snapshots.Snapshot()
	if name := r.URL.Query().Get("channel"); name != "" {
		ch, ok := snap.Channel(name)
		if !ok {
			rw.NotFound("unknown channel: " + name)
			return
		}
		snap.Channels = []detection.ChannelSnapshot{ch}
	}
	rw.Success(snap)
}

// Intervals returns the finalized intervals and the open one, if any.
func (h *Handler) Intervals(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.snapshots == nil {
		rw.ServiceUnavailable("no analysis is attached")
		return
	}

	snap := h.snapshots.Snapshot()
	intervals := snap.Intervals
	if intervals == nil {
		intervals = []detection.Interval{}
	}
	rw.Success(IntervalsResponse{
		Intervals:   intervals,
		Provisional: snap.Provisional,
		Finished:    snap.Finished,
	})
}

// Reports lists stored reports, newest first.
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.reports == nil {
		rw.ServiceUnavailable("report store is disabled")
		return
	}

	q := reportsQuery{Limit: defaultReportLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			rw.BadRequest("limit must be an integer")
			return
		}
		q.Limit = n
	}
	if verrs := validation.ValidateStruct(&q); verrs != nil {
		rw.ValidationError("invalid query parameters", verrs.Details())
		return
	}

	reports, err := h.reports.List(r.Context(), q.Limit+1)
	if err != nil {
		rw.StoreError(err)
		return
	}
	hasMore := len(reports) > q.Limit
	if hasMore {
		reports = reports[:q.Limit]
	}
	if reports == nil {
		reports = []*analysis.Report{}
	}
	rw.SuccessWithPagination(reports, &PaginationMeta{
		Count:   len(reports),
		Limit:   q.Limit,
		HasMore: hasMore,
	})
}

// Report returns one stored report.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.reports == nil {
		rw.ServiceUnavailable("report store is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	report, err := h.reports.Get(r.Context(), id)
	if errors.Is(err, store.ErrReportNotFound) {
		rw.NotFound("report not found: " + id)
		return
	}
	if err != nil {
		rw.StoreError(err)
		return
	}
	rw.Success(report)
}
