// Harakiri - Bitstream Frame-Size Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/harakiri

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/harakiri/internal/analysis"
	"github.com/tomtom215/harakiri/internal/detection"
	"github.com/tomtom215/harakiri/internal/middleware"
	"github.com/tomtom215/harakiri/internal/store"
)

// envelope mirrors APIResponse with the payload left undecoded.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
	if data != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("unmarshal data: %v", err)
		}
	}
	return env
}

// memoryReports is an in-memory ReportStore.
type memoryReports struct {
	reports []*analysis.Report
	err     error
}

func (m *memoryReports) Get(_ context.Context, id string) (*analysis.Report, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, store.ErrReportNotFound
}

func (m *memoryReports) List(_ context.Context, limit int) ([]*analysis.Report, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.reports) > limit {
		return m.reports[:limit], nil
	}
	return m.reports, nil
}

func newSpikePipeline(t *testing.T) *detection.Pipeline {
	t.Helper()
	predicted := detection.DefaultPredictedConfig()
	predicted.Window = 3
	predicted.Threshold = 0.012
	cfg := detection.DefaultConfig()
	cfg.Channels[1] = predicted

	p, err := detection.NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	for i, v := range []float64{10, 10, 10, 1000, 10} {
		f := detection.Frame{Timestamp: float64(i), Tag: "P", Value: v}
		if _, err := p.Process(context.Background(), f); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	return p
}

func newTestRouter(snapshots SnapshotProvider, reports ReportStore) http.Handler {
	cfg := DefaultRouterConfig()
	cfg.CORSOrigins = []string{"https://dash.example"}
	return NewRouter(cfg, NewHandler(snapshots, reports))
}

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestResponseWriterSuccess(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	NewResponseWriter(rec, req).Success(map[string]string{"message": "hello"})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	var data map[string]string
	env := decode(t, rec, &data)
	if !env.Success || env.Error != nil {
		t.Errorf("envelope = %+v, want success", env)
	}
	if env.Meta == nil || env.Meta.Timestamp.IsZero() {
		t.Error("meta timestamp not set")
	}
	if data["message"] != "hello" {
		t.Errorf("data = %v", data)
	}
}

func TestResponseWriterErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		write  func(rw *ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(rw *ResponseWriter) { rw.BadRequest("bad") }, http.StatusBadRequest, ErrCodeBadRequest},
		{"validation", func(rw *ResponseWriter) { rw.ValidationError("bad", map[string]string{"limit": "x"}) }, http.StatusBadRequest, ErrCodeValidationFailed},
		{"not found", func(rw *ResponseWriter) { rw.NotFound("gone") }, http.StatusNotFound, ErrCodeNotFound},
		{"unavailable", func(rw *ResponseWriter) { rw.ServiceUnavailable("later") }, http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"store", func(rw *ResponseWriter) { rw.StoreError(errors.New("disk")) }, http.StatusInternalServerError, ErrCodeStoreError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			tt.write(NewResponseWriter(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			env := decode(t, rec, nil)
			if env.Success {
				t.Error("Success = true on error")
			}
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}

func TestStoreErrorDoesNotLeakCause(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	NewResponseWriter(rec, httptest.NewRequest(http.MethodGet, "/", nil)).StoreError(errors.New("/data/harakiri: permission denied"))
	if strings.Contains(rec.Body.String(), "permission denied") {
		t.Errorf("body leaks error: %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	t.Run("without dependencies", func(t *testing.T) {
		rec := serve(newTestRouter(nil, nil), "/healthz")
		var health HealthResponse
		decode(t, rec, &health)
		if rec.Code != http.StatusOK || health.Status != "ok" {
			t.Errorf("status %d health %+v", rec.Code, health)
		}
		if health.Pipeline || health.Store {
			t.Errorf("health = %+v, want no pipeline and no store", health)
		}
	})

	t.Run("with finished pipeline", func(t *testing.T) {
		p := newSpikePipeline(t)
		p.Finish(context.Background())
		rec := serve(newTestRouter(p, &memoryReports{}), "/healthz")
		var health HealthResponse
		decode(t, rec, &health)
		if !health.Pipeline || !health.Finished || !health.Store {
			t.Errorf("health = %+v", health)
		}
	})
}

func TestSnapshot(t *testing.T) {
	router := newTestRouter(newSpikePipeline(t), nil)

	rec := serve(router, "/api/v1/snapshot")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var snap detection.Snapshot
	env := decode(t, rec, &snap)
	if len(snap.Channels) != 2 {
		t.Errorf("len(channels) = %d, want 2", len(snap.Channels))
	}
	if snap.Provisional == nil || snap.Provisional.StartSecond != 3 {
		t.Errorf("provisional = %+v, want interval starting at 3", snap.Provisional)
	}
	if env.Meta.RequestID == "" {
		t.Error("meta request_id is empty")
	}
	if rec.Header().Get(middleware.RequestIDHeader) != env.Meta.RequestID {
		t.Error("X-Request-ID header does not match meta request_id")
	}
}

func TestSnapshotChannelFilter(t *testing.T) {
	router := newTestRouter(newSpikePipeline(t), nil)

	rec := serve(router, "/api/v1/snapshot?channel=predicted")
	var snap detection.Snapshot
	decode(t, rec, &snap)
	if len(snap.Channels) != 1 || snap.Channels[0].Name != detection.ChannelPredicted {
		t.Fatalf("channels = %+v, want only predicted", snap.Channels)
	}
	if snap.Channels[0].Len() != 5 {
		t.Errorf("predicted samples = %d, want 5", snap.Channels[0].Len())
	}

	rec = serve(router, "/api/v1/snapshot?channel=audio")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown channel status = %d, want 404", rec.Code)
	}
}

func TestIntervals(t *testing.T) {
	p := newSpikePipeline(t)
	router := newTestRouter(p, nil)

	var open IntervalsResponse
	decode(t, serve(router, "/api/v1/intervals"), &open)
	if len(open.Intervals) != 0 || open.Provisional == nil || open.Finished {
		t.Errorf("before finish = %+v", open)
	}

	p.Finish(context.Background())

	var done IntervalsResponse
	decode(t, serve(router, "/api/v1/intervals"), &done)
	if len(done.Intervals) != 1 || done.Provisional != nil || !done.Finished {
		t.Errorf("after finish = %+v", done)
	}
	if done.Intervals[0].StartSecond != 3 || done.Intervals[0].EndSecond != 4 {
		t.Errorf("interval = %+v, want [3, 4]", done.Intervals[0])
	}
}

func TestSnapshotEndpointsWithoutPipeline(t *testing.T) {
	router := newTestRouter(nil, nil)
	for _, target := range []string{"/api/v1/snapshot", "/api/v1/intervals", "/api/v1/reports", "/api/v1/reports/x"} {
		t.Run(target, func(t *testing.T) {
			rec := serve(router, target)
			if rec.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", rec.Code)
			}
		})
	}
}

func testReports(n int) []*analysis.Report {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	reports := make([]*analysis.Report, n)
	for i := range reports {
		reports[i] = &analysis.Report{
			ID:        "run-" + string(rune('a'+i)),
			Status:    analysis.StatusCompleted,
			StartedAt: start.Add(-time.Duration(i) * time.Minute),
		}
	}
	return reports
}

func TestReportsList(t *testing.T) {
	router := newTestRouter(nil, &memoryReports{reports: testReports(3)})

	tests := []struct {
		name      string
		target    string
		wantCount int
		wantMore  bool
	}{
		{"default limit", "/api/v1/reports", 3, false},
		{"truncated", "/api/v1/reports?limit=2", 2, true},
		{"exact", "/api/v1/reports?limit=3", 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			var reports []analysis.Report
			env := decode(t, rec, &reports)
			if len(reports) != tt.wantCount {
				t.Errorf("len(reports) = %d, want %d", len(reports), tt.wantCount)
			}
			if env.Meta.Pagination == nil {
				t.Fatal("pagination missing")
			}
			if env.Meta.Pagination.HasMore != tt.wantMore || env.Meta.Pagination.Count != tt.wantCount {
				t.Errorf("pagination = %+v", env.Meta.Pagination)
			}
		})
	}
}

func TestReportsListEmptyIsArray(t *testing.T) {
	rec := serve(newTestRouter(nil, &memoryReports{}), "/api/v1/reports")
	var reports []analysis.Report
	env := decode(t, rec, &reports)
	if reports == nil || len(reports) != 0 {
		t.Errorf("data = %s, want []", env.Data)
	}
	if env.Meta.Pagination == nil || env.Meta.Pagination.Count != 0 {
		t.Errorf("pagination = %+v", env.Meta.Pagination)
	}
}

func TestReportsListInvalidLimit(t *testing.T) {
	router := newTestRouter(nil, &memoryReports{})

	tests := []struct {
		target string
		code   string
	}{
		{"/api/v1/reports?limit=abc", ErrCodeBadRequest},
		{"/api/v1/reports?limit=0", ErrCodeValidationFailed},
		{"/api/v1/reports?limit=5000", ErrCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := serve(router, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			env := decode(t, rec, nil)
			if env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want %s", env.Error, tt.code)
			}
		})
	}
}

func TestReportGet(t *testing.T) {
	router := newTestRouter(nil, &memoryReports{reports: testReports(2)})

	rec := serve(router, "/api/v1/reports/run-b")
	var report analysis.Report
	decode(t, rec, &report)
	if rec.Code != http.StatusOK || report.ID != "run-b" {
		t.Errorf("status %d report %+v", rec.Code, report)
	}

	rec = serve(router, "/api/v1/reports/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing report status = %d, want 404", rec.Code)
	}
}

func TestReportStoreFailure(t *testing.T) {
	router := newTestRouter(nil, &memoryReports{err: errors.New("badger closed")})
	for _, target := range []string{"/api/v1/reports", "/api/v1/reports/x"} {
		if rec := serve(router, target); rec.Code != http.StatusInternalServerError {
			t.Errorf("%s status = %d, want 500", target, rec.Code)
		}
	}
}

func TestReportsWithBadgerStore(t *testing.T) {
	s, err := store.Open(store.Config{InMemory: true})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	for _, r := range testReports(2) {
		if err := s.Save(context.Background(), r); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	var reports []analysis.Report
	decode(t, serve(newTestRouter(nil, s), "/api/v1/reports"), &reports)
	if len(reports) != 2 || reports[0].ID != "run-a" {
		t.Errorf("reports = %+v, want newest (run-a) first", reports)
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := serve(newTestRouter(nil, nil), "/api/v2/nothing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if env := decode(t, rec, nil); env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(nil, nil)
	serve(router, "/api/v1/snapshot")

	rec := serve(router, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "harakiri_api_requests_total") {
		t.Error("metrics output missing harakiri_api_requests_total")
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/snapshot", nil)
	req.Header.Set("Origin", "https://dash.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Access-Control-Allow-Origin = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := RouterConfig{RateLimitRequests: 2, RateLimitWindow: time.Minute}
	router := NewRouter(cfg, NewHandler(nil, nil))

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = serve(router, "/api/v1/intervals").Code
	}
	if codes[0] != http.StatusServiceUnavailable || codes[1] != http.StatusServiceUnavailable {
		t.Errorf("first codes = %v, want 503 503", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third code = %d, want 429", codes[2])
	}

	// Health is outside the limited group.
	if rec := serve(router, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
}
