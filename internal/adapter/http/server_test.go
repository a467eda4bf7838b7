package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/landslide-riskmap/internal/adapter/http"
	"github.com/couchcryptid/landslide-riskmap/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRuns struct {
	last *pipeline.RunResult
}

func (m *mockRuns) LastRun() *pipeline.RunResult { return m.last }

func newTestServer(readyErr error, last *pipeline.RunResult) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockRuns{last: last}, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("base susceptibility map not ready yet"), nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "base susceptibility map not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRunzReturns404BeforeFirstRun(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunzSummarizesLastRun(t *testing.T) {
	last := &pipeline.RunResult{
		RunID:        "run-7",
		BaseMapPath:  "/data/processed/landslide_base_map.tif",
		RecordedPath: "/data/processed/Raster/recorded_rainfall_utm45n_cls.tif",
		Days: []pipeline.DayResult{
			{Day: 1, Date: "2026-07-15", FinalPath: "/data/output/1_day_landslide_map_FINAL.tif"},
			{Day: 2, Date: "2026-07-16", Err: errors.New("grid stage failed")},
		},
	}
	srv := newTestServer(nil, last)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID  string `json:"run_id"`
		Failed bool   `json:"failed"`
		Days   []struct {
			Day       int    `json:"day"`
			FinalPath string `json:"final_path"`
			Error     string `json:"error"`
		} `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-7", body.RunID)
	assert.True(t, body.Failed)
	require.Len(t, body.Days, 2)
	assert.Equal(t, "/data/output/1_day_landslide_map_FINAL.tif", body.Days[0].FinalPath)
	assert.Empty(t, body.Days[0].Error)
	assert.Empty(t, body.Days[1].FinalPath)
	assert.Equal(t, "grid stage failed", body.Days[1].Error)
}
