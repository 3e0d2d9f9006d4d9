package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/eventlog"
	"github.com/platformbuilds/vigilante-core/internal/models"
	"github.com/platformbuilds/vigilante-core/internal/simulation"
	"github.com/platformbuilds/vigilante-core/pkg/cache"
	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.GetDefaultConfig()
	dir := t.TempDir()
	cfg.EventLog.Path = filepath.Join(dir, "registros.jsonl")
	cfg.Summary.Path = filepath.Join(dir, "resumen.json")
	cfg.Server.StaticDir = filepath.Join(dir, "web")
	return cfg
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func TestHealthAndReady(t *testing.T) {
	cfg := testConfig(t)

	s := NewServer(cfg, logger.NewNop(), nil, nil)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", nil).Code)
	w := do(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"disabled"`)

	s = NewServer(cfg, logger.NewNop(), cache.NewMemoryCache(logger.NewNop()), nil)
	w = do(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)
}

func TestReadyFailsWhenValkeyIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.NewValkeySingle(mr.Addr(), 0, "", time.Minute)
	require.NoError(t, err)

	s := NewServer(testConfig(t), logger.NewNop(), c, nil)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/ready", nil).Code)

	mr.Close()
	w := do(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"not_ready"`)
}

func TestEventsEndpoint(t *testing.T) {
	cfg := testConfig(t)
	w, err := eventlog.NewWriter(cfg.EventLog, nil)
	require.NoError(t, err)
	recs := []models.StepRecord{
		{Time: "2025-03-01 00:00:00", CumDispMmTotal: 1.5, CurrentState: models.StateNormal},
		{Time: "2025-03-01 06:00:00", DispMm: 2, CumDispMmTotal: 2, CurrentState: models.StateAlerta, LLMRationale: "plain rationale"},
		{Time: "2025-03-01 12:00:00", DispMm: 3, CumDispMmTotal: 3, CurrentState: models.StateAlarma,
			LLMRationale: "fallback", LLMJSON: &models.AdvisoryResponse{Level: models.StateAlarma, Rationale: "from json"},
			LLMLevel: models.StateAlarma},
	}
	for _, rec := range recs {
		_, err := w.Append(rec)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	s := NewServer(cfg, logger.NewNop(), nil, nil)

	var body struct {
		Events []map[string]interface{} `json:"events"`
		Count  int                      `json:"count"`
	}
	resp := do(t, s, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	decode(t, resp, &body)
	require.Equal(t, 3, body.Count)
	assert.Equal(t, 1.5, body.Events[0]["disp_mm"], "disp_mm falls back to the cumulative total")
	assert.Equal(t, "plain rationale", body.Events[1]["rationale"])
	assert.Equal(t, "from json", body.Events[2]["rationale"])
	assert.Equal(t, "ALARMA", body.Events[2]["llm_level"])

	resp = do(t, s, http.MethodGet, "/api/events?limit=2", nil)
	decode(t, resp, &body)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "2025-03-01 06:00:00", body.Events[0]["time"])

	resp = do(t, s, http.MethodGet, "/api/events?hours=7", nil)
	decode(t, resp, &body)
	assert.Equal(t, 2, body.Count)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/events?limit=abc", nil).Code)
}

func TestEventsWithoutLogIsEmpty(t *testing.T) {
	s := NewServer(testConfig(t), logger.NewNop(), nil, nil)
	resp := do(t, s, http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"count":0`)
}

func TestSummaryEndpoint(t *testing.T) {
	cfg := testConfig(t)
	s := NewServer(cfg, logger.NewNop(), nil, nil)

	resp := do(t, s, http.MethodGet, "/api/summary", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "NOT_FOUND")

	require.NoError(t, simulation.WriteSummary(cfg.Summary.Path, &models.SimulationSummary{
		Meta: models.SummaryMeta{RunID: "run-7", EvaluatedSteps: 4},
	}))
	resp = do(t, s, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var got models.SimulationSummary
	decode(t, resp, &got)
	assert.Equal(t, "run-7", got.Meta.RunID)
}

func TestLatestSnapshotEndpoint(t *testing.T) {
	c := cache.NewMemoryCache(logger.NewNop())
	s := NewServer(testConfig(t), logger.NewNop(), c, nil)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/snapshot/latest", nil).Code)

	latest := models.LatestStep{Record: models.StepRecord{Index: 299, Time: "2025-03-01 04:59:00", CurrentState: models.StateAlarma}}
	require.NoError(t, c.Set(context.Background(), cache.LatestStepKey, latest, time.Minute))

	resp := do(t, s, http.MethodGet, "/api/snapshot/latest", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var got models.LatestStep
	decode(t, resp, &got)
	assert.Equal(t, 299, got.Record.Index)
	assert.Equal(t, models.StateAlarma, got.Record.CurrentState)

	noCache := NewServer(testConfig(t), logger.NewNop(), nil, nil)
	assert.Equal(t, http.StatusNotFound, do(t, noCache, http.MethodGet, "/api/snapshot/latest", nil).Code)
}

// creepPoints accelerates from 0.9375 to 7.5 mm/hr over its last ten minutes.
func creepPoints() []map[string]interface{} {
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	points := make([]map[string]interface{}, 0, 300)
	for i := 0; i < 300; i++ {
		disp := float64(i) / 64
		if i >= 290 {
			disp = 290.0/64 + float64(i-290)*0.125
		}
		points = append(points, map[string]interface{}{
			"time":    models.FormatTime(t0.Add(time.Duration(i) * time.Minute)),
			"disp_mm": disp,
		})
	}
	return points
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := NewServer(testConfig(t), logger.NewNop(), nil, nil)

	resp := do(t, s, http.MethodPost, "/api/analyze", gin.H{"points": creepPoints()})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var got struct {
		Snapshot models.Snapshot `json:"snapshot"`
		Prompt   string          `json:"prompt"`
		Points   int             `json:"points"`
	}
	decode(t, resp, &got)
	assert.Equal(t, 300, got.Points)
	assert.Equal(t, "2025-03-01 04:59:00", got.Snapshot.Current.Time)
	assert.Equal(t, models.StateAlarma, got.Snapshot.Decision.State)
	assert.Contains(t, got.Prompt, `"decision"`)

	// With fixed rules raised out of reach the adaptive thresholds decide.
	resp = do(t, s, http.MethodPost, "/api/analyze", gin.H{
		"points": creepPoints(),
		"index":  60,
		"fixed_rules": models.FixedRules{
			VAlert: 100, VAlarm: 200, DAlert: 1000, VAlarmWithD1: 100, VAlarmWithD2: 100,
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	decode(t, resp, &got)
	assert.Equal(t, models.SourceAdaptive, got.Snapshot.Decision.Source)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	s := NewServer(testConfig(t), logger.NewNop(), nil, nil)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{name: "no points", body: gin.H{}, want: http.StatusBadRequest},
		{name: "one point", body: gin.H{"points": creepPoints()[:1]}, want: http.StatusBadRequest},
		{name: "bad time", body: gin.H{"points": []gin.H{{"time": "ayer", "disp_mm": 1}, {"time": "hoy", "disp_mm": 2}}}, want: http.StatusBadRequest},
		{name: "no values", body: gin.H{"points": []gin.H{{"time": "2025-03-01 00:00"}, {"time": "2025-03-01 00:01"}}}, want: http.StatusUnprocessableEntity},
		{name: "index without history", body: gin.H{"points": creepPoints(), "index": 0}, want: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, s, http.MethodPost, "/api/analyze", tt.body).Code)
		})
	}
}

func TestRootServesDashboardWhenPresent(t *testing.T) {
	cfg := testConfig(t)
	s := NewServer(cfg, logger.NewNop(), nil, nil)
	resp := do(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"ok":true,"message":"API alive"}`, resp.Body.String())

	require.NoError(t, os.MkdirAll(cfg.Server.StaticDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Server.StaticDir, "index.html"), []byte("<h1>radar</h1>"), 0o644))
	resp = do(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "<h1>radar</h1>")
}

func TestMetricsEndpointAndConfigReload(t *testing.T) {
	cfg := testConfig(t)
	s := NewServer(cfg, logger.NewNop(), nil, nil)
	do(t, s, http.MethodGet, "/health", nil)

	resp := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "vigilante_core_http_requests_total")

	next := *cfg
	next.Summary.Path = filepath.Join(t.TempDir(), "otro.json")
	require.NoError(t, simulation.WriteSummary(next.Summary.Path, &models.SimulationSummary{Meta: models.SummaryMeta{RunID: "reloaded"}}))
	s.UpdateConfig(&next)
	assert.Contains(t, do(t, s, http.MethodGet, "/api/summary", nil).Body.String(), "reloaded")
}

func TestStartStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = 0
	s := NewServer(cfg, logger.NewNop(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
