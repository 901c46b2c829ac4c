package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kermitt2/grobid-client-go/internal/handler"
	"github.com/kermitt2/grobid-client-go/internal/types"
	"github.com/kermitt2/grobid-client-go/internal/worker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRun struct {
	snapshot worker.Snapshot
	results  []types.ItemResult
}

func (s *stubRun) RunID() string             { return "run-42" }
func (s *stubRun) Snapshot() worker.Snapshot { return s.snapshot }
func (s *stubRun) Results() []types.ItemResult {
	return s.results
}

func newTestEngine() *gin.Engine {
	run := &stubRun{
		snapshot: worker.Snapshot{
			Phase:     worker.PhaseDraining,
			Submitted: 3,
			Completed: 1,
			Failed:    1,
			Pending:   1,
			InFlight:  1,
			Retries:   7,
		},
		results: []types.ItemResult{
			{Name: "a.pdf", Status: types.StatusSucceeded, Location: "out/a.tei.xml"},
			{Name: "b.pdf", Status: types.StatusFailed, Error: "call to GROBID service failed with error 500"},
		},
	}
	return NewServer(handler.NewStatusHandler(run, "processFulltextDocument"))
}

func get(t *testing.T, engine *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	engine.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthz(t *testing.T) {
	rec, body := get(t, newTestEngine(), "/api/v1/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRunStatus(t *testing.T) {
	rec, body := get(t, newTestEngine(), "/api/v1/run/status")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "run-42", body["run_id"])
	assert.Equal(t, "processFulltextDocument", body["action"])

	status, ok := body["status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "draining", status["phase"])
	assert.EqualValues(t, 3, status["submitted"])
	assert.EqualValues(t, 1, status["in_flight"])
	assert.EqualValues(t, 7, status["retries"])
}

func TestRunResults(t *testing.T) {
	engine := newTestEngine()

	rec, body := get(t, engine, "/api/v1/run/results")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])

	rec, body = get(t, engine, "/api/v1/run/results?status=failed")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	results := body["results"].([]any)
	assert.Equal(t, "b.pdf", results[0].(map[string]any)["name"])

	rec, body = get(t, engine, "/api/v1/run/results?status=pending")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "status must be")
}
