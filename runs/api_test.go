package runs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Test helper: create a router serving a store with two runs, the second
// completed
func setupTestAPI(t *testing.T) (*gin.Engine, []uuid.UUID) {
	store, clock := createTestRunStore(t)

	first, err := store.Start([]string{"Comedy"})
	require.NoError(t, err)
	*clock = clock.Add(time.Hour)
	second, err := store.Start([]string{"Drama"})
	require.NoError(t, err)
	require.NoError(t, store.Finish(second.RunID, Outcome{Status: StatusCompleted}))

	router := gin.New()
	NewRunAPIServer(store).RegisterRoutes(router.Group("/api/v1"))
	return router, []uuid.UUID{first.RunID, second.RunID}
}

// Test helper: perform a request against the router
func request(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHandleListRuns verifies listing and filtering
func TestHandleListRuns(t *testing.T) {
	router, ids := setupTestAPI(t)

	w := request(router, http.MethodGet, "/api/v1/runs")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListRunsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, ids[1], resp.Runs[0].RunID)

	w = request(router, http.MethodGet, "/api/v1/runs?status=running")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, ids[0], resp.Runs[0].RunID)

	since := url.QueryEscape("2026-03-01T09:30:00Z")
	w = request(router, http.MethodGet, "/api/v1/runs?since="+since)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, ids[1], resp.Runs[0].RunID)

	w = request(router, http.MethodGet, "/api/v1/runs?limit=1&offset=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, ids[0], resp.Runs[0].RunID)
}

// TestHandleListRuns_Empty verifies an empty list is an empty array
func TestHandleListRuns_Empty(t *testing.T) {
	router, _ := setupTestAPI(t)

	w := request(router, http.MethodGet, "/api/v1/runs?status=failed")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[],"total":0}`, w.Body.String())
}

// TestHandleListRuns_BadQuery verifies malformed parameters are rejected
func TestHandleListRuns_BadQuery(t *testing.T) {
	router, _ := setupTestAPI(t)

	for _, query := range []string{"limit=abc", "offset=-1", "since=yesterday"} {
		w := request(router, http.MethodGet, "/api/v1/runs?"+query)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

// TestHandleGetRun verifies single-run lookup
func TestHandleGetRun(t *testing.T) {
	router, ids := setupTestAPI(t)

	w := request(router, http.MethodGet, "/api/v1/runs/"+ids[1].String())
	require.Equal(t, http.StatusOK, w.Code)

	var run Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, []string{"Drama"}, run.Categories)

	w = request(router, http.MethodGet, "/api/v1/runs/"+uuid.New().String())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(router, http.MethodGet, "/api/v1/runs/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestHandleDeleteRun verifies deletion
func TestHandleDeleteRun(t *testing.T) {
	router, ids := setupTestAPI(t)

	w := request(router, http.MethodDelete, "/api/v1/runs/"+ids[0].String())
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = request(router, http.MethodGet, "/api/v1/runs/"+ids[0].String())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(router, http.MethodDelete, "/api/v1/runs/"+ids[0].String())
	assert.Equal(t, http.StatusNotFound, w.Code)
}
