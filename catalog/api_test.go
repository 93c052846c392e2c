package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Test helper: create a router backed by a store holding the given catalogs
func setupTestRouter(t *testing.T, catalogs ...*Catalog) *gin.Engine {
	store := setupTestStore(t)
	for _, c := range catalogs {
		require.NoError(t, store.Add(c))
	}
	return NewAPIServer(store).SetupRouter()
}

// Test helper: perform a GET request against the router
func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Test helper: decode the error code of an error response
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

// TestHandleGetCatalog verifies the newest snapshot is served
func TestHandleGetCatalog(t *testing.T) {
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	older := catalogAt(t, base, "old")
	newer := catalogAt(t, base.Add(time.Hour), "new1", "new2")
	router := setupTestRouter(t, older, newer)

	w := get(router, "/api/v1/catalog")
	require.Equal(t, http.StatusOK, w.Code)

	var got Catalog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, newer.ID, got.ID)
	assert.Equal(t, 2, got.Len())

	w = get(router, "/api/v1/catalog?id="+older.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, older.ID, got.ID)
}

// TestHandleGetCatalog_Errors verifies empty stores and bad IDs
func TestHandleGetCatalog_Errors(t *testing.T) {
	router := setupTestRouter(t)

	w := get(router, "/api/v1/catalog")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))

	w = get(router, "/api/v1/catalog?id=not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", errorCode(t, w))

	w = get(router, "/api/v1/catalog?id=00000000-0000-0000-0000-000000000001")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestHandleListCatalogs verifies snapshot summaries
func TestHandleListCatalogs(t *testing.T) {
	router := setupTestRouter(t, catalogAt(t, time.Now().UTC(), "a", "b", "c"))

	w := get(router, "/api/v1/catalogs")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListCatalogsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 3, resp.Catalogs[0].Programmes)
	assert.Equal(t, 1, resp.Catalogs[0].Categories)
	assert.Equal(t, 0, resp.Errors)
}

// TestHandleListCategories verifies per-category counts
func TestHandleListCategories(t *testing.T) {
	c, err := Assemble([]Category{
		NewCategory("Comedy", []Programme{sampleProgramme("c1")}),
		NewCategory("Drama", []Programme{sampleProgramme("d1"), sampleProgramme("d2")}),
	}, time.Now().UTC())
	require.NoError(t, err)
	router := setupTestRouter(t, c)

	w := get(router, "/api/v1/categories")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListCategoriesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, c.ID, resp.CatalogID)
	assert.Equal(t, []CategorySummary{
		{Name: "Comedy", Programmes: 1},
		{Name: "Drama", Programmes: 2},
	}, resp.Categories)
	assert.Equal(t, 2, resp.Total)
}

// TestHandleGetCategory verifies category lookup by name
func TestHandleGetCategory(t *testing.T) {
	router := setupTestRouter(t, catalogAt(t, time.Now().UTC(), "c1", "c2"))

	w := get(router, "/api/v1/categories/Comedy")
	require.Equal(t, http.StatusOK, w.Code)

	var got Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Comedy", got.Name)
	require.Len(t, got.Programmes, 2)
	assert.Equal(t, 1, *got.Programmes[1].Index)

	w = get(router, "/api/v1/categories/Sport")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))
}

// TestHandleGetProgramme verifies programme lookup by index
func TestHandleGetProgramme(t *testing.T) {
	router := setupTestRouter(t, catalogAt(t, time.Now().UTC(), "c1", "c2"))

	w := get(router, "/api/v1/programmes/1")
	require.Equal(t, http.StatusOK, w.Code)

	var got Programme
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "c2", got.DisplayTitle())

	tests := []struct {
		path string
		code int
	}{
		{"/api/v1/programmes/2", http.StatusNotFound},
		{"/api/v1/programmes/-1", http.StatusBadRequest},
		{"/api/v1/programmes/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.code, get(router, tt.path).Code)
		})
	}
}

// TestCORSPreflight verifies OPTIONS requests are answered by the
// middleware
func TestCORSPreflight(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/catalog", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
