package runs

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RunAPIServer exposes crawl history over HTTP.
type RunAPIServer struct {
	store *RunStore
}

// NewRunAPIServer creates a new run API server.
func NewRunAPIServer(store *RunStore) *RunAPIServer {
	return &RunAPIServer{
		store: store,
	}
}

// RegisterRoutes adds the run routes to api, normally the /api/v1 group of
// the catalog router.
func (s *RunAPIServer) RegisterRoutes(api gin.IRoutes) {
	api.GET("/runs", s.HandleListRuns)
	api.GET("/runs/:id", s.HandleGetRun)
	api.DELETE("/runs/:id", s.HandleDeleteRun)
}

// ListRunsResponse represents the response for GET /api/v1/runs.
type ListRunsResponse struct {
	Runs  []Run `json:"runs"`
	Total int   `json:"total"`
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// handleError maps domain errors to HTTP responses.
func (s *RunAPIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRunNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleListRuns handles GET /api/v1/runs.
func (s *RunAPIServer) HandleListRuns(c *gin.Context) {
	filter := RunFilter{}

	if statusParam := c.Query("status"); statusParam != "" {
		status := Status(statusParam)
		filter.Status = &status
	}

	if sinceParam := c.Query("since"); sinceParam != "" {
		since, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("bad_request", "since must be an RFC 3339 time"))
			return
		}
		filter.Since = &since
	}

	for param, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		value := c.Query(param)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid "+param))
			return
		}
		*dst = n
	}

	list, err := s.store.List(filter)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if list == nil {
		list = []Run{}
	}

	c.JSON(http.StatusOK, ListRunsResponse{
		Runs:  list,
		Total: len(list),
	})
}

// HandleGetRun handles GET /api/v1/runs/{id}.
func (s *RunAPIServer) HandleGetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid run ID"))
		return
	}

	run, err := s.store.Get(runID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// HandleDeleteRun handles DELETE /api/v1/runs/{id}.
func (s *RunAPIServer) HandleDeleteRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid run ID"))
		return
	}

	if err := s.store.Delete(runID); err != nil {
		s.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
