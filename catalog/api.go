package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIServer serves saved catalogs read-only over HTTP.
type APIServer struct {
	store *Store
}

// NewAPIServer creates a new catalog API server.
func NewAPIServer(store *Store) *APIServer {
	return &APIServer{
		store: store,
	}
}

// SetupRouter configures the Gin router with all catalog API routes.
func (s *APIServer) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	api := router.Group("/api/v1")
	api.GET("/catalog", s.HandleGetCatalog)
	api.GET("/catalogs", s.HandleListCatalogs)
	api.GET("/categories", s.HandleListCategories)
	api.GET("/categories/:name", s.HandleGetCategory)
	api.GET("/programmes/:index", s.HandleGetProgramme)

	return router
}

// CatalogSummary describes one stored snapshot.
type CatalogSummary struct {
	ID         uuid.UUID `json:"id"`
	SavedAt    string    `json:"saved_at"`
	Categories int       `json:"categories"`
	Programmes int       `json:"programmes"`
}

// ListCatalogsResponse represents the response for GET /api/v1/catalogs.
type ListCatalogsResponse struct {
	Catalogs []CatalogSummary `json:"catalogs"`
	Total    int              `json:"total"`
	Errors   int              `json:"errors"`
}

// CategorySummary is one entry of GET /api/v1/categories.
type CategorySummary struct {
	Name       string `json:"name"`
	Programmes int    `json:"programmes"`
}

// ListCategoriesResponse represents the response for GET
// /api/v1/categories.
type ListCategoriesResponse struct {
	CatalogID  uuid.UUID         `json:"catalog_id"`
	Categories []CategorySummary `json:"categories"`
	Total      int               `json:"total"`
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

// handleError maps store errors to HTTP responses.
func (s *APIServer) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNoSnapshots):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// latest resolves the catalog a request refers to: the snapshot named by
// the "id" query parameter, or the newest one.
func (s *APIServer) latest(c *gin.Context) (*Catalog, bool) {
	if idParam := c.Query("id"); idParam != "" {
		id, err := uuid.Parse(idParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid catalog ID"))
			return nil, false
		}

		cat, err := s.store.Get(id)
		if err != nil {
			s.handleError(c, err)
			return nil, false
		}
		if cat == nil {
			c.JSON(http.StatusNotFound, errorResponse("not_found", "Catalog not found"))
			return nil, false
		}
		return cat, true
	}

	cat, err := s.store.Latest()
	if err != nil {
		s.handleError(c, err)
		return nil, false
	}
	return cat, true
}

// HandleGetCatalog handles GET /api/v1/catalog.
func (s *APIServer) HandleGetCatalog(c *gin.Context) {
	cat, ok := s.latest(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, cat)
}

// HandleListCatalogs handles GET /api/v1/catalogs.
func (s *APIServer) HandleListCatalogs(c *gin.Context) {
	result, err := s.store.List()
	if err != nil {
		s.handleError(c, err)
		return
	}

	summaries := make([]CatalogSummary, 0, len(result.Catalogs))
	for _, cat := range result.Catalogs {
		summaries = append(summaries, CatalogSummary{
			ID:         cat.ID,
			SavedAt:    cat.SavedAt.Format(time.RFC3339),
			Categories: len(cat.Categories),
			Programmes: cat.Len(),
		})
	}

	c.JSON(http.StatusOK, ListCatalogsResponse{
		Catalogs: summaries,
		Total:    len(summaries),
		Errors:   len(result.Errors),
	})
}

// HandleListCategories handles GET /api/v1/categories.
func (s *APIServer) HandleListCategories(c *gin.Context) {
	cat, ok := s.latest(c)
	if !ok {
		return
	}

	categories := make([]CategorySummary, 0, len(cat.Categories))
	for _, category := range cat.Categories {
		categories = append(categories, CategorySummary{
			Name:       category.Name,
			Programmes: len(category.Programmes),
		})
	}

	c.JSON(http.StatusOK, ListCategoriesResponse{
		CatalogID:  cat.ID,
		Categories: categories,
		Total:      len(categories),
	})
}

// HandleGetCategory handles GET /api/v1/categories/{name}.
func (s *APIServer) HandleGetCategory(c *gin.Context) {
	cat, ok := s.latest(c)
	if !ok {
		return
	}

	category := cat.Category(c.Param("name"))
	if category == nil {
		c.JSON(http.StatusNotFound, errorResponse("not_found", "Category not found"))
		return
	}

	c.JSON(http.StatusOK, category)
}

// HandleGetProgramme handles GET /api/v1/programmes/{index}.
func (s *APIServer) HandleGetProgramme(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid programme index"))
		return
	}

	cat, ok := s.latest(c)
	if !ok {
		return
	}

	prog := cat.Programme(index)
	if prog == nil {
		c.JSON(http.StatusNotFound, errorResponse("not_found", "Programme not found"))
		return
	}

	c.JSON(http.StatusOK, prog)
}
