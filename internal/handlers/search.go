package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"cadence/internal/openai"
	"cadence/internal/store"
)

// SearchRequest is a semantic search over stored interaction chunks
type SearchRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
}

// SearchResponse carries the ranked chunk matches
type SearchResponse struct {
	Success bool                      `json:"success"`
	Results []store.ChunkSearchResult `json:"results,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

// SearchHandler embeds the query text and returns the closest stored chunks
// @Summary Semantic search over interactions
// @Description Embeds the query and returns the most similar stored interaction chunks for the user
// @Tags search
// @Accept json
// @Produce json
// @Param request body SearchRequest true "Search parameters"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} SearchResponse
// @Failure 500 {object} SearchResponse
// @Router /api/search [post]
func SearchHandler(st *store.Store, client *openai.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req SearchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, SearchResponse{
				Success: false,
				Error:   "Invalid request body",
			})
		}
		if req.UserID == "" || req.Query == "" {
			return c.JSON(http.StatusBadRequest, SearchResponse{
				Success: false,
				Error:   "user_id and query are required",
			})
		}
		if req.Limit <= 0 || req.Limit > 50 {
			req.Limit = 10
		}
		if client == nil {
			return c.JSON(http.StatusServiceUnavailable, SearchResponse{
				Success: false,
				Error:   "Embedding capability not configured",
			})
		}

		ctx := c.Request().Context()

		vectors, err := client.CreateEmbeddings(ctx, []string{req.Query})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, SearchResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to embed query: %v", err),
			})
		}

		results, err := st.SearchSimilarChunks(ctx, req.UserID, vectors[0], req.Limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, SearchResponse{
				Success: false,
				Error:   fmt.Sprintf("Search failed: %v", err),
			})
		}

		return c.JSON(http.StatusOK, SearchResponse{Success: true, Results: results})
	}
}
