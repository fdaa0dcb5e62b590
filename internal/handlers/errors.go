package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"cadence/internal/store"
)

// ListIngestErrorsHandler returns recent entries from the side error log
// @Summary List ingest errors
// @Description Returns the most recent validation failures recorded by the pipeline
// @Tags admin
// @Produce json
// @Param limit query int false "Maximum rows to return (default 50)"
// @Success 200 {array} models.IngestError
// @Failure 500 {object} map[string]string
// @Router /api/admin/ingest-errors [get]
func ListIngestErrorsHandler(st *store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		if raw := c.QueryParam("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
				limit = parsed
			}
		}

		errors, err := st.ListIngestErrors(c.Request().Context(), limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusOK, errors)
	}
}
