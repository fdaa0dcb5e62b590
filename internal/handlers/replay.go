package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"cadence/internal/replay"
)

// ReplayResponse wraps the outcome of a replay request
type ReplayResponse struct {
	Success bool            `json:"success"`
	Preview *replay.Preview `json:"preview,omitempty"`
	Run     *replay.Run     `json:"run,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReplayHandler starts a backfill over a historical window, or previews it
// when dry_run is set
// @Summary Start or preview a pipeline replay
// @Description Re-drives normalization over stored raw events for a historical window. With dry_run=true only counts are returned and nothing is written.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body replay.Request true "Replay parameters"
// @Success 200 {object} ReplayResponse
// @Failure 400 {object} ReplayResponse
// @Failure 500 {object} ReplayResponse
// @Router /api/admin/replay [post]
func ReplayHandler(ctrl *replay.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req replay.Request
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ReplayResponse{
				Success: false,
				Error:   "Invalid request body",
			})
		}
		if err := req.Validate(); err != nil {
			return c.JSON(http.StatusBadRequest, ReplayResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		ctx := c.Request().Context()

		if req.DryRun {
			preview, err := ctrl.Preview(ctx, req)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, ReplayResponse{
					Success: false,
					Error:   fmt.Sprintf("Preview failed: %v", err),
				})
			}
			return c.JSON(http.StatusOK, ReplayResponse{Success: true, Preview: preview})
		}

		run, err := ctrl.Start(ctx, req)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, ReplayResponse{
				Success: false,
				Error:   fmt.Sprintf("Replay failed: %v", err),
			})
		}
		return c.JSON(http.StatusOK, ReplayResponse{Success: true, Run: run})
	}
}

// ReplayStatusHandler reports per-status job counts for a replay batch
// @Summary Get replay batch status
// @Description Returns job counts by status for the given replay batch
// @Tags admin
// @Produce json
// @Param batchID path string true "Batch ID"
// @Success 200 {object} map[string]int
// @Failure 404 {object} map[string]string
// @Router /api/admin/replay/{batchID} [get]
func ReplayStatusHandler(ctrl *replay.Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		batchID := c.Param("batchID")

		counts, err := ctrl.Status(c.Request().Context(), batchID)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusOK, counts)
	}
}
