package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"cadence/internal/config"
	"cadence/internal/jobs"
	"cadence/internal/k8s"
)

// TriggerSyncRequest asks for an immediate provider sync
type TriggerSyncRequest struct {
	UserID    string   `json:"user_id"`
	Providers []string `json:"providers"`
}

// TriggerSyncResponse reports what was enqueued
type TriggerSyncResponse struct {
	Success bool     `json:"success"`
	JobIDs  []string `json:"job_ids,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Enqueuer is the queue surface the sync handlers write through
type Enqueuer interface {
	Enqueue(ctx context.Context, req jobs.Request) (string, error)
}

// TriggerSyncHandler enqueues provider_sync jobs outside the cron schedule
// @Summary Trigger an immediate provider sync
// @Description Enqueues one provider_sync job per requested provider for the given user. Defaults to all enabled providers.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body TriggerSyncRequest true "Sync parameters"
// @Success 200 {object} TriggerSyncResponse
// @Failure 400 {object} TriggerSyncResponse
// @Failure 500 {object} TriggerSyncResponse
// @Router /api/admin/trigger-sync [post]
func TriggerSyncHandler(queue Enqueuer, cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req TriggerSyncRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, TriggerSyncResponse{
				Success: false,
				Error:   "Invalid request body",
			})
		}
		if req.UserID == "" {
			return c.JSON(http.StatusBadRequest, TriggerSyncResponse{
				Success: false,
				Error:   "user_id is required",
			})
		}

		providers := req.Providers
		if len(providers) == 0 {
			providers = cfg.EnabledProviders()
		}

		var jobIDs []string
		for _, provider := range providers {
			jobReq, err := jobs.NewRequest(jobs.KindProviderSync,
				jobs.SyncPayload{Provider: provider}, req.UserID, nil)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, TriggerSyncResponse{
					Success: false,
					Error:   err.Error(),
				})
			}
			id, err := queue.Enqueue(c.Request().Context(), jobReq)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, TriggerSyncResponse{
					Success: false,
					Error:   fmt.Sprintf("Failed to enqueue sync for %s: %v", provider, err),
				})
			}
			jobIDs = append(jobIDs, id)
		}

		fmt.Printf("[SYNC_TRIGGER] Enqueued %d sync jobs for user %s\n", len(jobIDs), req.UserID)
		return c.JSON(http.StatusOK, TriggerSyncResponse{Success: true, JobIDs: jobIDs})
	}
}

// TriggerBackfillJobRequest asks for a cluster-side backfill run
type TriggerBackfillJobRequest struct {
	Providers []string `json:"providers"`
	Days      int      `json:"days"`
	BatchSize int      `json:"batch_size"`
}

// TriggerBackfillJobResponse reports the created Kubernetes job
type TriggerBackfillJobResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	JobName string `json:"job_name,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BackfillJobStatus is the reported state of a Kubernetes backfill job
type BackfillJobStatus struct {
	JobName        string  `json:"job_name"`
	Status         string  `json:"status"`
	Active         int32   `json:"active"`
	Succeeded      int32   `json:"succeeded"`
	Failed         int32   `json:"failed"`
	StartTime      *string `json:"start_time,omitempty"`
	CompletionTime *string `json:"completion_time,omitempty"`
}

// TriggerBackfillJobHandler creates a Kubernetes Job that runs the backfill
// binary, for windows too heavy for the in-process workers
// @Summary Trigger a cluster-side backfill job
// @Description Creates a Kubernetes Job running the backfill binary over a historical window
// @Tags admin
// @Accept json
// @Produce json
// @Param request body TriggerBackfillJobRequest true "Backfill parameters"
// @Success 200 {object} TriggerBackfillJobResponse
// @Failure 400 {object} TriggerBackfillJobResponse
// @Failure 500 {object} TriggerBackfillJobResponse
// @Router /api/admin/trigger-backfill [post]
func TriggerBackfillJobHandler(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		fmt.Println("[BACKFILL_JOB] Received trigger request")

		var req TriggerBackfillJobRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, TriggerBackfillJobResponse{
				Success: false,
				Error:   "Invalid request body",
			})
		}
		if req.Days <= 0 {
			req.Days = 30
		}
		if req.BatchSize <= 0 {
			req.BatchSize = 100
		}
		if len(req.Providers) == 0 {
			req.Providers = cfg.EnabledProviders()
		}

		jobName := fmt.Sprintf("cadence-backfill-%d", time.Now().Unix())

		k8sClient, err := k8s.NewClient("cadence")
		if err != nil {
			fmt.Printf("[BACKFILL_JOB] Failed to create Kubernetes client: %v\n", err)
			return c.JSON(http.StatusInternalServerError, TriggerBackfillJobResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to create Kubernetes client: %v", err),
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := k8sClient.CreateBackfillJob(ctx, jobName, cfg.SyncImage, req.Providers, req.Days, req.BatchSize); err != nil {
			fmt.Printf("[BACKFILL_JOB] Failed to create job: %v\n", err)
			return c.JSON(http.StatusInternalServerError, TriggerBackfillJobResponse{
				Success: false,
				Error:   fmt.Sprintf("Failed to create Kubernetes job: %v", err),
			})
		}

		fmt.Printf("[BACKFILL_JOB] Successfully created job: %s\n", jobName)
		return c.JSON(http.StatusOK, TriggerBackfillJobResponse{
			Success: true,
			Message: "Backfill job triggered successfully",
			JobName: jobName,
		})
	}
}

// BackfillJobStatusHandler reports the status of a cluster-side backfill job
// @Summary Get backfill job status
// @Description Gets the current status of a Kubernetes backfill job
// @Tags admin
// @Produce json
// @Param jobName path string true "Job name"
// @Success 200 {object} BackfillJobStatus
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/admin/backfill-status/{jobName} [get]
func BackfillJobStatusHandler(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobName := c.Param("jobName")

		k8sClient, err := k8s.NewClient("cadence")
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": fmt.Sprintf("Failed to create Kubernetes client: %v", err),
			})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := k8sClient.GetJobStatus(ctx, jobName)
		if err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": fmt.Sprintf("Job not found: %v", err),
			})
		}

		status := "pending"
		if job.Status.Active > 0 {
			status = "running"
		} else if job.Status.Succeeded > 0 {
			status = "completed"
		} else if job.Status.Failed > 0 {
			status = "failed"
		}

		var startTime, completionTime *string
		if job.Status.StartTime != nil {
			st := job.Status.StartTime.Format(time.RFC3339)
			startTime = &st
		}
		if job.Status.CompletionTime != nil {
			ct := job.Status.CompletionTime.Format(time.RFC3339)
			completionTime = &ct
		}

		return c.JSON(http.StatusOK, BackfillJobStatus{
			JobName:        jobName,
			Status:         status,
			Active:         job.Status.Active,
			Succeeded:      job.Status.Succeeded,
			Failed:         job.Status.Failed,
			StartTime:      startTime,
			CompletionTime: completionTime,
		})
	}
}
