package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// handleV1ListJobRuns returns paginated ingestion run logs
// GET /api/v1/jobs?page=1&limit=20&job_name=statewide_daily_groundwater_update&status=error
func (s *Server) handleV1ListJobRuns(c *gin.Context) {
	page := 1
	if p := c.Query("page"); p != "" {
		if val, err := strconv.Atoi(p); err == nil && val > 0 {
			page = val
		}
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 && val <= 100 {
			limit = val
		}
	}

	offset := (page - 1) * limit

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	result, err := s.store.ListJobRuns(ctx, limit, offset, c.Query("job_name"), c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result.Runs,
		"pagination": gin.H{
			"page":        page,
			"limit":       limit,
			"total_count": result.TotalCount,
			"total_pages": (result.TotalCount + limit - 1) / limit,
		},
	})
}

// handleV1LatestJobRun returns the newest run of a named job
// GET /api/v1/jobs/:job_name/latest
func (s *Server) handleV1LatestJobRun(c *gin.Context) {
	jobName := c.Param("job_name")
	if jobName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_name is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	run, err := s.store.LatestJobRun(ctx, jobName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job has never run"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": run,
		"meta": gin.H{
			"completed_at": run.CompletedAt.Format(time.RFC3339),
		},
	})
}
