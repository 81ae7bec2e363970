package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wellpulse/groundwater-viewer/services/api/db"
)

// handleV1BrowseLevels returns measurements across sites with filters
// GET /api/v1/levels?county=06047&start=...&end=...&min_value=0&max_value=150&limit=500
func (s *Server) handleV1BrowseLevels(c *gin.Context) {
	q := db.BrowseQuery{CountyCode: c.Query("county"), Limit: s.cfg.DefaultLimit}

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		q.Limit = parsed
	}

	for param, dest := range map[string]**time.Time{"start": &q.Since, "end": &q.Until} {
		if v := c.Query(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param + " timestamp"})
				return
			}
			tt := t.UTC()
			*dest = &tt
		}
	}

	for param, dest := range map[string]**float64{"min_value": &q.MinValue, "max_value": &q.MaxValue} {
		if v := c.Query(param); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
				return
			}
			*dest = &f
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	levels, err := s.store.BrowseLevels(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": levels,
		"meta": gin.H{
			"count": len(levels),
		},
	})
}

// handleV1LatestLevels returns the most recent measurement per site
// GET /api/v1/levels/latest?county=06047
func (s *Server) handleV1LatestLevels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	snapshots, err := s.store.LatestLevels(ctx, c.Query("county"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": snapshots,
		"meta": gin.H{
			"count":        len(snapshots),
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleV1Stats returns dataset-wide counts and windowed averages
// GET /api/v1/levels/stats
func (s *Server) handleV1Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	stats, err := s.store.GetStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stats,
	})
}
