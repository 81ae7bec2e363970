package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wellpulse/groundwater-viewer/services/api/db"
)

// handleV1ListSites returns monitoring sites, optionally filtered by county
// GET /api/v1/sites?county=06047&limit=100
func (s *Server) handleV1ListSites(c *gin.Context) {
	limit := 0
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sites, err := s.store.ListSites(ctx, db.SiteQuery{
		CountyCode: c.Query("county"),
		Limit:      limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": sites,
		"meta": gin.H{
			"count": len(sites),
		},
	})
}

// handleV1GetSite returns details for a specific monitoring site
// GET /api/v1/sites/:id
func (s *Server) handleV1GetSite(c *gin.Context) {
	siteID := c.Param("id")
	if siteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site id is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	site, err := s.store.GetSite(ctx, siteID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if site == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "site not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": site,
	})
}

// handleV1SiteLevels returns a site's measurement history
// GET /api/v1/sites/:id/levels?last_n=200&last_n_days=30&start=...&end=...
func (s *Server) handleV1SiteLevels(c *gin.Context) {
	siteID := c.Param("id")
	if siteID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site id is required"})
		return
	}

	q, ok := s.parseLevelQuery(c, siteID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	levels, err := s.store.FetchLevels(ctx, q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": levels,
		"meta": gin.H{
			"site_id": siteID,
			"count":   len(levels),
		},
	})
}

// parseLevelQuery builds the store query from request parameters. On a bad
// parameter it writes the 400 response and reports ok=false.
func (s *Server) parseLevelQuery(c *gin.Context, siteID string) (db.LevelQuery, bool) {
	q := db.LevelQuery{SiteID: siteID, Limit: s.cfg.DefaultLimit}

	if limitStr := c.Query("last_n"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid last_n"})
			return q, false
		}
		q.Limit = parsed
	}

	if daysStr := c.Query("last_n_days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid last_n_days"})
			return q, false
		}
		t := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
		q.Since = &t
	}

	if startStr := c.Query("start"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start timestamp"})
			return q, false
		}
		tt := t.UTC()
		q.Since = &tt
	}

	if endStr := c.Query("end"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end timestamp"})
			return q, false
		}
		tt := t.UTC()
		q.Until = &tt
	}

	return q, true
}
