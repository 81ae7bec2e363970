package http

import "github.com/gin-gonic/gin"

// registerV1Routes sets up the v1 API structure
// Groups: /api/v1/sites, /api/v1/levels, /api/v1/jobs
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware()) // Add X-API-Version: v1 header

	// Site endpoints - monitoring-location metadata
	sites := v1.Group("/sites")
	{
		sites.GET("", s.handleV1ListSites)
		sites.GET("/:id", s.handleV1GetSite)
		sites.GET("/:id/levels", s.handleV1SiteLevels)
	}

	// Level endpoints - measurement data
	levels := v1.Group("/levels")
	{
		levels.GET("", s.handleV1BrowseLevels)
		levels.GET("/latest", s.handleV1LatestLevels)
		levels.GET("/stats", s.handleV1Stats)
	}

	// Job endpoints - ingestion run logs
	jobs := v1.Group("/jobs")
	{
		jobs.GET("", s.handleV1ListJobRuns)
		jobs.GET("/:job_name/latest", s.handleV1LatestJobRun)
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}
