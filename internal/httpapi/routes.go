package httpapi

import "github.com/gin-gonic/gin"

// SetupJobsRoutes binds the REST surface to handler, matching the
// /api/v1/jobs... binding table: a thin forwarding layer over
// Schedule's own operations.
func SetupJobsRoutes(router *gin.RouterGroup, handler *JobsHandler) {
	jobs := router.Group("/jobs")
	{
		jobs.POST("", handler.CreateJob)
		jobs.GET("", handler.ListJobs)
		jobs.GET("/:name", handler.GetJob)
		jobs.DELETE("/:name", handler.DeleteJob)
		jobs.POST("/:name/start", handler.StartJob)
		jobs.POST("/:name/stop", handler.StopJob)
		jobs.POST("/:name/run", handler.RunJob)
		jobs.POST("/start-all", handler.StartAllJobs)
		jobs.POST("/stop-all", handler.StopAllJobs)
	}
}
