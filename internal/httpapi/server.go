package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"momo/internal/schedule"
)

// NewServer builds the gin engine serving the control surface over
// sched, with handlers resolving HandlerName via registry.
func NewServer(log *zap.Logger, sched *schedule.Schedule, registry *HandlerRegistry) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	handler := NewJobsHandler(log, sched, registry)
	v1 := router.Group("/api/v1")
	SetupJobsRoutes(v1, handler)

	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return &http.Server{
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("handled request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
