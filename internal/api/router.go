package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/user-admin-api/internal/config"
	"github.com/user-admin-api/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) (*gin.Engine, error) {
	// Set Gin mode, tests pick their own
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	refreshLimit, err := refreshLimiter(cfg.Recommendation.RefreshRate)
	if err != nil {
		return nil, err
	}

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))

	// Handlers
	userHandler := NewUserHandler(services, log)
	importHandler := NewImportHandler(services, cfg, log)
	exportHandler := NewExportHandler(services, log)
	recommendationHandler := NewRecommendationHandler(services, log)
	gridHandler := NewGridHandler(services, log)

	// Health check
	router.GET("/health", healthCheck(services))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/v1")
	{
		users := v1.Group("/users")
		{
			users.GET("", userHandler.List)
			users.POST("", userHandler.Create)
			users.GET("/departments", userHandler.Departments)
			users.GET("/export", exportHandler.StreamExport)
			users.POST("/delete", userHandler.Delete)
			users.POST("/bulk", userHandler.BulkEdit)
			users.GET("/:id", userHandler.Get)
			users.PATCH("/:id", userHandler.Patch)
		}

		imports := v1.Group("/imports")
		{
			imports.GET("", importHandler.ListImports)
			imports.POST("", importHandler.CreateImport)
			imports.GET("/:import_id", importHandler.GetImportStatus)
			imports.GET("/:import_id/errors", importHandler.GetImportErrors)
		}

		recommendations := v1.Group("/recommendations")
		{
			recommendations.GET("", recommendationHandler.GetState)
			recommendations.POST("/refresh", refreshLimit, recommendationHandler.Refresh)
		}

		sessions := v1.Group("/grid/sessions")
		{
			sessions.POST("", gridHandler.Open)
			sessions.GET("/:sid", gridHandler.State)
			sessions.DELETE("/:sid", gridHandler.Close)
			sessions.PUT("/:sid/filter", gridHandler.SetFilter)
			sessions.POST("/:sid/selection", gridHandler.Select)
			sessions.POST("/:sid/selection/all", gridHandler.SelectAll)
			sessions.POST("/:sid/cell", gridHandler.ClickCell)
			sessions.PUT("/:sid/cell", gridHandler.Stage)
			sessions.POST("/:sid/cell/key", gridHandler.Key)
			sessions.POST("/:sid/cell/blur", gridHandler.Blur)
			sessions.POST("/:sid/focus", gridHandler.Focus)
			sessions.POST("/:sid/delete", gridHandler.DeleteSelected)
			sessions.POST("/:sid/bulk-edit", gridHandler.BulkEdit)
			sessions.GET("/:sid/bulk-edit/domain", gridHandler.BulkDomain)
		}
	}

	return router, nil
}

// refreshLimiter throttles recommendation refreshes per client IP.
// An empty rate disables throttling.
func refreshLimiter(rate string) (gin.HandlerFunc, error) {
	if rate == "" {
		return func(c *gin.Context) { c.Next() }, nil
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid recommendation refresh rate %q: %w", rate, err)
	}
	store := memory.NewStore()
	return mgin.NewMiddleware(limiter.New(store, parsed)), nil
}

// healthCheck returns the health status
func healthCheck(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		usersCount, _ := services.Export.Count(c.Request.Context())

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "user-admin-api",
			"users":     usersCount,
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}
