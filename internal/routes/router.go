package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"waste-fleet-monitor/internal/config"
	"waste-fleet-monitor/internal/delivery/http/handler"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/internal/metrics"
	"waste-fleet-monitor/internal/middleware"
	"waste-fleet-monitor/internal/realtime"
	"waste-fleet-monitor/internal/trashbin"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Health() error
}

// Dependencies are the handlers and shared components mounted on the router.
type Dependencies struct {
	DB        HealthChecker
	Limiter   *middleware.RateLimiter
	Realtime  *realtime.Endpoint
	Auth      *handler.AuthHandler
	Trashbins *trashbin.Handler
	Routes    *handler.RouteHandler
	Sensors   *handler.SensorHandler
}

func SetupRoutes(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Order: recovery, request ID, logging, security headers, CORS, size limit, rate limit
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(10 << 20))
	if deps.Limiter != nil {
		router.Use(deps.Limiter.Middleware())
	}

	router.GET("/health", func(c *gin.Context) {
		if err := deps.DB.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"message": "Database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	if deps.Realtime != nil {
		deps.Realtime.RegisterRoutes(router)
	}

	auth := middleware.AuthMiddleware(cfg.JWT.Secret)

	v1 := router.Group("/api/v1")
	{
		deps.Auth.RegisterRoutes(v1, auth)
		deps.Trashbins.RegisterRoutes(v1, auth)

		operator := v1.Group("")
		operator.Use(auth, middleware.OperatorOnly())
		{
			deps.Routes.RegisterRoutes(operator)
			deps.Sensors.RegisterRoutes(operator)
		}

		admin := v1.Group("")
		admin.Use(auth, middleware.AdminOnly())
		{
			deps.Sensors.RegisterAdminRoutes(admin)
		}
	}

	logger.Info("All routes initialized")
	return router
}
