package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-export/internal/exports"
	"resume-export/internal/quota"
	"resume-export/internal/services/health"
	"resume-export/internal/shared/config"
	"resume-export/internal/shared/metrics"
	"resume-export/internal/shared/server/middleware"
	"resume-export/internal/shared/server/respond"
)

// RouterDeps are the handlers and collaborators the router mounts.
type RouterDeps struct {
	Config   config.Config
	Exports  *exports.Handler
	Verifier middleware.TokenVerifier
	Limiter  *quota.RateLimiter
	Health   *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}
	r.GET("/api/v1/health", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(deps.Verifier, config.IsDevLike(deps.Config.Env)),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: deps.Limiter,
			Max:     deps.Config.RateLimitGlobal,
			Window:  deps.Config.RateLimitWindow,
		}),
	)
	if deps.Exports != nil {
		deps.Exports.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
