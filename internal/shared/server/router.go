package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chess-coach-backend/internal/shared/config"
	"chess-coach-backend/internal/shared/metrics"
	"chess-coach-backend/internal/shared/server/middleware"
	"chess-coach-backend/internal/shared/server/respond"
)

// RouteRegistrar attaches a feature's routes to the API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Pinger reports backing store health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps are the handlers and checks the router mounts.
type RouterDeps struct {
	Config   config.Config
	Handlers []RouteRegistrar
	// DB is optional; when set /health pings it.
	DB Pinger
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.DB))

	authed := api.Group("")
	authed.Use(
		middleware.Identity(),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: middleware.RouteGroups(map[string]string{
				"POST /api/v1/analyses":    middleware.SubmitRateLimitGroup,
				"GET /api/v1/analyses/:id": middleware.PollingRateLimitGroup,
			}),
			Rules: map[string]middleware.RateLimitRule{
				middleware.SubmitRateLimitGroup:  middleware.PerMinute(deps.Config.SubmitRateLimit),
				middleware.PollingRateLimitGroup: {Rate: 5, Burst: 10},
			},
		}),
	)
	registerMeRoutes(authed)
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(authed)
		}
	}

	return r
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "unhealthy", "database unreachable", nil)
				return
			}
		}
		respond.OK(c, gin.H{"ok": true})
	}
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
