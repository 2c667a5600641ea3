package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/encounter-api/internal/handler/health"
	"github.com/jwalitptl/encounter-api/internal/handler/prometheus"
	"github.com/jwalitptl/encounter-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// RateLimit is nil when rate limiting is disabled.
	RateLimit *middleware.RateLimitConfig
	Security  middleware.SecurityConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	health   *health.Handler
	metrics  *prometheus.Handler
	handlers []Handler
	config   Config
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH *health.Handler,
	metricsH *prometheus.Handler,
	handlers []Handler,
	config Config,
) *Router {
	middleware.InstallValidator()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	r := &Router{
		engine:   engine,
		auth:     auth,
		health:   healthH,
		metrics:  metricsH,
		handlers: handlers,
		config:   config,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
	)
	if metricsH != nil {
		engine.Use(metricsH.Middleware())
	}
	engine.Use(middleware.SecurityHeaders(config.Security))

	return r
}

// Setup registers every route. Health and metrics stay outside auth and
// rate limiting.
func (r *Router) Setup() {
	r.health.RegisterRoutes(r.engine)
	if r.metrics != nil {
		r.engine.GET("/metrics", r.metrics.Handler())
	}

	maxBody := r.config.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxBodySize
	}

	api := r.engine.Group("/api/v1")
	api.Use(
		middleware.Timeout(r.config.RequestTimeout),
		middleware.SizeLimit(maxBody),
		r.auth.Authenticate(),
	)
	if r.config.RateLimit != nil {
		api.Use(middleware.NewRateLimiter(*r.config.RateLimit).RateLimit())
	}

	for _, h := range r.handlers {
		h.RegisterRoutes(api)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
