package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/echocare/caregiver-api/internal/handler/prometheus"
	"github.com/echocare/caregiver-api/internal/middleware"
	"github.com/echocare/caregiver-api/internal/model"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// ProtectedHandler also has endpoints that need a session.
type ProtectedHandler interface {
	Handler
	RegisterProtectedRoutes(*gin.RouterGroup)
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	config  RouterConfig
	metrics *prometheus.Handler

	health    Handler
	authH     ProtectedHandler
	protected []Handler
}

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	CORSConfig     middleware.CORSConfig
	SizeLimit      middleware.SizeLimitConfig
	Security       middleware.SecurityConfig
	// StaticDir and StaticPath serve stored files, e.g. avatars. Empty
	// StaticDir disables the route.
	StaticDir  string
	StaticPath string
	Debug      bool
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	metrics *prometheus.Handler,
	health Handler,
	authH ProtectedHandler,
	config RouterConfig,
	protected ...Handler,
) *Router {
	if config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		model.RegisterValidations(v)
	}

	engine := gin.New()

	r := &Router{
		engine:    engine,
		auth:      auth,
		config:    config,
		metrics:   metrics,
		health:    health,
		authH:     authH,
		protected: protected,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		metrics.Middleware(),
		middleware.ErrorHandler(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.CORS(config.CORSConfig),
		middleware.SecurityHeaders(config.Security),
		middleware.SizeLimit(config.SizeLimit),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  config.RateLimit,
		Burst: config.RateBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	if r.config.StaticDir != "" && r.config.StaticPath != "" {
		r.engine.Static(r.config.StaticPath, r.config.StaticDir)
	}

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.health.RegisterRoutes(api)
	r.authH.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.authH.RegisterProtectedRoutes(protected)
	for _, h := range r.protected {
		h.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
