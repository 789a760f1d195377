package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
			"X-Timezone",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			HeaderXRequestID,
		},
		MaxAge: 24 * time.Hour,
	}
}

// CORS builds the gin-contrib handler. A wildcard origin with credentials
// is served by echoing the request origin.
func CORS(config CORSConfig) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     config.AllowMethods,
		AllowHeaders:     config.AllowHeaders,
		ExposeHeaders:    config.ExposeHeaders,
		AllowCredentials: config.AllowCredentials,
		MaxAge:           config.MaxAge,
	}
	wildcard := len(config.AllowOrigins) == 0
	for _, o := range config.AllowOrigins {
		if o == "*" {
			wildcard = true
		}
	}
	switch {
	case wildcard && config.AllowCredentials:
		cfg.AllowOriginFunc = func(string) bool { return true }
	case wildcard:
		cfg.AllowAllOrigins = true
	default:
		cfg.AllowOrigins = config.AllowOrigins
	}
	return cors.New(cfg)
}
