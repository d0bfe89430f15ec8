package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RouterConfig collects the collaborators served by the HTTP host.
// Everything but Invoker is optional.
type RouterConfig struct {
	Invoker         Invoker
	History         HistoryReader
	Health          HealthChecker
	Auth            *JwtAuth
	Metrics         http.Handler
	ValidatePayload bool
}

// NewRouter builds the gin engine for the gateway host
func NewRouter(rc RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), SecurityHeaders(), requestLogger())

	// Public routes (no auth)
	router.GET("/healthz", healthHandler(rc.Health))
	if rc.Metrics != nil {
		router.GET("/metrics", gin.WrapH(rc.Metrics))
	}
	if rc.Auth != nil {
		router.POST("/login", rc.Auth.LoginHandler)
	}

	apiGroup := router.Group("/api/v1")
	if rc.Auth != nil {
		apiGroup.Use(rc.Auth.JWTMiddleware())
	}
	{
		apiGroup.POST("/invoke", invokeHandler(rc.Invoker, rc.ValidatePayload))

		if rc.History != nil {
			apiGroup.GET("/invocations", listInvocationsHandler(rc.History))
			apiGroup.GET("/invocations/:request_id", getInvocationHandler(rc.History))
		}
	}

	return router
}

// requestLogger logs one line per request through slog
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("HTTP request",
			"component", "API",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.Writer.Header().Get(headerRequestID),
		)
	}
}
