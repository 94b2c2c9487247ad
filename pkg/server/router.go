package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coolbeans/qcmbank/internal/logger"
)

type RouterConfig struct {
	ParseHandler   *ParseHandler
	SubjectHandler *SubjectHandler
	Log            *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Log != nil {
		r.Use(RequestLogger(cfg.Log))
	}

	// Health
	r.GET("/healthcheck", HealthCheck)

	api := r.Group("/api")
	{
		if cfg.ParseHandler != nil {
			api.POST("/parse", cfg.ParseHandler.Parse)
		}

		if cfg.SubjectHandler != nil {
			api.GET("/subjects", cfg.SubjectHandler.List)
			api.GET("/subjects/:title", cfg.SubjectHandler.Get)
			api.POST("/subjects/import", cfg.SubjectHandler.Import)
		}
	}

	return r
}

// RequestLogger logs one line per request.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start).String())
	}
}
