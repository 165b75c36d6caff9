// Package httpserver serves the chat API over gin for local development,
// alongside Prometheus metrics and a health check.
package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"scholarship-agent/handler"
	"scholarship-agent/internal/logger"
	"scholarship-agent/internal/usecase"
)

// Chat is the chat service plus the status the health check reports.
type Chat interface {
	handler.ChatAPI
	Mode() usecase.Mode
	CatalogVersion() string
}

type RouterConfig struct {
	Chat    Chat
	Metrics http.Handler
	Logger  logger.Logger
}

func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Chat == nil {
		return nil, errors.New("httpserver: chat service must not be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	h := &chatHandler{chat: cfg.Chat}

	router := gin.New()
	router.Use(gin.Recovery(), correlation(), requestLog(cfg.Logger))

	router.GET("/healthz", h.health)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	sessions := router.Group("/sessions")
	{
		sessions.POST("", h.startSession)
		sessions.GET("/:id", h.getSession)
		sessions.DELETE("/:id", h.endSession)
		sessions.POST("/:id/messages", h.sendMessage)
		sessions.POST("/:id/voice", h.voice)
		sessions.POST("/:id/banner/dismiss", h.dismissBanner)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handler.ErrorResponse{Error: handler.ErrorRouteNotFound})
	})
	return router, nil
}

const correlationKey = "correlation_id"

func correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(handler.CorrelationHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationKey, id)
		c.Header(handler.CorrelationHeader, id)
		c.Next()
	}
}

func requestLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := map[string]interface{}{
			"correlation_id": c.GetString(correlationKey),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"status":         c.Writer.Status(),
			"duration_ms":    time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields["error"] = c.Errors.String()
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request", fields)
			return
		}
		log.Debug("request", fields)
	}
}
