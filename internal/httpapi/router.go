// Package httpapi exposes the bot, live transcript and meeting webhook
// endpoints over gin.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	PathHealth  = "/healthz"
	PathMetrics = "/metrics"
)

func NewRouter(health *HealthHandler, bot *BotHandler, live *LiveHandler, wh *WebhookHandler) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET(PathHealth, health.Health)
	r.GET(PathMetrics, gin.WrapH(promhttp.Handler()))

	bots := r.Group("/api/bot")
	{
		bots.POST("/dispatch", bot.Dispatch)
		bots.GET("/sessions", bot.Sessions)
		bots.GET("/health", bot.Health)
		bots.GET("/:id/status", bot.Status)
		bots.POST("/:id/terminate", bot.Terminate)
		bots.POST("/meetings/:meeting_id/terminate", bot.TerminateMeeting)
	}

	lives := r.Group("/api/live")
	{
		lives.GET("/sessions", live.Sessions)
		lives.GET("/segments/:id", live.Segments)
		lives.DELETE("/segments/:id", live.Clear)
		lives.POST("/segments/:id/push", live.Push)
		lives.POST("/segments/:id/init", live.Init)
		lives.GET("/speakers/:id", live.Speakers)
		lives.PUT("/speakers/:id", live.SetSpeakers)
	}

	r.POST("/api/zoom/webhook", wh.Receive)
	r.POST("/api/rtms/webhook", wh.Receive)
	r.GET("/api/rtms/sessions", wh.StreamSessions)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == PathHealth || path == PathMetrics {
			return
		}
		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
