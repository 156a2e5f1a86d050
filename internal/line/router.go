package line

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgard/kawanbot/internal/database"
	"github.com/edgard/kawanbot/internal/logger"
)

// NewRouter builds the HTTP routes: the webhook endpoint and a health
// check backed by a database ping.
func NewRouter(log *slog.Logger, handler *Handler, store database.Store) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), logger.Middleware(log))

	router.POST("/webhook", handler.Handle)

	router.GET("/healthz", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return router
}
