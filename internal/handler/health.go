package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"pixelpaws-server/internal/store"
)

const healthPingTimeout = 2 * time.Second

type HealthHandler struct {
	Store   *store.Store
	Service string
	Logger  *slog.Logger
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.Logger.WarnContext(ctx, "health check: database ping failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "service": h.Service})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": h.Service})
}
