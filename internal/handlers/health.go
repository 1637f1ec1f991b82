package handlers

import (
	"context"
	"net/http"
	"time"

	"jewgo-discovery/internal/hub"
	"jewgo-discovery/pkg/cache"
	"jewgo-discovery/pkg/database"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	db    *database.DB
	cache *cache.Cache
	hub   *hub.Hub
}

func NewHealthHandler(db *database.DB, c *cache.Cache, h *hub.Hub) *HealthHandler {
	return &HealthHandler{db: db, cache: c, hub: h}
}

// Health reports dependency status. A degraded cache does not fail the check;
// search keeps serving without it.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	overall := "ok"
	status := http.StatusOK

	mongoStatus := "ok"
	if err := h.db.Ping(ctx); err != nil {
		mongoStatus = "down"
		overall = "down"
		status = http.StatusServiceUnavailable
	}

	redisStatus := "ok"
	if err := h.cache.Ping(ctx); err != nil {
		redisStatus = "degraded"
	}

	c.JSON(status, gin.H{
		"status": overall,
		"mongo":  mongoStatus,
		"redis":  redisStatus,
		"rooms":  len(h.hub.ActiveRooms()),
	})
}
