package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/clients/redis"
)

// HealthHandler reports liveness plus the state of the two backing
// stores. A broken cache degrades the status; a broken database fails
// it.
type HealthHandler struct {
	db    *gorm.DB
	cache *redis.Client
}

func NewHealthHandler(db *gorm.DB, cache *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok"}

	if h.db != nil {
		if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unavailable"
			body["database"] = "down"
		} else {
			body["database"] = "up"
		}
	}

	if h.cache == nil {
		body["cache"] = "disabled"
	} else if rdb := h.cache.Raw(); rdb != nil && rdb.Ping(ctx).Err() == nil {
		body["cache"] = "up"
	} else {
		// Terminology lookups fall back to the database.
		body["cache"] = "down"
		if body["status"] == "ok" {
			body["status"] = "degraded"
		}
	}

	c.JSON(status, body)
}
