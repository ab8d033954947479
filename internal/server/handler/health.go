package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks the backing store connection (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves the liveness probe.
type HealthHandler struct {
	pinger Pinger
}

// NewHealthHandler returns a HealthHandler. pinger may be nil, in which case
// the DB check is skipped.
func NewHealthHandler(pinger Pinger) *HealthHandler {
	return &HealthHandler{pinger: pinger}
}

// Check reports liveness and, when a pinger is configured, store reachability.
func (h *HealthHandler) Check(c *gin.Context) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"message": "Database unavailable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Lapra-Tech API is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
