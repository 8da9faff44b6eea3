package handlers

import (
	"time"

	"threadmem/internal/kvstore"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store kvstore.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store kvstore.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Handle responds with server health status, including backing store
// reachability.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	storeStatus := "healthy"
	if err := h.store.Ping(c.Context()); err != nil {
		storeStatus = "unreachable"
	}

	status := "healthy"
	statusCode := fiber.StatusOK
	if storeStatus != "healthy" {
		status = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"store":     storeStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
