package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// ReadinessChecker reports whether the gateway session is usable.
type ReadinessChecker interface {
	Ready() bool
}

// HealthHandler responds to liveness and readiness checks.
type HealthHandler struct {
	serviceName string
	version     string
	gateway     ReadinessChecker
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, gateway ReadinessChecker) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, gateway: gateway}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports whether the Discord gateway is connected.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.gateway != nil && h.gateway.Ready() {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": fiber.Map{"discord": "ok"},
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "discord gateway not connected",
			"details": fiber.Map{"discord": "disconnected"},
		},
	})
}
