package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/baraholka/marketbot/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready pings each backing store and reports 503 when any of them is
// down, so an orchestrator keeps traffic away until they recover.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	defer cancel()

	deps := fiber.Map{
		"postgres": pingResult(h.postgres.Ping(ctx)),
		"redis":    pingResult(h.redis.Ping(ctx)),
	}
	for _, status := range deps {
		if status != "ok" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "DEPENDENCY_UNAVAILABLE",
					"message": "one or more dependencies unavailable",
					"details": deps,
				},
			})
		}
	}
	return c.JSON(fiber.Map{
		"status":       "ready",
		"dependencies": deps,
	})
}

func pingResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
