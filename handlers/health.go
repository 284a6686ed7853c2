package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/utils/response"
)

// Pinger is an optional dependency checked by the health endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleCheckHealth reports database (and cache, when configured) reachability
func HandleCheckHealth(store database.Storage, cache Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{"database": "ok"}
		healthy := true
		if err := store.HealthCheck(); err != nil {
			checks["database"] = err.Error()
			healthy = false
		}
		if cache != nil {
			checks["cache"] = "ok"
			if err := cache.Ping(ctx); err != nil {
				checks["cache"] = err.Error()
				healthy = false
			}
		}

		if !healthy {
			return response.ErrorWithDetails(c, fiber.StatusServiceUnavailable, "Service degraded", "SERVICE_UNAVAILABLE", checks)
		}
		return response.Success(c, fiber.Map{"status": "ok", "checks": checks})
	}
}
