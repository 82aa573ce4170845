package handlers

import (
	"purse/internal/repositories"

	"github.com/gofiber/fiber/v2"
)

// Health reports service liveness plus database and cache reachability.
func Health(c *fiber.Ctx) error {
	dbStatus := "ok"
	if sqlDB, err := repositories.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "unreachable"
	}

	cacheStatus := "ok"
	if repositories.CacheService == nil || repositories.CacheService.HealthCheck(c.Context()) != nil {
		cacheStatus = "unreachable"
	}

	status := fiber.StatusOK
	if dbStatus != "ok" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":   "up",
		"database": dbStatus,
		"cache":    cacheStatus,
	})
}
