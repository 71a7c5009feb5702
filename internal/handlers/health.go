package handlers

import (
	"fossa/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func NewHealthHandler(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbStatus := "connected"
		if sqlDB, err := repositories.DB.DB(); err != nil || sqlDB.PingContext(c.Context()) != nil {
			dbStatus = "unavailable"
		}

		redisStatus := "connected"
		if err := rdb.Ping(c.Context()).Err(); err != nil {
			redisStatus = "unavailable"
		}

		status := fiber.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	}
}
