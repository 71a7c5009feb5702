// Package main is the entry point for the fossa server. It initializes the
// databases, wires the service graph, starts the background loops and runs
// the HTTP server until a shutdown signal arrives.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fossa/internal/config"
	"fossa/internal/repositories"
	"fossa/internal/repositories/cache"
	"fossa/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()

	if config.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	if err := repositories.InitDB(); err != nil {
		logrus.WithError(err).Fatal("database init failed")
	}
	defer func() {
		if sqlDB, err := repositories.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	rdb := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logrus.WithError(err).Fatal("redis init failed")
	}

	app := fiber.New(fiber.Config{
		AppName: "fossa",
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, X-Api-Key",
		AllowMethods: "GET,POST,PUT,DELETE",
	}))

	// Devices retry hard when offline; keep one misbehaving unit from
	// starving the rest.
	app.Use("/api/v1/lnurl", limiter.New(limiter.Config{
		Max:        60,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status": "ERROR",
				"reason": "too many requests",
			})
		},
	}))

	services := routes.SetupRoutes(app, rdb)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Confirmation feed consumer
	go func() {
		if err := services.Reconciler.Run(ctx); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Error("reconciler stopped")
		}
	}()

	// Stale in-flight sweeper
	go func() {
		interval := config.GetDurationEnv("STALE_SWEEP_INTERVAL", time.Minute)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := services.Ledger.ResetStale(ctx); err != nil {
					logrus.WithError(err).Warn("stale sweep failed")
				}
			}
		}
	}()

	go func() {
		<-ctx.Done()
		logrus.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Error("shutdown failed")
		}
	}()

	addr := ":" + config.GetEnv("PORT", "3000")
	logrus.WithField("addr", addr).Info("server starting")
	if err := app.Listen(addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
