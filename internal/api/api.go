// Package api exposes the producer surface of the queue over HTTP:
// enqueue, status, result, and queue management, plus health and
// metrics endpoints. Workers do not go through this API; they talk to
// the store directly.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"rjq/internal/config"
	"rjq/internal/metrics"
	"rjq/internal/queue"
	"rjq/internal/store"
)

type Server struct {
	app    *fiber.App
	config *config.Config
	store  store.Store
	logger *slog.Logger
}

func NewServer(cfg *config.Config, st store.Store, logger *slog.Logger) *Server {
	app := fiber.New()

	client := queue.New(st, queueName(cfg))

	// Inject config and queue client into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("queue", client)
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Health endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: check store connectivity.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		storeStatus := "ok"
		status := "ok"
		if err := st.Ping(ctx); err != nil {
			storeStatus = "error"
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status": status,
			"store":  storeStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	app.Post("/v1/jobs", enqueueHandler)
	app.Get("/v1/jobs/:id", statusHandler)
	app.Get("/v1/jobs/:id/result", resultHandler)
	app.Get("/v1/queue", queueInfoHandler)
	app.Delete("/v1/queue", queueDropHandler)

	return &Server{app: app, config: cfg, store: st, logger: logger}
}

// Listen blocks serving HTTP on the configured host and port.
func (s *Server) Listen() error {
	host := s.config.Server.Host
	port := s.config.Server.Port
	if port == 0 {
		port = 8080
	}
	return s.app.Listen(fmt.Sprintf("%s:%d", host, port))
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }

func queueName(cfg *config.Config) string {
	if cfg.Queue.Name != "" {
		return cfg.Queue.Name
	}
	return "rjq"
}
