// Package server exposes the webhook and read API over HTTP: one inbound
// event endpoint and the PR/statistics/filter read endpoints backed by the
// state store.
package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/alan/pr-tracker/internal/events"
	"github.com/alan/pr-tracker/internal/stats"
	"github.com/alan/pr-tracker/internal/store"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/alan/pr-tracker/internal/model"
)

// Server wires the fiber app to the store and dispatcher.
type Server struct {
	app        *fiber.App
	store      *store.Store
	dispatcher *events.Dispatcher
	startedAt  time.Time
}

// New builds the HTTP server with its routes and middleware.
func New(s *store.Store, d *events.Dispatcher) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "pr-tracker",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	srv := &Server{
		app:        app,
		store:      s,
		dispatcher: d,
		startedAt:  time.Now(),
	}

	app.Get("/health", srv.handleHealth)
	app.Post("/webhook", srv.handleWebhook)
	app.Get("/api/prs", srv.handleListPRs)
	app.Get("/api/statistics", srv.handleStatistics)
	app.Get("/api/filters", srv.handleFilters)

	return srv
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen(addr string) error {
	slog.Info("HTTP server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Seconds(),
	})
}

// handleWebhook applies one inbound lifecycle event. Malformed events are
// the sender's fault (400); everything else that fails is ours (500).
func (s *Server) handleWebhook(c fiber.Ctx) error {
	rec, err := s.dispatcher.Dispatch(c.Body())
	if err != nil {
		var dispatchErr *model.DispatchError
		if errors.As(err, &dispatchErr) {
			slog.Warn("Rejected webhook event", "reason", dispatchErr.Reason)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   dispatchErr.Reason,
			})
		}
		slog.Error("Failed to process webhook event", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Webhook processed successfully",
		"key":       rec.Key().String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListPRs(c fiber.Ctx) error {
	filtered := s.store.List(store.Filter{
		Status:     c.Query("status"),
		Author:     c.Query("author"),
		Repository: c.Query("repo"),
		Search:     c.Query("search"),
	})

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"pullRequests": filtered,
			"statistics":   stats.Aggregate(s.store.Snapshot()),
			"lastUpdated":  s.store.LastUpdated(),
		},
	})
}

func (s *Server) handleStatistics(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats.Aggregate(s.store.Snapshot()),
	})
}

func (s *Server) handleFilters(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    s.store.FilterValues(),
	})
}
