// Package web serves the focus tracker's HTTP API and websocket streams.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-focus/internal/clock"
	"github.com/teslashibe/go-focus/pkg/camera"
	"github.com/teslashibe/go-focus/pkg/hub"
	"github.com/teslashibe/go-focus/pkg/registry"
	"github.com/teslashibe/go-focus/pkg/session"
	"github.com/teslashibe/go-focus/pkg/store"
	"github.com/teslashibe/go-focus/pkg/tracking"
)

// History is the read side of the store the API needs.
type History interface {
	ListTimeline(ctx context.Context, q store.Query) ([]session.TimelineRecord, error)
	ListSessions(ctx context.Context, q store.Query) ([]session.Summary, error)
	LastUser(ctx context.Context) (string, error)
}

// Config holds server settings.
type Config struct {
	Addr         string
	StaticDir    string // optional dashboard files served at /
	AllowOrigins string
}

// DefaultConfig listens on localhost only.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:5000",
		AllowOrigins: "*",
	}
}

// Server is the focus API server
type Server struct {
	app      *fiber.App
	cfg      Config
	registry *registry.Registry
	history  History
	hub      *hub.Hub
	camera   *camera.Manager
	clock    clock.Clock
	log      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for reports and unstamped observations.
func WithClock(c clock.Clock) Option {
	return func(s *Server) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCamera exposes the local webcam settings under /api/camera.
func WithCamera(m *camera.Manager) Option {
	return func(s *Server) { s.camera = m }
}

// HubObserver forwards tracker updates to websocket clients subscribed to
// the update's session. Pass it to registry.WithObserver.
func HubObserver(h *hub.Hub) func(tracking.Update) {
	return func(u tracking.Update) {
		if err := h.BroadcastJSON(u.SessionID, "update", u); err != nil {
			slog.Default().Debug("update broadcast failed", "error", err)
		}
	}
}

// NewServer creates the server and its routes. h must be run by the caller
// or by Run.
func NewServer(cfg Config, reg *registry.Registry, history History, h *hub.Hub, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		registry: reg,
		history:  history,
		hub:      h,
		clock:    clock.System{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "web")

	app := fiber.New(fiber.Config{
		AppName:               "go-focus",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.AllowOrigins}))

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/presets", s.handlePresets)

	api.Post("/sessions", s.handleStart)
	api.Get("/sessions/:id", s.handleGetSession)
	api.Post("/sessions/:id/stop", s.handleStop)
	api.Post("/sessions/:id/observations", s.handleObservation)
	api.Post("/sessions/:id/activity", s.handleActivity)
	api.Get("/sessions/:id/tuning", s.handleGetTuning)
	api.Put("/sessions/:id/tuning", s.handleSetTuning)

	api.Get("/timeline", s.handleTimeline)
	api.Get("/history", s.handleHistory)
	api.Get("/graph", s.handleGraph)
	api.Get("/reports/:period", s.handleReport)

	if s.camera != nil {
		api.Get("/camera", s.handleGetCamera)
		api.Put("/camera", s.handleSetCamera)
		api.Get("/camera/presets", s.handleCameraPresets)
		api.Post("/camera/presets/:name", s.handleApplyCameraPreset)
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/sessions/:id/observations", websocket.New(s.handleObservationWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Run serves until ctx is cancelled, then shuts down gracefully. It also
// runs the hub.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("web server listening", "addr", s.cfg.Addr)
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("web server stopped")
	return nil
}

// handleError maps package errors to HTTP statuses.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, store.ErrNoSessions):
		code = fiber.StatusNotFound
	case errors.Is(err, registry.ErrUserActive):
		code = fiber.StatusConflict
	case errors.Is(err, registry.ErrWrongMode):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrClosed):
		code = fiber.StatusServiceUnavailable
	case errors.Is(err, session.ErrInvalidUser),
		errors.Is(err, session.ErrInvalidMode),
		errors.Is(err, session.ErrInvalidGoal),
		errors.Is(err, tracking.ErrInvalidConfig),
		errors.Is(err, errBadRequest):
		code = fiber.StatusBadRequest
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  "error",
		"message": err.Error(),
	})
}
