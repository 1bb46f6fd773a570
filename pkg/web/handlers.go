package web

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-focus/pkg/registry"
	"github.com/teslashibe/go-focus/pkg/report"
	"github.com/teslashibe/go-focus/pkg/store"
	"github.com/teslashibe/go-focus/pkg/tracking"
	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errBadRequest}, args...)...)
}

// handleHealth is a liveness probe
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStatus lists the active sessions
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"sessions":  s.registry.Active(),
		"listeners": s.hub.ClientCount(),
	})
}

// handlePresets lists the tracking presets
func (s *Server) handlePresets(c *fiber.Ctx) error {
	return c.JSON(tracking.PresetNames())
}

// handleStart starts a session
func (s *Server) handleStart(c *fiber.Ctx) error {
	var req registry.StartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid body: %v", err)
	}

	e, err := s.registry.Start(req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":     e.ID,
		"user":   e.User,
		"mode":   e.Mode,
		"status": "started",
	})
}

// handleStop stops a session and returns its result
func (s *Server) handleStop(c *fiber.Ctx) error {
	sum, err := s.registry.Stop(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status": "stopped",
		"result": sum,
	})
}

// handleGetSession returns live or final totals
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	sum, err := s.registry.Summary(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

// handleObservation classifies one landmark frame
func (s *Server) handleObservation(c *fiber.Ctx) error {
	cam, err := s.cameraTracker(c.Params("id"))
	if err != nil {
		return err
	}
	var f detection.Frame
	if err := c.BodyParser(&f); err != nil {
		return badRequest("invalid frame: %v", err)
	}
	obs, err := s.observation(f)
	if err != nil {
		return err
	}
	return c.JSON(cam.ProcessObservation(obs))
}

// ActivityRequest reports input activity. A zero At means now.
type ActivityRequest struct {
	At time.Time `json:"t"`
}

// handleActivity records keyboard or mouse activity
func (s *Server) handleActivity(c *fiber.Ctx) error {
	e, ok := s.registry.Get(c.Params("id"))
	if !ok {
		return registry.ErrNotFound
	}
	act, err := e.Activity()
	if err != nil {
		return err
	}

	var req ActivityRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest("invalid body: %v", err)
		}
	}
	if req.At.IsZero() {
		req.At = s.clock.Now()
	}
	return c.JSON(act.RecordActivity(req.At))
}

// handleGetTuning returns the session's thresholds
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	e, ok := s.registry.Get(c.Params("id"))
	if !ok {
		return registry.ErrNotFound
	}
	return c.JSON(e.Tracker.Tuning())
}

// handleSetTuning adjusts thresholds of a running session
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	e, ok := s.registry.Get(c.Params("id"))
	if !ok {
		return registry.ErrNotFound
	}
	var p tracking.TuningParams
	if err := c.BodyParser(&p); err != nil {
		return badRequest("invalid tuning: %v", err)
	}
	cfg, err := e.Tracker.SetTuning(p)
	if err != nil {
		return err
	}
	s.log.Info("tuning updated", "session", e.ID, "ear_open", cfg.EAROpen, "head_turn", cfg.HeadTurn)
	return c.JSON(tracking.TuningFromConfig(cfg))
}

// handleTimeline returns a user's status changes
func (s *Server) handleTimeline(c *fiber.Ctx) error {
	user := normUser(c.Query("user"))
	if user == "" {
		return c.JSON([]any{})
	}
	recs, err := s.history.ListTimeline(c.UserContext(), store.Query{User: user, Limit: c.QueryInt("limit")})
	if err != nil {
		return err
	}
	return c.JSON(recs)
}

// handleHistory returns finished sessions, newest first
func (s *Server) handleHistory(c *fiber.Ctx) error {
	sums, err := s.history.ListSessions(c.UserContext(), store.Query{
		User:  normUser(c.Query("user")),
		Limit: c.QueryInt("limit"),
	})
	if err != nil {
		return err
	}
	return c.JSON(sums)
}

// handleGraph returns the focus graph of a user, defaulting to the most
// recent user
func (s *Server) handleGraph(c *fiber.Ctx) error {
	user, err := s.userOrLast(c)
	if err != nil {
		return err
	}
	recs, err := s.history.ListTimeline(c.UserContext(), store.Query{User: user})
	if err != nil {
		return err
	}
	g, ok := report.BuildGraph(user, recs)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no timeline for "+user)
	}
	return c.JSON(g)
}

// handleReport returns the weekly or monthly report of a user
func (s *Server) handleReport(c *fiber.Ctx) error {
	period, err := report.ParsePeriod(c.Params("period"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	user, err := s.userOrLast(c)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	sums, err := s.history.ListSessions(c.UserContext(), store.Query{User: user, Since: period.Since(now)})
	if err != nil {
		return err
	}
	r, err := report.Build(user, period, sums, now)
	if err != nil {
		return err
	}
	return c.JSON(r)
}

func (s *Server) userOrLast(c *fiber.Ctx) (string, error) {
	if user := normUser(c.Query("user")); user != "" {
		return user, nil
	}
	return s.history.LastUser(c.UserContext())
}

func (s *Server) cameraTracker(id string) (*tracking.CameraTracker, error) {
	e, ok := s.registry.Get(id)
	if !ok {
		return nil, registry.ErrNotFound
	}
	return e.Camera()
}

// observation converts a posted frame. Frames without a timestamp are
// stamped on arrival.
func (s *Server) observation(f detection.Frame) (tracking.Observation, error) {
	if f.At.IsZero() {
		f.At = s.clock.Now()
	}
	lm, err := f.Face()
	if err != nil {
		return tracking.Observation{}, badRequest("%v", err)
	}
	return tracking.ObservationFromLandmarks(f.At, lm), nil
}

func normUser(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
