package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-focus/pkg/camera"
)

// handleGetCamera returns the current webcam settings
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	return c.JSON(s.camera.Config())
}

// handleSetCamera applies a partial settings change
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	var u camera.Update
	if err := c.BodyParser(&u); err != nil {
		return badRequest("invalid body: %v", err)
	}
	cfg, err := s.camera.Update(u)
	if err != nil {
		return cameraError(err)
	}
	return c.JSON(cfg)
}

// handleCameraPresets lists the webcam presets
func (s *Server) handleCameraPresets(c *fiber.Ctx) error {
	return c.JSON(camera.PresetNames())
}

// handleApplyCameraPreset switches to a named preset
func (s *Server) handleApplyCameraPreset(c *fiber.Ctx) error {
	cfg, err := s.camera.ApplyPreset(c.Params("name"))
	if errors.Is(err, camera.ErrUnknownPreset) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return cameraError(err)
	}
	return c.JSON(cfg)
}

func cameraError(err error) error {
	if errors.Is(err, camera.ErrInvalidConfig) || errors.Is(err, camera.ErrUnknownPreset) {
		return badRequest("%v", err)
	}
	return err
}
