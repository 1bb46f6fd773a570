package main

import (
	"log/slog"

	"github.com/teslashibe/go-focus/internal/config"
	"github.com/teslashibe/go-focus/pkg/camera"
	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

// cameraDevice is an open webcam with its detector and runtime settings.
type cameraDevice struct {
	webcam   *camera.Webcam
	detector *detection.YuNetDetector
	manager  *camera.Manager
}

func openCamera(cfg config.Config, logger *slog.Logger) (*cameraDevice, error) {
	camCfg, err := cfg.CameraConfig()
	if err != nil {
		return nil, err
	}
	cam, err := camera.Open(camCfg, logger)
	if err != nil {
		return nil, err
	}
	det, err := detection.NewYuNet(cfg.DetectionConfig(), logger)
	if err != nil {
		cam.Close()
		return nil, err
	}
	mgr := camera.NewManager(camCfg)
	mgr.OnChange(cam.Apply)
	return &cameraDevice{webcam: cam, detector: det, manager: mgr}, nil
}

func (d *cameraDevice) Close() {
	if err := d.detector.Close(); err != nil {
		logErrf("failed to close detector: %v\n", err)
	}
	if err := d.webcam.Close(); err != nil {
		logErrf("failed to close camera: %v\n", err)
	}
}
