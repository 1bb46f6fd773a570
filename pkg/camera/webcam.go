package camera

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when the device produced no frame.
var ErrNoFrame = errors.New("camera: no frame")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("camera: closed")

// Webcam captures JPEG frames from an OpenCV video source.
type Webcam struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	frame  gocv.Mat
	cfg    Config
	source any // device index or file path
	log    *slog.Logger
}

// Open opens the webcam named by cfg.Device.
func Open(cfg Config, logger *slog.Logger) (*Webcam, error) {
	return open(cfg.Device, cfg, logger)
}

// OpenFile reads frames from a video file instead of a device.
func OpenFile(path string, cfg Config, logger *slog.Logger) (*Webcam, error) {
	return open(path, cfg, logger)
}

func open(source any, cfg Config, logger *slog.Logger) (*Webcam, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config: %v", errs)
	}
	if logger == nil {
		logger = slog.Default()
	}

	vc, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, fmt.Errorf("open video source %v: %w", source, err)
	}

	w := &Webcam{
		cap:    vc,
		frame:  gocv.NewMat(),
		source: source,
		log:    logger.With("component", "camera"),
	}
	w.applyLocked(cfg)
	w.log.Info("camera opened", "source", source, "width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate)
	return w, nil
}

// Apply updates capture properties. A device change reopens the capture.
// It is suitable as a Manager.OnChange callback.
func (w *Webcam) Apply(cfg Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return ErrClosed
	}
	if dev, ok := w.source.(int); ok && dev != cfg.Device {
		vc, err := gocv.OpenVideoCapture(cfg.Device)
		if err != nil {
			return fmt.Errorf("open device %d: %w", cfg.Device, err)
		}
		w.cap.Close()
		w.cap = vc
		w.source = cfg.Device
	}
	w.applyLocked(cfg)
	return nil
}

func (w *Webcam) applyLocked(cfg Config) {
	w.cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	w.cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	w.cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	if cfg.Brightness != 0 {
		// OpenCV drivers take brightness in 0..1
		w.cap.Set(gocv.VideoCaptureBrightness, 0.5+cfg.Brightness/2)
	}
	w.cfg = cfg
}

// CaptureJPEG grabs one frame and encodes it at the configured quality.
func (w *Webcam) CaptureJPEG() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil, ErrClosed
	}
	if ok := w.cap.Read(&w.frame); !ok || w.frame.Empty() {
		return nil, ErrNoFrame
	}
	if w.cfg.Mirror {
		gocv.Flip(w.frame, &w.frame, 1)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.frame, []int{gocv.IMWriteJpegQuality, w.cfg.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// The buffer is C memory; copy before it is released
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap == nil {
		return nil
	}
	err := w.cap.Close()
	w.cap = nil
	w.frame.Close()
	w.log.Info("camera closed")
	return err
}
