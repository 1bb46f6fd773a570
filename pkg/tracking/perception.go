package tracking

import (
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

// VideoSource interface for capturing frames
type VideoSource interface {
	CaptureJPEG() ([]byte, error)
}

// Perception turns captured frames into observations
type Perception struct {
	detector detection.Detector
	video    VideoSource
	log      *slog.Logger

	mu                sync.Mutex
	consecutiveMisses int
}

// NewPerception creates a new perception system
func NewPerception(video VideoSource, detector detection.Detector, logger *slog.Logger) *Perception {
	if logger == nil {
		logger = slog.Default()
	}
	return &Perception{
		detector: detector,
		video:    video,
		log:      logger,
	}
}

// Sample captures one frame and detects the face in it.
// Capture and detection failures are returned; a frame without a face is not
// an error and yields FaceFound=false.
func (p *Perception) Sample(now time.Time) (Observation, error) {
	frame, err := p.video.CaptureJPEG()
	if err != nil {
		p.miss()
		return Observation{At: now}, err
	}

	lm, err := p.detector.Detect(frame)
	if err != nil {
		p.miss()
		return Observation{At: now}, err
	}
	if lm == nil {
		p.miss()
		return Observation{At: now}, nil
	}

	p.mu.Lock()
	if p.consecutiveMisses >= DefaultLostFaceLog {
		p.log.Info("face found again", "after_misses", p.consecutiveMisses)
	}
	p.consecutiveMisses = 0
	p.mu.Unlock()

	return ObservationFromLandmarks(now, lm), nil
}

func (p *Perception) miss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveMisses++
	if p.consecutiveMisses == DefaultLostFaceLog {
		p.log.Info("lost face", "consecutive_misses", p.consecutiveMisses)
	}
}

// ConsecutiveMisses returns how many samples in a row had no face
func (p *Perception) ConsecutiveMisses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consecutiveMisses
}
