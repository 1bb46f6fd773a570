package tracking

import (
	"context"
	"errors"
	"io"

	"github.com/teslashibe/go-focus/internal/clock"
	"github.com/teslashibe/go-focus/pkg/session"
	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

// ErrEmptyRecording is returned by Replay when the source has no frames.
var ErrEmptyRecording = errors.New("tracking: recording has no frames")

// FrameSource yields recorded frames until io.EOF. detection.Replay
// implements it.
type FrameSource interface {
	Next() (detection.Frame, error)
}

// Replay runs a recording through the tracker without the heartbeat. clk
// must be the clock the session and tracker were built with; it follows
// the frame timestamps, so accounting matches the recording rather than
// the wall clock. Frames whose mesh cannot be resolved are skipped.
func (t *CameraTracker) Replay(ctx context.Context, src FrameSource, clk *clock.Manual) (session.Summary, error) {
	frame, err := src.Next()
	if errors.Is(err, io.EOF) {
		return t.sess.Summary(), ErrEmptyRecording
	}
	if err != nil {
		return t.sess.Summary(), err
	}

	clk.Set(frame.At)
	if err := t.begin(); err != nil {
		return t.sess.Summary(), err
	}
	defer close(t.done)

	frames := 0
	for {
		select {
		case <-ctx.Done():
			return t.sess.Stop(), ctx.Err()
		case <-t.stop:
			return t.sess.Stop(), nil
		default:
		}

		clk.Set(frame.At)
		lm, err := frame.Face()
		if err != nil {
			t.log.Debug("skipping frame", "at", frame.At, "error", err)
		} else {
			t.ProcessObservation(ObservationFromLandmarks(frame.At, lm))
			frames++
		}

		frame, err = src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return t.sess.Stop(), err
		}
	}

	sum := t.sess.Stop()
	t.log.Info("replay finished", "frames", frames, "score", sum.FocusScore)
	return sum, nil
}
