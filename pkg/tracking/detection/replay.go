package detection

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Frame is one recorded landmark sample. Exactly one of Landmarks or Mesh
// is normally set; neither means no face was visible.
type Frame struct {
	At        time.Time  `json:"t"`
	Landmarks *Landmarks `json:"landmarks,omitempty"`
	Mesh      []Point    `json:"mesh,omitempty"`
}

// Face resolves the frame to landmarks, or nil when no face was recorded.
func (f Frame) Face() (*Landmarks, error) {
	if f.Landmarks != nil {
		return f.Landmarks, nil
	}
	if len(f.Mesh) == 0 {
		return nil, nil
	}
	return FromFaceMesh(f.Mesh)
}

// Replay reads frames from a JSON-lines recording.
type Replay struct {
	sc   *bufio.Scanner
	line int
}

// NewReplay wraps r. Lines may hold a full face mesh, so the scanner buffer
// is sized for that.
func NewReplay(r io.Reader) *Replay {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &Replay{sc: sc}
}

// Next returns the next frame, or io.EOF when the recording is exhausted.
// Blank lines are skipped.
func (r *Replay) Next() (Frame, error) {
	for r.sc.Scan() {
		r.line++
		b := r.sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var f Frame
		if err := json.Unmarshal(b, &f); err != nil {
			return Frame{}, fmt.Errorf("replay line %d: %w", r.line, err)
		}
		return f, nil
	}
	if err := r.sc.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

// WriteFrame appends one frame to a JSON-lines recording.
func WriteFrame(w io.Writer, f Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
