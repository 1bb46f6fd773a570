package detection

import (
	"errors"
	"fmt"
	"math"
)

// Point is a landmark in normalised image coordinates (0-1 on each axis).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Eye holds the four points used to measure eyelid opening.
type Eye struct {
	Upper Point `json:"upper"` // upper eyelid
	Lower Point `json:"lower"` // lower eyelid
	Inner Point `json:"inner"` // inner corner
	Outer Point `json:"outer"` // outer corner
}

// EyeAspectRatio returns vertical lid separation over horizontal corner
// separation. Degenerate geometry (zero width) yields 0, which reads as closed.
func EyeAspectRatio(e Eye) float64 {
	horizontal := Distance(e.Inner, e.Outer)
	if horizontal == 0 {
		return 0
	}
	return Distance(e.Upper, e.Lower) / horizontal
}

// Landmarks is the per-frame output of a landmark source.
type Landmarks struct {
	LeftEye  Eye   `json:"left_eye"`
	RightEye Eye   `json:"right_eye"`
	NoseTip  Point `json:"nose_tip"`
}

// EAR returns the mean eye aspect ratio of both eyes. If either eye has a
// zero corner span the result is 0 (closed), whatever the other eye reads.
func (l Landmarks) EAR() float64 {
	if Distance(l.LeftEye.Inner, l.LeftEye.Outer) == 0 || Distance(l.RightEye.Inner, l.RightEye.Outer) == 0 {
		return 0
	}
	return (EyeAspectRatio(l.LeftEye) + EyeAspectRatio(l.RightEye)) / 2
}

// HeadOffset is the horizontal distance of the nose tip from the midpoint of
// the outer eye corners, as a fraction of the outer-corner span. A frontal
// face reads near 0; a face in profile approaches 0.5 and beyond. A zero span
// reads as 1 (turned fully away).
func (l Landmarks) HeadOffset() float64 {
	span := math.Abs(l.LeftEye.Outer.X - l.RightEye.Outer.X)
	if span == 0 {
		return 1
	}
	mid := (l.LeftEye.Outer.X + l.RightEye.Outer.X) / 2
	return math.Abs(l.NoseTip.X-mid) / span
}

// MediaPipe face-mesh indices for the landmarks above.
const (
	MeshLeftUpper  = 159
	MeshLeftLower  = 145
	MeshLeftOuter  = 33
	MeshLeftInner  = 133
	MeshRightUpper = 386
	MeshRightLower = 374
	MeshRightOuter = 263
	MeshRightInner = 362
	MeshNoseTip    = 1

	// MeshMinPoints is the smallest mesh that contains every index used.
	MeshMinPoints = MeshRightUpper + 1
)

// ErrShortMesh is returned when a face mesh lacks the required indices.
var ErrShortMesh = errors.New("detection: face mesh too short")

// FromFaceMesh picks the eye and nose points out of a MediaPipe face mesh
// (468 or 478 points, as produced by the browser client).
func FromFaceMesh(mesh []Point) (*Landmarks, error) {
	if len(mesh) < MeshMinPoints {
		return nil, fmt.Errorf("%w: %d points, need %d", ErrShortMesh, len(mesh), MeshMinPoints)
	}
	return &Landmarks{
		LeftEye: Eye{
			Upper: mesh[MeshLeftUpper],
			Lower: mesh[MeshLeftLower],
			Inner: mesh[MeshLeftInner],
			Outer: mesh[MeshLeftOuter],
		},
		RightEye: Eye{
			Upper: mesh[MeshRightUpper],
			Lower: mesh[MeshRightLower],
			Inner: mesh[MeshRightInner],
			Outer: mesh[MeshRightOuter],
		},
		NoseTip: mesh[MeshNoseTip],
	}, nil
}
