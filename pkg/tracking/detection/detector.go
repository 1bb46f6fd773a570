// Package detection turns camera frames into facial landmarks.
//
// A Detector returns nil landmarks when no face is visible; that is a normal
// outcome, not an error.
package detection

// Detection represents a detected face
type Detection struct {
	X, Y       float64 // Top-left corner (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)

	// Coarse landmarks reported by the face detector (0-1 normalized)
	RightEye Point
	LeftEye  Point
	Nose     Point
}

// Center returns the center point of the detection
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Detector is the interface for landmark backends
type Detector interface {
	// Detect finds the primary face in a JPEG frame. It returns nil
	// landmarks when no face is present.
	Detect(jpeg []byte) (*Landmarks, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	ModelPath        string  // Path to the YuNet ONNX model
	EyeCascadePath   string  // Path to haarcascade_eye.xml
	ConfidenceThresh float64 // Minimum face confidence (default 0.5)
	InputWidth       int     // Model input width
	InputHeight      int     // Model input height
	EyeMinSize       int     // Smallest eye box the cascade accepts, pixels
	EyeNeighbors     int     // Cascade minNeighbors; higher = fewer false positives
}

// DefaultConfig returns production defaults for YuNet plus the Haar eye cascade
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		EyeCascadePath:   "models/haarcascade_eye.xml",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
		EyeMinSize:       20,
		EyeNeighbors:     10,
	}
}

// SelectBest picks the best face from multiple detections
// Priority: confidence * 0.7 + area * 0.3 so the closest confident face wins
func SelectBest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}

	if len(dets) == 1 {
		return &dets[0]
	}

	// Find max area for normalization
	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	// Score each detection
	bestScore := -1.0
	var best *Detection

	for i := range dets {
		areaScore := 0.0
		if maxArea > 0 {
			areaScore = dets[i].Area() / maxArea
		}
		score := dets[i].Confidence*0.7 + areaScore*0.3
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}

	return best
}

// eyeWidthRatio is the typical eye width as a fraction of face width.
const eyeWidthRatio = 0.22

// openEyeAspect is the lid opening reported for an eye the cascade found.
const openEyeAspect = 0.3

// landmarksFromDetection builds eye landmarks around the detector's eye
// centres. Open eyes get a fixed lid opening; eyes the cascade missed get
// collapsed lids (EAR 0).
func landmarksFromDetection(d Detection, leftOpen, rightOpen bool) *Landmarks {
	eyeW := d.W * eyeWidthRatio
	return &Landmarks{
		LeftEye:  syntheticEye(d.LeftEye, eyeW, leftOpen, 1),
		RightEye: syntheticEye(d.RightEye, eyeW, rightOpen, -1),
		NoseTip:  d.Nose,
	}
}

// syntheticEye lays out an eye centred on c. side is +1 when the outer
// corner lies towards larger x in the image.
func syntheticEye(c Point, width float64, open bool, side float64) Eye {
	half := width / 2
	lid := 0.0
	if open {
		lid = width * openEyeAspect / 2
	}
	return Eye{
		Upper: Point{X: c.X, Y: c.Y - lid},
		Lower: Point{X: c.X, Y: c.Y + lid},
		Inner: Point{X: c.X - side*half, Y: c.Y},
		Outer: Point{X: c.X + side*half, Y: c.Y},
	}
}
