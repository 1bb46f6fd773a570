package detection

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// YuNetDetector uses OpenCV's FaceDetectorYN to find the face and a Haar
// eye cascade to decide whether each eye is open.
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	eyes     gocv.CascadeClassifier
	config   Config
	log      *slog.Logger
	mu       sync.Mutex // Protects inference
}

// NewYuNet creates a YuNet face detector with an eye cascade
func NewYuNet(cfg Config, logger *slog.Logger) (*YuNetDetector, error) {
	// Check if model files exist first
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if _, err := os.Stat(cfg.EyeCascadePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("eye cascade not found: %s", cfg.EyeCascadePath)
	}
	if logger == nil {
		logger = slog.Default()
	}

	eyes := gocv.NewCascadeClassifier()
	if !eyes.Load(cfg.EyeCascadePath) {
		eyes.Close()
		return nil, fmt.Errorf("load eye cascade: %s", cfg.EyeCascadePath)
	}

	// Create FaceDetectorYN with initial size (will be updated per-image)
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",                                        // No config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight), // Initial input size
		float32(cfg.ConfidenceThresh),             // Score threshold
		0.3,                                       // NMS threshold
		5000,                                      // Top K
		int(gocv.NetBackendDefault),               // Backend
		int(gocv.NetTargetCPU),                    // Target
	)

	return &YuNetDetector{
		detector: detector,
		eyes:     eyes,
		config:   cfg,
		log:      logger.With("component", "yunet"),
	}, nil
}

// Detect finds the primary face in the JPEG image and returns its landmarks
func (d *YuNetDetector) Detect(jpeg []byte) (*Landmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Decode JPEG to Mat
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())

	// Update detector input size to match image
	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	var detections []Detection
	for r := 0; r < faces.Rows(); r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: right eye, left eye, nose tip, mouth corners (x,y pairs)
		// 14: face score
		at := func(c int) float64 { return float64(faces.GetFloatAt(r, c)) }
		detections = append(detections, Detection{
			X:          at(0) / imgW,
			Y:          at(1) / imgH,
			W:          at(2) / imgW,
			H:          at(3) / imgH,
			Confidence: at(14),
			RightEye:   Point{X: at(4) / imgW, Y: at(5) / imgH},
			LeftEye:    Point{X: at(6) / imgW, Y: at(7) / imgH},
			Nose:       Point{X: at(8) / imgW, Y: at(9) / imgH},
		})
	}

	best := SelectBest(detections)
	if best == nil {
		return nil, nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	eyeW := best.W * eyeWidthRatio * imgW
	leftOpen := d.eyeOpen(gray, best.LeftEye, eyeW)
	rightOpen := d.eyeOpen(gray, best.RightEye, eyeW)

	d.log.Debug("face found",
		"faces", len(detections),
		"confidence", best.Confidence,
		"left_open", leftOpen,
		"right_open", rightOpen)

	return landmarksFromDetection(*best, leftOpen, rightOpen), nil
}

// eyeOpen runs the eye cascade in a square window around the eye centre.
// The cascade is trained on open eyes, so a miss is read as closed.
func (d *YuNetDetector) eyeOpen(gray gocv.Mat, centre Point, eyeW float64) bool {
	cx := int(centre.X * float64(gray.Cols()))
	cy := int(centre.Y * float64(gray.Rows()))
	half := int(eyeW)
	roi := image.Rect(cx-half, cy-half, cx+half, cy+half).
		Intersect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	if roi.Empty() {
		return false
	}

	region := gray.Region(roi)
	defer region.Close()

	minSize := image.Pt(d.config.EyeMinSize, d.config.EyeMinSize)
	found := d.eyes.DetectMultiScaleWithParams(region, 1.1, d.config.EyeNeighbors, 0, minSize, image.Pt(0, 0))
	return len(found) > 0
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return d.eyes.Close()
}
