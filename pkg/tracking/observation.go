package tracking

import (
	"time"

	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

// Observation is one camera sample.
type Observation struct {
	At         time.Time `json:"t"`
	FaceFound  bool      `json:"face_found"`
	EAR        float64   `json:"ear"`
	HeadOffset float64   `json:"head_offset"`
}

// ObservationFromLandmarks derives an observation from landmarks. nil
// landmarks means no face.
func ObservationFromLandmarks(at time.Time, lm *detection.Landmarks) Observation {
	if lm == nil {
		return Observation{At: at}
	}
	return Observation{
		At:         at,
		FaceFound:  true,
		EAR:        lm.EAR(),
		HeadOffset: lm.HeadOffset(),
	}
}
