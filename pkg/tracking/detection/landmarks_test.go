package detection

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEyeAspectRatio(t *testing.T) {
	tests := []struct {
		name string
		eye  Eye
		want float64
	}{
		{
			name: "open",
			eye: Eye{
				Upper: Point{0.5, 0.45}, Lower: Point{0.5, 0.55},
				Inner: Point{0.4, 0.5}, Outer: Point{0.6, 0.5},
			},
			want: 0.5,
		},
		{
			name: "closed",
			eye: Eye{
				Upper: Point{0.5, 0.5}, Lower: Point{0.5, 0.5},
				Inner: Point{0.4, 0.5}, Outer: Point{0.6, 0.5},
			},
			want: 0,
		},
		{
			name: "degenerate width",
			eye: Eye{
				Upper: Point{0.5, 0.4}, Lower: Point{0.5, 0.6},
				Inner: Point{0.5, 0.5}, Outer: Point{0.5, 0.5},
			},
			want: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EyeAspectRatio(tc.eye); !approx(got, tc.want) {
				t.Errorf("EyeAspectRatio: got %.4f, want %.4f", got, tc.want)
			}
		})
	}
}

func TestLandmarks_EAR_DegenerateEyeReadsClosed(t *testing.T) {
	open := Eye{
		Upper: Point{0.35, 0.44}, Lower: Point{0.35, 0.56},
		Inner: Point{0.40, 0.5}, Outer: Point{0.30, 0.5},
	}
	flat := Eye{
		Upper: Point{0.65, 0.44}, Lower: Point{0.65, 0.56},
		Inner: Point{0.65, 0.5}, Outer: Point{0.65, 0.5},
	}

	both := Landmarks{LeftEye: open, RightEye: open}
	if got := both.EAR(); !approx(got, 1.2) {
		t.Errorf("both open: got %.3f, want 1.2", got)
	}
	if got := (Landmarks{LeftEye: open, RightEye: flat}).EAR(); got != 0 {
		t.Errorf("right eye degenerate: got %.3f, want 0", got)
	}
	if got := (Landmarks{LeftEye: flat, RightEye: open}).EAR(); got != 0 {
		t.Errorf("left eye degenerate: got %.3f, want 0", got)
	}
}

func TestLandmarks_HeadOffset(t *testing.T) {
	lm := Landmarks{
		LeftEye:  Eye{Outer: Point{X: 0.7}},
		RightEye: Eye{Outer: Point{X: 0.3}},
		NoseTip:  Point{X: 0.5},
	}
	if got := lm.HeadOffset(); !approx(got, 0) {
		t.Errorf("frontal: got %.3f, want 0", got)
	}

	lm.NoseTip.X = 0.58
	if got := lm.HeadOffset(); !approx(got, 0.2) {
		t.Errorf("turned: got %.3f, want 0.2", got)
	}

	lm.NoseTip.X = 0.42
	if got := lm.HeadOffset(); !approx(got, 0.2) {
		t.Errorf("turned other way: got %.3f, want 0.2", got)
	}

	lm.RightEye.Outer.X = 0.7
	if got := lm.HeadOffset(); got != 1 {
		t.Errorf("zero span: got %.3f, want 1", got)
	}
}

func TestFromFaceMesh(t *testing.T) {
	mesh := make([]Point, 478)
	mesh[MeshLeftUpper] = Point{0.35, 0.45}
	mesh[MeshLeftLower] = Point{0.35, 0.49}
	mesh[MeshLeftInner] = Point{0.40, 0.47}
	mesh[MeshLeftOuter] = Point{0.30, 0.47}
	mesh[MeshRightUpper] = Point{0.65, 0.45}
	mesh[MeshRightLower] = Point{0.65, 0.49}
	mesh[MeshRightInner] = Point{0.60, 0.47}
	mesh[MeshRightOuter] = Point{0.70, 0.47}
	mesh[MeshNoseTip] = Point{0.5, 0.6}

	lm, err := FromFaceMesh(mesh)
	if err != nil {
		t.Fatalf("FromFaceMesh: %v", err)
	}
	if got := lm.EAR(); !approx(got, 0.4) {
		t.Errorf("EAR: got %.4f, want 0.4", got)
	}
	if got := lm.HeadOffset(); !approx(got, 0) {
		t.Errorf("HeadOffset: got %.4f, want 0", got)
	}

	if _, err := FromFaceMesh(mesh[:100]); !errors.Is(err, ErrShortMesh) {
		t.Errorf("short mesh: got %v, want ErrShortMesh", err)
	}
}
