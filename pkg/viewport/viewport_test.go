package viewport

import (
	"math"
	"testing"
	"time"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFit(t *testing.T) {
	tests := []struct {
		name    string
		content BBox
		view    Size
		margin  float64
		want    Transform
	}{
		{
			name:    "centered",
			content: BBox{Width: 200, Height: 100},
			view:    Size{800, 400},
			margin:  0.9,
			want:    Transform{Scale: 3.6, TranslateX: 400 - 360, TranslateY: 200 - 180},
		},
		{
			name:    "offset content",
			content: BBox{X: 100, Y: 50, Width: 200, Height: 100},
			view:    Size{800, 400},
			margin:  0.9,
			want:    Transform{Scale: 3.6, TranslateX: 400 - 3.6*200, TranslateY: 200 - 3.6*100},
		},
		{
			name:    "height bound",
			content: BBox{Width: 100, Height: 100},
			view:    Size{800, 400},
			margin:  0.9,
			want:    Transform{Scale: 3.6, TranslateX: 400 - 180, TranslateY: 200 - 180},
		},
		{"zero width", BBox{Width: 0, Height: 10}, Size{800, 400}, 0.9, Identity},
		{"zero height", BBox{Width: 10}, Size{800, 400}, 0.9, Identity},
		{"zero view", BBox{Width: 10, Height: 10}, Size{}, 0.9, Identity},
		{"infinite", BBox{Width: math.Inf(1), Height: 10}, Size{800, 400}, 0.9, Identity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(tt.content, tt.view, tt.margin)
			if !approx(got.Scale, tt.want.Scale) || !approx(got.TranslateX, tt.want.TranslateX) || !approx(got.TranslateY, tt.want.TranslateY) {
				t.Errorf("Fit() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFitCentersContent(t *testing.T) {
	content := BBox{X: -40, Y: 12, Width: 313, Height: 97}
	view := Size{1024, 600}
	tr := Fit(content, view, 0)
	mx, my := content.Mid()
	x, y := tr.Apply(mx, my)
	if !approx(x, 512) || !approx(y, 300) {
		t.Errorf("content mid maps to (%v, %v), want view center", x, y)
	}
	x0, _ := tr.Apply(content.X, content.Y)
	x1, _ := tr.Apply(content.X+content.Width, content.Y)
	if !approx(x1-x0, DefaultMargin*1024) {
		t.Errorf("fitted width = %v, want %v", x1-x0, DefaultMargin*1024)
	}
}

func TestClampMargin(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, DefaultMargin},
		{0.5, MinMargin},
		{0.9, 0.9},
		{1.2, MaxMargin},
		{math.NaN(), DefaultMargin},
	}
	for _, tt := range tests {
		if got := ClampMargin(tt.in); got != tt.want {
			t.Errorf("ClampMargin(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTransformInvert(t *testing.T) {
	tr := Transform{Scale: 2.5, TranslateX: 30, TranslateY: -12}
	x, y := tr.Invert().Apply(tr.Apply(7, 11))
	if !approx(x, 7) || !approx(y, 11) {
		t.Errorf("round trip = (%v, %v), want (7, 11)", x, y)
	}
	if got := (Transform{}).Invert(); got != Identity {
		t.Errorf("zero scale Invert() = %+v, want Identity", got)
	}
}

func TestTransformString(t *testing.T) {
	tr := Transform{Scale: 3.6, TranslateX: 40, TranslateY: -20.5}
	if got, want := tr.String(), "translate(40,-20.5) scale(3.6)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestZoomClamps(t *testing.T) {
	fit := Transform{Scale: 0.5, TranslateX: 10, TranslateY: 10}
	z := NewZoom(fit, 0)
	if z.Min != 0.5 || z.Max != DefaultMaxScale {
		t.Fatalf("bounds = [%v, %v]", z.Min, z.Max)
	}

	if got := z.ScaleBy(0.1, 0, 0); got.Scale != 0.5 {
		t.Errorf("zoom out past fit: scale = %v, want 0.5", got.Scale)
	}
	if got := z.ScaleBy(100, 0, 0); got.Scale != DefaultMaxScale {
		t.Errorf("zoom in past max: scale = %v, want %v", got.Scale, DefaultMaxScale)
	}
	if got := z.Set(Transform{Scale: 0.01}); got.Scale != 0.5 {
		t.Errorf("Set scale = %v, want 0.5", got.Scale)
	}
	if got := z.Reset(); got != fit {
		t.Errorf("Reset() = %+v, want %+v", got, fit)
	}
}

func TestZoomKeepsPointFixed(t *testing.T) {
	z := NewZoom(Transform{Scale: 1, TranslateX: 20, TranslateY: 30}, 7)
	before := z.Current.Invert()
	cx, cy := before.Apply(200, 100)

	after := z.ScaleBy(2, 200, 100)
	x, y := after.Apply(cx, cy)
	if !approx(x, 200) || !approx(y, 100) {
		t.Errorf("anchor moved to (%v, %v)", x, y)
	}
	if after.Scale != 2 {
		t.Errorf("scale = %v, want 2", after.Scale)
	}
}

func TestZoomRaisesMax(t *testing.T) {
	z := NewZoom(Transform{Scale: 12}, 7)
	if z.Max != 12 {
		t.Errorf("Max = %v, want 12", z.Max)
	}
}

func TestPanBy(t *testing.T) {
	z := NewZoom(Transform{Scale: 1}, 7)
	got := z.PanBy(5, -3)
	if got.TranslateX != 5 || got.TranslateY != -3 || got.Scale != 1 {
		t.Errorf("PanBy() = %+v", got)
	}
}

func TestTransition(t *testing.T) {
	from := Transform{Scale: 1}
	to := Transform{Scale: 3, TranslateX: 100, TranslateY: 50}
	tr := NewTransition(from, to)

	if tr.Duration != 300*time.Millisecond {
		t.Errorf("Duration = %v", tr.Duration)
	}
	if got := tr.At(0); got != from {
		t.Errorf("At(0) = %+v, want From", got)
	}
	if got := tr.At(tr.Duration); got != to {
		t.Errorf("At(end) = %+v, want To", got)
	}
	mid := tr.At(150 * time.Millisecond)
	if !approx(mid.Scale, 2) || !approx(mid.TranslateX, 50) {
		t.Errorf("At(mid) = %+v, want halfway", mid)
	}
	if early := tr.At(30 * time.Millisecond); early.Scale-1 >= 0.2 {
		t.Errorf("cubic easing should start slowly, got %v", early.Scale)
	}
	if tr.Done(299*time.Millisecond) || !tr.Done(300*time.Millisecond) {
		t.Error("Done() boundary wrong")
	}
}

func TestTransitionFrames(t *testing.T) {
	tr := NewTransition(Identity, Transform{Scale: 2})
	frames := tr.Frames(60)
	if len(frames) != 19 {
		t.Fatalf("len(frames) = %d, want 19", len(frames))
	}
	if frames[0] != Identity || frames[len(frames)-1] != tr.To {
		t.Errorf("endpoints = %+v .. %+v", frames[0], frames[len(frames)-1])
	}
	for i := 1; i < len(frames); i++ {
		if frames[i].Scale < frames[i-1].Scale {
			t.Errorf("frame %d goes backwards", i)
		}
	}
	if got := (Transition{To: Identity}).Frames(60); len(got) != 1 {
		t.Errorf("zero duration frames = %d, want 1", len(got))
	}
}

func TestEaseCubicInOut(t *testing.T) {
	for _, tt := range []struct{ in, want float64 }{{0, 0}, {0.5, 0.5}, {1, 1}, {0.25, 0.0625}} {
		if got := EaseCubicInOut(tt.in); !approx(got, tt.want) {
			t.Errorf("EaseCubicInOut(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
