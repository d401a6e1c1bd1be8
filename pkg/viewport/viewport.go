// Package viewport computes the transforms that map diagram content onto a
// fixed-size view: the initial fit, bounded zooming and panning, and the
// animated transition between two transforms.
//
// All functions are pure. A [Transform] maps content coordinates to view
// coordinates as view = content*Scale + Translate.
package viewport

import (
	"fmt"
	"math"
	"strconv"
)

// Margin bounds. The fit leaves (1-margin) of the view empty.
const (
	DefaultMargin = 0.95
	MinMargin     = 0.85
	MaxMargin     = 0.95
)

// DefaultMaxScale is the largest zoom factor.
const DefaultMaxScale = 7.0

// BBox is an axis-aligned box in content coordinates.
type BBox struct {
	X, Y          float64
	Width, Height float64
}

// Degenerate reports whether b has no usable area.
func (b BBox) Degenerate() bool {
	return !(b.Width > 0) || !(b.Height > 0) || math.IsInf(b.Width, 0) || math.IsInf(b.Height, 0)
}

// Mid returns the center of b.
func (b BBox) Mid() (float64, float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Union returns the smallest box containing b and o. Degenerate boxes with
// zero size still contribute their corner.
func (b BBox) Union(o BBox) BBox {
	x0, y0 := math.Min(b.X, o.X), math.Min(b.Y, o.Y)
	x1 := math.Max(b.X+b.Width, o.X+o.Width)
	y1 := math.Max(b.Y+b.Height, o.Y+o.Height)
	return BBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Size is the pixel size of the view.
type Size struct {
	Width, Height float64
}

// Transform is a uniform scale followed by a translation.
type Transform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// Identity leaves coordinates unchanged.
var Identity = Transform{Scale: 1}

// Apply maps a content point to view coordinates.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.Scale + t.TranslateX, y*t.Scale + t.TranslateY
}

// Invert returns the transform mapping view coordinates back to content.
// A zero scale inverts to [Identity].
func (t Transform) Invert() Transform {
	if t.Scale == 0 {
		return Identity
	}
	return Transform{
		Scale:      1 / t.Scale,
		TranslateX: -t.TranslateX / t.Scale,
		TranslateY: -t.TranslateY / t.Scale,
	}
}

// String formats t as an SVG transform attribute value.
func (t Transform) String() string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)", num(t.TranslateX), num(t.TranslateY), num(t.Scale))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ClampMargin returns the margin actually used by [Fit].
func ClampMargin(margin float64) float64 {
	if margin == 0 || math.IsNaN(margin) {
		return DefaultMargin
	}
	return math.Min(math.Max(margin, MinMargin), MaxMargin)
}

// Fit returns the transform that centers content in view, scaled so its
// larger relative dimension fills margin of the view. Degenerate content
// or a degenerate view yields [Identity].
func Fit(content BBox, view Size, margin float64) Transform {
	if content.Degenerate() || !(view.Width > 0) || !(view.Height > 0) {
		return Identity
	}
	margin = ClampMargin(margin)
	scale := margin / math.Max(content.Width/view.Width, content.Height/view.Height)
	mx, my := content.Mid()
	return Transform{
		Scale:      scale,
		TranslateX: view.Width/2 - scale*mx,
		TranslateY: view.Height/2 - scale*my,
	}
}
