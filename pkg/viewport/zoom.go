package viewport

import "math"

// Zoom tracks the current transform of an interactive view. The scale is
// kept within [Min, Max]; Min is the fit scale so users cannot zoom out past
// the whole diagram.
type Zoom struct {
	Min, Max float64
	Current  Transform
	fit      Transform
}

// NewZoom starts a zoom at the fit transform. A non-positive maxScale selects
// [DefaultMaxScale]. Content that fits only above maxScale raises Max to the
// fit scale.
func NewZoom(fit Transform, maxScale float64) Zoom {
	if maxScale <= 0 {
		maxScale = DefaultMaxScale
	}
	return Zoom{
		Min:     fit.Scale,
		Max:     math.Max(maxScale, fit.Scale),
		Current: fit,
		fit:     fit,
	}
}

func (z Zoom) clamp(s float64) float64 {
	return math.Min(math.Max(s, z.Min), z.Max)
}

// ScaleBy multiplies the scale by k, keeping the view point (px, py)
// fixed. The result is clamped.
func (z *Zoom) ScaleBy(k, px, py float64) Transform {
	cur := z.Current
	next := z.clamp(cur.Scale * k)
	if cur.Scale == 0 {
		cur.Scale = 1
	}
	cx, cy := (px-cur.TranslateX)/cur.Scale, (py-cur.TranslateY)/cur.Scale
	z.Current = Transform{
		Scale:      next,
		TranslateX: px - next*cx,
		TranslateY: py - next*cy,
	}
	return z.Current
}

// PanBy shifts the view by (dx, dy) pixels.
func (z *Zoom) PanBy(dx, dy float64) Transform {
	z.Current.TranslateX += dx
	z.Current.TranslateY += dy
	return z.Current
}

// Set replaces the current transform, clamping its scale.
func (z *Zoom) Set(t Transform) Transform {
	t.Scale = z.clamp(t.Scale)
	z.Current = t
	return t
}

// Reset returns to the fit transform.
func (z *Zoom) Reset() Transform {
	z.Current = z.fit
	return z.Current
}

// Fit returns the transform the zoom started from.
func (z Zoom) Fit() Transform { return z.fit }
