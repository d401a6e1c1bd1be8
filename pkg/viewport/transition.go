package viewport

import "time"

// DefaultTransitionDuration is the duration of a re-fit animation.
const DefaultTransitionDuration = 300 * time.Millisecond

// Ease maps linear progress in [0, 1] to eased progress.
type Ease func(float64) float64

// EaseCubicInOut accelerates for the first half and decelerates for the
// second.
func EaseCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// EaseLinear is the identity easing.
func EaseLinear(t float64) float64 { return t }

// Transition interpolates between two transforms.
type Transition struct {
	From, To Transform
	Duration time.Duration
	Ease     Ease
}

// NewTransition returns a transition with the default duration and
// cubic in-out easing.
func NewTransition(from, to Transform) Transition {
	return Transition{From: from, To: to, Duration: DefaultTransitionDuration, Ease: EaseCubicInOut}
}

func (tr Transition) progress(elapsed time.Duration) float64 {
	if tr.Duration <= 0 || elapsed >= tr.Duration {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	p := float64(elapsed) / float64(tr.Duration)
	if tr.Ease != nil {
		p = tr.Ease(p)
	}
	return p
}

// At returns the transform after elapsed time.
func (tr Transition) At(elapsed time.Duration) Transform {
	p := tr.progress(elapsed)
	if p >= 1 {
		return tr.To
	}
	lerp := func(a, b float64) float64 { return a + (b-a)*p }
	return Transform{
		Scale:      lerp(tr.From.Scale, tr.To.Scale),
		TranslateX: lerp(tr.From.TranslateX, tr.To.TranslateX),
		TranslateY: lerp(tr.From.TranslateY, tr.To.TranslateY),
	}
}

// Done reports whether the transition has finished after elapsed time.
func (tr Transition) Done(elapsed time.Duration) bool {
	return elapsed >= tr.Duration
}

// Frames samples the transition at fps frames per second. The first frame
// is From and the last is To.
func (tr Transition) Frames(fps int) []Transform {
	if fps <= 0 || tr.Duration <= 0 {
		return []Transform{tr.To}
	}
	n := int((int64(tr.Duration)*int64(fps) + int64(time.Second) - 1) / int64(time.Second))
	frames := make([]Transform, 0, n+1)
	for i := 0; i <= n; i++ {
		frames = append(frames, tr.At(tr.Duration*time.Duration(i)/time.Duration(n)))
	}
	return frames
}
