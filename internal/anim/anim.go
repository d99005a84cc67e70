// Package anim drives property tweens for scene nodes.
package anim

import (
	"fmt"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/Faultbox/roomview/pkg/math"
)

// Ease names an easing curve.
type Ease string

// Supported eases.
const (
	Linear        Ease = "linear"
	Power2Out     Ease = "power2-out"
	Power2InOut   Ease = "power2-inout"
	BackOut       Ease = "back-out"        // overshoot 1.70158
	BackOutStrong Ease = "back-out-strong" // overshoot 3
)

// ParseEase validates a configured ease name.
func ParseEase(name string) (Ease, error) {
	switch e := Ease(name); e {
	case Linear, Power2Out, Power2InOut, BackOut, BackOutStrong:
		return e, nil
	default:
		return "", fmt.Errorf("unknown ease %q", name)
	}
}

// Func returns the curve for e. Unknown names fall back to linear.
func (e Ease) Func() ease.TweenFunc {
	switch e {
	case Power2Out:
		return ease.OutQuad
	case Power2InOut:
		return ease.InOutQuad
	case BackOut:
		return ease.OutBack
	case BackOutStrong:
		return backOut(3)
	default:
		return ease.Linear
	}
}

func backOut(s float32) ease.TweenFunc {
	return func(t, b, c, d float32) float32 {
		t = t/d - 1
		return c*(t*t*((s+1)*t+s)+1) + b
	}
}

// Target is an animatable vector. Implementations must be comparable, since
// targets identify running animations.
type Target interface {
	Value() math.Vec3
	SetValue(math.Vec3)
}

// Animator starts and cancels property animations.
type Animator interface {
	// AnimateTo tweens target from its current value to to. Starting an
	// animation replaces any animation running on the same target.
	// onComplete may be nil; it is not called for cancelled animations.
	AnimateTo(target Target, to math.Vec3, duration time.Duration, e Ease, onComplete func())
	// CancelAnimationsOn stops animations on target, leaving its value as is.
	CancelAnimationsOn(target Target)
}

type animation struct {
	target     Target
	from, to   math.Vec3
	tween      *gween.Tween
	onComplete func()
}

// Tweener is an Animator advanced explicitly by Update, once per frame, on
// the goroutine that owns the animated targets.
type Tweener struct {
	active []*animation
}

// NewTweener creates an idle tweener.
func NewTweener() *Tweener {
	return &Tweener{}
}

// AnimateTo implements Animator.
func (t *Tweener) AnimateTo(target Target, to math.Vec3, duration time.Duration, e Ease, onComplete func()) {
	t.CancelAnimationsOn(target)
	t.active = append(t.active, &animation{
		target:     target,
		from:       target.Value(),
		to:         to,
		tween:      gween.New(0, 1, float32(duration.Seconds()), e.Func()),
		onComplete: onComplete,
	})
}

// CancelAnimationsOn implements Animator.
func (t *Tweener) CancelAnimationsOn(target Target) {
	kept := t.active[:0]
	for _, a := range t.active {
		if a.target != target {
			kept = append(kept, a)
		}
	}
	clear(t.active[len(kept):])
	t.active = kept
}

// Update advances every animation by dt. Completion callbacks run after all
// animations have been stepped, so they may start new animations freely.
func (t *Tweener) Update(dt time.Duration) {
	if len(t.active) == 0 {
		return
	}

	step := float32(dt.Seconds())
	var done []*animation
	kept := make([]*animation, 0, len(t.active))
	for _, a := range t.active {
		progress, finished := a.tween.Update(step)
		if finished {
			a.target.SetValue(a.to)
			done = append(done, a)
			continue
		}
		a.target.SetValue(a.from.Lerp(a.to, progress))
		kept = append(kept, a)
	}
	t.active = kept

	for _, a := range done {
		if a.onComplete != nil {
			a.onComplete()
		}
	}
}

// Animating reports whether target has a running animation.
func (t *Tweener) Animating(target Target) bool {
	for _, a := range t.active {
		if a.target == target {
			return true
		}
	}
	return false
}

// Len returns the number of running animations.
func (t *Tweener) Len() int {
	return len(t.active)
}

// Clear drops every running animation without completing it.
func (t *Tweener) Clear() {
	t.active = nil
}
