package animator

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/Faultbox/knightfall/internal/engine/animation"
	"github.com/Faultbox/knightfall/pkg/math"
)

// crossfade blends from a snapshot of local transforms towards the newly
// bound clip.
type crossfade struct {
	from   []math.TRS
	tween  *gween.Tween
	weight float32
	done   bool
}

func (f *crossfade) advance(dt float64) float32 {
	w, finished := f.tween.Update(float32(dt))
	f.weight = w
	if finished {
		f.weight = 1
		f.done = true
	}
	return f.weight
}

// CrossFade switches to clip like Play, easing from the current pose over
// seconds of real time. seconds <= 0 or an unposed animator switches instantly.
func (a *Animator) CrossFade(clip *animation.Clip, mode PlayMode, clearAfterDone bool, seconds float32) {
	if seconds <= 0 || clip == nil || !a.posed {
		a.Play(clip, mode, clearAfterDone)
		return
	}

	from := make([]math.TRS, len(a.locals))
	if a.fade != nil {
		// Mid-fade: start from what is currently on screen.
		for i := range from {
			from[i] = a.fade.from[i].Blend(a.locals[i], a.fade.weight)
		}
	} else {
		copy(from, a.locals)
	}

	a.bind(clip, mode, clearAfterDone)
	a.fade = &crossfade{
		from:  from,
		tween: gween.New(0, 1, seconds, ease.InOutQuad),
	}
}

// Blending reports whether a crossfade is in progress.
func (a *Animator) Blending() bool {
	return a.fade != nil
}

// BlendProgress returns the crossfade weight in [0, 1]; 1 when not blending.
func (a *Animator) BlendProgress() float32 {
	if a.fade == nil {
		return 1
	}
	return a.fade.weight
}
