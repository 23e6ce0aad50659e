// Package animator evaluates animation clips into skinning poses.
//
// An Animator is per-instance playback state bound to one skeleton. Clips are
// shared read-only; an Animator itself must not be used from two goroutines
// at once.
package animator

import (
	"fmt"
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/knightfall/internal/engine/animation"
	"github.com/Faultbox/knightfall/internal/engine/skeleton"
	"github.com/Faultbox/knightfall/internal/logger"
	"github.com/Faultbox/knightfall/pkg/math"
)

// MaxBones is the capacity of the skinning matrix array.
const MaxBones = 100

// DefaultFrameEpsilon keeps a held forward pose just inside the last key, in ticks.
const DefaultFrameEpsilon = 0.1

// PlayMode selects how elapsed time maps onto clip time.
type PlayMode int

const (
	Forward PlayMode = iota
	Backward
	PingPong // forward then mirrored back over twice the duration
)

func (m PlayMode) String() string {
	switch m {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case PingPong:
		return "pingpong"
	default:
		return fmt.Sprintf("PlayMode(%d)", int(m))
	}
}

// ParsePlayMode accepts the names printed by PlayMode.String.
func ParsePlayMode(s string) (PlayMode, error) {
	switch s {
	case "forward", "":
		return Forward, nil
	case "backward":
		return Backward, nil
	case "pingpong", "ping-pong":
		return PingPong, nil
	}
	return Forward, fmt.Errorf("unknown play mode %q", s)
}

// State is the playback state.
type State int

const (
	Stopped State = iota
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Option configures an Animator.
type Option func(*Animator)

// WithTicksPerSecond sets the rate used for clips that declare none.
func WithTicksPerSecond(tps float64) Option {
	return func(a *Animator) {
		if tps > 0 {
			a.tps = tps
		}
	}
}

// WithFrameEpsilon sets how far before the end a held forward pose samples.
func WithFrameEpsilon(eps float64) Option {
	return func(a *Animator) {
		if eps >= 0 {
			a.epsilon = eps
		}
	}
}

// Animator is the playback state and pose output for one instance.
type Animator struct {
	skel *skeleton.Skeleton

	clip           *animation.Clip
	mode           PlayMode
	clearAfterDone bool
	elapsed        float64 // ticks since Play
	duration       float64 // ticks; doubled for PingPong

	tps     float64
	epsilon float64

	bones  [MaxBones]math.Mat4
	world  []math.Mat4
	locals []math.TRS
	posed  bool

	fade *crossfade
	log  *zap.Logger
}

// New creates an animator for skel with no clip bound.
func New(skel *skeleton.Skeleton, opts ...Option) *Animator {
	a := &Animator{
		skel:    skel,
		tps:     animation.DefaultTicksPerSecond,
		epsilon: DefaultFrameEpsilon,
		world:   make([]math.Mat4, skel.Len()),
		locals:  make([]math.TRS, skel.Len()),
		log:     logger.Named("animator"),
	}
	for i := range a.bones {
		a.bones[i] = math.Identity()
	}
	for i, n := range skel.Nodes() {
		a.locals[i] = n.Bind
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Play binds clip and restarts time. A nil clip stops playback.
func (a *Animator) Play(clip *animation.Clip, mode PlayMode, clearAfterDone bool) {
	a.fade = nil
	a.bind(clip, mode, clearAfterDone)
}

func (a *Animator) bind(clip *animation.Clip, mode PlayMode, clearAfterDone bool) {
	a.clip = clip
	a.mode = mode
	a.clearAfterDone = clearAfterDone
	a.elapsed = 0
	a.duration = 0
	if clip == nil {
		return
	}
	a.duration = clip.Duration
	if mode == PingPong {
		a.duration = 2 * clip.Duration
	}
	a.log.Debug("play",
		zap.String("clip", clip.Name),
		zap.Stringer("mode", mode),
		zap.Bool("clear", clearAfterDone))
}

// Stop unbinds the current clip. The last pose is kept.
func (a *Animator) Stop() {
	a.clip = nil
	a.fade = nil
}

// Advance moves the clock by dt seconds and recomputes the pose.
//
// With clearAfterDone set, passing the configured duration unbinds the clip
// without evaluating. Otherwise playback holds past the end.
func (a *Animator) Advance(dt float64) {
	if a.clip == nil {
		return
	}

	a.elapsed += dt * a.clip.Rate(a.tps)

	if a.clearAfterDone && a.elapsed > a.duration {
		a.log.Debug("clip done, clearing", zap.String("clip", a.clip.Name))
		a.clip = nil
		a.fade = nil
		return
	}

	weight := float32(1)
	if a.fade != nil {
		weight = a.fade.advance(dt)
	}
	a.evaluate(a.Frame(), weight)
	if a.fade != nil && a.fade.done {
		a.fade = nil
	}
}

// Frame returns the clip time, in ticks, that the current elapsed time maps to.
func (a *Animator) Frame() float64 {
	if a.clip == nil {
		return 0
	}

	if a.mode == PingPong {
		half := a.duration / 2
		// Past twice the duration the pose holds at the start.
		return gomath.Max(0, half-gomath.Abs(a.elapsed-half))
	}

	frame := a.elapsed
	if !a.clearAfterDone && a.elapsed > a.duration {
		frame = gomath.Max(0, a.duration-a.epsilon)
	}
	if a.mode == Backward {
		frame = a.duration - frame
	}
	return frame
}

// IsOver reports whether elapsed time has reached the configured duration.
func (a *Animator) IsOver() bool {
	return a.elapsed >= a.duration
}

// State reports the playback state.
func (a *Animator) State() State {
	switch {
	case a.clip == nil:
		return Stopped
	case a.IsOver():
		return Finished
	default:
		return Playing
	}
}

// Clip returns the bound clip, or nil.
func (a *Animator) Clip() *animation.Clip { return a.clip }

// Mode returns the current play mode.
func (a *Animator) Mode() PlayMode { return a.mode }

// Elapsed returns ticks since the last Play.
func (a *Animator) Elapsed() float64 { return a.elapsed }

// Duration returns the configured duration in ticks.
func (a *Animator) Duration() float64 { return a.duration }

// Skeleton returns the skeleton the animator poses.
func (a *Animator) Skeleton() *skeleton.Skeleton { return a.skel }

// BoneMatrices returns the skinning matrices indexed by bone id.
// Slots never written hold identity.
func (a *Animator) BoneMatrices() *[MaxBones]math.Mat4 {
	return &a.bones
}

// BoneMatrix returns the skinning matrix for one bone.
func (a *Animator) BoneMatrix(id skeleton.BoneID) (math.Mat4, bool) {
	if id < 0 || int(id) >= MaxBones {
		return math.Mat4{}, false
	}
	return a.bones[id], true
}

// WorldTransform returns the last computed world transform of the named node.
// Duplicate names resolve to the last node in traversal order.
func (a *Animator) WorldTransform(name string) (math.Mat4, bool) {
	id, ok := a.skel.NodeByName(name)
	if !ok {
		return math.Mat4{}, false
	}
	return a.WorldTransformOf(id)
}

// WorldTransformOf is WorldTransform by node id.
func (a *Animator) WorldTransformOf(id skeleton.NodeID) (math.Mat4, bool) {
	if !a.posed || id < 0 || int(id) >= len(a.world) {
		return math.Mat4{}, false
	}
	return a.world[id], true
}

// evaluate poses the whole skeleton at frame.
func (a *Animator) evaluate(frame float64, weight float32) {
	a.walk(a.skel.Root(), frame, weight)
	a.posed = true
}

// walk poses the subtree rooted at root. The arena is in preorder, so the
// subtree is a contiguous range and every parent is posed before its
// children. InvalidNode is a no-op.
func (a *Animator) walk(root skeleton.NodeID, frame float64, weight float32) {
	if root == skeleton.InvalidNode || a.clip == nil {
		return
	}

	nodes := a.skel.Nodes()
	bones := a.skel.Bones()
	globalInverse := a.clip.GlobalInverse
	end := int(root) + a.skel.SubtreeSize(root)

	for i := int(root); i < end; i++ {
		n := &nodes[i]
		id := skeleton.NodeID(i)

		local := n.Local
		if ch := a.clip.ChannelFor(id); ch != nil {
			a.locals[i] = ch.Sample(frame, n.Bind)
			local = a.locals[i].Matrix()
		} else {
			a.locals[i] = n.Bind
		}
		if a.fade != nil && weight < 1 {
			local = a.fade.from[i].Blend(a.locals[i], weight).Matrix()
		}

		global := local
		if n.Parent != skeleton.InvalidNode {
			global = a.world[n.Parent].Mul(local)
		}
		a.world[i] = global

		if b := a.skel.BoneOfNode(id); b != skeleton.InvalidBone && int(b) < MaxBones {
			a.bones[b] = globalInverse.Mul(global).Mul(bones[b].Offset)
		}
	}
}
