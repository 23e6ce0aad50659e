// Package animation holds immutable keyframe clips and the pure
// interpolators that sample them.
//
// A Clip is built once against a skeleton during model construction and is
// read-only afterwards, so any number of animators may share it.
package animation

import (
	"errors"
	"fmt"
	gomath "math"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/knightfall/internal/engine/skeleton"
	"github.com/Faultbox/knightfall/internal/logger"
	"github.com/Faultbox/knightfall/pkg/math"
	"github.com/Faultbox/knightfall/pkg/scene"
)

// DefaultTicksPerSecond is the playback rate used when a clip declares 0.
const DefaultTicksPerSecond = 25.0

var (
	// ErrNilAnimation is returned when Build is given no source animation.
	ErrNilAnimation = errors.New("animation: nil source animation")
	// ErrInvalidTiming is returned for negative or non-finite duration or rate.
	ErrInvalidTiming = errors.New("animation: invalid clip timing")
)

// Clip is one immutable animation.
type Clip struct {
	Name           string
	Duration       float64 // ticks
	TicksPerSecond float64 // as declared; 0 means "use the default"
	GlobalInverse  math.Mat4

	channels []Channel
	byName   map[string]int
	byNode   []int32 // NodeID -> channel index, -1 when unanimated
}

// Build converts one scene animation into a clip bound to skel.
//
// Every animated node name is registered as a bone, so skel must not be
// frozen yet. Channels naming nodes the skeleton lacks are kept for name
// lookups but never drive the pose.
func Build(anim *scene.Animation, skel *skeleton.Skeleton) (*Clip, error) {
	if anim == nil {
		return nil, ErrNilAnimation
	}
	if !finiteNonNegative(anim.Duration) || !finiteNonNegative(anim.TicksPerSecond) {
		return nil, fmt.Errorf("%w: %q duration=%v tps=%v",
			ErrInvalidTiming, anim.Name, anim.Duration, anim.TicksPerSecond)
	}

	log := logger.Named("animation").With(zap.String("clip", anim.Name))

	c := &Clip{
		Name:           anim.Name,
		Duration:       anim.Duration,
		TicksPerSecond: anim.TicksPerSecond,
		GlobalInverse:  skel.GlobalInverse(),
		byName:         make(map[string]int, len(anim.Channels)),
		byNode:         make([]int32, skel.Len()),
	}
	for i := range c.byNode {
		c.byNode[i] = -1
	}

	for _, src := range anim.Channels {
		if src == nil {
			continue
		}
		if _, dup := c.byName[src.Node]; dup {
			log.Warn("duplicate channel ignored", zap.String("node", src.Node))
			continue
		}

		ch := Channel{
			Node:      src.Node,
			NodeID:    skeleton.InvalidNode,
			Positions: make([]VectorKey, len(src.Positions)),
			Rotations: make([]QuatKey, len(src.Rotations)),
			Scales:    make([]VectorKey, len(src.Scales)),
		}
		for i, k := range src.Positions {
			ch.Positions[i] = VectorKey{Time: k.Time, Value: k.Value}
		}
		for i, k := range src.Rotations {
			ch.Rotations[i] = QuatKey{Time: k.Time, Value: k.Value}
		}
		for i, k := range src.Scales {
			ch.Scales[i] = VectorKey{Time: k.Time, Value: k.Value}
		}
		sortKeys(&ch, log)

		if ch.KeyCount() == 0 {
			log.Warn("channel has no keys", zap.String("node", ch.Node))
		}

		skel.EnsureBone(ch.Node)

		idx := len(c.channels)
		if id, ok := skel.NodeByName(ch.Node); ok {
			ch.NodeID = id
		}
		for _, id := range skel.NodesNamed(ch.Node) {
			c.byNode[id] = int32(idx)
		}
		c.byName[ch.Node] = idx
		c.channels = append(c.channels, ch)
	}

	log.Debug("clip built",
		zap.Int("channels", len(c.channels)),
		zap.Float64("duration", c.Duration),
		zap.Float64("tps", c.TicksPerSecond))
	return c, nil
}

func sortKeys(ch *Channel, log *zap.Logger) {
	if !vectorKeysSorted(ch.Positions) {
		log.Warn("unsorted position keys", zap.String("node", ch.Node))
		sort.SliceStable(ch.Positions, func(a, b int) bool { return ch.Positions[a].Time < ch.Positions[b].Time })
	}
	if !quatKeysSorted(ch.Rotations) {
		log.Warn("unsorted rotation keys", zap.String("node", ch.Node))
		sort.SliceStable(ch.Rotations, func(a, b int) bool { return ch.Rotations[a].Time < ch.Rotations[b].Time })
	}
	if !vectorKeysSorted(ch.Scales) {
		log.Warn("unsorted scale keys", zap.String("node", ch.Node))
		sort.SliceStable(ch.Scales, func(a, b int) bool { return ch.Scales[a].Time < ch.Scales[b].Time })
	}
}

func finiteNonNegative(v float64) bool {
	return v >= 0 && !gomath.IsInf(v, 0) && !gomath.IsNaN(v)
}

// Rate returns the clip's ticks per second, or fallback when it declares 0.
func (c *Clip) Rate(fallback float64) float64 {
	if c.TicksPerSecond != 0 {
		return c.TicksPerSecond
	}
	return fallback
}

// Seconds returns the clip length in real time at its playback rate, using
// fallback ticks per second when the clip declares 0.
func (c *Clip) Seconds(fallback float64) float64 {
	return c.Duration / c.Rate(fallback)
}

// ChannelFor returns the channel driving node id, or nil.
func (c *Clip) ChannelFor(id skeleton.NodeID) *Channel {
	if id < 0 || int(id) >= len(c.byNode) {
		return nil
	}
	idx := c.byNode[id]
	if idx < 0 {
		return nil
	}
	return &c.channels[idx]
}

// Channel returns the channel for the named node, or nil.
func (c *Clip) Channel(node string) *Channel {
	idx, ok := c.byName[node]
	if !ok {
		return nil
	}
	return &c.channels[idx]
}

// Channels returns all channels in source order. The slice must not be modified.
func (c *Clip) Channels() []Channel {
	return c.channels
}
