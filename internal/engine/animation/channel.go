package animation

import (
	"sort"

	"github.com/Faultbox/knightfall/internal/engine/skeleton"
	"github.com/Faultbox/knightfall/pkg/math"
)

// VectorKey is a position or scale keyframe. Time is in ticks.
type VectorKey struct {
	Time  float64
	Value math.Vec3
}

// QuatKey is a rotation keyframe. Time is in ticks.
type QuatKey struct {
	Time  float64
	Value math.Quat
}

// Channel holds the keyframes that drive one node.
type Channel struct {
	Node      string
	NodeID    skeleton.NodeID // InvalidNode when the skeleton has no such node
	Positions []VectorKey
	Rotations []QuatKey
	Scales    []VectorKey
}

// Sample evaluates the channel at time t. Kinds without keys fall back to
// the matching component of bind.
func (c *Channel) Sample(t float64, bind math.TRS) math.TRS {
	out := bind
	if len(c.Positions) > 0 {
		out.Translation = InterpolatePosition(c.Positions, t)
	}
	if len(c.Rotations) > 0 {
		out.Rotation = InterpolateRotation(c.Rotations, t)
	}
	if len(c.Scales) > 0 {
		out.Scale = InterpolateScale(c.Scales, t)
	}
	return out
}

// Local returns the channel's local transform at t as translate*rotate*scale.
func (c *Channel) Local(t float64, bind math.TRS) math.Mat4 {
	return c.Sample(t, bind).Matrix()
}

// KeyCount returns the total number of keys across all kinds.
func (c *Channel) KeyCount() int {
	return len(c.Positions) + len(c.Rotations) + len(c.Scales)
}

// InterpolatePosition returns the position at time t.
// Times outside the key range clamp to the nearest key. No keys yields zero.
func InterpolatePosition(keys []VectorKey, t float64) math.Vec3 {
	if len(keys) == 0 {
		return math.Vec3{}
	}
	i, frac, ok := bracket(len(keys), func(i int) float64 { return keys[i].Time }, t)
	if !ok {
		return keys[i].Value
	}
	return keys[i].Value.Lerp(keys[i+1].Value, frac)
}

// InterpolateScale returns the scale at time t.
// Times outside the key range clamp to the nearest key. No keys yields one.
func InterpolateScale(keys []VectorKey, t float64) math.Vec3 {
	if len(keys) == 0 {
		return math.One
	}
	i, frac, ok := bracket(len(keys), func(i int) float64 { return keys[i].Time }, t)
	if !ok {
		return keys[i].Value
	}
	return keys[i].Value.Lerp(keys[i+1].Value, frac)
}

// InterpolateRotation returns the normalized rotation at time t using
// shortest-path slerp. No keys yields identity.
func InterpolateRotation(keys []QuatKey, t float64) math.Quat {
	if len(keys) == 0 {
		return math.QuatIdentity()
	}
	i, frac, ok := bracket(len(keys), func(i int) float64 { return keys[i].Time }, t)
	if !ok {
		return keys[i].Value.Normalize()
	}
	a := keys[i].Value.Normalize()
	b := keys[i+1].Value.Normalize()
	return a.Slerp(b, frac).Normalize()
}

// bracket finds the interval [i, i+1] containing t. When ok is false, t lies
// outside the keys (or on a zero-length interval) and i is the key to hold.
func bracket(n int, timeAt func(int) float64, t float64) (i int, frac float32, ok bool) {
	if n == 1 || t <= timeAt(0) {
		return 0, 0, false
	}
	if t >= timeAt(n-1) {
		return n - 1, 0, false
	}

	// First key strictly after t; t >= timeAt(0) so j >= 1.
	j := sort.Search(n, func(k int) bool { return timeAt(k) > t })
	i = j - 1

	span := timeAt(j) - timeAt(i)
	if span <= 0 {
		return i, 0, false
	}
	return i, float32((t - timeAt(i)) / span), true
}

func vectorKeysSorted(keys []VectorKey) bool {
	return sort.SliceIsSorted(keys, func(a, b int) bool { return keys[a].Time < keys[b].Time })
}

func quatKeysSorted(keys []QuatKey) bool {
	return sort.SliceIsSorted(keys, func(a, b int) bool { return keys[a].Time < keys[b].Time })
}
