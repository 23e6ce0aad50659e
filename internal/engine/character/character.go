package character

import (
	"go.uber.org/zap"

	"github.com/Faultbox/knightfall/internal/engine/animator"
	"github.com/Faultbox/knightfall/internal/engine/model"
	"github.com/Faultbox/knightfall/internal/logger"
	"github.com/Faultbox/knightfall/pkg/math"
)

// New places a model in the world with its own animator.
func New(name string, m *model.Model, opts Options) *Character {
	c := &Character{
		Name:       name,
		Model:      m,
		Animator:   m.NewAnimator(),
		Position:   opts.Position,
		Rotation:   opts.Rotation,
		Scale:      math.One,
		Friction:   DefaultFriction,
		WeaponNode: opts.WeaponNode,
		crossfade:  opts.CrossfadeSeconds,
		log:        logger.Named("character").With(zap.String("character", name)),
	}
	if c.Rotation == (math.Quat{}) {
		c.Rotation = math.QuatIdentity()
	}
	if opts.Scale != 0 {
		c.Scale = math.Vec3{X: opts.Scale, Y: opts.Scale, Z: opts.Scale}
	}

	if c.WeaponNode != "" {
		if b, ok := m.SubtreeBounds(c.WeaponNode); ok {
			c.weaponSize = b.Size()
		} else {
			c.log.Warn("weapon node has no geometry", zap.String("node", c.WeaponNode))
		}
	}
	return c
}

// Play starts the named clip. An unknown name logs a warning, returns false
// and leaves the current playback untouched.
func (c *Character) Play(name string, mode animator.PlayMode, clearAfterDone bool) bool {
	clip, ok := c.Model.Clip(name)
	if !ok {
		c.log.Warn("animation not found", zap.String("clip", name))
		return false
	}
	c.log.Debug("playing animation", zap.String("clip", name), zap.Stringer("mode", mode))
	c.Animator.CrossFade(clip, mode, clearAfterDone, c.crossfade)
	return true
}

// Update integrates movement and advances the animation by dt seconds.
func (c *Character) Update(dt float64) {
	c.UpdatePosition(float32(dt))
	c.Animator.Advance(dt)
}

// Finished reports whether the current clip has run its course or nothing
// is playing.
func (c *Character) Finished() bool {
	return c.Animator.State() != animator.Playing
}

// CurrentClip returns the bound clip name, or "".
func (c *Character) CurrentClip() string {
	if clip := c.Animator.Clip(); clip != nil {
		return clip.Name
	}
	return ""
}

// ModelMatrix returns translate * rotate * scale for the character.
func (c *Character) ModelMatrix() math.Mat4 {
	return math.Compose(c.Position, c.Rotation, c.Scale)
}

// BoneMatrices returns the skinning matrices for upload.
func (c *Character) BoneMatrices() *[animator.MaxBones]math.Mat4 {
	return c.Animator.BoneMatrices()
}

// WeaponTransform returns the weapon node's world transform, including the
// character's own placement.
func (c *Character) WeaponTransform() (math.Mat4, bool) {
	if c.WeaponNode == "" {
		return math.Mat4{}, false
	}
	local, ok := c.Animator.WorldTransform(c.WeaponNode)
	if !ok {
		return math.Mat4{}, false
	}
	return c.ModelMatrix().Mul(local), true
}

// WeaponPosition returns the world position of the weapon node.
func (c *Character) WeaponPosition() (math.Vec3, bool) {
	m, ok := c.WeaponTransform()
	if !ok {
		return math.Vec3{}, false
	}
	return m.Translation(), true
}

// Size returns the bind-pose extent scaled into world units.
func (c *Character) Size() math.Vec3 {
	return c.Model.Bounds.Size().Mul(c.Scale)
}

// WeaponSize returns the weapon geometry extent scaled into world units.
func (c *Character) WeaponSize() math.Vec3 {
	return c.weaponSize.Mul(c.Scale)
}

// Hitbox returns the body box in world space: centered on the position in
// X and Z, standing on it in Y.
func (c *Character) Hitbox() model.Bounds {
	size := c.Size()
	half := size.Scale(0.5)
	return model.Bounds{
		Min: c.Position.Add(math.Vec3{X: -half.X, Y: 0, Z: -half.Z}),
		Max: c.Position.Add(math.Vec3{X: half.X, Y: size.Y, Z: half.Z}),
	}
}

// WeaponHitbox returns the weapon box in world space, centered on the
// weapon node.
func (c *Character) WeaponHitbox() (model.Bounds, bool) {
	pos, ok := c.WeaponPosition()
	if !ok {
		return model.Bounds{}, false
	}
	half := c.WeaponSize().Scale(0.5)
	return model.Bounds{Min: pos.Sub(half), Max: pos.Add(half)}, true
}
