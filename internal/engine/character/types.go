// Package character wraps an animated model with a world transform, simple
// physics and weapon tracking for hit-box placement.
package character

import (
	"go.uber.org/zap"

	"github.com/Faultbox/knightfall/internal/engine/animator"
	"github.com/Faultbox/knightfall/internal/engine/model"
	"github.com/Faultbox/knightfall/pkg/math"
)

// DefaultFriction is the velocity damping per second.
const DefaultFriction = 8.0

// Character is one animated actor in the arena.
type Character struct {
	Name     string
	Model    *model.Model
	Animator *animator.Animator

	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3

	Velocity     math.Vec3
	Acceleration math.Vec3
	Friction     float32

	// WeaponNode names the node whose world transform places the weapon hit-box.
	WeaponNode string

	crossfade  float32
	weaponSize math.Vec3
	log        *zap.Logger
}

// Options configures a new Character.
type Options struct {
	WeaponNode string
	Position   math.Vec3
	Rotation   math.Quat // zero value means identity
	Scale      float32   // uniform; 0 means 1
	// CrossfadeSeconds blends between clips on Play; 0 switches instantly.
	CrossfadeSeconds float32
}
