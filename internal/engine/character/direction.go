package character

import (
	gomath "math"

	"github.com/Faultbox/knightfall/pkg/math"
)

// Forward is the model-space facing direction.
var Forward = math.Vec3{X: 0, Y: 0, Z: 1}

// Front returns the world-space facing direction.
func (c *Character) Front() math.Vec3 {
	return c.Rotation.Rotate(Forward).Normalize()
}

// FaceTowards turns the character about Y so that Front points at target
// in the XZ plane. A target directly above or below leaves rotation as is.
func (c *Character) FaceTowards(target math.Vec3) {
	dx := target.X - c.Position.X
	dz := target.Z - c.Position.Z
	if dx*dx+dz*dz < 1e-8 {
		return
	}
	c.Rotation = math.QuatFromAxisAngle(math.Vec3{Y: 1}, YawTo(dx, dz))
}

// YawTo returns the rotation about Y, in radians, that turns +Z towards
// (dx, dz).
func YawTo(dx, dz float32) float32 {
	return float32(gomath.Atan2(float64(dx), float64(dz)))
}
