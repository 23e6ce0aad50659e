package character

import "github.com/Faultbox/knightfall/pkg/math"

// MinSpeed is the speed below which a character is considered at rest.
const MinSpeed = 0.01

// UpdatePosition integrates velocity and acceleration over dt seconds and
// applies friction. Characters never sink below the floor at y=0.
func (c *Character) UpdatePosition(dt float32) {
	if dt <= 0 {
		return
	}

	if c.Velocity.Length() > MinSpeed {
		c.Position = c.Position.Add(c.Velocity.Scale(dt))
		if c.Position.Y < 0 {
			c.Position.Y = 0
		}
	}

	c.Velocity = c.Velocity.Add(c.Acceleration.Scale(dt))

	// Damping overshoots when friction*dt exceeds 1; stop instead of reversing.
	damp := 1 - c.Friction*dt
	if damp < 0 {
		damp = 0
	}
	c.Velocity = c.Velocity.Scale(damp)
}

// Push adds an instantaneous change in velocity, e.g. knockback from a hit.
func (c *Character) Push(impulse math.Vec3) {
	c.Velocity = c.Velocity.Add(impulse)
}

// Moving reports whether the character has noticeable velocity.
func (c *Character) Moving() bool {
	return c.Velocity.Length() > MinSpeed
}
