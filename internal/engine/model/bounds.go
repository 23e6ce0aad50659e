package model

import "github.com/Faultbox/knightfall/pkg/math"

// EmptyBounds returns an inverted box that any point will extend.
func EmptyBounds() Bounds {
	return Bounds{
		Min: math.Vec3{X: 1e10, Y: 1e10, Z: 1e10},
		Max: math.Vec3{X: -1e10, Y: -1e10, Z: -1e10},
	}
}

// Valid reports whether the box contains at least one point.
func (b Bounds) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// Size returns the box extent, or zero for an empty box.
func (b Bounds) Size() math.Vec3 {
	if !b.Valid() {
		return math.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the box midpoint.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Union returns the smallest box containing both.
func (b Bounds) Union(other Bounds) Bounds {
	if !other.Valid() {
		return b
	}
	if !b.Valid() {
		return other
	}
	return Bounds{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Contains reports whether p lies inside the box, edges included.
func (b Bounds) Contains(p math.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Transform returns the axis-aligned box enclosing b's corners under m.
func (b Bounds) Transform(m math.Mat4) Bounds {
	if !b.Valid() {
		return b
	}
	out := EmptyBounds()
	for i := 0; i < 8; i++ {
		corner := b.Min
		if i&1 != 0 {
			corner.X = b.Max.X
		}
		if i&2 != 0 {
			corner.Y = b.Max.Y
		}
		if i&4 != 0 {
			corner.Z = b.Max.Z
		}
		updateBounds(&out, m.TransformVec3(corner))
	}
	return out
}

func updateBounds(b *Bounds, p math.Vec3) {
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.Z < b.Min.Z {
		b.Min.Z = p.Z
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
	if p.Z > b.Max.Z {
		b.Max.Z = p.Z
	}
}
