package math

import "math"

// Quat represents a quaternion for 3D rotations.
// Components are stored as X, Y, Z, W where W is the scalar part.
type Quat struct {
	X, Y, Z, W float32
}

// QuatIdentity returns an identity quaternion (no rotation).
func QuatIdentity() Quat {
	return Quat{X: 0, Y: 0, Z: 0, W: 1}
}

// QuatFromAxisAngle creates a quaternion from axis-angle rotation.
// axis should be normalized, angle is in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	halfAngle := angle / 2
	s := float32(math.Sin(float64(halfAngle)))
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: float32(math.Cos(float64(halfAngle))),
	}
}

// Length returns the quaternion norm.
func (q Quat) Length() float32 {
	return float32(math.Sqrt(float64(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)))
}

// Normalize returns a normalized quaternion.
// Near-zero quaternions normalize to identity.
func (q Quat) Normalize() Quat {
	length := q.Length()
	if length < 0.0001 {
		return QuatIdentity()
	}
	invLen := 1.0 / length
	return Quat{
		X: q.X * invLen,
		Y: q.Y * invLen,
		Z: q.Z * invLen,
		W: q.W * invLen,
	}
}

// Neg returns -q, which encodes the same rotation.
func (q Quat) Neg() Quat {
	return Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
}

// Dot returns the dot product of two quaternions.
func (q Quat) Dot(other Quat) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Slerp performs spherical linear interpolation between two quaternions.
// t should be in range [0, 1]. The shorter arc is always taken.
func (q Quat) Slerp(other Quat, t float32) Quat {
	dot := q.Dot(other)

	// q and -q are the same rotation; flip to stay on the short arc.
	if dot < 0 {
		other = other.Neg()
		dot = -dot
	}

	// Nearly parallel: sin(theta) approaches zero, fall back to nlerp.
	if dot > 0.9995 {
		return q.Lerp(other, t)
	}

	theta0 := float32(math.Acos(float64(dot)))
	theta := theta0 * t
	sinTheta := float32(math.Sin(float64(theta)))
	sinTheta0 := float32(math.Sin(float64(theta0)))

	s0 := float32(math.Cos(float64(theta))) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return Quat{
		X: q.X*s0 + other.X*s1,
		Y: q.Y*s0 + other.Y*s1,
		Z: q.Z*s0 + other.Z*s1,
		W: q.W*s0 + other.W*s1,
	}
}

// Lerp performs normalized linear interpolation between two quaternions.
// Use Slerp for rotation interpolation; this is for simple blending.
func (q Quat) Lerp(other Quat, t float32) Quat {
	return Quat{
		X: q.X + t*(other.X-q.X),
		Y: q.Y + t*(other.Y-q.Y),
		Z: q.Z + t*(other.Z-q.Z),
		W: q.W + t*(other.W-q.W),
	}.Normalize()
}

// Mul multiplies two quaternions (combines rotations).
func (q Quat) Mul(other Quat) Quat {
	return Quat{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// Rotate applies the rotation to a vector.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

// ToMat4 converts the quaternion to a 4x4 rotation matrix.
func (q Quat) ToMat4() Mat4 {
	q = q.Normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W
	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W
	zz := q.Z * q.Z
	zw := q.Z * q.W

	return Mat4{
		1 - 2*(yy+zz), 2 * (xy + zw), 2 * (xz - yw), 0,
		2 * (xy - zw), 1 - 2*(xx+zz), 2 * (yz + xw), 0,
		2 * (xz + yw), 2 * (yz - xw), 1 - 2*(xx+yy), 0,
		0, 0, 0, 1,
	}
}

// QuatFromMat4 extracts the rotation of a pure rotation matrix (no scale).
func QuatFromMat4(m Mat4) Quat {
	// m[col*4+row]
	m00, m11, m22 := m[0], m[5], m[10]
	trace := m00 + m11 + m22

	var q Quat
	switch {
	case trace > 0:
		s := float32(math.Sqrt(float64(trace+1))) * 2
		q.W = 0.25 * s
		q.X = (m[6] - m[9]) / s
		q.Y = (m[8] - m[2]) / s
		q.Z = (m[1] - m[4]) / s
	case m00 > m11 && m00 > m22:
		s := float32(math.Sqrt(float64(1+m00-m11-m22))) * 2
		q.W = (m[6] - m[9]) / s
		q.X = 0.25 * s
		q.Y = (m[4] + m[1]) / s
		q.Z = (m[8] + m[2]) / s
	case m11 > m22:
		s := float32(math.Sqrt(float64(1+m11-m00-m22))) * 2
		q.W = (m[8] - m[2]) / s
		q.X = (m[4] + m[1]) / s
		q.Y = 0.25 * s
		q.Z = (m[9] + m[6]) / s
	default:
		s := float32(math.Sqrt(float64(1+m22-m00-m11))) * 2
		q.W = (m[1] - m[4]) / s
		q.X = (m[8] + m[2]) / s
		q.Y = (m[9] + m[6]) / s
		q.Z = 0.25 * s
	}
	return q.Normalize()
}
