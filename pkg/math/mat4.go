package math

import "math"

// Mat4 is a 4x4 matrix stored column by column: element (row, col) lives at
// index col*4+row, and the translation occupies indices 12..14.
type Mat4 [16]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// Scale returns a scale matrix.
func Scale(x, y, z float32) Mat4 {
	var m Mat4
	m[0], m[5], m[10], m[15] = x, y, z, 1
	return m
}

// RotateY returns a rotation of angle radians about +Y.
func RotateY(angle float32) Mat4 {
	sin, cos := math.Sincos(float64(angle))
	s, c := float32(sin), float32(cos)

	m := Identity()
	m[0], m[2] = c, -s
	m[8], m[10] = s, c
	return m
}

// At returns the element in the given row and column.
func (m Mat4) At(row, col int) float32 {
	return m[col*4+row]
}

// Mul returns m * other; other is applied first.
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		b0, b1, b2, b3 := other[c*4], other[c*4+1], other[c*4+2], other[c*4+3]
		for r := 0; r < 4; r++ {
			out[c*4+r] = m[r]*b0 + m[4+r]*b1 + m[8+r]*b2 + m[12+r]*b3
		}
	}
	return out
}

// Transpose swaps rows and columns.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[r*4+c] = m[c*4+r]
		}
	}
	return out
}

// TransformPoint applies m to a point (w = 1), dividing by the resulting w
// when it is neither 0 nor 1.
func (m Mat4) TransformPoint(p [3]float32) [3]float32 {
	var out [4]float32
	for r := 0; r < 4; r++ {
		out[r] = m[r]*p[0] + m[4+r]*p[1] + m[8+r]*p[2] + m[12+r]
	}
	if w := out[3]; w != 0 && w != 1 {
		return [3]float32{out[0] / w, out[1] / w, out[2] / w}
	}
	return [3]float32{out[0], out[1], out[2]}
}

// TransformVec3 applies m to a point.
func (m Mat4) TransformVec3(v Vec3) Vec3 {
	p := m.TransformPoint(v.Array())
	return Vec3{p[0], p[1], p[2]}
}

// TransformDir applies m to a direction (w = 0), ignoring translation.
func (m Mat4) TransformDir(v Vec3) Vec3 {
	return Vec3{
		X: m[0]*v.X + m[4]*v.Y + m[8]*v.Z,
		Y: m[1]*v.X + m[5]*v.Y + m[9]*v.Z,
		Z: m[2]*v.X + m[6]*v.Y + m[10]*v.Z,
	}
}

// Inverse returns the inverse of m, or identity when m is singular.
func (m Mat4) Inverse() Mat4 {
	// 2x2 minors of the first two and last two columns.
	s0 := m[0]*m[5] - m[1]*m[4]
	s1 := m[0]*m[6] - m[2]*m[4]
	s2 := m[0]*m[7] - m[3]*m[4]
	s3 := m[1]*m[6] - m[2]*m[5]
	s4 := m[1]*m[7] - m[3]*m[5]
	s5 := m[2]*m[7] - m[3]*m[6]

	c5 := m[10]*m[15] - m[11]*m[14]
	c4 := m[9]*m[15] - m[11]*m[13]
	c3 := m[9]*m[14] - m[10]*m[13]
	c2 := m[8]*m[15] - m[11]*m[12]
	c1 := m[8]*m[14] - m[10]*m[12]
	c0 := m[8]*m[13] - m[9]*m[12]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return Identity()
	}
	inv := 1 / det

	return Mat4{
		(m[5]*c5 - m[6]*c4 + m[7]*c3) * inv,
		(-m[1]*c5 + m[2]*c4 - m[3]*c3) * inv,
		(m[13]*s5 - m[14]*s4 + m[15]*s3) * inv,
		(-m[9]*s5 + m[10]*s4 - m[11]*s3) * inv,

		(-m[4]*c5 + m[6]*c2 - m[7]*c1) * inv,
		(m[0]*c5 - m[2]*c2 + m[3]*c1) * inv,
		(-m[12]*s5 + m[14]*s2 - m[15]*s1) * inv,
		(m[8]*s5 - m[10]*s2 + m[11]*s1) * inv,

		(m[4]*c4 - m[5]*c2 + m[7]*c0) * inv,
		(-m[0]*c4 + m[1]*c2 - m[3]*c0) * inv,
		(m[12]*s4 - m[13]*s2 + m[15]*s0) * inv,
		(-m[8]*s4 + m[9]*s2 - m[11]*s0) * inv,

		(-m[4]*c3 + m[5]*c1 - m[6]*c0) * inv,
		(m[0]*c3 - m[1]*c1 + m[2]*c0) * inv,
		(-m[12]*s3 + m[13]*s1 - m[14]*s0) * inv,
		(m[8]*s3 - m[9]*s1 + m[10]*s0) * inv,
	}
}
