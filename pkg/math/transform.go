package math

// TRS is a decomposed affine transform: translation, rotation, scale.
type TRS struct {
	Translation Vec3
	Rotation    Quat
	Scale       Vec3
}

// IdentityTRS returns the transform that leaves points unchanged.
func IdentityTRS() TRS {
	return TRS{Rotation: QuatIdentity(), Scale: One}
}

// Matrix composes translate * rotate * scale.
func (t TRS) Matrix() Mat4 {
	return Compose(t.Translation, t.Rotation, t.Scale)
}

// Blend interpolates two transforms; rotation uses slerp.
func (t TRS) Blend(other TRS, w float32) TRS {
	return TRS{
		Translation: t.Translation.Lerp(other.Translation, w),
		Rotation:    t.Rotation.Normalize().Slerp(other.Rotation.Normalize(), w).Normalize(),
		Scale:       t.Scale.Lerp(other.Scale, w),
	}
}

// Compose builds translate(t) * rotate(r) * scale(s) without intermediate
// matrix products.
func Compose(t Vec3, r Quat, s Vec3) Mat4 {
	m := r.ToMat4()
	m[0], m[1], m[2] = m[0]*s.X, m[1]*s.X, m[2]*s.X
	m[4], m[5], m[6] = m[4]*s.Y, m[5]*s.Y, m[6]*s.Y
	m[8], m[9], m[10] = m[8]*s.Z, m[9]*s.Z, m[10]*s.Z
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// TranslateVec returns a translation matrix for v.
func TranslateVec(v Vec3) Mat4 {
	return Translate(v.X, v.Y, v.Z)
}

// ScaleVec returns a scale matrix for v.
func ScaleVec(v Vec3) Mat4 {
	return Scale(v.X, v.Y, v.Z)
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// Decompose splits an affine matrix into translation, rotation and scale.
// Shear is discarded. A negative determinant is folded into the X scale.
func (m Mat4) Decompose() TRS {
	sx := Vec3{m[0], m[1], m[2]}.Length()
	sy := Vec3{m[4], m[5], m[6]}.Length()
	sz := Vec3{m[8], m[9], m[10]}.Length()

	if m.det3() < 0 {
		sx = -sx
	}

	r := Identity()
	if sx != 0 {
		r[0], r[1], r[2] = m[0]/sx, m[1]/sx, m[2]/sx
	}
	if sy != 0 {
		r[4], r[5], r[6] = m[4]/sy, m[5]/sy, m[6]/sy
	}
	if sz != 0 {
		r[8], r[9], r[10] = m[8]/sz, m[9]/sz, m[10]/sz
	}

	return TRS{
		Translation: m.Translation(),
		Rotation:    QuatFromMat4(r),
		Scale:       Vec3{sx, sy, sz},
	}
}

func (m Mat4) det3() float32 {
	return m[0]*(m[5]*m[10]-m[9]*m[6]) -
		m[4]*(m[1]*m[10]-m[9]*m[2]) +
		m[8]*(m[1]*m[6]-m[5]*m[2])
}

// IsIdentity reports whether m is exactly the identity matrix.
func (m Mat4) IsIdentity() bool {
	return m == Identity()
}

// ApproxEqual reports whether every element differs by at most eps.
func (m Mat4) ApproxEqual(other Mat4, eps float32) bool {
	for i := range m {
		if absf(m[i]-other[i]) > eps {
			return false
		}
	}
	return true
}
