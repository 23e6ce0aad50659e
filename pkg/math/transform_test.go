package math

import (
	"math"
	"testing"
)

func TestComposeMatchesProduct(t *testing.T) {
	tr := Vec3{1, -2, 3}
	rot := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, 0.9)
	sc := Vec3{2, 0.5, 1.5}

	want := TranslateVec(tr).Mul(rot.ToMat4()).Mul(ScaleVec(sc))
	got := Compose(tr, rot, sc)

	if !got.ApproxEqual(want, 1e-6) {
		t.Errorf("Compose = %v, want %v", got, want)
	}
}

func TestDecompose(t *testing.T) {
	tests := []struct {
		name string
		trs  TRS
	}{
		{"identity", IdentityTRS()},
		{"translate only", TRS{Translation: Vec3{4, 5, 6}, Rotation: QuatIdentity(), Scale: One}},
		{"rotate y", TRS{Rotation: QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, float32(math.Pi/2)), Scale: One}},
		{"full", TRS{
			Translation: Vec3{-1, 2, 0.5},
			Rotation:    QuatFromAxisAngle(Vec3{X: 0, Y: 0.6, Z: 0.8}, 1.1),
			Scale:       Vec3{2, 3, 4},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.trs.Matrix().Decompose()

			if !got.Translation.ApproxEqual(tt.trs.Translation, 1e-5) {
				t.Errorf("translation = %v, want %v", got.Translation, tt.trs.Translation)
			}
			if !got.Scale.ApproxEqual(tt.trs.Scale, 1e-4) {
				t.Errorf("scale = %v, want %v", got.Scale, tt.trs.Scale)
			}
			if math.Abs(float64(got.Rotation.Dot(tt.trs.Rotation))) < 0.9999 {
				t.Errorf("rotation = %v, want %v", got.Rotation, tt.trs.Rotation)
			}
		})
	}
}

func TestTRSBlendEndpoints(t *testing.T) {
	a := IdentityTRS()
	b := TRS{
		Translation: Vec3{10, 0, 0},
		Rotation:    QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, 1),
		Scale:       Vec3{2, 2, 2},
	}

	if got := a.Blend(b, 0).Matrix(); !got.ApproxEqual(a.Matrix(), 1e-5) {
		t.Errorf("Blend(0) = %v, want %v", got, a.Matrix())
	}
	if got := a.Blend(b, 1).Matrix(); !got.ApproxEqual(b.Matrix(), 1e-5) {
		t.Errorf("Blend(1) = %v, want %v", got, b.Matrix())
	}
}
