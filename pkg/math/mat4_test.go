package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := Translate(1, 2, 3)
	id := Identity()
	result := m.Mul(id)

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTranslate(t *testing.T) {
	m := Translate(5, 10, 15)

	// Translation should be in column 4 (indices 12, 13, 14)
	if m[12] != 5 || m[13] != 10 || m[14] != 15 {
		t.Errorf("Translate: got (%f, %f, %f), want (5, 10, 15)", m[12], m[13], m[14])
	}
}

func TestScale(t *testing.T) {
	m := Scale(2, 3, 4)

	if m[0] != 2 || m[5] != 3 || m[10] != 4 {
		t.Errorf("Scale diagonal: got (%f, %f, %f), want (2, 3, 4)", m[0], m[5], m[10])
	}
}

func TestTransformPoint(t *testing.T) {
	// Translate by (10, 20, 30)
	m := Translate(10, 20, 30)
	p := [3]float32{1, 2, 3}
	result := m.TransformPoint(p)

	expected := [3]float32{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestTransformPointScale(t *testing.T) {
	m := Scale(2, 2, 2)
	p := [3]float32{1, 2, 3}
	result := m.TransformPoint(p)

	expected := [3]float32{2, 4, 6}
	if result != expected {
		t.Errorf("TransformPoint with scale: got %v, want %v", result, expected)
	}
}

func TestRotateY90(t *testing.T) {
	m := RotateY(float32(math.Pi / 2)) // 90 degrees
	p := [3]float32{1, 0, 0}           // Point on X axis
	result := m.TransformPoint(p)

	// After 90 degree Y rotation, (1,0,0) should become approximately (0,0,-1)
	if abs(result[0]) > 0.001 || abs(result[1]) > 0.001 || abs(result[2]+1) > 0.001 {
		t.Errorf("RotateY 90: got %v, want (0, 0, -1)", result)
	}
}

func TestInverse(t *testing.T) {
	m := Translate(1, 2, 3).Mul(RotateY(0.7)).Mul(Scale(2, 2, 2))
	got := m.Mul(m.Inverse())

	if !got.ApproxEqual(Identity(), 1e-5) {
		t.Errorf("M * M^-1 should be identity, got %v", got)
	}
}

func TestInverseSingular(t *testing.T) {
	var zero Mat4
	if zero.Inverse() != Identity() {
		t.Error("inverse of a singular matrix should fall back to identity")
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func TestTransposeAndAt(t *testing.T) {
	m := Translate(1, 2, 3)
	if m.At(0, 3) != 1 || m.At(2, 3) != 3 {
		t.Errorf("translation column = (%v, %v), want (1, 3)", m.At(0, 3), m.At(2, 3))
	}
	tr := m.Transpose()
	if tr.At(3, 0) != 1 || tr.At(3, 2) != 3 {
		t.Error("transpose should move translation into the bottom row")
	}
	if tr.Transpose() != m {
		t.Error("transposing twice should round-trip")
	}
}

func TestTransformDirIgnoresTranslation(t *testing.T) {
	m := Translate(5, 5, 5).Mul(Scale(2, 1, 1))
	got := m.TransformDir(Vec3{X: 1, Y: 1})
	if got != (Vec3{X: 2, Y: 1}) {
		t.Errorf("TransformDir = %v, want (2,1,0)", got)
	}
}

func TestInverseGeneral(t *testing.T) {
	m := Mat4{
		2, 0, 1, 0,
		1, 3, 0, 0,
		0, 1, 4, 0,
		1, 2, 3, 1,
	}
	if got := m.Inverse().Mul(m); !got.ApproxEqual(Identity(), 1e-5) {
		t.Errorf("M^-1 * M = %v, want identity", got)
	}
}
