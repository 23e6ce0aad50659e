package math

import (
	"testing"
)

func TestVec3Add(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{3, 4, 5}
	got := a.Add(b)
	want := Vec3{4, 6, 8}
	if got != want {
		t.Errorf("Vec3.Add() = %v, want %v", got, want)
	}
}

func TestVec3Length(t *testing.T) {
	v := Vec3{3, 4, 0}
	got := v.Length()
	want := float32(5)
	if got != want {
		t.Errorf("Vec3.Length() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 4, 12}
	l := v.Normalize().Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Lerp(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{10, 20, 30}

	got := a.Lerp(b, 0.5)
	want := Vec3{5, 10, 15}
	if !got.ApproxEqual(want, 0.001) {
		t.Errorf("Vec3.Lerp() = %v, want %v", got, want)
	}
}

func TestVec3MinMax(t *testing.T) {
	a := Vec3{1, 5, -2}
	b := Vec3{3, -1, 0}

	if got := a.Min(b); got != (Vec3{1, -1, -2}) {
		t.Errorf("Vec3.Min() = %v", got)
	}
	if got := a.Max(b); got != (Vec3{3, 5, 0}) {
		t.Errorf("Vec3.Max() = %v", got)
	}
}
