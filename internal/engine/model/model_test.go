package model

import (
	"errors"
	"testing"

	"github.com/Faultbox/knightfall/internal/engine/animator"
	"github.com/Faultbox/knightfall/internal/engine/skeleton"
	"github.com/Faultbox/knightfall/pkg/math"
	"github.com/Faultbox/knightfall/pkg/scene"
)

// knight builds a body skinned to hips/arm and a rigid nail mesh on the hand.
func knight() *scene.Scene {
	nail := &scene.Node{Name: "nail", Transform: math.Translate(0, 0, 1), Meshes: []int{1}}
	hand := &scene.Node{Name: "hand", Transform: math.Translate(1, 0, 0), Children: []*scene.Node{nail}}
	arm := &scene.Node{Name: "arm", Transform: math.Translate(0, 1, 0), Children: []*scene.Node{hand}}
	body := &scene.Node{Name: "body", Transform: math.Identity(), Meshes: []int{0}}
	root := &scene.Node{Name: "Scene", Transform: math.Identity(), Children: []*scene.Node{body, arm}}

	return &scene.Scene{
		Root: root,
		Meshes: []*scene.Mesh{
			{
				Name:        "body",
				VertexCount: 3,
				Min:         math.Vec3{X: -1, Y: 0, Z: -1},
				Max:         math.Vec3{X: 1, Y: 2, Z: 1},
				Bones: []*scene.Bone{
					{Name: "Scene", Offset: math.Identity(), Weights: []scene.VertexWeight{
						{Vertex: 0, Weight: 1}, {Vertex: 1, Weight: 0.5}, {Vertex: 2, Weight: 0.2},
					}},
					{Name: "arm", Offset: math.Translate(0, -1, 0), Weights: []scene.VertexWeight{
						{Vertex: 1, Weight: 0.5}, {Vertex: 2, Weight: 0.2}, {Vertex: 9, Weight: 1},
					}},
					{Name: "hand", Offset: math.Translate(-1, -1, 0), Weights: []scene.VertexWeight{
						{Vertex: 2, Weight: 0.2}, {Vertex: 0, Weight: 0},
					}},
					{Name: "nail", Offset: math.Identity(), Weights: []scene.VertexWeight{
						{Vertex: 2, Weight: 0.2},
					}},
					{Name: "body", Offset: math.Identity(), Weights: []scene.VertexWeight{
						{Vertex: 2, Weight: 0.2},
					}},
				},
			},
			{
				Name: "nail",
				Min:  math.Vec3{X: -0.1, Y: -0.1, Z: 0},
				Max:  math.Vec3{X: 0.1, Y: 0.1, Z: 2},
			},
		},
		Animations: []*scene.Animation{{
			Name:           "slash",
			Duration:       20,
			TicksPerSecond: 10,
			Channels: []*scene.NodeAnim{{
				Node:      "arm",
				Rotations: []scene.QuatKey{{Time: 0, Value: math.QuatIdentity()}},
			}},
		}},
	}
}

func TestLoad(t *testing.T) {
	m, err := Load("knight", knight(), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if m.Skeleton.Len() != 5 {
		t.Errorf("nodes = %d, want 5", m.Skeleton.Len())
	}
	if !m.Skeleton.Frozen() {
		t.Error("skeleton should be frozen after Load")
	}
	if _, ok := m.Clip("slash"); !ok {
		t.Error("slash clip missing")
	}
	if len(m.Meshes) != 2 {
		t.Fatalf("meshes = %d, want 2", len(m.Meshes))
	}

	nail := m.Meshes[1]
	want, _ := m.Skeleton.NodeByName("nail")
	if nail.Node != want {
		t.Errorf("nail mesh bound to node %d, want %d", nail.Node, want)
	}
	if nail.Skinned() {
		t.Error("nail mesh has no bones and should be rigid")
	}
}

func TestInfluences(t *testing.T) {
	m, err := Load("knight", knight(), Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	body := m.Meshes[0]
	if !body.Skinned() || len(body.Influences) != 3 {
		t.Fatalf("body influences = %d, want 3", len(body.Influences))
	}

	// Vertex 0: zero weight from hand is skipped.
	v0 := body.Influences[0]
	if v0.Bones[0] != 0 || v0.Weights[0] != 1 || v0.Bones[1] != skeleton.InvalidBone {
		t.Errorf("vertex 0 = %+v", v0)
	}

	// Vertex 2 receives five weights; only the first four fit.
	v2 := body.Influences[2]
	for i := 0; i < MaxInfluences; i++ {
		if v2.Bones[i] != skeleton.BoneID(i) {
			t.Errorf("vertex 2 slot %d = bone %d, want %d", i, v2.Bones[i], i)
		}
	}
	if sum := v2.WeightSum(); sum < 0.79 || sum > 0.81 {
		t.Errorf("vertex 2 weight sum = %v, want 0.8", sum)
	}

	v1 := body.Influences[1]
	if sum := v1.WeightSum(); sum != 1 {
		t.Errorf("vertex 1 weight sum = %v, want 1", sum)
	}
}

func TestBounds(t *testing.T) {
	m, _ := Load("knight", knight(), Options{})

	// Nail: local z in [0,2], sitting at (1,1,1) in bind pose.
	if !m.Bounds.Contains(math.Vec3{X: 1, Y: 1, Z: 3}) {
		t.Errorf("model bounds %+v should include the nail tip", m.Bounds)
	}
	if !m.Bounds.Contains(math.Vec3{X: -1, Y: 0, Z: -1}) {
		t.Errorf("model bounds %+v should include the body", m.Bounds)
	}

	nail, ok := m.SubtreeBounds("nail")
	if !ok {
		t.Fatal("nail subtree bounds missing")
	}
	if !nail.Size().ApproxEqual(math.Vec3{X: 0.2, Y: 0.2, Z: 2}, 1e-5) {
		t.Errorf("nail size = %v, want (0.2, 0.2, 2)", nail.Size())
	}

	// The hand's subtree holds the nail one unit further along z.
	hand, _ := m.SubtreeBounds("hand")
	if !hand.Max.ApproxEqual(math.Vec3{X: 0.1, Y: 0.1, Z: 3}, 1e-5) {
		t.Errorf("hand subtree max = %v", hand.Max)
	}

	if _, ok := m.SubtreeBounds("tail"); ok {
		t.Error("unknown node should have no bounds")
	}
	if b, ok := m.SubtreeBounds("body"); !ok || !b.Valid() {
		t.Error("body carries a mesh and should have bounds")
	}
}

func TestLoadFatal(t *testing.T) {
	m, err := Load("broken", &scene.Scene{}, Options{})
	if !errors.Is(err, skeleton.ErrNoRootNode) {
		t.Fatalf("Load error = %v, want ErrNoRootNode", err)
	}
	if m == nil || !m.Skeleton.Empty() || m.Clips.Len() != 0 {
		t.Error("fatal load should return an empty model")
	}

	// An empty model still animates without panicking.
	a := m.NewAnimator()
	a.Advance(1)
	if a.State() != animator.Stopped {
		t.Errorf("state = %v, want stopped", a.State())
	}
}

func TestNewAnimatorOptions(t *testing.T) {
	sc := knight()
	sc.Animations[0].TicksPerSecond = 0
	m, _ := Load("knight", sc, Options{TicksPerSecond: 40})

	a := m.NewAnimator()
	slash, _ := m.Clip("slash")
	a.Play(slash, animator.Forward, false)
	a.Advance(0.25)
	if a.Elapsed() != 10 {
		t.Errorf("elapsed = %v, want 10 ticks at 40 tps", a.Elapsed())
	}

	w, ok := m.MeshWorld(a, 1)
	if !ok {
		t.Fatal("nail world transform missing")
	}
	if got := w.Translation(); !got.ApproxEqual(math.Vec3{X: 1, Y: 1, Z: 1}, 1e-5) {
		t.Errorf("nail world position = %v, want (1,1,1)", got)
	}
	if _, ok := m.MeshWorld(a, 7); ok {
		t.Error("mesh 7 does not exist")
	}
}

func TestBoundsTransform(t *testing.T) {
	b := Bounds{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	moved := b.Transform(math.Translate(5, 0, 0).Mul(math.Scale(2, 1, 1)))
	if !moved.Min.ApproxEqual(math.Vec3{X: 3, Y: -1, Z: -1}, 1e-6) || !moved.Max.ApproxEqual(math.Vec3{X: 7, Y: 1, Z: 1}, 1e-6) {
		t.Errorf("transformed bounds = %+v", moved)
	}

	empty := EmptyBounds()
	if empty.Valid() || empty.Size() != (math.Vec3{}) {
		t.Error("empty bounds should be invalid with zero size")
	}
	if got := empty.Union(b); got != b {
		t.Errorf("empty union b = %+v, want b", got)
	}
}
