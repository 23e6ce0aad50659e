package character

import (
	gomath "math"
	"path/filepath"
	"testing"

	"github.com/Faultbox/knightfall/internal/config"
	"github.com/Faultbox/knightfall/internal/engine/animator"
	"github.com/Faultbox/knightfall/internal/engine/model"
	"github.com/Faultbox/knightfall/pkg/math"
	"github.com/Faultbox/knightfall/pkg/scene"
)

const eps = 1e-4

// knightScene is a body mesh plus a nail held one unit in front of the hand.
func knightScene() *scene.Scene {
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
				VertexCount: 2,
				Min:         math.Vec3{X: -1, Y: 0, Z: -1},
				Max:         math.Vec3{X: 1, Y: 2, Z: 1},
				Bones: []*scene.Bone{
					{Name: "arm", Offset: math.Translate(0, -1, 0), Weights: []scene.VertexWeight{{Vertex: 0, Weight: 1}}},
				},
			},
			{
				Name: "nail",
				Min:  math.Vec3{X: -0.1, Y: -0.1, Z: 0},
				Max:  math.Vec3{X: 0.1, Y: 0.1, Z: 2},
			},
		},
		Animations: []*scene.Animation{
			{
				Name:           "slash",
				Duration:       20,
				TicksPerSecond: 10,
				Channels: []*scene.NodeAnim{{
					Node:      "arm",
					Rotations: []scene.QuatKey{{Time: 0, Value: math.QuatIdentity()}},
				}},
			},
			{
				Name:           "Knight_Idle",
				Duration:       10,
				TicksPerSecond: 10,
			},
		},
	}
}

func newKnight(t *testing.T, opts Options) *Character {
	t.Helper()
	m, err := model.Load("knight", knightScene(), model.Options{})
	if err != nil {
		t.Fatalf("model.Load: %v", err)
	}
	return New("knight", m, opts)
}

func TestNewDefaults(t *testing.T) {
	c := newKnight(t, Options{WeaponNode: "nail"})

	if c.Rotation != math.QuatIdentity() {
		t.Errorf("rotation = %+v, want identity", c.Rotation)
	}
	if c.Scale != math.One {
		t.Errorf("scale = %v, want one", c.Scale)
	}
	if c.Friction != DefaultFriction {
		t.Errorf("friction = %v, want %v", c.Friction, DefaultFriction)
	}
	if !c.WeaponSize().ApproxEqual(math.Vec3{X: 0.2, Y: 0.2, Z: 2}, eps) {
		t.Errorf("weapon size = %v, want (0.2, 0.2, 2)", c.WeaponSize())
	}
	if c.CurrentClip() != "" || !c.Finished() {
		t.Error("a new character plays nothing")
	}
}

func TestPlay(t *testing.T) {
	c := newKnight(t, Options{})

	if !c.Play("slash", animator.Forward, false) {
		t.Fatal("slash should play")
	}
	if c.CurrentClip() != "slash" {
		t.Errorf("current clip = %q", c.CurrentClip())
	}

	// Unknown names keep the current clip.
	if c.Play("dance", animator.Forward, false) {
		t.Error("unknown clip should not play")
	}
	if c.CurrentClip() != "slash" {
		t.Errorf("current clip after unknown play = %q, want slash", c.CurrentClip())
	}

	c.Update(1)
	if c.Finished() {
		t.Error("slash lasts two seconds")
	}
	c.Update(1.5)
	if !c.Finished() {
		t.Error("slash should be finished after 2.5s")
	}
}

func TestPlayCrossfade(t *testing.T) {
	c := newKnight(t, Options{CrossfadeSeconds: 0.5})
	c.Play("slash", animator.Forward, false)
	c.Update(0.1)

	c.Play("Knight_Idle", animator.Forward, false)
	if !c.Animator.Blending() {
		t.Error("switching clips after a pose should blend")
	}
	c.Update(1)
	if c.Animator.Blending() {
		t.Error("blend should be done after its duration")
	}
}

func TestWeaponTransform(t *testing.T) {
	c := newKnight(t, Options{WeaponNode: "nail", Position: math.Vec3{X: 10}})

	if _, ok := c.WeaponPosition(); ok {
		t.Error("no pose yet, weapon position should be absent")
	}

	c.Play("slash", animator.Forward, false)
	c.Update(0.1)

	pos, ok := c.WeaponPosition()
	if !ok {
		t.Fatal("weapon position missing")
	}
	if !pos.ApproxEqual(math.Vec3{X: 11, Y: 1, Z: 1}, eps) {
		t.Errorf("weapon position = %v, want (11,1,1)", pos)
	}

	box, ok := c.WeaponHitbox()
	if !ok {
		t.Fatal("weapon hitbox missing")
	}
	if !box.Contains(pos) || !box.Size().ApproxEqual(c.WeaponSize(), eps) {
		t.Errorf("weapon hitbox = %+v", box)
	}

	none := newKnight(t, Options{})
	none.Play("slash", animator.Forward, false)
	none.Update(0.1)
	if _, ok := none.WeaponTransform(); ok {
		t.Error("character without weapon node has no weapon transform")
	}
}

func TestHitbox(t *testing.T) {
	c := newKnight(t, Options{Scale: 2})

	// Bind bounds: body (-1,0,-1)..(1,2,1) and nail (0.9,0.9,1)..(1.1,1.1,3).
	want := math.Vec3{X: 4.2, Y: 4, Z: 8}
	if !c.Size().ApproxEqual(want, eps) {
		t.Fatalf("size = %v, want %v", c.Size(), want)
	}

	c.Position = math.Vec3{X: 1, Y: 0, Z: 1}
	box := c.Hitbox()
	if !box.Min.ApproxEqual(math.Vec3{X: -1.1, Y: 0, Z: -3}, eps) {
		t.Errorf("hitbox min = %v", box.Min)
	}
	if !box.Max.ApproxEqual(math.Vec3{X: 3.1, Y: 4, Z: 5}, eps) {
		t.Errorf("hitbox max = %v", box.Max)
	}
}

func TestUpdatePosition(t *testing.T) {
	tests := []struct {
		name     string
		pos      math.Vec3
		vel      math.Vec3
		friction float32
		dt       float32
		wantPos  math.Vec3
		wantVel  math.Vec3
	}{
		{"glide", math.Vec3{}, math.Vec3{X: 1}, 0, 0.5, math.Vec3{X: 0.5}, math.Vec3{X: 1}},
		{"damped", math.Vec3{}, math.Vec3{X: 2}, 1, 0.5, math.Vec3{X: 1}, math.Vec3{X: 1}},
		{"overdamped stops", math.Vec3{}, math.Vec3{X: 1}, 8, 0.5, math.Vec3{X: 0.5}, math.Vec3{}},
		{"floor", math.Vec3{Y: 0.1}, math.Vec3{Y: -1}, 0, 1, math.Vec3{}, math.Vec3{Y: -1}},
		{"at rest", math.Vec3{X: 3}, math.Vec3{X: 0.001}, 0, 1, math.Vec3{X: 3}, math.Vec3{X: 0.001}},
		{"no time", math.Vec3{}, math.Vec3{X: 1}, 8, 0, math.Vec3{}, math.Vec3{X: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newKnight(t, Options{})
			c.Position = tt.pos
			c.Velocity = tt.vel
			c.Friction = tt.friction

			c.UpdatePosition(tt.dt)
			if !c.Position.ApproxEqual(tt.wantPos, eps) {
				t.Errorf("position = %v, want %v", c.Position, tt.wantPos)
			}
			if !c.Velocity.ApproxEqual(tt.wantVel, eps) {
				t.Errorf("velocity = %v, want %v", c.Velocity, tt.wantVel)
			}
		})
	}
}

func TestPush(t *testing.T) {
	c := newKnight(t, Options{})
	if c.Moving() {
		t.Error("new character should be at rest")
	}
	c.Push(math.Vec3{Z: -3})
	if !c.Moving() || c.Velocity.Z != -3 {
		t.Errorf("velocity after push = %v", c.Velocity)
	}
}

func TestFaceTowards(t *testing.T) {
	c := newKnight(t, Options{})

	if !c.Front().ApproxEqual(Forward, eps) {
		t.Errorf("initial front = %v, want +Z", c.Front())
	}

	c.FaceTowards(math.Vec3{X: 5, Y: 3})
	if !c.Front().ApproxEqual(math.Vec3{X: 1}, eps) {
		t.Errorf("front = %v, want +X", c.Front())
	}

	before := c.Rotation
	c.FaceTowards(math.Vec3{Y: 10})
	if c.Rotation != before {
		t.Error("a target straight above should not change facing")
	}

	if got := YawTo(0, -1); gomath.Abs(gomath.Abs(float64(got))-gomath.Pi) > eps {
		t.Errorf("YawTo(0,-1) = %v, want ±pi", got)
	}
}

func TestLoadFromConfig(t *testing.T) {
	anim := config.Default().Animation
	cfg := config.CharacterConfig{
		Name:       "knight",
		Model:      filepath.Join("..", "..", "..", "pkg", "formats", "testdata", "knight.gltf"),
		WeaponNode: "nail",
		IdleClip:   "Knight_Attack",
		Scale:      1,
		Position:   [3]float32{3, 0, 0},
	}

	c, err := Load(cfg, anim)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.CurrentClip() != "Knight_Attack" {
		t.Errorf("idle clip = %q, want Knight_Attack", c.CurrentClip())
	}
	if !c.Position.ApproxEqual(math.Vec3{X: 3}, eps) {
		t.Errorf("position = %v", c.Position)
	}

	c.Update(0.25)
	pos, ok := c.WeaponPosition()
	if !ok {
		t.Fatal("weapon position missing after update")
	}
	if pos.Y < 1 {
		t.Errorf("nail at %v should sit above the hips", pos)
	}

	cfg.Model = "missing.glb"
	if _, err := Load(cfg, anim); err == nil {
		t.Error("expected error for missing model file")
	}
}

func TestFromSceneUnknownIdle(t *testing.T) {
	cfg := config.CharacterConfig{Name: "knight", IdleClip: "nap"}
	c, err := FromScene(cfg, config.Default().Animation, knightScene())
	if err != nil {
		t.Fatalf("FromScene: %v", err)
	}
	if c.CurrentClip() != "" {
		t.Errorf("unknown idle should leave nothing playing, got %q", c.CurrentClip())
	}

	if _, err := FromScene(cfg, config.Default().Animation, &scene.Scene{}); err == nil {
		t.Error("expected error for a scene without root")
	}
}
