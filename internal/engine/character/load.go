package character

import (
	"fmt"

	"github.com/Faultbox/knightfall/internal/config"
	"github.com/Faultbox/knightfall/internal/engine/animator"
	"github.com/Faultbox/knightfall/internal/engine/model"
	"github.com/Faultbox/knightfall/pkg/formats"
	"github.com/Faultbox/knightfall/pkg/math"
	"github.com/Faultbox/knightfall/pkg/scene"
)

// Load imports the character's model file and starts its idle clip, held
// on its last frame.
func Load(cfg config.CharacterConfig, anim config.AnimationConfig) (*Character, error) {
	sc, err := formats.LoadGLTF(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("loading character %q: %w", cfg.Name, err)
	}
	return FromScene(cfg, anim, sc)
}

// FromScene builds a character from an already imported scene.
func FromScene(cfg config.CharacterConfig, anim config.AnimationConfig, sc *scene.Scene) (*Character, error) {
	m, err := model.Load(cfg.Name, sc, model.Options{
		TicksPerSecond: anim.DefaultTicksPerSecond,
		FrameEpsilon:   anim.FrameEpsilon,
	})
	if err != nil {
		return nil, fmt.Errorf("loading character %q: %w", cfg.Name, err)
	}
	return FromModel(cfg, anim, m), nil
}

// FromModel places a character using an already loaded, possibly shared,
// model. The model's own ticks-per-second and epsilon options stay in effect.
func FromModel(cfg config.CharacterConfig, anim config.AnimationConfig, m *model.Model) *Character {
	c := New(cfg.Name, m, Options{
		WeaponNode:       cfg.WeaponNode,
		Position:         math.Vec3{X: cfg.Position[0], Y: cfg.Position[1], Z: cfg.Position[2]},
		Scale:            cfg.Scale,
		CrossfadeSeconds: anim.CrossfadeSeconds,
	})
	if cfg.IdleClip != "" {
		c.Play(cfg.IdleClip, animator.Forward, false)
	}
	return c
}
