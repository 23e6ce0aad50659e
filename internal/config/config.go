// Package config handles configuration loading and management.
package config

// Config holds all settings.
type Config struct {
	Animation  AnimationConfig   `yaml:"animation"`
	Characters []CharacterConfig `yaml:"characters"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// AnimationConfig holds playback tuning shared by every animator.
type AnimationConfig struct {
	// DefaultTicksPerSecond replaces a clip's rate when the source declares 0.
	DefaultTicksPerSecond float64 `yaml:"default_ticks_per_second"`
	// FrameEpsilon is how far before the clip end a held forward pose samples, in ticks.
	FrameEpsilon float64 `yaml:"frame_epsilon"`
	// CrossfadeSeconds is the blend time between clips; 0 switches instantly.
	CrossfadeSeconds float32 `yaml:"crossfade_seconds"`
}

// CharacterConfig describes one animated character asset.
type CharacterConfig struct {
	Name       string     `yaml:"name"`
	Model      string     `yaml:"model"`       // .gltf or .glb path
	WeaponNode string     `yaml:"weapon_node"` // node tracked for hit-box placement
	IdleClip   string     `yaml:"idle_clip"`
	Scale      float32    `yaml:"scale"`
	Position   [3]float32 `yaml:"position"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Animation: AnimationConfig{
			DefaultTicksPerSecond: 25,
			FrameEpsilon:          0.1,
			CrossfadeSeconds:      0,
		},
		Characters: []CharacterConfig{
			{
				Name:       "knight",
				Model:      "assets/knight.glb",
				WeaponNode: "nail",
				IdleClip:   "Knight_Idle",
				Scale:      1,
			},
			{
				Name:       "hornet",
				Model:      "assets/hornet.glb",
				WeaponNode: "hornet.008",
				IdleClip:   "point_forward",
				Scale:      1,
				Position:   [3]float32{0, 0, -6},
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Character returns the character entry named name.
func (c *Config) Character(name string) (CharacterConfig, bool) {
	for _, ch := range c.Characters {
		if ch.Name == name {
			return ch, true
		}
	}
	return CharacterConfig{}, false
}
