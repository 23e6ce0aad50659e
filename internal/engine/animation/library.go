package animation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/knightfall/internal/engine/skeleton"
	"github.com/Faultbox/knightfall/internal/logger"
	"github.com/Faultbox/knightfall/pkg/scene"
)

// Library is the set of clips available to one model, addressed by name.
type Library struct {
	clips map[string]*Clip
	names []string
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{clips: make(map[string]*Clip)}
}

// BuildLibrary builds a clip for every animation in the scene.
// Unnamed animations are named "clip.N" after their index.
func BuildLibrary(sc *scene.Scene, skel *skeleton.Skeleton) (*Library, error) {
	lib := NewLibrary()
	if sc == nil {
		return lib, nil
	}

	for i, anim := range sc.Animations {
		if anim == nil {
			continue
		}
		clip, err := Build(anim, skel)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		if clip.Name == "" {
			clip.Name = fmt.Sprintf("clip.%d", i)
		}
		lib.Add(clip)
	}

	logger.Named("animation").Info("clip library built", zap.Int("clips", lib.Len()))
	return lib, nil
}

// Add registers a clip. A clip whose name is taken is dropped.
func (l *Library) Add(c *Clip) bool {
	if c == nil {
		return false
	}
	if _, ok := l.clips[c.Name]; ok {
		logger.Named("animation").Warn("duplicate clip name ignored", zap.String("clip", c.Name))
		return false
	}
	l.clips[c.Name] = c
	l.names = append(l.names, c.Name)
	return true
}

// Get returns the clip named name.
func (l *Library) Get(name string) (*Clip, bool) {
	if l == nil {
		return nil, false
	}
	c, ok := l.clips[name]
	return c, ok
}

// Names returns clip names in insertion order.
func (l *Library) Names() []string {
	if l == nil {
		return nil
	}
	return append([]string(nil), l.names...)
}

// Len returns the number of clips.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}
