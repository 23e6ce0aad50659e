// Package model assembles an animated model from an imported scene: the
// skeleton, its clip library, per-vertex skin influences and bind-pose bounds.
package model

import (
	"github.com/Faultbox/knightfall/internal/engine/animation"
	"github.com/Faultbox/knightfall/internal/engine/skeleton"
	"github.com/Faultbox/knightfall/pkg/math"
)

// MaxInfluences is the number of bones that may influence one vertex.
const MaxInfluences = 4

// Influence holds the bones skinning one vertex. Unused slots have bone id
// skeleton.InvalidBone and weight 0.
type Influence struct {
	Bones   [MaxInfluences]skeleton.BoneID
	Weights [MaxInfluences]float32
}

// Mesh is a drawable surface bound to the model's skeleton.
type Mesh struct {
	Name       string
	Node       skeleton.NodeID // node that references the mesh, or InvalidNode
	Influences []Influence     // one per vertex; empty for rigid meshes
	Bounds     Bounds          // local space
}

// Skinned reports whether any bone influences the mesh.
func (m *Mesh) Skinned() bool {
	return len(m.Influences) > 0
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Options tunes the animators a model creates.
type Options struct {
	TicksPerSecond float64 // used for clips that declare 0
	FrameEpsilon   float64
}

// Model is an immutable animated asset. Any number of animators may pose it.
type Model struct {
	Name     string
	Skeleton *skeleton.Skeleton
	Clips    *animation.Library
	Meshes   []Mesh
	Bounds   Bounds // bind pose, model space

	opts Options
}
