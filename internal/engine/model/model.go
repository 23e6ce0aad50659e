package model

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/knightfall/internal/engine/animation"
	"github.com/Faultbox/knightfall/internal/engine/animator"
	"github.com/Faultbox/knightfall/internal/engine/skeleton"
	"github.com/Faultbox/knightfall/internal/logger"
	"github.com/Faultbox/knightfall/pkg/math"
	"github.com/Faultbox/knightfall/pkg/scene"
)

// Load builds a model from an imported scene.
//
// A scene without a usable root yields an empty model together with the
// import error; callers may keep the model and render nothing.
func Load(name string, sc *scene.Scene, opts Options) (*Model, error) {
	log := logger.Named("model").With(zap.String("model", name))

	m := &Model{
		Name:   name,
		Clips:  animation.NewLibrary(),
		Bounds: EmptyBounds(),
		opts:   opts,
	}

	skel, err := skeleton.Import(sc)
	m.Skeleton = skel
	if err != nil {
		skel.Freeze()
		return m, fmt.Errorf("loading model %q: %w", name, err)
	}

	lib, err := animation.BuildLibrary(sc, skel)
	if err != nil {
		skel.Freeze()
		return m, fmt.Errorf("loading model %q: %w", name, err)
	}
	m.Clips = lib

	// Mesh node positions follow the same preorder as the skeleton arena.
	meshNodes := sc.MeshNodes()
	world := skel.BindPose()

	m.Meshes = make([]Mesh, len(sc.Meshes))
	for i, src := range sc.Meshes {
		if src == nil {
			m.Meshes[i] = Mesh{Node: skeleton.InvalidNode, Bounds: EmptyBounds()}
			continue
		}
		mesh := Mesh{
			Name:       src.Name,
			Node:       skeleton.InvalidNode,
			Influences: buildInfluences(src, skel, log),
			Bounds:     Bounds{Min: src.Min, Max: src.Max},
		}
		if pos, ok := meshNodes[i]; ok {
			id := skeleton.NodeID(pos)
			mesh.Node = id
			m.Bounds = m.Bounds.Union(mesh.Bounds.Transform(world[id]))
		} else {
			log.Warn("mesh is not referenced by any node", zap.String("mesh", src.Name))
		}
		m.Meshes[i] = mesh
	}

	if n := skel.BoneCount(); n > animator.MaxBones {
		log.Warn("bones past capacity will not be skinned",
			zap.Int("bones", n), zap.Int("capacity", animator.MaxBones))
	}
	skel.Freeze()

	log.Info("model loaded",
		zap.Int("nodes", skel.Len()),
		zap.Int("bones", skel.BoneCount()),
		zap.Int("meshes", len(m.Meshes)),
		zap.Strings("clips", lib.Names()))
	return m, nil
}

// NewAnimator creates an animator for this model with no clip bound.
func (m *Model) NewAnimator() *animator.Animator {
	return animator.New(m.Skeleton,
		animator.WithTicksPerSecond(m.opts.TicksPerSecond),
		animator.WithFrameEpsilon(m.opts.FrameEpsilon))
}

// Clip returns the named clip.
func (m *Model) Clip(name string) (*animation.Clip, bool) {
	return m.Clips.Get(name)
}

// SubtreeBounds returns the bind-pose bounds of every mesh at or below the
// named node, expressed in that node's local space.
func (m *Model) SubtreeBounds(node string) (Bounds, bool) {
	id, ok := m.Skeleton.NodeByName(node)
	if !ok {
		return Bounds{}, false
	}

	world := m.Skeleton.BindPose()
	toNode := world[id].Inverse()

	out := EmptyBounds()
	for i := range m.Meshes {
		mesh := &m.Meshes[i]
		if mesh.Node == skeleton.InvalidNode || !m.Skeleton.IsAncestor(id, mesh.Node) {
			continue
		}
		out = out.Union(mesh.Bounds.Transform(toNode.Mul(world[mesh.Node])))
	}
	return out, out.Valid()
}

// MeshWorld returns the current world transform of the node carrying mesh i.
func (m *Model) MeshWorld(a *animator.Animator, i int) (math.Mat4, bool) {
	if i < 0 || i >= len(m.Meshes) || m.Meshes[i].Node == skeleton.InvalidNode {
		return math.Mat4{}, false
	}
	return a.WorldTransformOf(m.Meshes[i].Node)
}
