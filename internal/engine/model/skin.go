package model

import (
	"go.uber.org/zap"

	"github.com/Faultbox/knightfall/internal/engine/skeleton"
	"github.com/Faultbox/knightfall/pkg/scene"
)

// buildInfluences collects per-vertex bone influences for one mesh. Each
// weight takes the first free slot; influences past MaxInfluences are dropped.
func buildInfluences(mesh *scene.Mesh, skel *skeleton.Skeleton, log *zap.Logger) []Influence {
	if len(mesh.Bones) == 0 || mesh.VertexCount <= 0 {
		return nil
	}

	out := make([]Influence, mesh.VertexCount)
	for i := range out {
		resetInfluence(&out[i])
	}

	var dropped, outOfRange int
	for _, bone := range mesh.Bones {
		if bone == nil {
			continue
		}
		id := skel.EnsureBone(bone.Name)
		if id == skeleton.InvalidBone {
			continue
		}
		for _, w := range bone.Weights {
			if w.Weight == 0 {
				continue
			}
			if w.Vertex < 0 || w.Vertex >= len(out) {
				outOfRange++
				continue
			}
			if !setInfluence(&out[w.Vertex], id, w.Weight) {
				dropped++
			}
		}
	}

	if outOfRange > 0 {
		log.Warn("bone weights reference missing vertices",
			zap.String("mesh", mesh.Name), zap.Int("count", outOfRange))
	}
	if dropped > 0 {
		log.Debug("vertex influences over capacity dropped",
			zap.String("mesh", mesh.Name), zap.Int("count", dropped))
	}
	return out
}

func resetInfluence(v *Influence) {
	for i := 0; i < MaxInfluences; i++ {
		v.Bones[i] = skeleton.InvalidBone
		v.Weights[i] = 0
	}
}

func setInfluence(v *Influence, id skeleton.BoneID, weight float32) bool {
	for i := 0; i < MaxInfluences; i++ {
		if v.Bones[i] < 0 {
			v.Bones[i] = id
			v.Weights[i] = weight
			return true
		}
	}
	return false
}

// WeightSum returns the total weight on a vertex.
func (v Influence) WeightSum() float32 {
	var sum float32
	for i := 0; i < MaxInfluences; i++ {
		if v.Bones[i] >= 0 {
			sum += v.Weights[i]
		}
	}
	return sum
}
