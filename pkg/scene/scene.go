// Package scene describes an imported scene graph: the node hierarchy,
// meshes with their bone bindings, and authored animations.
//
// A Scene is produced by a format adapter (see pkg/formats) and consumed once
// at load time. Nothing in the engine retains pointers into it afterwards.
package scene

import (
	"github.com/Faultbox/knightfall/pkg/math"
)

// Scene is the root of an imported asset.
type Scene struct {
	Root       *Node
	Meshes     []*Mesh
	Animations []*Animation
}

// Node is an element of the authored hierarchy.
type Node struct {
	Name      string
	Transform math.Mat4 // local, relative to the parent
	Children  []*Node
	Meshes    []int // indices into Scene.Meshes
}

// Mesh is a drawable surface with optional skinning data.
type Mesh struct {
	Name        string
	VertexCount int
	Bones       []*Bone
	Min, Max    math.Vec3 // local-space bounds
}

// Bone binds a named joint to the vertices it influences.
type Bone struct {
	Name    string
	Offset  math.Mat4 // inverse bind pose: mesh space to bone space
	Weights []VertexWeight
}

// VertexWeight is a single bone influence on a vertex.
type VertexWeight struct {
	Vertex int
	Weight float32
}

// Animation is one authored clip.
type Animation struct {
	Name           string
	Duration       float64 // ticks
	TicksPerSecond float64 // 0 when the source does not declare it
	Channels       []*NodeAnim
}

// NodeAnim holds the keyframes that drive one node.
type NodeAnim struct {
	Node      string
	Positions []VectorKey
	Rotations []QuatKey
	Scales    []VectorKey
}

// VectorKey is a timed position or scale value.
type VectorKey struct {
	Time  float64
	Value math.Vec3
}

// QuatKey is a timed rotation value.
type QuatKey struct {
	Time  float64
	Value math.Quat
}

// FindNode returns the first node named name in depth-first order.
func (s *Scene) FindNode(name string) *Node {
	if s == nil {
		return nil
	}
	return s.Root.Find(name)
}

// Find searches the subtree rooted at n.
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// MeshNodes maps each mesh index to the preorder position, as Walk counts
// it, of the first node referencing that mesh.
func (s *Scene) MeshNodes() map[int]int {
	out := make(map[int]int)
	if s == nil {
		return out
	}
	pos := 0
	s.Root.Walk(func(n *Node, _ int) bool {
		for _, idx := range n.Meshes {
			if _, seen := out[idx]; !seen {
				out[idx] = pos
			}
		}
		pos++
		return true
	})
	return out
}

// BoneOffsets scans meshes in order, then bones within each mesh, and
// returns the first offset found for every bone name.
func (s *Scene) BoneOffsets() map[string]math.Mat4 {
	out := make(map[string]math.Mat4)
	if s == nil {
		return out
	}
	for _, mesh := range s.Meshes {
		if mesh == nil {
			continue
		}
		for _, b := range mesh.Bones {
			if b == nil {
				continue
			}
			if _, ok := out[b.Name]; !ok {
				out[b.Name] = b.Offset
			}
		}
	}
	return out
}

// Animation returns the animation named name, or nil.
func (s *Scene) Animation(name string) *Animation {
	if s == nil {
		return nil
	}
	for _, a := range s.Animations {
		if a != nil && a.Name == name {
			return a
		}
	}
	return nil
}

// Walk visits every node depth-first, parents before children.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}
