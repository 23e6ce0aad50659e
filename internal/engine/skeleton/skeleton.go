// Package skeleton turns an imported scene graph into an index-addressed node
// arena plus the bone registry used for skinning.
//
// Nodes are stored in depth-first preorder: a parent always precedes its
// descendants and the subtree of node i occupies [i, i+SubtreeSize(i)).
package skeleton

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/knightfall/internal/logger"
	"github.com/Faultbox/knightfall/pkg/math"
	"github.com/Faultbox/knightfall/pkg/scene"
)

// NodeID indexes a node in the arena.
type NodeID int32

// BoneID indexes the final bone matrix array.
type BoneID int32

const (
	InvalidNode NodeID = -1
	InvalidBone BoneID = -1
)

var (
	// ErrNoRootNode is returned when the scene has no root to import.
	ErrNoRootNode = errors.New("skeleton: scene has no root node")
	// ErrMalformedNode is returned for nil children and nodes reachable twice.
	ErrMalformedNode = errors.New("skeleton: malformed node hierarchy")
)

// Node is one element of the arena.
type Node struct {
	Name     string
	Parent   NodeID
	Children []NodeID
	Local    math.Mat4 // authored transform relative to Parent
	Bind     math.TRS  // Local decomposed, used when a clip leaves a component unkeyed
}

// BoneInfo describes one skinning bone.
type BoneInfo struct {
	ID     BoneID
	Name   string
	Offset math.Mat4 // inverse bind pose
	Node   NodeID    // last node carrying Name, or InvalidNode
}

// Skeleton owns the node arena and the bone registry.
type Skeleton struct {
	nodes   []Node
	subtree []int32
	named   map[string][]NodeID

	bones      []BoneInfo
	boneByName map[string]BoneID
	boneOfNode []BoneID
	offsets    map[string]math.Mat4
	frozen     bool

	globalInverse math.Mat4
	log           *zap.Logger
}

func newSkeleton() *Skeleton {
	return &Skeleton{
		named:         make(map[string][]NodeID),
		boneByName:    make(map[string]BoneID),
		offsets:       make(map[string]math.Mat4),
		globalInverse: math.Identity(),
		log:           logger.Named("skeleton"),
	}
}

// Import copies the scene hierarchy into an arena and registers every bone
// bound by the scene's meshes, in mesh order then bone order.
//
// On a fatal error the returned skeleton is empty but non-nil.
func Import(sc *scene.Scene) (*Skeleton, error) {
	s := newSkeleton()

	if sc == nil || sc.Root == nil {
		s.log.Error("import aborted", zap.Error(ErrNoRootNode))
		return s, ErrNoRootNode
	}

	if err := s.buildArena(sc.Root); err != nil {
		s.log.Error("import aborted", zap.Error(err))
		return newSkeleton(), err
	}

	s.offsets = sc.BoneOffsets()
	for _, mesh := range sc.Meshes {
		if mesh == nil {
			continue
		}
		for _, b := range mesh.Bones {
			if b != nil {
				s.EnsureBone(b.Name)
			}
		}
	}

	s.globalInverse = sc.Root.Transform.Inverse()

	s.log.Debug("skeleton imported",
		zap.Int("nodes", len(s.nodes)),
		zap.Int("bones", len(s.bones)))
	return s, nil
}

type pending struct {
	node   *scene.Node
	parent NodeID
}

func (s *Skeleton) buildArena(root *scene.Node) error {
	seen := make(map[*scene.Node]bool)
	stack := []pending{{root, InvalidNode}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[top.node] {
			return fmt.Errorf("%w: node %q reached twice", ErrMalformedNode, top.node.Name)
		}
		seen[top.node] = true

		id := NodeID(len(s.nodes))
		s.nodes = append(s.nodes, Node{
			Name:   top.node.Name,
			Parent: top.parent,
			Local:  top.node.Transform,
			Bind:   top.node.Transform.Decompose(),
		})
		s.named[top.node.Name] = append(s.named[top.node.Name], id)
		if top.parent != InvalidNode {
			p := &s.nodes[top.parent]
			p.Children = append(p.Children, id)
		}

		// Reverse push keeps authored child order in the preorder.
		for i := len(top.node.Children) - 1; i >= 0; i-- {
			c := top.node.Children[i]
			if c == nil {
				return fmt.Errorf("%w: nil child %d of %q", ErrMalformedNode, i, top.node.Name)
			}
			stack = append(stack, pending{c, id})
		}
	}

	s.subtree = make([]int32, len(s.nodes))
	for i := len(s.nodes) - 1; i >= 0; i-- {
		s.subtree[i]++
		if p := s.nodes[i].Parent; p != InvalidNode {
			s.subtree[p] += s.subtree[i]
		}
	}

	s.boneOfNode = make([]BoneID, len(s.nodes))
	for i := range s.boneOfNode {
		s.boneOfNode[i] = InvalidBone
	}
	return nil
}

// EnsureBone returns the id of the bone named name, registering it with the
// next free id if it is new. A bone with no offset anywhere in the scene gets
// the identity offset.
//
// Registration is only allowed until Freeze; afterwards unknown names yield
// InvalidBone.
func (s *Skeleton) EnsureBone(name string) BoneID {
	if id, ok := s.boneByName[name]; ok {
		return id
	}
	if s.frozen {
		s.log.Warn("bone registry is frozen", zap.String("bone", name))
		return InvalidBone
	}

	offset, ok := s.offsets[name]
	if !ok {
		s.log.Warn("no offset matrix for bone, using identity", zap.String("bone", name))
		offset = math.Identity()
	}

	id := BoneID(len(s.bones))
	node := InvalidNode
	for _, n := range s.named[name] {
		s.boneOfNode[n] = id
		node = n
	}
	s.bones = append(s.bones, BoneInfo{ID: id, Name: name, Offset: offset, Node: node})
	s.boneByName[name] = id
	return id
}

// Freeze ends bone registration. Clips may be shared once frozen.
func (s *Skeleton) Freeze() {
	s.frozen = true
}

// Frozen reports whether Freeze has been called.
func (s *Skeleton) Frozen() bool {
	return s.frozen
}

// Empty reports whether the skeleton has no nodes.
func (s *Skeleton) Empty() bool {
	return len(s.nodes) == 0
}

// Len returns the number of nodes.
func (s *Skeleton) Len() int {
	return len(s.nodes)
}

// Root returns the root node id, or InvalidNode for an empty skeleton.
func (s *Skeleton) Root() NodeID {
	if len(s.nodes) == 0 {
		return InvalidNode
	}
	return 0
}

// Node returns the node with the given id. The result must not be modified.
func (s *Skeleton) Node(id NodeID) *Node {
	if !s.valid(id) {
		return nil
	}
	return &s.nodes[id]
}

// Nodes returns the arena in preorder. The slice must not be modified.
func (s *Skeleton) Nodes() []Node {
	return s.nodes
}

// NodeByName returns the last node in preorder named name.
func (s *Skeleton) NodeByName(name string) (NodeID, bool) {
	ids := s.named[name]
	if len(ids) == 0 {
		return InvalidNode, false
	}
	return ids[len(ids)-1], true
}

// NodesNamed returns every node named name in preorder.
func (s *Skeleton) NodesNamed(name string) []NodeID {
	return s.named[name]
}

// SubtreeSize returns the number of nodes in the subtree rooted at id,
// including id itself.
func (s *Skeleton) SubtreeSize(id NodeID) int {
	if !s.valid(id) {
		return 0
	}
	return int(s.subtree[id])
}

// IsAncestor reports whether a is b or one of b's ancestors.
func (s *Skeleton) IsAncestor(a, b NodeID) bool {
	if !s.valid(a) || !s.valid(b) {
		return false
	}
	return b >= a && int(b) < int(a)+int(s.subtree[a])
}

// BoneOfNode returns the bone bound to a node, or InvalidBone.
func (s *Skeleton) BoneOfNode(id NodeID) BoneID {
	if !s.valid(id) {
		return InvalidBone
	}
	return s.boneOfNode[id]
}

// Bone looks up a bone by name.
func (s *Skeleton) Bone(name string) (BoneInfo, bool) {
	id, ok := s.boneByName[name]
	if !ok {
		return BoneInfo{}, false
	}
	return s.bones[id], true
}

// BoneByID returns the bone with the given id.
func (s *Skeleton) BoneByID(id BoneID) (BoneInfo, bool) {
	if id < 0 || int(id) >= len(s.bones) {
		return BoneInfo{}, false
	}
	return s.bones[id], true
}

// Bones returns all bones ordered by id. The slice must not be modified.
func (s *Skeleton) Bones() []BoneInfo {
	return s.bones
}

// BoneCount returns the number of registered bones.
func (s *Skeleton) BoneCount() int {
	return len(s.bones)
}

// GlobalInverse returns the inverse of the root's authored transform.
func (s *Skeleton) GlobalInverse() math.Mat4 {
	return s.globalInverse
}

// BindPose computes the world transform of every node in the authored pose.
func (s *Skeleton) BindPose() []math.Mat4 {
	out := make([]math.Mat4, len(s.nodes))
	for i := range s.nodes {
		n := &s.nodes[i]
		if n.Parent == InvalidNode {
			out[i] = n.Local
			continue
		}
		out[i] = out[n.Parent].Mul(n.Local)
	}
	return out
}

func (s *Skeleton) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(s.nodes)
}
