// Package formats converts authored asset files into the engine's scene
// description.
// glTF 2.0 (.gltf / .glb) importer.
package formats

import (
	"errors"
	"fmt"
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/knightfall/pkg/math"
	"github.com/Faultbox/knightfall/pkg/scene"
)

// glTF import errors.
var (
	ErrNoScene             = errors.New("gltf: document has no scene")
	ErrUnsupportedAccessor = errors.New("gltf: unsupported accessor layout")
	ErrMissingSampler      = errors.New("gltf: channel references missing sampler")
)

// GLTFTicksPerSecond is the tick rate of imported clips. glTF keys are in
// seconds; they are stored as milliseconds.
const GLTFTicksPerSecond = 1000.0

// RootName is the name given to the synthetic node that parents a glTF
// scene's top-level nodes.
const RootName = "Scene"

// LoadGLTF opens a .gltf or .glb file and converts it.
func LoadGLTF(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	sc, err := FromGLTF(doc)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	return sc, nil
}

// DecodeGLTF reads a self-contained glTF document (embedded buffers or GLB)
// from r and converts it.
func DecodeGLTF(r io.Reader) (*scene.Scene, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding gltf: %w", err)
	}
	return FromGLTF(doc)
}

// FromGLTF converts a decoded document. The default scene is used, or the
// first one when none is marked default.
func FromGLTF(doc *gltf.Document) (*scene.Scene, error) {
	if doc == nil || len(doc.Scenes) == 0 {
		return nil, ErrNoScene
	}
	idx := 0
	if doc.Scene != nil {
		idx = *doc.Scene
	}
	if idx < 0 || idx >= len(doc.Scenes) || doc.Scenes[idx] == nil {
		return nil, ErrNoScene
	}

	imp := &gltfImporter{
		doc:   doc,
		out:   &scene.Scene{},
		nodes: make(map[int]*scene.Node),
	}

	root := &scene.Node{Name: RootName, Transform: math.Identity()}
	for _, n := range doc.Scenes[idx].Nodes {
		child, err := imp.node(n)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, child)
	}
	imp.out.Root = root

	for i, anim := range doc.Animations {
		a, err := imp.animation(anim, i)
		if err != nil {
			return nil, err
		}
		imp.out.Animations = append(imp.out.Animations, a)
	}
	return imp.out, nil
}

type gltfImporter struct {
	doc   *gltf.Document
	out   *scene.Scene
	nodes map[int]*scene.Node // glTF node index -> converted node
}

func (imp *gltfImporter) node(idx int) (*scene.Node, error) {
	if idx < 0 || idx >= len(imp.doc.Nodes) || imp.doc.Nodes[idx] == nil {
		return nil, fmt.Errorf("gltf: node %d out of range", idx)
	}
	// A node reached twice is handed back as the same pointer; the skeleton
	// importer rejects shared nodes.
	if n, ok := imp.nodes[idx]; ok {
		return n, nil
	}

	src := imp.doc.Nodes[idx]
	n := &scene.Node{
		Name:      nodeName(src, idx),
		Transform: nodeTransform(src),
	}
	imp.nodes[idx] = n

	if src.Mesh != nil {
		meshes, err := imp.mesh(*src.Mesh, src.Skin)
		if err != nil {
			return nil, err
		}
		n.Meshes = meshes
	}

	for _, c := range src.Children {
		child, err := imp.node(c)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func nodeName(n *gltf.Node, idx int) string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("node.%d", idx)
}

// nodeTransform prefers an explicit matrix and falls back to T * R * S.
// Nodes built in code carry zero arrays, so the library defaults are used.
func nodeTransform(n *gltf.Node) math.Mat4 {
	mat := n.MatrixOrDefault()
	var m math.Mat4
	for i := range m {
		m[i] = float32(mat[i])
	}
	if !m.IsIdentity() {
		return m
	}

	tr, rot, sc := n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault()
	t := math.Vec3{X: float32(tr[0]), Y: float32(tr[1]), Z: float32(tr[2])}
	r := math.Quat{X: float32(rot[0]), Y: float32(rot[1]), Z: float32(rot[2]), W: float32(rot[3])}
	s := math.Vec3{X: float32(sc[0]), Y: float32(sc[1]), Z: float32(sc[2])}
	return math.Compose(t, r.Normalize(), s)
}

// mesh converts every primitive of a glTF mesh into its own scene mesh,
// bound to the given skin, and returns their indices.
func (imp *gltfImporter) mesh(idx int, skinIdx *int) ([]int, error) {
	doc := imp.doc
	if idx < 0 || idx >= len(doc.Meshes) || doc.Meshes[idx] == nil {
		return nil, fmt.Errorf("gltf: mesh %d out of range", idx)
	}
	src := doc.Meshes[idx]

	var skin *gltf.Skin
	if skinIdx != nil && *skinIdx >= 0 && *skinIdx < len(doc.Skins) {
		skin = doc.Skins[*skinIdx]
	}

	var out []int
	for p, prim := range src.Primitives {
		name := src.Name
		if len(src.Primitives) > 1 {
			name = fmt.Sprintf("%s.%d", src.Name, p)
		}
		m := &scene.Mesh{Name: name}

		if posIdx, ok := prim.Attributes[gltf.POSITION]; ok {
			if err := imp.positions(m, posIdx); err != nil {
				return nil, fmt.Errorf("mesh %q: %w", name, err)
			}
		}
		if skin != nil {
			if err := imp.skin(m, prim, skin); err != nil {
				return nil, fmt.Errorf("mesh %q: %w", name, err)
			}
		}

		imp.out.Meshes = append(imp.out.Meshes, m)
		out = append(out, len(imp.out.Meshes)-1)
	}
	return out, nil
}

// positions fills the vertex count and local bounds, using the accessor's
// declared min/max when present.
func (imp *gltfImporter) positions(m *scene.Mesh, accIdx int) error {
	acc, err := imp.accessor(accIdx)
	if err != nil {
		return err
	}
	m.VertexCount = acc.Count

	if len(acc.Min) >= 3 && len(acc.Max) >= 3 {
		m.Min = math.Vec3{X: float32(acc.Min[0]), Y: float32(acc.Min[1]), Z: float32(acc.Min[2])}
		m.Max = math.Vec3{X: float32(acc.Max[0]), Y: float32(acc.Max[1]), Z: float32(acc.Max[2])}
		return nil
	}

	pos, err := modeler.ReadPosition(imp.doc, acc, nil)
	if err != nil {
		return err
	}
	if len(pos) == 0 {
		return nil
	}
	m.Min = math.Vec3{X: pos[0][0], Y: pos[0][1], Z: pos[0][2]}
	m.Max = m.Min
	for _, p := range pos[1:] {
		v := math.Vec3{X: p[0], Y: p[1], Z: p[2]}
		m.Min = m.Min.Min(v)
		m.Max = m.Max.Max(v)
	}
	return nil
}

// skin turns JOINTS_0 / WEIGHTS_0 into per-bone vertex weights. Bones are the
// skin's joints in order; zero weights are not stored.
func (imp *gltfImporter) skin(m *scene.Mesh, prim *gltf.Primitive, skin *gltf.Skin) error {
	doc := imp.doc

	offsets := make([]math.Mat4, len(skin.Joints))
	for i := range offsets {
		offsets[i] = math.Identity()
	}
	if skin.InverseBindMatrices != nil {
		acc, err := imp.accessor(*skin.InverseBindMatrices)
		if err != nil {
			return err
		}
		raw, err := modeler.ReadAccessor(doc, acc, nil)
		if err != nil {
			return err
		}
		mats, ok := raw.([][4][4]float32)
		if !ok {
			return fmt.Errorf("inverse bind matrices: %w", ErrUnsupportedAccessor)
		}
		for i := 0; i < len(mats) && i < len(offsets); i++ {
			offsets[i] = mat4FromColumns(mats[i])
		}
	}

	bones := make([]*scene.Bone, len(skin.Joints))
	for i, j := range skin.Joints {
		name := fmt.Sprintf("node.%d", j)
		if j >= 0 && j < len(doc.Nodes) && doc.Nodes[j] != nil {
			name = nodeName(doc.Nodes[j], j)
		}
		bones[i] = &scene.Bone{Name: name, Offset: offsets[i]}
	}
	m.Bones = bones

	wIdx, hasWeights := prim.Attributes[gltf.WEIGHTS_0]
	jIdx, hasJoints := prim.Attributes[gltf.JOINTS_0]
	if !hasWeights || !hasJoints {
		return nil
	}

	wAcc, err := imp.accessor(wIdx)
	if err != nil {
		return err
	}
	weights, err := modeler.ReadWeights(doc, wAcc, nil)
	if err != nil {
		return err
	}
	jAcc, err := imp.accessor(jIdx)
	if err != nil {
		return err
	}
	joints, err := modeler.ReadJoints(doc, jAcc, nil)
	if err != nil {
		return err
	}

	for v := range weights {
		if v >= len(joints) {
			break
		}
		for k := 0; k < 4; k++ {
			w := weights[v][k]
			b := int(joints[v][k])
			if w <= 0 || b >= len(bones) {
				continue
			}
			bones[b].Weights = append(bones[b].Weights, scene.VertexWeight{Vertex: v, Weight: w})
		}
	}
	return nil
}

// mat4FromColumns copies a glTF matrix, stored column by column.
func mat4FromColumns(cols [4][4]float32) math.Mat4 {
	var m math.Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			m[c*4+r] = cols[c][r]
		}
	}
	return m
}

func (imp *gltfImporter) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(imp.doc.Accessors) || imp.doc.Accessors[idx] == nil {
		return nil, fmt.Errorf("gltf: accessor %d out of range", idx)
	}
	return imp.doc.Accessors[idx], nil
}

// animation merges every channel targeting the same node into one NodeAnim.
// Weight (morph) channels are ignored.
func (imp *gltfImporter) animation(src *gltf.Animation, idx int) (*scene.Animation, error) {
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("clip.%d", idx)
	}
	out := &scene.Animation{Name: name, TicksPerSecond: GLTFTicksPerSecond}
	byNode := make(map[int]*scene.NodeAnim)

	for _, ch := range src.Channels {
		if ch == nil || ch.Target.Node == nil {
			continue
		}
		path := ch.Target.Path
		if path != gltf.TRSTranslation && path != gltf.TRSRotation && path != gltf.TRSScale {
			continue
		}
		if ch.Sampler < 0 || ch.Sampler >= len(src.Samplers) {
			return nil, fmt.Errorf("animation %q: %w", name, ErrMissingSampler)
		}
		sampler := src.Samplers[ch.Sampler]

		node := *ch.Target.Node
		if node < 0 || node >= len(imp.doc.Nodes) || imp.doc.Nodes[node] == nil {
			return nil, fmt.Errorf("animation %q: target node %d out of range", name, node)
		}
		na, ok := byNode[node]
		if !ok {
			na = &scene.NodeAnim{Node: nodeName(imp.doc.Nodes[node], node)}
			byNode[node] = na
			out.Channels = append(out.Channels, na)
		}

		times, err := imp.keyTimes(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q: %w", name, err)
		}
		for _, t := range times {
			if t > out.Duration {
				out.Duration = t
			}
		}

		acc, err := imp.accessor(sampler.Output)
		if err != nil {
			return nil, fmt.Errorf("animation %q: %w", name, err)
		}
		if acc.Count == 0 && len(times) > 0 {
			return nil, fmt.Errorf("animation %q: empty sampler output: %w", name, ErrUnsupportedAccessor)
		}
		raw, err := modeler.ReadAccessor(imp.doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("animation %q: %w", name, err)
		}

		switch path {
		case gltf.TRSTranslation, gltf.TRSScale:
			values, ok := raw.([][3]float32)
			if !ok {
				return nil, fmt.Errorf("animation %q: %w", name, ErrUnsupportedAccessor)
			}
			keys := make([]scene.VectorKey, len(times))
			for i, t := range times {
				v := values[valueIndex(i, len(times), len(values))]
				keys[i] = scene.VectorKey{Time: t, Value: math.Vec3{X: v[0], Y: v[1], Z: v[2]}}
			}
			if path == gltf.TRSTranslation {
				na.Positions = keys
			} else {
				na.Scales = keys
			}
		case gltf.TRSRotation:
			values, ok := raw.([][4]float32)
			if !ok {
				return nil, fmt.Errorf("animation %q: %w", name, ErrUnsupportedAccessor)
			}
			keys := make([]scene.QuatKey, len(times))
			for i, t := range times {
				v := values[valueIndex(i, len(times), len(values))]
				keys[i] = scene.QuatKey{Time: t, Value: math.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]}}
			}
			na.Rotations = keys
		}
	}
	return out, nil
}

// keyTimes reads a sampler input in seconds and returns it in ticks.
func (imp *gltfImporter) keyTimes(accIdx int) ([]float64, error) {
	acc, err := imp.accessor(accIdx)
	if err != nil {
		return nil, err
	}
	raw, err := modeler.ReadAccessor(imp.doc, acc, nil)
	if err != nil {
		return nil, err
	}
	in, ok := raw.([]float32)
	if !ok {
		return nil, ErrUnsupportedAccessor
	}
	out := make([]float64, len(in))
	for i, t := range in {
		out[i] = float64(t) * GLTFTicksPerSecond
	}
	return out, nil
}

// valueIndex maps key i to its output element. Cubic spline samplers store
// in-tangent, value, out-tangent per key; only the value is kept.
func valueIndex(i, keys, values int) int {
	if values == keys*3 {
		return i*3 + 1
	}
	if i >= values {
		return values - 1
	}
	return i
}
