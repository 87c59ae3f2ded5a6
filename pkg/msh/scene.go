package msh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Version is the MSH format version from the HEAD chunk.
type Version struct {
	Major uint16
	Minor uint16
}

// String returns the version as "Major.Minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Severity classifies a parse diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Diagnostic records a tolerated inconsistency, a skipped unknown chunk,
// or a degraded-mode decision made while parsing. Diagnostics never
// abort a parse; fatal conditions are returned as errors instead.
type Diagnostic struct {
	Severity Severity
	Tag      Tag
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Tag, d.Message)
}

// IndexMode declares how a node's face indices are expressed.
type IndexMode uint8

const (
	// IndexModeRelative indices count from the start of the owning
	// vertex group's slice of the node's vertex buffer. Default.
	IndexModeRelative IndexMode = 0
	// IndexModeAbsolute indices count from the start of the flattened
	// file-wide vertex buffer. Legacy files only.
	IndexModeAbsolute IndexMode = 1
)

// String returns a human-readable mode name.
func (m IndexMode) String() string {
	switch m {
	case IndexModeRelative:
		return "relative"
	case IndexModeAbsolute:
		return "absolute"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// MaterialRef names a material slot on a node. Texture resolution is the
// host layer's job; the hint is passed through untouched.
type MaterialRef struct {
	Name            string
	TexturePathHint string
}

// Face is one triangle, with indices into the owning Mesh's buffers and
// a material slot index into the owning Node's MaterialRefs.
type Face struct {
	VertexIndices [3]int
	MaterialIndex int
}

// FaceGroup is one run of faces sharing a material, covering a
// contiguous slice of the node's vertex buffer. Groups are kept so a
// mesh can be written back in its original segmented form.
type FaceGroup struct {
	VertexCount   int
	IndexCount    int
	MaterialIndex int
}

// Mesh is a node's flattened geometry. After assembly every face index
// is a valid index into Vertices (and UVs where present), regardless of
// the indexing mode the file used.
type Mesh struct {
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	UVs      []mgl32.Vec2
	Faces    []Face
	Groups   []FaceGroup

	// Invalid marks a mesh whose index data could not be resolved. The
	// buffers are emptied and a diagnostic describes the failure; the
	// rest of the file still parses.
	Invalid bool
}

// TranslationKey is one translation sample of an animation track.
type TranslationKey struct {
	Time        float32
	Translation mgl32.Vec3
}

// RotationKey is one rotation sample. Euler-encoded files are converted
// to quaternions on decode.
type RotationKey struct {
	Time     float32
	Rotation mgl32.Quat
}

// AnimationTrack holds a node's keyframe tracks in time order. No
// interpolation is baked in; hosts map the keys onto their own curve
// system.
type AnimationTrack struct {
	TranslationKeys []TranslationKey
	RotationKeys    []RotationKey
}

// Node is one entry in the scene hierarchy.
type Node struct {
	Name     string
	Parent   *Node
	Children []*Node

	// LocalTransform is relative to the parent frame, or an absolute
	// offset from the world origin when Global is set. The parser never
	// pre-composes world transforms.
	LocalTransform mgl32.Mat4
	Global         bool

	IndexMode    IndexMode
	Geometry     *Mesh
	MaterialRefs []MaterialRef
	Animation    *AnimationTrack

	// UnknownChunks preserves unrecognized chunks found inside this
	// node, payloads verbatim.
	UnknownChunks []ChunkRecord
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.Parent == nil
}

// SceneGraph is the parsed, host-independent result of one MSH file.
// It is built in a single parse pass and must be treated as read-only
// afterwards; independent parses share no state.
type SceneGraph struct {
	Version     Version
	Roots       []*Node
	Diagnostics []Diagnostic

	// UnknownChunks preserves unrecognized top-level chunks.
	UnknownChunks []ChunkRecord

	nodes  []*Node // file order
	byName map[string]*Node
}

// Node returns the node with the given name, or nil.
func (sg *SceneGraph) Node(name string) *Node {
	return sg.byName[name]
}

// Nodes returns all nodes in file order. The slice is shared; callers
// must not modify it.
func (sg *SceneGraph) Nodes() []*Node {
	return sg.nodes
}

// NodeCount returns the number of nodes in the graph.
func (sg *SceneGraph) NodeCount() int {
	return len(sg.nodes)
}

// TotalVertexCount returns the vertex count summed over all nodes.
func (sg *SceneGraph) TotalVertexCount() int {
	total := 0
	for _, n := range sg.nodes {
		if n.Geometry != nil {
			total += len(n.Geometry.Vertices)
		}
	}
	return total
}

// TotalFaceCount returns the face count summed over all nodes.
func (sg *SceneGraph) TotalFaceCount() int {
	total := 0
	for _, n := range sg.nodes {
		if n.Geometry != nil {
			total += len(n.Geometry.Faces)
		}
	}
	return total
}

// HasAnimation returns true if any node carries keyframes.
func (sg *SceneGraph) HasAnimation() bool {
	for _, n := range sg.nodes {
		if n.Animation != nil {
			return true
		}
	}
	return false
}
