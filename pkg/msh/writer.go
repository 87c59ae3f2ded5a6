package msh

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Encode writes the scene graph back to the MSH binary form. Parsing
// the result yields a structurally equal graph. Rotation keys decoded
// from the Euler variant are written in the canonical quaternion
// encoding; meshes flagged Invalid are written without geometry.
func (sg *SceneGraph) Encode() []byte {
	return EncodeChunks(sg.Chunks())
}

// Chunks builds the chunk tree for the scene graph, preserved unknown
// chunks included.
func (sg *SceneGraph) Chunks() []ChunkRecord {
	records := []ChunkRecord{{
		Tag:     TagHeader,
		Payload: appendUint16(appendUint16(nil, sg.Version.Major), sg.Version.Minor),
	}}

	bufferStart := 0
	for _, n := range sg.nodes {
		records = append(records, encodeNode(n, bufferStart))
		if n.Geometry != nil {
			bufferStart += len(n.Geometry.Vertices)
		}
	}
	records = append(records, sg.UnknownChunks...)
	return records
}

func encodeNode(n *Node, bufferStart int) ChunkRecord {
	rec := ChunkRecord{Tag: TagNode}

	rec.Children = append(rec.Children, ChunkRecord{Tag: TagName, Payload: appendString(nil, n.Name)})
	if n.Parent != nil {
		rec.Children = append(rec.Children, ChunkRecord{Tag: TagParent, Payload: appendString(nil, n.Parent.Name)})
	}
	rec.Children = append(rec.Children, ChunkRecord{Tag: TagTransform, Payload: appendMat4(nil, n.LocalTransform)})
	if n.Global {
		rec.Children = append(rec.Children, ChunkRecord{Tag: TagGlobal, Payload: []byte{1}})
	}
	for _, ref := range n.MaterialRefs {
		payload := appendString(nil, ref.Name)
		payload = appendString(payload, ref.TexturePathHint)
		rec.Children = append(rec.Children, ChunkRecord{Tag: TagMaterial, Payload: payload})
	}
	if n.Geometry != nil && !n.Geometry.Invalid {
		rec.Children = append(rec.Children, encodeGeometry(n, bufferStart))
	}
	if n.Animation != nil {
		rec.Children = append(rec.Children, encodeAnimation(n.Animation)...)
	}
	rec.Children = append(rec.Children, n.UnknownChunks...)
	return rec
}

func encodeGeometry(n *Node, bufferStart int) ChunkRecord {
	mesh := n.Geometry
	rec := ChunkRecord{Tag: TagGeometry}

	payload := appendUint32(nil, uint32(len(mesh.Vertices)))
	for _, v := range mesh.Vertices {
		payload = appendVec3(payload, v)
	}
	rec.Children = append(rec.Children, ChunkRecord{Tag: TagVertices, Payload: payload})

	if len(mesh.Normals) > 0 {
		payload = appendUint32(nil, uint32(len(mesh.Normals)))
		for _, v := range mesh.Normals {
			payload = appendVec3(payload, v)
		}
		rec.Children = append(rec.Children, ChunkRecord{Tag: TagNormals, Payload: payload})
	}
	if len(mesh.UVs) > 0 {
		payload = appendUint32(nil, uint32(len(mesh.UVs)))
		for _, v := range mesh.UVs {
			payload = appendVec2(payload, v)
		}
		rec.Children = append(rec.Children, ChunkRecord{Tag: TagTexCoords, Payload: payload})
	}

	// Face indices are re-derived from the flattened faces, inverting
	// the correction the assembler applied for this node's mode.
	groups, indices := rebuildIndices(n, bufferStart)
	for _, g := range groups {
		payload = appendUint32(nil, uint32(g.VertexCount))
		payload = appendUint32(payload, uint32(g.IndexCount))
		payload = appendUint32(payload, uint32(g.MaterialIndex))
		rec.Children = append(rec.Children, ChunkRecord{Tag: TagVertexGroup, Payload: payload})
	}
	payload = appendUint32(nil, uint32(len(indices)))
	for _, idx := range indices {
		payload = appendUint16(payload, idx)
	}
	rec.Children = append(rec.Children, ChunkRecord{Tag: TagIndices, Payload: payload})
	rec.Children = append(rec.Children, ChunkRecord{Tag: TagIndexMode, Payload: []byte{byte(n.IndexMode)}})
	return rec
}

// rebuildIndices walks the faces group by group and restores the raw
// index encoding: group-relative offsets for relative mode, file-wide
// offsets for absolute mode. Group index counts are normalized to whole
// triangles.
func rebuildIndices(n *Node, bufferStart int) ([]FaceGroup, []uint16) {
	mesh := n.Geometry
	groups := make([]FaceGroup, len(mesh.Groups))
	copy(groups, mesh.Groups)

	var indices []uint16
	vertStart, face := 0, 0
	for gi := range groups {
		faceCount := groups[gi].IndexCount / 3
		groups[gi].IndexCount = faceCount * 3
		for f := 0; f < faceCount && face < len(mesh.Faces); f++ {
			for _, local := range mesh.Faces[face].VertexIndices {
				if n.IndexMode == IndexModeAbsolute {
					indices = append(indices, uint16(local+bufferStart))
				} else {
					indices = append(indices, uint16(local-vertStart))
				}
			}
			face++
		}
		vertStart += groups[gi].VertexCount
	}
	return groups, indices
}

func encodeAnimation(track *AnimationTrack) []ChunkRecord {
	var records []ChunkRecord
	if len(track.TranslationKeys) > 0 {
		payload := appendUint32(nil, uint32(len(track.TranslationKeys)))
		for _, k := range track.TranslationKeys {
			payload = appendFloat32(payload, k.Time)
			payload = appendVec3(payload, k.Translation)
		}
		records = append(records, ChunkRecord{Tag: TagTranslationKeys, Payload: payload})
	}
	if len(track.RotationKeys) > 0 {
		payload := appendUint32(nil, uint32(len(track.RotationKeys)))
		for _, k := range track.RotationKeys {
			payload = appendFloat32(payload, k.Time)
			payload = appendQuat(payload, k.Rotation)
		}
		records = append(records, ChunkRecord{Tag: TagRotationKeys, Payload: payload})
	}
	return records
}

// Primitive encoders, the mirror of primitives.go.

func appendUint16(buf []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(buf, v)
}

func appendUint32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

func appendFloat32(buf []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
}

func appendVec2(buf []byte, v mgl32.Vec2) []byte {
	for i := range v {
		buf = appendFloat32(buf, v[i])
	}
	return buf
}

func appendVec3(buf []byte, v mgl32.Vec3) []byte {
	for i := range v {
		buf = appendFloat32(buf, v[i])
	}
	return buf
}

// appendQuat writes the scalar-first (s, x, y, z) file order.
func appendQuat(buf []byte, q mgl32.Quat) []byte {
	buf = appendFloat32(buf, q.W)
	return appendVec3(buf, q.V)
}

// appendMat4 writes the row-major file order.
func appendMat4(buf []byte, m mgl32.Mat4) []byte {
	t := m.Transpose()
	for i := range t {
		buf = appendFloat32(buf, t[i])
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}
