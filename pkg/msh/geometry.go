package msh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// assembleGeometry decodes one node's GEOM container into a flattened
// Mesh. It returns the node's declared vertex count so the caller can
// keep the running file-wide buffer offset that absolute-mode indices
// are expressed against.
//
// Index resolution failures are contained to the node: the mesh is
// emitted empty and flagged, a diagnostic is recorded, and the rest of
// the file parses normally. Structural payload errors stay fatal.
func (p *parser) assembleGeometry(node *Node, geom *ChunkRecord, bufferStart int) (int, error) {
	mesh := &Mesh{}
	var indices []uint16
	mode := IndexModeRelative
	if p.opts.AssumeAbsoluteIndexing {
		mode = IndexModeAbsolute
	}
	modeDeclared := false

	for i := range geom.Children {
		c := &geom.Children[i]
		switch c.Tag {
		case TagVertices:
			v, err := decodeVec3Array(c.Payload)
			if err != nil {
				return 0, fmt.Errorf("VERT: %w", err)
			}
			mesh.Vertices = v
		case TagNormals:
			v, err := decodeVec3Array(c.Payload)
			if err != nil {
				return 0, fmt.Errorf("NORM: %w", err)
			}
			mesh.Normals = v
		case TagTexCoords:
			v, err := decodeVec2Array(c.Payload)
			if err != nil {
				return 0, fmt.Errorf("TEXC: %w", err)
			}
			mesh.UVs = v
		case TagVertexGroup:
			g, err := decodeVertexGroup(c.Payload)
			if err != nil {
				return 0, err
			}
			mesh.Groups = append(mesh.Groups, g)
		case TagIndices:
			v, err := decodeIndexArray(c.Payload)
			if err != nil {
				return 0, fmt.Errorf("INDX: %w", err)
			}
			indices = v
		case TagIndexMode:
			if len(c.Payload) < 1 {
				return 0, fmt.Errorf("%w: empty IMOD payload", ErrMalformedChunk)
			}
			switch IndexMode(c.Payload[0]) {
			case IndexModeRelative, IndexModeAbsolute:
				mode = IndexMode(c.Payload[0])
				modeDeclared = true
			default:
				p.diag(SeverityWarning, c.Tag, "node %q: unknown indexing mode %d, keeping %s",
					node.Name, c.Payload[0], mode)
			}
		default:
			p.diag(SeverityInfo, c.Tag, "node %q: unknown geometry chunk preserved (%d bytes)", node.Name, c.ByteLength)
			node.UnknownChunks = append(node.UnknownChunks, *c)
		}
	}

	vertexCount := len(mesh.Vertices)
	if !modeDeclared && len(indices) > 0 {
		p.diag(SeverityInfo, TagIndexMode, "node %q: no IMOD chunk, defaulting to %s indexing", node.Name, mode)
	}
	node.IndexMode = mode

	// Normals and UVs are index-aligned with the vertex buffer. A
	// mismatched count is tolerated by clamping to the vertex count.
	mesh.Normals = alignVec3(mesh.Normals, vertexCount, node.Name, TagNormals, p)
	if len(mesh.UVs) != 0 && len(mesh.UVs) != vertexCount {
		p.diag(SeverityWarning, TagTexCoords, "node %q: %d UVs for %d vertices, clamping",
			node.Name, len(mesh.UVs), vertexCount)
		mesh.UVs = clampVec2(mesh.UVs, vertexCount)
	}

	if len(mesh.Groups) == 0 && len(indices) > 0 {
		mesh.Groups = []FaceGroup{{VertexCount: vertexCount, IndexCount: len(indices)}}
		p.diag(SeverityInfo, TagVertexGroup, "node %q: no VGRP chunks, treating mesh as one group", node.Name)
	}

	if !p.resolveFaces(node, mesh, indices, mode, bufferStart) {
		node.Geometry = &Mesh{Invalid: true}
		return vertexCount, nil
	}

	node.Geometry = mesh
	return vertexCount, nil
}

// resolveFaces translates raw per-group indices into node-local face
// indices. Relative indices are offset by the group's running vertex
// start; absolute indices have the node's file-wide buffer start
// removed. Getting this wrong is what causes origin clumping, so every
// translated index is bounds-checked before it is kept.
func (p *parser) resolveFaces(node *Node, mesh *Mesh, indices []uint16, mode IndexMode, bufferStart int) bool {
	groupVerts, groupIndices := 0, 0
	for _, g := range mesh.Groups {
		groupVerts += g.VertexCount
		groupIndices += g.IndexCount
	}
	if groupVerts != len(mesh.Vertices) {
		p.diag(SeverityError, TagVertexGroup, "node %q: vertex groups declare %d vertices, buffer has %d; geometry dropped",
			node.Name, groupVerts, len(mesh.Vertices))
		return false
	}
	if groupIndices != len(indices) {
		p.diag(SeverityError, TagIndices, "node %q: vertex groups declare %d indices, buffer has %d; geometry dropped",
			node.Name, groupIndices, len(indices))
		return false
	}

	vertStart, idxStart := 0, 0
	for gi, g := range mesh.Groups {
		if g.IndexCount%3 != 0 {
			p.diag(SeverityWarning, TagIndices, "node %q group %d: %d indices is not a whole number of triangles, tail dropped",
				node.Name, gi, g.IndexCount)
		}
		materialIndex := g.MaterialIndex
		if len(node.MaterialRefs) > 0 && materialIndex >= len(node.MaterialRefs) {
			p.diag(SeverityWarning, TagVertexGroup, "node %q group %d: material slot %d out of range, using slot 0",
				node.Name, gi, materialIndex)
			materialIndex = 0
		}

		for i := idxStart; i+3 <= idxStart+g.IndexCount; i += 3 {
			var face Face
			face.MaterialIndex = materialIndex
			ok := true
			for k := 0; k < 3; k++ {
				raw := int(indices[i+k])
				var local int
				switch mode {
				case IndexModeAbsolute:
					local = raw - bufferStart
				default:
					if raw >= g.VertexCount {
						ok = false
					}
					local = vertStart + raw
				}
				if local < 0 || local >= len(mesh.Vertices) {
					ok = false
				}
				face.VertexIndices[k] = local
			}
			if !ok {
				p.diag(SeverityError, TagIndices, "node %q group %d: face index out of range (%s mode, buffer start %d); geometry dropped",
					node.Name, gi, mode, bufferStart)
				return false
			}
			mesh.Faces = append(mesh.Faces, face)
		}
		vertStart += g.VertexCount
		idxStart += g.IndexCount
	}
	return true
}

func decodeVec3Array(payload []byte) ([]mgl32.Vec3, error) {
	count, n, err := decodeUint32(payload, 0)
	if err != nil {
		return nil, err
	}
	if len(payload) != n+int(count)*12 {
		return nil, fmt.Errorf("%w: %d vectors declared in %d payload bytes", ErrMalformedChunk, count, len(payload))
	}
	out := make([]mgl32.Vec3, count)
	offset := n
	for i := range out {
		v, m, _ := decodeVec3(payload, offset)
		out[i] = v
		offset += m
	}
	return out, nil
}

func decodeVec2Array(payload []byte) ([]mgl32.Vec2, error) {
	count, n, err := decodeUint32(payload, 0)
	if err != nil {
		return nil, err
	}
	if len(payload) != n+int(count)*8 {
		return nil, fmt.Errorf("%w: %d UVs declared in %d payload bytes", ErrMalformedChunk, count, len(payload))
	}
	out := make([]mgl32.Vec2, count)
	offset := n
	for i := range out {
		v, m, _ := decodeVec2(payload, offset)
		out[i] = v
		offset += m
	}
	return out, nil
}

func decodeIndexArray(payload []byte) ([]uint16, error) {
	count, n, err := decodeUint32(payload, 0)
	if err != nil {
		return nil, err
	}
	if len(payload) != n+int(count)*2 {
		return nil, fmt.Errorf("%w: %d indices declared in %d payload bytes", ErrMalformedChunk, count, len(payload))
	}
	out := make([]uint16, count)
	offset := n
	for i := range out {
		v, m, _ := decodeUint16(payload, offset)
		out[i] = v
		offset += m
	}
	return out, nil
}

func decodeVertexGroup(payload []byte) (FaceGroup, error) {
	var g FaceGroup
	if len(payload) != 12 {
		return g, fmt.Errorf("%w: VGRP payload is %d bytes, want 12", ErrMalformedChunk, len(payload))
	}
	vertCount, n, _ := decodeUint32(payload, 0)
	indexCount, m, _ := decodeUint32(payload, n)
	materialIndex, _, _ := decodeUint32(payload, n+m)
	g.VertexCount = int(vertCount)
	g.IndexCount = int(indexCount)
	g.MaterialIndex = int(materialIndex)
	return g, nil
}

func alignVec3(v []mgl32.Vec3, want int, nodeName string, tag Tag, p *parser) []mgl32.Vec3 {
	if len(v) == 0 || len(v) == want {
		return v
	}
	p.diag(SeverityWarning, tag, "node %q: %d normals for %d vertices, clamping", nodeName, len(v), want)
	if len(v) > want {
		return v[:want]
	}
	return append(v, make([]mgl32.Vec3, want-len(v))...)
}

func clampVec2(v []mgl32.Vec2, want int) []mgl32.Vec2 {
	if len(v) > want {
		return v[:want]
	}
	return append(v, make([]mgl32.Vec2, want-len(v))...)
}
