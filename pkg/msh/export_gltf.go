package msh

import (
	"sort"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ExportGLTF builds a glTF 2.0 document for the scene: the full node
// hierarchy with local matrices, one mesh primitive per material slot in
// use, and materials named after the MSH material references (texture
// hints become material names only; texture file I/O stays with the
// host). Animation tracks and global-origin flags are not translated;
// transforms are exported exactly as stored.
func (sg *SceneGraph) ExportGLTF() (*gltf.Document, error) {
	e := &gltfExporter{
		doc:       gltf.NewDocument(),
		materials: make(map[string]uint32),
	}

	nodeIndex := make(map[*Node]uint32, len(sg.nodes))
	for _, n := range sg.nodes {
		gn := &gltf.Node{
			Name: n.Name,
			// mgl32.Mat4 is already the column-major [16]float32 layout
			// glTF wants.
			Matrix: n.LocalTransform,
		}
		if n.Geometry != nil && !n.Geometry.Invalid && len(n.Geometry.Faces) > 0 {
			gn.Mesh = gltf.Index(e.exportMesh(n))
		}
		nodeIndex[n] = uint32(len(e.doc.Nodes))
		e.doc.Nodes = append(e.doc.Nodes, gn)
	}

	for _, n := range sg.nodes {
		if n.Parent != nil {
			pi := nodeIndex[n.Parent]
			e.doc.Nodes[pi].Children = append(e.doc.Nodes[pi].Children, nodeIndex[n])
		}
	}
	for _, root := range sg.Roots {
		e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, nodeIndex[root])
	}
	return e.doc, nil
}

type gltfExporter struct {
	doc       *gltf.Document
	materials map[string]uint32 // reuse by material name, like the hosts do
}

func (e *gltfExporter) exportMesh(n *Node) uint32 {
	mesh := n.Geometry

	positions := make([][3]float32, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		positions[i] = v
	}
	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(e.doc, positions),
	}
	if len(mesh.Normals) > 0 {
		normals := make([][3]float32, len(mesh.Normals))
		for i, v := range mesh.Normals {
			normals[i] = v
		}
		attributes["NORMAL"] = modeler.WriteNormal(e.doc, normals)
	}
	if len(mesh.UVs) > 0 {
		uvs := make([][2]float32, len(mesh.UVs))
		for i, v := range mesh.UVs {
			uvs[i] = v
		}
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(e.doc, uvs)
	}

	// One primitive per material slot in use.
	bySlot := make(map[int][]uint32)
	for _, f := range mesh.Faces {
		for _, idx := range f.VertexIndices {
			bySlot[f.MaterialIndex] = append(bySlot[f.MaterialIndex], uint32(idx))
		}
	}
	slots := make([]int, 0, len(bySlot))
	for slot := range bySlot {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	gm := &gltf.Mesh{Name: n.Name}
	for _, slot := range slots {
		prim := &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(e.doc, bySlot[slot])),
			Attributes: attributes,
		}
		if slot < len(n.MaterialRefs) {
			prim.Material = gltf.Index(e.materialIndex(n.MaterialRefs[slot]))
		}
		gm.Primitives = append(gm.Primitives, prim)
	}

	e.doc.Meshes = append(e.doc.Meshes, gm)
	return uint32(len(e.doc.Meshes) - 1)
}

func (e *gltfExporter) materialIndex(ref MaterialRef) uint32 {
	if idx, ok := e.materials[ref.Name]; ok {
		return idx
	}
	idx := uint32(len(e.doc.Materials))
	e.doc.Materials = append(e.doc.Materials, &gltf.Material{
		Name:                 ref.Name,
		DoubleSided:          true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{},
	})
	e.materials[ref.Name] = idx
	return idx
}
