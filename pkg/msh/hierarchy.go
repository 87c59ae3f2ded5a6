package msh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// nodeDecl is a node as declared in the file, before parent links are
// resolved. Geometry and keyframe chunks are held for the later
// assembly passes.
type nodeDecl struct {
	node      *Node
	parent    string
	geom      *ChunkRecord
	keyChunks []*ChunkRecord // KTRN/KROT in file order
}

// decodeNodeDecl decodes the children of one NODE container.
func (p *parser) decodeNodeDecl(rec *ChunkRecord) (*nodeDecl, error) {
	node := &Node{LocalTransform: mgl32.Ident4()}
	d := &nodeDecl{node: node}

	seenName := false
	seenTransform := false
	for i := range rec.Children {
		c := &rec.Children[i]
		switch c.Tag {
		case TagName:
			name, _, err := decodeString(c.Payload, 0)
			if err != nil {
				return nil, fmt.Errorf("NODE name: %w", err)
			}
			// An empty name would be indistinguishable from the empty
			// PRNT string that marks a root, so it can never be linked.
			if name == "" {
				return nil, fmt.Errorf("%w: NODE with empty NAME", ErrMalformedChunk)
			}
			node.Name = name
			seenName = true
		case TagParent:
			parent, _, err := decodeString(c.Payload, 0)
			if err != nil {
				return nil, fmt.Errorf("NODE parent: %w", err)
			}
			d.parent = parent
		case TagTransform:
			m, _, err := decodeMat4(c.Payload, 0)
			if err != nil {
				return nil, fmt.Errorf("node %q transform: %w", node.Name, err)
			}
			node.LocalTransform = m
			seenTransform = true
		case TagGlobal:
			if len(c.Payload) < 1 {
				return nil, fmt.Errorf("%w: empty GLBL payload in node %q", ErrMalformedChunk, node.Name)
			}
			node.Global = c.Payload[0] != 0
		case TagMaterial:
			ref, err := decodeMaterialRef(c.Payload)
			if err != nil {
				return nil, fmt.Errorf("node %q material: %w", node.Name, err)
			}
			node.MaterialRefs = append(node.MaterialRefs, ref)
		case TagGeometry:
			if d.geom != nil {
				p.diag(SeverityWarning, c.Tag, "node %q: duplicate GEOM chunk ignored", node.Name)
				continue
			}
			d.geom = c
		case TagTranslationKeys, TagRotationKeys:
			d.keyChunks = append(d.keyChunks, c)
		default:
			p.diag(SeverityInfo, c.Tag, "node %q: unknown chunk preserved (%d bytes)", node.Name, c.ByteLength)
			node.UnknownChunks = append(node.UnknownChunks, *c)
		}
	}

	if !seenName {
		return nil, fmt.Errorf("%w: NODE chunk without NAME", ErrMalformedChunk)
	}
	if !seenTransform {
		p.diag(SeverityWarning, TagTransform, "node %q has no XFRM chunk, using identity", node.Name)
	}
	return d, nil
}

func decodeMaterialRef(payload []byte) (MaterialRef, error) {
	var ref MaterialRef
	name, n, err := decodeString(payload, 0)
	if err != nil {
		return ref, err
	}
	hint, _, err := decodeString(payload, n)
	if err != nil {
		return ref, err
	}
	ref.Name = name
	ref.TexturePathHint = hint
	return ref, nil
}

// linkHierarchy resolves parent references in two passes: all names are
// collected first, then links are made, so a child may precede its
// parent in file order.
func (p *parser) linkHierarchy(sg *SceneGraph, decls []*nodeDecl) error {
	for _, d := range decls {
		if _, dup := sg.byName[d.node.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateNodeName, d.node.Name)
		}
		sg.byName[d.node.Name] = d.node
		sg.nodes = append(sg.nodes, d.node)
	}

	for _, d := range decls {
		if d.parent == "" {
			sg.Roots = append(sg.Roots, d.node)
			continue
		}
		parent := sg.byName[d.parent]
		if parent == nil {
			return fmt.Errorf("%w: node %q references %q", ErrUnresolvedParent, d.node.Name, d.parent)
		}
		d.node.Parent = parent
		parent.Children = append(parent.Children, d.node)
	}

	// A parent chain longer than the node count can only mean a cycle.
	for _, d := range decls {
		steps := 0
		for n := d.node.Parent; n != nil; n = n.Parent {
			steps++
			if steps > len(decls) {
				return fmt.Errorf("%w: involving node %q", ErrHierarchyCycle, d.node.Name)
			}
		}
	}
	return nil
}
