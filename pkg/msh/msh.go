// Package msh parses and encodes the Battlezone II .msh binary model
// format: a chunk-based container holding a node hierarchy, per-node
// geometry with vertex-group indexing, material references and keyframe
// animation tracks.
package msh

import (
	"errors"
	"fmt"
	"os"
)

// MSH format errors. Fatal conditions abort the parse of the whole file;
// tolerated conditions are reported through SceneGraph.Diagnostics.
var (
	ErrTruncatedInput    = errors.New("truncated MSH input")
	ErrMalformedChunk    = errors.New("malformed MSH chunk")
	ErrUnresolvedParent  = errors.New("unresolved parent node")
	ErrDuplicateNodeName = errors.New("duplicate node name")
	ErrHierarchyCycle    = errors.New("cycle in node hierarchy")
)

// Options controls parse policy that is not intrinsic to the file.
type Options struct {
	// AssumeAbsoluteIndexing selects the indexing mode for nodes whose
	// geometry carries no IMOD chunk. The default (false) respects
	// relative per-group indexing; hosts expose this as an import
	// option for legacy files that predate the mode chunk.
	AssumeAbsoluteIndexing bool

	// SkipAnimations drops keyframe chunks instead of building
	// animation tracks. Nodes come out with a nil Animation, so the
	// tracks are absent from dumps, exports and re-encoded output.
	SkipAnimations bool
}

// Parse decodes a complete .msh byte buffer into a SceneGraph. On a
// fatal error no SceneGraph is returned; tolerated inconsistencies are
// collected in SceneGraph.Diagnostics alongside a best-effort graph.
func Parse(data []byte, opts Options) (*SceneGraph, error) {
	records, err := ReadChunks(data)
	if err != nil {
		return nil, err
	}
	p := &parser{opts: opts}
	return p.run(records)
}

// ParseFile reads and parses a .msh file. The file handle is released as
// soon as the bytes are captured; parsing works on the in-memory buffer.
func ParseFile(path string, opts Options) (*SceneGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading MSH file: %w", err)
	}
	return Parse(data, opts)
}

// parser carries per-parse state. A fresh parser is used for every file,
// so concurrent parses of independent files share nothing.
type parser struct {
	opts  Options
	diags []Diagnostic
}

func (p *parser) diag(sev Severity, tag Tag, format string, args ...interface{}) {
	p.diags = append(p.diags, Diagnostic{
		Severity: sev,
		Tag:      tag,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (p *parser) run(records []ChunkRecord) (*SceneGraph, error) {
	sg := &SceneGraph{
		Version: Version{Major: 1, Minor: 0},
		byName:  make(map[string]*Node),
	}

	var decls []*nodeDecl
	seenHeader := false
	for i := range records {
		rec := &records[i]
		switch rec.Tag {
		case TagHeader:
			if seenHeader {
				p.diag(SeverityWarning, rec.Tag, "duplicate HEAD chunk ignored")
				continue
			}
			seenHeader = true
			v, err := decodeHeader(rec.Payload)
			if err != nil {
				return nil, err
			}
			sg.Version = v
		case TagNode:
			decl, err := p.decodeNodeDecl(rec)
			if err != nil {
				return nil, err
			}
			decls = append(decls, decl)
		default:
			p.diag(SeverityInfo, rec.Tag, "unknown top-level chunk preserved (%d bytes)", rec.ByteLength)
			sg.UnknownChunks = append(sg.UnknownChunks, *rec)
		}
	}
	if !seenHeader {
		p.diag(SeverityWarning, TagHeader, "missing HEAD chunk, assuming version %s", sg.Version)
	}

	if err := p.linkHierarchy(sg, decls); err != nil {
		return nil, err
	}

	// Geometry is assembled in file order so that absolute-mode nodes
	// see the same running buffer-start offsets the writing tool used.
	bufferStart := 0
	for _, d := range decls {
		if d.geom == nil {
			continue
		}
		consumed, err := p.assembleGeometry(d.node, d.geom, bufferStart)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", d.node.Name, err)
		}
		bufferStart += consumed
	}

	for _, d := range decls {
		if err := p.buildAnimation(d); err != nil {
			return nil, fmt.Errorf("node %q: %w", d.node.Name, err)
		}
	}

	sg.Diagnostics = p.diags
	return sg, nil
}

func decodeHeader(payload []byte) (Version, error) {
	var v Version
	if len(payload) != 4 {
		return v, fmt.Errorf("%w: HEAD payload is %d bytes, want 4", ErrMalformedChunk, len(payload))
	}
	major, n, _ := decodeUint16(payload, 0)
	minor, _, _ := decodeUint16(payload, n)
	v.Major, v.Minor = major, minor
	return v, nil
}
