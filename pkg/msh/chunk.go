package msh

import (
	"encoding/binary"
	"fmt"
)

// Tag is a four-byte chunk identifier.
type Tag [4]byte

// MakeTag builds a Tag from a four-character string.
func MakeTag(s string) Tag {
	var t Tag
	copy(t[:], s)
	return t
}

// String returns the tag as printable text.
func (t Tag) String() string {
	return string(t[:])
}

// Chunk tags used by the MSH format. Any other tag is preserved as an
// opaque leaf record.
var (
	TagHeader          = MakeTag("HEAD")
	TagNode            = MakeTag("NODE")
	TagName            = MakeTag("NAME")
	TagParent          = MakeTag("PRNT")
	TagTransform       = MakeTag("XFRM")
	TagGlobal          = MakeTag("GLBL")
	TagMaterial        = MakeTag("MTRL")
	TagGeometry        = MakeTag("GEOM")
	TagVertices        = MakeTag("VERT")
	TagNormals         = MakeTag("NORM")
	TagTexCoords       = MakeTag("TEXC")
	TagVertexGroup     = MakeTag("VGRP")
	TagIndices         = MakeTag("INDX")
	TagIndexMode       = MakeTag("IMOD")
	TagTranslationKeys = MakeTag("KTRN")
	TagRotationKeys    = MakeTag("KROT")
)

// chunkHeaderSize is tag (4 bytes) plus the byte-length field (4 bytes).
const chunkHeaderSize = 8

// containerTags lists the tags whose content is a sequence of child
// chunks rather than a flat payload.
var containerTags = map[Tag]bool{
	TagNode:     true,
	TagGeometry: true,
}

// ChunkRecord is one decoded chunk. For container chunks the content is
// in Children and Payload is nil; for leaf chunks (including unknown
// tags) the content is captured verbatim in Payload.
type ChunkRecord struct {
	Tag        Tag
	ByteLength uint32
	Payload    []byte
	Children   []ChunkRecord
}

// EncodedSize returns the number of bytes the record occupies on disk,
// header included.
func (c *ChunkRecord) EncodedSize() int {
	size := chunkHeaderSize + len(c.Payload)
	for i := range c.Children {
		size += c.Children[i].EncodedSize()
	}
	return size
}

// Child returns the first child with the given tag, or nil.
func (c *ChunkRecord) Child(tag Tag) *ChunkRecord {
	for i := range c.Children {
		if c.Children[i].Tag == tag {
			return &c.Children[i]
		}
	}
	return nil
}

// ReadChunks decodes a full byte buffer into a sequence of top-level
// chunk records. Every chunk's declared length is bounds-checked against
// the remaining input before its content is touched, so a corrupt chunk
// cannot read into a sibling's bytes.
func ReadChunks(data []byte) ([]ChunkRecord, error) {
	records, consumed, err := readChunkSequence(data)
	if err != nil {
		return nil, err
	}
	if consumed != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after last top-level chunk", ErrMalformedChunk, len(data)-consumed)
	}
	return records, nil
}

// readChunkSequence decodes consecutive chunks until the buffer cannot
// hold another header.
func readChunkSequence(data []byte) ([]ChunkRecord, int, error) {
	var records []ChunkRecord
	offset := 0
	for len(data)-offset >= chunkHeaderSize {
		rec, n, err := readChunk(data[offset:])
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
		offset += n
	}
	return records, offset, nil
}

func readChunk(data []byte) (ChunkRecord, int, error) {
	var rec ChunkRecord
	copy(rec.Tag[:], data[:4])
	if !tagPrintable(rec.Tag) {
		return rec, 0, fmt.Errorf("%w: non-printable tag % x", ErrMalformedChunk, rec.Tag[:])
	}
	rec.ByteLength = binary.LittleEndian.Uint32(data[4:8])

	remaining := len(data) - chunkHeaderSize
	if int(rec.ByteLength) > remaining {
		return rec, 0, fmt.Errorf("%w: chunk %q declares %d bytes, %d remain",
			ErrTruncatedInput, rec.Tag, rec.ByteLength, remaining)
	}
	content := data[chunkHeaderSize : chunkHeaderSize+int(rec.ByteLength)]

	if containerTags[rec.Tag] {
		children, consumed, err := readChunkSequence(content)
		if err != nil {
			return rec, 0, fmt.Errorf("inside chunk %q: %w", rec.Tag, err)
		}
		if consumed != len(content) {
			return rec, 0, fmt.Errorf("%w: chunk %q has %d bytes that do not form a child chunk",
				ErrMalformedChunk, rec.Tag, len(content)-consumed)
		}
		rec.Children = children
	} else {
		rec.Payload = content
	}

	return rec, chunkHeaderSize + int(rec.ByteLength), nil
}

// tagPrintable reports whether all tag bytes are printable ASCII. Real
// tags are; garbage after a mis-sized chunk is almost never.
func tagPrintable(t Tag) bool {
	for _, b := range t {
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}

// EncodeChunks writes chunk records back to their binary form. The
// byte-length field is recomputed from content, so a tree decoded by
// ReadChunks re-encodes to the original buffer byte for byte.
func EncodeChunks(records []ChunkRecord) []byte {
	size := 0
	for i := range records {
		size += records[i].EncodedSize()
	}
	buf := make([]byte, 0, size)
	for i := range records {
		buf = appendChunk(buf, &records[i])
	}
	return buf
}

func appendChunk(buf []byte, rec *ChunkRecord) []byte {
	buf = append(buf, rec.Tag[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(rec.EncodedSize()-chunkHeaderSize))
	buf = append(buf, rec.Payload...)
	for i := range rec.Children {
		buf = appendChunk(buf, &rec.Children[i])
	}
	return buf
}
