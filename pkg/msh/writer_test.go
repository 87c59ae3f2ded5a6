package msh

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// canonicalScene builds an input in exactly the field order the encoder
// emits, so parse-then-encode reproduces the bytes.
func canonicalScene() []byte {
	return concat(
		headChunk(1, 0),
		nodeChunk(
			nameChunk("hull"),
			xfrmChunk(mgl32.Ident4()),
			glblChunk(1),
			mtrlChunk("armor", "avtank00.bmp"),
			geomChunk(
				vertChunk(vec3(0, 0, 0), vec3(1, 0, 0), vec3(0, 1, 0)),
				normChunk(vec3(0, 0, 1), vec3(0, 0, 1), vec3(0, 0, 1)),
				texcChunk(vec2(0, 0), vec2(1, 0), vec2(0, 1)),
				vgrpChunk(3, 3, 0),
				indxChunk(0, 1, 2),
				imodChunk(0),
			),
			ktrnChunk(
				TranslationKey{Time: 0, Translation: vec3(0, 0, 0)},
				TranslationKey{Time: 1, Translation: vec3(0, 0, 2)},
			),
			krotQuatChunk(
				RotationKey{Time: 0, Rotation: mgl32.QuatIdent()},
			),
		),
		nodeChunk(
			nameChunk("turret"),
			parentChunk("hull"),
			xfrmChunk(mgl32.Translate3D(0, 0, 2)),
		),
	)
}

func TestEncode_ByteExactRoundTrip(t *testing.T) {
	buf := canonicalScene()

	scene, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	out := scene.Encode()
	if !bytes.Equal(out, buf) {
		t.Errorf("encoded bytes differ from canonical input\n got %d bytes\nwant %d bytes", len(out), len(buf))
	}
}

func TestEncode_Stable(t *testing.T) {
	scene, err := Parse(canonicalScene(), Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	first := scene.Encode()
	reparsed, err := Parse(first, Options{})
	if err != nil {
		t.Fatalf("Parse of encoded bytes failed: %v", err)
	}
	second := reparsed.Encode()
	if !bytes.Equal(first, second) {
		t.Error("encoding is not stable across a parse round trip")
	}
}

func TestEncode_AbsoluteIndicesRestored(t *testing.T) {
	buf := concat(
		headChunk(1, 0),
		nodeChunk(
			nameChunk("a"),
			xfrmChunk(mgl32.Ident4()),
			geomChunk(
				vertChunk(vec3(0, 0, 0), vec3(1, 0, 0), vec3(0, 1, 0)),
				vgrpChunk(3, 3, 0),
				indxChunk(0, 1, 2),
				imodChunk(1),
			),
		),
		nodeChunk(
			nameChunk("b"),
			parentChunk("a"),
			xfrmChunk(mgl32.Ident4()),
			geomChunk(
				vertChunk(vec3(2, 0, 0), vec3(3, 0, 0), vec3(2, 1, 0)),
				vgrpChunk(3, 3, 0),
				indxChunk(3, 4, 5),
				imodChunk(1),
			),
		),
	)

	scene, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// The assembler rewrote node b's indices to local 0,1,2; encoding
	// must shift them back to the file-wide 3,4,5.
	if !bytes.Equal(scene.Encode(), buf) {
		t.Error("absolute-mode indices not restored on encode")
	}
}

func TestEncode_InvalidGeometryOmitted(t *testing.T) {
	buf := concat(
		headChunk(1, 0),
		nodeChunk(
			nameChunk("bad"),
			xfrmChunk(mgl32.Ident4()),
			geomChunk(
				vertChunk(vec3(0, 0, 0), vec3(1, 0, 0), vec3(0, 1, 0)),
				vgrpChunk(3, 3, 0),
				indxChunk(0, 1, 9),
				imodChunk(0),
			),
		),
	)

	scene, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !scene.Node("bad").Geometry.Invalid {
		t.Fatal("geometry expected to be flagged invalid")
	}

	reparsed, err := Parse(scene.Encode(), Options{})
	if err != nil {
		t.Fatalf("Parse of encoded bytes failed: %v", err)
	}
	if reparsed.Node("bad").Geometry != nil {
		t.Error("invalid geometry leaked into the encoded output")
	}
}

func TestEncode_UnknownChunksPreserved(t *testing.T) {
	unknownNode := rawChunk(MakeTag("COLL"), []byte{1, 2, 3, 4})
	unknownTop := rawChunk(MakeTag("CAMS"), []byte("viewport"))
	buf := concat(
		headChunk(1, 0),
		nodeChunk(
			nameChunk("n"),
			xfrmChunk(mgl32.Ident4()),
			unknownNode,
		),
		unknownTop,
	)

	scene, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !bytes.Equal(scene.Encode(), buf) {
		t.Error("unknown chunks not carried through the round trip")
	}
}

func TestRebuildIndices_NormalizesRaggedGroups(t *testing.T) {
	n := &Node{
		Name: "n",
		Geometry: &Mesh{
			Vertices: []mgl32.Vec3{{}, {}, {}, {}},
			Faces:    []Face{{VertexIndices: [3]int{0, 1, 2}}},
			Groups:   []FaceGroup{{VertexCount: 4, IndexCount: 5}},
		},
	}

	groups, indices := rebuildIndices(n, 0)
	if groups[0].IndexCount != 3 {
		t.Errorf("IndexCount = %d, want 3 after normalization", groups[0].IndexCount)
	}
	if len(indices) != 3 {
		t.Errorf("got %d indices, want 3", len(indices))
	}
}
