package msh

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestAnimation_QuaternionKeys(t *testing.T) {
	keys := []RotationKey{
		{Time: 0, Rotation: mgl32.QuatIdent()},
		{Time: 1, Rotation: mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 0, 1})},
	}
	buf := concat(
		headChunk(1, 0),
		nodeChunk(
			nameChunk("n"),
			xfrmChunk(mgl32.Ident4()),
			ktrnChunk(TranslationKey{Time: 0}, TranslationKey{Time: 1, Translation: vec3(0, 0, 4)}),
			krotQuatChunk(keys...),
		),
	)

	scene, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	track := scene.Node("n").Animation
	if track == nil {
		t.Fatal("no animation track built")
	}
	if len(track.TranslationKeys) != 2 {
		t.Fatalf("got %d translation keys, want 2", len(track.TranslationKeys))
	}
	if track.TranslationKeys[1].Translation != vec3(0, 0, 4) {
		t.Errorf("TranslationKeys[1] = %+v", track.TranslationKeys[1])
	}
	if len(track.RotationKeys) != 2 {
		t.Fatalf("got %d rotation keys, want 2", len(track.RotationKeys))
	}
	for i := range keys {
		if track.RotationKeys[i] != keys[i] {
			t.Errorf("RotationKeys[%d] = %+v, want %+v", i, track.RotationKeys[i], keys[i])
		}
	}
}

func TestAnimation_EulerKeys(t *testing.T) {
	// A zero Euler triple is the identity rotation; the stride alone
	// distinguishes the Euler encoding from quaternions.
	buf := concat(
		headChunk(1, 0),
		nodeChunk(
			nameChunk("n"),
			xfrmChunk(mgl32.Ident4()),
			krotEulerChunk([4]float32{0, 0, 0, 0}, [4]float32{1, 0, 0, float32(math.Pi / 2)}),
		),
	)

	scene, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	track := scene.Node("n").Animation
	if track == nil || len(track.RotationKeys) != 2 {
		t.Fatalf("track = %+v, want 2 rotation keys", track)
	}
	if got := track.RotationKeys[0].Rotation; got != mgl32.QuatIdent() {
		t.Errorf("zero Euler key decoded as %+v, want identity", got)
	}
	want := mgl32.AnglesToQuat(0, 0, float32(math.Pi/2), mgl32.XYZ)
	if got := track.RotationKeys[1].Rotation; got != want {
		t.Errorf("Euler key decoded as %+v, want %+v", got, want)
	}
}

func TestAnimation_DuplicateTimesKeepFileOrder(t *testing.T) {
	buf := concat(
		headChunk(1, 0),
		nodeChunk(
			nameChunk("n"),
			xfrmChunk(mgl32.Ident4()),
			ktrnChunk(
				TranslationKey{Time: 0, Translation: vec3(0, 0, 0)},
				TranslationKey{Time: 0.5, Translation: vec3(1, 0, 0)},
				TranslationKey{Time: 0.5, Translation: vec3(2, 0, 0)},
				TranslationKey{Time: 1, Translation: vec3(3, 0, 0)},
			),
		),
	)

	scene, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	track := scene.Node("n").Animation
	if len(track.TranslationKeys) != 4 {
		t.Fatalf("got %d keys, want 4", len(track.TranslationKeys))
	}
	// Ties are legal and keep file order, with no diagnostic.
	if track.TranslationKeys[1].Translation != vec3(1, 0, 0) ||
		track.TranslationKeys[2].Translation != vec3(2, 0, 0) {
		t.Error("duplicate-time keys reordered")
	}
	if hasDiag(scene.Diagnostics, SeverityWarning, TagTranslationKeys) {
		t.Error("unexpected warning for in-order keys with duplicate times")
	}
}

func TestAnimation_OutOfOrderKeysSorted(t *testing.T) {
	buf := concat(
		headChunk(1, 0),
		nodeChunk(
			nameChunk("n"),
			xfrmChunk(mgl32.Ident4()),
			ktrnChunk(
				TranslationKey{Time: 1, Translation: vec3(1, 0, 0)},
				TranslationKey{Time: 0, Translation: vec3(0, 0, 0)},
				TranslationKey{Time: 0.5, Translation: vec3(2, 0, 0)},
			),
		),
	)

	scene, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	track := scene.Node("n").Animation
	times := []float32{
		track.TranslationKeys[0].Time,
		track.TranslationKeys[1].Time,
		track.TranslationKeys[2].Time,
	}
	if times[0] != 0 || times[1] != 0.5 || times[2] != 1 {
		t.Errorf("key times after sorting = %v, want [0 0.5 1]", times)
	}
	if !hasDiag(scene.Diagnostics, SeverityWarning, TagTranslationKeys) {
		t.Error("expected a warning about out-of-order keys")
	}
}

func TestAnimation_MultipleChunksAppend(t *testing.T) {
	buf := concat(
		headChunk(1, 0),
		nodeChunk(
			nameChunk("n"),
			xfrmChunk(mgl32.Ident4()),
			ktrnChunk(TranslationKey{Time: 0}),
			ktrnChunk(TranslationKey{Time: 1, Translation: vec3(0, 0, 1)}),
		),
	)

	scene, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	track := scene.Node("n").Animation
	if len(track.TranslationKeys) != 2 {
		t.Errorf("got %d keys from two KTRN chunks, want 2", len(track.TranslationKeys))
	}
}

func TestAnimation_BadStrideFatal(t *testing.T) {
	tests := []struct {
		name  string
		chunk []byte
	}{
		{
			name:  "KTRN count lies",
			chunk: rawChunk(TagTranslationKeys, bu32(2), bf32(0), bf32(0), bf32(0), bf32(0)),
		},
		{
			name: "KROT fits neither stride",
			// One key declared with 18 payload bytes after the count:
			// neither 20 (quaternion) nor 16 (Euler).
			chunk: rawChunk(TagRotationKeys, bu32(1), make([]byte, 18)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := concat(
				headChunk(1, 0),
				nodeChunk(nameChunk("n"), xfrmChunk(mgl32.Ident4()), tt.chunk),
			)
			_, err := Parse(buf, Options{})
			if !errors.Is(err, ErrMalformedChunk) {
				t.Errorf("got %v, want ErrMalformedChunk", err)
			}
		})
	}
}

func TestAnimation_SkipOption(t *testing.T) {
	buf := concat(
		headChunk(1, 0),
		nodeChunk(
			nameChunk("n"),
			xfrmChunk(mgl32.Ident4()),
			ktrnChunk(TranslationKey{Time: 0}, TranslationKey{Time: 1, Translation: vec3(0, 0, 1)}),
			krotQuatChunk(RotationKey{Time: 0, Rotation: mgl32.QuatIdent()}),
		),
	)

	scene, err := Parse(buf, Options{SkipAnimations: true})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if scene.Node("n").Animation != nil {
		t.Error("SkipAnimations still built an animation track")
	}
	if scene.HasAnimation() {
		t.Error("HasAnimation() = true with SkipAnimations set")
	}

	// Dropped tracks stay dropped through a re-encode.
	reparsed, err := Parse(scene.Encode(), Options{})
	if err != nil {
		t.Fatalf("Parse of encoded bytes failed: %v", err)
	}
	if reparsed.HasAnimation() {
		t.Error("skipped tracks reappeared in the encoded output")
	}
}

func TestAnimation_NoKeysNoTrack(t *testing.T) {
	buf := concat(
		headChunk(1, 0),
		nodeChunk(nameChunk("n"), xfrmChunk(mgl32.Ident4())),
	)

	scene, err := Parse(buf, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if scene.Node("n").Animation != nil {
		t.Error("node without key chunks grew an animation track")
	}
	if scene.HasAnimation() {
		t.Error("HasAnimation() = true for a static scene")
	}
}
