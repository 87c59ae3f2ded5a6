package msh

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Primitive decoders. Each takes a payload span and a cursor offset and
// returns the decoded value plus the number of bytes consumed. All
// fields are little-endian, matching the game's native platform.

func decodeUint16(data []byte, offset int) (uint16, int, error) {
	if len(data)-offset < 2 {
		return 0, 0, shortPayload("uint16", 2, len(data)-offset)
	}
	return binary.LittleEndian.Uint16(data[offset:]), 2, nil
}

func decodeUint32(data []byte, offset int) (uint32, int, error) {
	if len(data)-offset < 4 {
		return 0, 0, shortPayload("uint32", 4, len(data)-offset)
	}
	return binary.LittleEndian.Uint32(data[offset:]), 4, nil
}

func decodeFloat32(data []byte, offset int) (float32, int, error) {
	bits, _, err := decodeUint32(data, offset)
	if err != nil {
		return 0, 0, shortPayload("float32", 4, len(data)-offset)
	}
	return math.Float32frombits(bits), 4, nil
}

func decodeVec2(data []byte, offset int) (mgl32.Vec2, int, error) {
	var v mgl32.Vec2
	if len(data)-offset < 8 {
		return v, 0, shortPayload("vec2", 8, len(data)-offset)
	}
	for i := range v {
		f, n, _ := decodeFloat32(data, offset)
		v[i] = f
		offset += n
	}
	return v, 8, nil
}

func decodeVec3(data []byte, offset int) (mgl32.Vec3, int, error) {
	var v mgl32.Vec3
	if len(data)-offset < 12 {
		return v, 0, shortPayload("vec3", 12, len(data)-offset)
	}
	for i := range v {
		f, n, _ := decodeFloat32(data, offset)
		v[i] = f
		offset += n
	}
	return v, 12, nil
}

// decodeQuat reads a scalar-first (s, x, y, z) quaternion.
func decodeQuat(data []byte, offset int) (mgl32.Quat, int, error) {
	if len(data)-offset < 16 {
		return mgl32.QuatIdent(), 0, shortPayload("quaternion", 16, len(data)-offset)
	}
	s, _, _ := decodeFloat32(data, offset)
	v, _, _ := decodeVec3(data, offset+4)
	return mgl32.Quat{W: s, V: v}, 16, nil
}

// decodeEuler reads an XYZ Euler triple (radians) and converts it to a
// quaternion, so both rotation encodings land on one key type.
func decodeEuler(data []byte, offset int) (mgl32.Quat, int, error) {
	v, _, err := decodeVec3(data, offset)
	if err != nil {
		return mgl32.QuatIdent(), 0, shortPayload("euler triple", 12, len(data)-offset)
	}
	return mgl32.AnglesToQuat(v[0], v[1], v[2], mgl32.XYZ), 12, nil
}

// decodeMat4 reads a 4x4 transform stored row-major and transposes it
// into the column-major in-memory convention.
func decodeMat4(data []byte, offset int) (mgl32.Mat4, int, error) {
	var m mgl32.Mat4
	if len(data)-offset < 64 {
		return m, 0, shortPayload("mat4", 64, len(data)-offset)
	}
	for i := range m {
		f, n, _ := decodeFloat32(data, offset)
		m[i] = f
		offset += n
	}
	return m.Transpose(), 64, nil
}

// decodeString reads a uint16 length-prefixed string.
func decodeString(data []byte, offset int) (string, int, error) {
	length, n, err := decodeUint16(data, offset)
	if err != nil {
		return "", 0, shortPayload("string length", 2, len(data)-offset)
	}
	if len(data)-offset-n < int(length) {
		return "", 0, shortPayload("string body", int(length), len(data)-offset-n)
	}
	return string(data[offset+n : offset+n+int(length)]), n + int(length), nil
}

func shortPayload(what string, want, have int) error {
	return fmt.Errorf("%w: payload too short for %s (want %d bytes, have %d)", ErrMalformedChunk, what, want, have)
}
