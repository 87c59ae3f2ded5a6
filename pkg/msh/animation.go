package msh

import (
	"fmt"
	"sort"
)

// Per-key strides inside KROT payloads. The rotation encoding is never
// assumed globally: each chunk's stride decides quaternion vs Euler.
const (
	rotKeyQuatStride  = 4 + 16 // time + (s, x, y, z)
	rotKeyEulerStride = 4 + 12 // time + (x, y, z)
	transKeyStride    = 4 + 12 // time + translation
)

// buildAnimation decodes a node's keyframe chunks into an
// AnimationTrack. A node may carry either track, both, or neither.
func (p *parser) buildAnimation(d *nodeDecl) error {
	if p.opts.SkipAnimations || len(d.keyChunks) == 0 {
		return nil
	}
	track := &AnimationTrack{}
	for _, c := range d.keyChunks {
		switch c.Tag {
		case TagTranslationKeys:
			keys, err := decodeTranslationKeys(c.Payload)
			if err != nil {
				return err
			}
			track.TranslationKeys = append(track.TranslationKeys, keys...)
		case TagRotationKeys:
			keys, err := decodeRotationKeys(c.Payload)
			if err != nil {
				return err
			}
			track.RotationKeys = append(track.RotationKeys, keys...)
		}
	}

	// Key times must come out non-decreasing. Out-of-order keys are
	// reordered with a stable sort (ties keep file order, so the last
	// written key wins when sampled) and reported, not rejected.
	if !translationKeysOrdered(track.TranslationKeys) {
		p.diag(SeverityWarning, TagTranslationKeys, "node %q: translation keys out of order, reordered by time", d.node.Name)
		sort.SliceStable(track.TranslationKeys, func(i, j int) bool {
			return track.TranslationKeys[i].Time < track.TranslationKeys[j].Time
		})
	}
	if !rotationKeysOrdered(track.RotationKeys) {
		p.diag(SeverityWarning, TagRotationKeys, "node %q: rotation keys out of order, reordered by time", d.node.Name)
		sort.SliceStable(track.RotationKeys, func(i, j int) bool {
			return track.RotationKeys[i].Time < track.RotationKeys[j].Time
		})
	}

	d.node.Animation = track
	return nil
}

func decodeTranslationKeys(payload []byte) ([]TranslationKey, error) {
	count, n, err := decodeUint32(payload, 0)
	if err != nil {
		return nil, fmt.Errorf("KTRN: %w", err)
	}
	if len(payload) != n+int(count)*transKeyStride {
		return nil, fmt.Errorf("%w: %d translation keys declared in %d payload bytes", ErrMalformedChunk, count, len(payload))
	}
	keys := make([]TranslationKey, count)
	offset := n
	for i := range keys {
		t, m, _ := decodeFloat32(payload, offset)
		offset += m
		v, m, _ := decodeVec3(payload, offset)
		offset += m
		keys[i] = TranslationKey{Time: t, Translation: v}
	}
	return keys, nil
}

func decodeRotationKeys(payload []byte) ([]RotationKey, error) {
	count, n, err := decodeUint32(payload, 0)
	if err != nil {
		return nil, fmt.Errorf("KROT: %w", err)
	}

	var euler bool
	switch len(payload) {
	case n + int(count)*rotKeyQuatStride:
		euler = false
	case n + int(count)*rotKeyEulerStride:
		euler = true
	default:
		return nil, fmt.Errorf("%w: %d rotation keys fit neither quaternion nor euler stride in %d payload bytes",
			ErrMalformedChunk, count, len(payload))
	}

	keys := make([]RotationKey, count)
	offset := n
	for i := range keys {
		t, m, _ := decodeFloat32(payload, offset)
		offset += m
		if euler {
			q, m, _ := decodeEuler(payload, offset)
			offset += m
			keys[i] = RotationKey{Time: t, Rotation: q}
		} else {
			q, m, _ := decodeQuat(payload, offset)
			offset += m
			keys[i] = RotationKey{Time: t, Rotation: q}
		}
	}
	return keys, nil
}

func translationKeysOrdered(keys []TranslationKey) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i].Time < keys[i-1].Time {
			return false
		}
	}
	return true
}

func rotationKeysOrdered(keys []RotationKey) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i].Time < keys[i-1].Time {
			return false
		}
	}
	return true
}
