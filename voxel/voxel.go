// Package voxel defines the per-voxel payloads stored in a layer and the
// capability set a payload needs to be stored, serialized and merged.
//
// A layer is parameterized by exactly one payload type; the payload's methods are
// called on values (including the zero value), so every kind must use value receivers.
package voxel

import (
	"math"

	"github.com/pkg/errors"
)

// Voxel is the capability set of a voxel payload V.
type Voxel[V any] interface {
	// Kind names the payload. Two layers can only be merged when their kinds match.
	Kind() string
	// Words is the fixed number of uint32 words one voxel encodes to.
	Words() int
	// AppendWords appends the encoded voxel to dst.
	AppendWords(dst []uint32) []uint32
	// FromWords decodes a voxel from exactly Words() words.
	FromWords(words []uint32) (V, error)
	// MergeInto combines the receiver (incoming) with dst (existing) and returns the result.
	MergeInto(dst V) V
}

// KindOf returns the kind name of V.
func KindOf[V Voxel[V]]() string {
	var zero V
	return zero.Kind()
}

// WordsOf returns the encoded word count of V.
func WordsOf[V Voxel[V]]() int {
	var zero V
	return zero.Words()
}

func checkWords(kind string, want int, words []uint32) error {
	if len(words) != want {
		return errors.Errorf("%s voxel needs %d words, got %d", kind, want, len(words))
	}
	return nil
}

func floatFromWord(w uint32) float32 {
	return math.Float32frombits(w)
}

func wordFromFloat(f float32) uint32 {
	return math.Float32bits(f)
}
