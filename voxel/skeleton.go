package voxel

import "github.com/pkg/errors"

// SkeletonKind is the kind name of Skeleton voxels.
const SkeletonKind = "skeleton"

// SkeletonClass is the classification of a skeleton voxel.
type SkeletonClass uint32

const (
	// SkeletonNone marks a voxel that is not part of the skeleton.
	SkeletonNone SkeletonClass = iota
	// SkeletonEdge marks a voxel on a skeleton branch.
	SkeletonEdge
	// SkeletonVertex marks a voxel where branches meet, end or peak.
	SkeletonVertex
)

func (c SkeletonClass) String() string {
	switch c {
	case SkeletonNone:
		return "none"
	case SkeletonEdge:
		return "edge"
	case SkeletonVertex:
		return "vertex"
	}
	return "unknown"
}

// Skeleton is a voxel of the skeleton layer derived from an ESDF.
type Skeleton struct {
	Distance       float32
	NumBasisPoints int
	Class          SkeletonClass
}

// IsSkeleton reports whether the voxel is part of the skeleton at all.
func (v Skeleton) IsSkeleton() bool {
	return v.Class != SkeletonNone
}

// Kind implements Voxel.
func (Skeleton) Kind() string { return SkeletonKind }

// Words implements Voxel.
func (Skeleton) Words() int { return 3 }

// AppendWords implements Voxel.
func (v Skeleton) AppendWords(dst []uint32) []uint32 {
	return append(dst, wordFromFloat(v.Distance), uint32(v.NumBasisPoints), uint32(v.Class))
}

// FromWords implements Voxel.
func (v Skeleton) FromWords(words []uint32) (Skeleton, error) {
	if err := checkWords(SkeletonKind, v.Words(), words); err != nil {
		return Skeleton{}, err
	}
	class := SkeletonClass(words[2])
	if class > SkeletonVertex {
		return Skeleton{}, errors.Errorf("invalid skeleton class %d", words[2])
	}
	return Skeleton{
		Distance:       floatFromWord(words[0]),
		NumBasisPoints: int(words[1]),
		Class:          class,
	}, nil
}

// MergeInto lets a classified incoming voxel replace dst, keeping the larger distance.
func (v Skeleton) MergeInto(dst Skeleton) Skeleton {
	distance := dst.Distance
	if v.Distance > distance {
		distance = v.Distance
	}
	if v.Class != SkeletonNone {
		dst = v
	}
	dst.Distance = distance
	return dst
}
