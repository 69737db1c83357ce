package layer

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Index is an integer coordinate triple.
type Index struct {
	X, Y, Z int
}

// BlockIndex identifies a block in the world grid.
type BlockIndex = Index

// VoxelIndex identifies a voxel inside a block, each component in [0, voxels_per_side).
type VoxelIndex = Index

// GlobalIndex identifies a voxel in the world grid.
type GlobalIndex = Index

// Add returns the component-wise sum.
func (i Index) Add(o Index) Index {
	return Index{i.X + o.X, i.Y + o.Y, i.Z + o.Z}
}

// Sub returns the component-wise difference.
func (i Index) Sub(o Index) Index {
	return Index{i.X - o.X, i.Y - o.Y, i.Z - o.Z}
}

// Scale multiplies every component by s.
func (i Index) Scale(s int) Index {
	return Index{i.X * s, i.Y * s, i.Z * s}
}

// Vector converts the index to a float vector.
func (i Index) Vector() r3.Vector {
	return r3.Vector{X: float64(i.X), Y: float64(i.Y), Z: float64(i.Z)}
}

// Less orders indices by X, then Y, then Z.
func (i Index) Less(o Index) bool {
	if i.X != o.X {
		return i.X < o.X
	}
	if i.Y != o.Y {
		return i.Y < o.Y
	}
	return i.Z < o.Z
}

// Compare returns -1, 0 or 1 following Less.
func (i Index) Compare(o Index) int {
	switch {
	case i == o:
		return 0
	case i.Less(o):
		return -1
	}
	return 1
}

func (i Index) String() string {
	return fmt.Sprintf("[%d %d %d]", i.X, i.Y, i.Z)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// GlobalFromBlockAndVoxel converts a block/voxel pair to a global voxel index.
func GlobalFromBlockAndVoxel(block BlockIndex, voxel VoxelIndex, voxelsPerSide int) GlobalIndex {
	return block.Scale(voxelsPerSide).Add(voxel)
}

// BlockAndVoxelFromGlobal splits a global voxel index into its block and local voxel index.
func BlockAndVoxelFromGlobal(global GlobalIndex, voxelsPerSide int) (BlockIndex, VoxelIndex) {
	block := Index{
		floorDiv(global.X, voxelsPerSide),
		floorDiv(global.Y, voxelsPerSide),
		floorDiv(global.Z, voxelsPerSide),
	}
	return block, global.Sub(block.Scale(voxelsPerSide))
}

// GridIndexFromPoint returns the index of the grid cell of size cellSize containing p.
func GridIndexFromPoint(p r3.Vector, cellSize float64) Index {
	inv := 1 / cellSize
	return Index{
		int(math.Floor(p.X * inv)),
		int(math.Floor(p.Y * inv)),
		int(math.Floor(p.Z * inv)),
	}
}
