package layer

import (
	"github.com/golang/geo/r3"

	"go.viam.com/voxmap/voxel"
)

// Block is a dense cube of voxels_per_side³ voxels. It is owned by the layer holding it.
type Block[V voxel.Voxel[V]] struct {
	index         BlockIndex
	voxelsPerSide int
	voxelSize     float64
	origin        r3.Vector
	hasData       bool
	voxels        []V
}

func newBlock[V voxel.Voxel[V]](index BlockIndex, voxelsPerSide int, voxelSize float64) *Block[V] {
	blockSize := voxelSize * float64(voxelsPerSide)
	return &Block[V]{
		index:         index,
		voxelsPerSide: voxelsPerSide,
		voxelSize:     voxelSize,
		origin:        index.Vector().Mul(blockSize),
		voxels:        make([]V, voxelsPerSide*voxelsPerSide*voxelsPerSide),
	}
}

// Index returns the block's coordinate in the world grid.
func (b *Block[V]) Index() BlockIndex {
	return b.index
}

// Origin returns the world position of the block's minimum corner.
func (b *Block[V]) Origin() r3.Vector {
	return b.origin
}

// VoxelsPerSide returns the block edge length in voxels.
func (b *Block[V]) VoxelsPerSide() int {
	return b.voxelsPerSide
}

// NumVoxels returns voxels_per_side³.
func (b *Block[V]) NumVoxels() int {
	return len(b.voxels)
}

// HasData reports whether any voxel of the block was written or decoded.
func (b *Block[V]) HasData() bool {
	return b.hasData
}

// SetHasData overrides the data flag.
func (b *Block[V]) SetHasData(hasData bool) {
	b.hasData = hasData
}

// IsValidVoxelIndex reports whether idx lies inside the block.
func (b *Block[V]) IsValidVoxelIndex(idx VoxelIndex) bool {
	n := b.voxelsPerSide
	return idx.X >= 0 && idx.X < n && idx.Y >= 0 && idx.Y < n && idx.Z >= 0 && idx.Z < n
}

// LinearIndex flattens idx, X fastest.
func (b *Block[V]) LinearIndex(idx VoxelIndex) int {
	n := b.voxelsPerSide
	return idx.X + n*(idx.Y+n*idx.Z)
}

// VoxelIndexFromLinear is the inverse of LinearIndex.
func (b *Block[V]) VoxelIndexFromLinear(linear int) VoxelIndex {
	n := b.voxelsPerSide
	return VoxelIndex{X: linear % n, Y: (linear / n) % n, Z: linear / (n * n)}
}

// Voxel returns a pointer to the voxel at idx. Writing through it does not set HasData.
func (b *Block[V]) Voxel(idx VoxelIndex) *V {
	return &b.voxels[b.LinearIndex(idx)]
}

// VoxelByLinearIndex returns a pointer to the voxel at a linear index.
func (b *Block[V]) VoxelByLinearIndex(linear int) *V {
	return &b.voxels[linear]
}

// SetVoxel stores v at idx and marks the block as holding data.
func (b *Block[V]) SetVoxel(idx VoxelIndex, v V) {
	b.voxels[b.LinearIndex(idx)] = v
	b.hasData = true
}

// VoxelCenter returns the world position of the center of the voxel at idx.
func (b *Block[V]) VoxelCenter(idx VoxelIndex) r3.Vector {
	return b.origin.Add(idx.Vector().Add(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}).Mul(b.voxelSize))
}

// mergeFrom folds every voxel of other into b using the voxel kind's merge rule.
func (b *Block[V]) mergeFrom(other *Block[V]) {
	for i := range b.voxels {
		b.voxels[i] = other.voxels[i].MergeInto(b.voxels[i])
	}
	b.hasData = b.hasData || other.hasData
}

// Clone returns a deep copy of the block.
func (b *Block[V]) Clone() *Block[V] {
	clone := *b
	clone.voxels = make([]V, len(b.voxels))
	copy(clone.voxels, b.voxels)
	return &clone
}
