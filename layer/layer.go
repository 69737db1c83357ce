// Package layer implements the sparse, block-chunked voxel map: blocks keyed by
// integer block coordinates, map-wide metadata, merge policies and the protobuf
// wire messages the map is persisted with.
package layer

import (
	"fmt"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/voxmap/voxel"
)

// Header is the map-wide metadata of a layer. It is fixed at construction.
type Header struct {
	VoxelSize     float64
	VoxelsPerSide int
	Kind          string
}

func (h Header) String() string {
	return fmt.Sprintf("{voxel_size: %g, voxels_per_side: %d, kind: %q}", h.VoxelSize, h.VoxelsPerSide, h.Kind)
}

// Compatible reports whether two headers describe layers that can be merged.
func (h Header) Compatible(other Header) bool {
	return h.VoxelSize == other.VoxelSize && h.VoxelsPerSide == other.VoxelsPerSide && h.Kind == other.Kind
}

// MaxVoxelsPerSide bounds the block edge length so the voxel count of a block always fits in an int.
const MaxVoxelsPerSide = 1024

// Validate checks that the header describes a constructible layer.
func (h Header) Validate() error {
	if !(h.VoxelSize > 0) {
		return errors.Errorf("invalid voxel size (%g)", h.VoxelSize)
	}
	if h.VoxelsPerSide <= 0 || h.VoxelsPerSide > MaxVoxelsPerSide {
		return errors.Errorf("invalid voxels per side (%d), must be in [1, %d]", h.VoxelsPerSide, MaxVoxelsPerSide)
	}
	return nil
}

// MergeStrategy decides what happens when an incoming block's index is already present.
type MergeStrategy int

const (
	// Prohibit fails on an existing index.
	Prohibit MergeStrategy = iota
	// Replace overwrites the existing block.
	Replace
	// Discard keeps the existing block and drops the incoming one.
	Discard
	// Merge combines the blocks voxel by voxel.
	Merge
)

func (s MergeStrategy) String() string {
	switch s {
	case Prohibit:
		return "prohibit"
	case Replace:
		return "replace"
	case Discard:
		return "discard"
	case Merge:
		return "merge"
	}
	return fmt.Sprintf("MergeStrategy(%d)", int(s))
}

// Layer maps block coordinates to blocks of voxel kind V.
// A Layer is not safe for concurrent mutation.
type Layer[V voxel.Voxel[V]] struct {
	voxelSize     float64
	voxelsPerSide int
	blockSize     float64
	blocks        map[BlockIndex]*Block[V]
}

// New creates an empty layer.
func New[V voxel.Voxel[V]](voxelSize float64, voxelsPerSide int) (*Layer[V], error) {
	return NewFromHeader[V](Header{VoxelSize: voxelSize, VoxelsPerSide: voxelsPerSide, Kind: voxel.KindOf[V]()})
}

// NewFromHeader creates an empty layer from header metadata. The header's kind must
// match V; an empty kind is taken to mean V.
func NewFromHeader[V voxel.Voxel[V]](header Header) (*Layer[V], error) {
	if err := header.Validate(); err != nil {
		return nil, err
	}
	if kind := voxel.KindOf[V](); header.Kind != "" && header.Kind != kind {
		want := header
		want.Kind = kind
		return nil, &IncompatibleLayerError{Want: want, Got: header}
	}
	return &Layer[V]{
		voxelSize:     header.VoxelSize,
		voxelsPerSide: header.VoxelsPerSide,
		blockSize:     header.VoxelSize * float64(header.VoxelsPerSide),
		blocks:        make(map[BlockIndex]*Block[V]),
	}, nil
}

// Header returns the layer metadata.
func (l *Layer[V]) Header() Header {
	return Header{VoxelSize: l.voxelSize, VoxelsPerSide: l.voxelsPerSide, Kind: voxel.KindOf[V]()}
}

// VoxelSize returns the voxel edge length in meters.
func (l *Layer[V]) VoxelSize() float64 {
	return l.voxelSize
}

// VoxelsPerSide returns the block edge length in voxels.
func (l *Layer[V]) VoxelsPerSide() int {
	return l.voxelsPerSide
}

// BlockSize returns the block edge length in meters.
func (l *Layer[V]) BlockSize() float64 {
	return l.blockSize
}

// NumBlocks returns the number of resident blocks.
func (l *Layer[V]) NumBlocks() int {
	return len(l.blocks)
}

// Compatible reports whether header can be merged into this layer.
func (l *Layer[V]) Compatible(header Header) bool {
	return l.Header().Compatible(header)
}

// Block returns the block at idx, if resident.
func (l *Layer[V]) Block(idx BlockIndex) (*Block[V], bool) {
	b, ok := l.blocks[idx]
	return b, ok
}

// AllocateBlock returns the block at idx, creating an empty one if needed.
func (l *Layer[V]) AllocateBlock(idx BlockIndex) *Block[V] {
	if b, ok := l.blocks[idx]; ok {
		return b
	}
	b := newBlock[V](idx, l.voxelsPerSide, l.voxelSize)
	l.blocks[idx] = b
	return b
}

// NewBlock creates a detached block sized for this layer. It can later be inserted with AddBlock.
func (l *Layer[V]) NewBlock(idx BlockIndex) *Block[V] {
	return newBlock[V](idx, l.voxelsPerSide, l.voxelSize)
}

// RemoveBlock drops the block at idx.
func (l *Layer[V]) RemoveBlock(idx BlockIndex) {
	delete(l.blocks, idx)
}

// BlockIndices returns every resident block index in ascending order.
func (l *Layer[V]) BlockIndices() []BlockIndex {
	indices := make([]BlockIndex, 0, len(l.blocks))
	for idx := range l.blocks {
		indices = append(indices, idx)
	}
	slices.SortFunc(indices, BlockIndex.Compare)
	return indices
}

// AddBlock inserts b under strategy. b is owned by the layer afterwards.
func (l *Layer[V]) AddBlock(b *Block[V], strategy MergeStrategy) error {
	if b.voxelsPerSide != l.voxelsPerSide || b.voxelSize != l.voxelSize {
		return errors.Errorf("block %v has voxels_per_side %d and voxel_size %g, layer expects %d and %g",
			b.index, b.voxelsPerSide, b.voxelSize, l.voxelsPerSide, l.voxelSize)
	}
	existing, ok := l.blocks[b.index]
	if !ok {
		l.blocks[b.index] = b
		return nil
	}
	switch strategy {
	case Prohibit:
		return &BlockConflictError{Index: b.index}
	case Replace:
		l.blocks[b.index] = b
	case Discard:
	case Merge:
		existing.mergeFrom(b)
	default:
		return errors.Errorf("unknown merge strategy %v", strategy)
	}
	return nil
}

// BlockIndexFromPoint returns the index of the block containing p.
func (l *Layer[V]) BlockIndexFromPoint(p r3.Vector) BlockIndex {
	return GridIndexFromPoint(p, l.blockSize)
}

// GlobalIndexFromPoint returns the global index of the voxel containing p.
func (l *Layer[V]) GlobalIndexFromPoint(p r3.Vector) GlobalIndex {
	return GridIndexFromPoint(p, l.voxelSize)
}

// VoxelByGlobalIndex returns the voxel at a global index if its block is resident.
func (l *Layer[V]) VoxelByGlobalIndex(global GlobalIndex) (*V, bool) {
	blockIdx, voxelIdx := BlockAndVoxelFromGlobal(global, l.voxelsPerSide)
	b, ok := l.blocks[blockIdx]
	if !ok {
		return nil, false
	}
	return b.Voxel(voxelIdx), true
}

// VoxelAtPoint returns the voxel containing p if its block is resident.
func (l *Layer[V]) VoxelAtPoint(p r3.Vector) (*V, bool) {
	return l.VoxelByGlobalIndex(l.GlobalIndexFromPoint(p))
}

// VoxelCenter returns the world position of a global voxel index's center.
func (l *Layer[V]) VoxelCenter(global GlobalIndex) r3.Vector {
	return global.Vector().Add(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}).Mul(l.voxelSize)
}

// Clone returns a deep copy, for callers that need an all-or-nothing merge.
func (l *Layer[V]) Clone() *Layer[V] {
	clone := &Layer[V]{
		voxelSize:     l.voxelSize,
		voxelsPerSide: l.voxelsPerSide,
		blockSize:     l.blockSize,
		blocks:        make(map[BlockIndex]*Block[V], len(l.blocks)),
	}
	for idx, b := range l.blocks {
		clone.blocks[idx] = b.Clone()
	}
	return clone
}
