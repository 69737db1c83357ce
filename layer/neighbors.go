package layer

// NumNeighbors is the size of the 26-connected neighborhood.
const NumNeighbors = 26

// NeighborOffsets lists the 26 neighbor directions: the 6 faces first, then the
// 12 edges, then the 8 corners. Order is fixed; traversal tie-breaks depend on it.
var NeighborOffsets = buildNeighborOffsets()

func buildNeighborOffsets() [NumNeighbors]Index {
	var faces, edges, corners []Index
	for z := -1; z <= 1; z++ {
		for y := -1; y <= 1; y++ {
			for x := -1; x <= 1; x++ {
				nonZero := abs(x) + abs(y) + abs(z)
				off := Index{x, y, z}
				switch nonZero {
				case 1:
					faces = append(faces, off)
				case 2:
					edges = append(edges, off)
				case 3:
					corners = append(corners, off)
				}
			}
		}
	}
	var out [NumNeighbors]Index
	copy(out[:], append(append(faces, edges...), corners...))
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// NeighborIndex resolves voxel+offset, moving into the adjacent block whenever a
// component leaves [0, voxels_per_side). Offsets may be larger than one voxel.
func (l *Layer[V]) NeighborIndex(block BlockIndex, voxel VoxelIndex, offset Index) (BlockIndex, VoxelIndex) {
	global := GlobalFromBlockAndVoxel(block, voxel, l.voxelsPerSide).Add(offset)
	return BlockAndVoxelFromGlobal(global, l.voxelsPerSide)
}

// Neighbor returns the voxel at voxel+offset and whether its block is resident.
func (l *Layer[V]) Neighbor(block BlockIndex, voxel VoxelIndex, offset Index) (*V, bool) {
	nb, nv := l.NeighborIndex(block, voxel, offset)
	b, ok := l.blocks[nb]
	if !ok {
		return nil, false
	}
	return b.Voxel(nv), true
}

// ForEachVoxel calls fn for every voxel of every resident block, blocks in ascending
// index order and voxels in linear order. Returning false stops the iteration.
func (l *Layer[V]) ForEachVoxel(fn func(b *Block[V], idx VoxelIndex, v *V) bool) {
	for _, blockIdx := range l.BlockIndices() {
		b := l.blocks[blockIdx]
		for linear := range b.voxels {
			if !fn(b, b.VoxelIndexFromLinear(linear), &b.voxels[linear]) {
				return
			}
		}
	}
}
