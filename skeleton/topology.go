package skeleton

import (
	"math/bits"

	"go.viam.com/voxmap/layer"
)

// NeighborhoodSize is the number of positions in a 3×3×3 neighborhood, center included.
const NeighborhoodSize = 27

// CenterBit is the neighborhood position of the voxel itself.
const CenterBit = 13

// cubeSize is the number of positions in the labeling cube: the neighborhood without its center.
const cubeSize = NeighborhoodSize - 1

// Neighborhood is the occupancy of a 3×3×3 block of voxels. The voxel at offset
// (dx, dy, dz) is bit (dx+1) + 3(dy+1) + 9(dz+1), so x varies fastest and bit 13 is the
// center. Topology tests depend on this exact mapping.
type Neighborhood uint32

// NeighborhoodBit returns the bit of a neighborhood offset with components in [-1, 1].
func NeighborhoodBit(offset layer.Index) int {
	return (offset.X + 1) + 3*(offset.Y+1) + 9*(offset.Z+1)
}

// NeighborhoodOffset is the inverse of NeighborhoodBit.
func NeighborhoodOffset(bit int) layer.Index {
	return layer.Index{X: bit%3 - 1, Y: (bit/3)%3 - 1, Z: bit/9 - 1}
}

// NeighborhoodFromOffsets sets the bit of every offset.
func NeighborhoodFromOffsets(offsets ...layer.Index) Neighborhood {
	var n Neighborhood
	for _, o := range offsets {
		n = n.With(NeighborhoodBit(o))
	}
	return n
}

// Has reports whether bit is set.
func (n Neighborhood) Has(bit int) bool {
	return n&(1<<bit) != 0
}

// With returns n with bit set.
func (n Neighborhood) With(bit int) Neighborhood {
	return n | 1<<bit
}

// Without returns n with bit cleared.
func (n Neighborhood) Without(bit int) Neighborhood {
	return n &^ (1 << bit)
}

// NumNeighbors counts the set bits other than the center.
func (n Neighborhood) NumNeighbors() int {
	return bits.OnesCount32(uint32(n.Without(CenterBit)))
}

// MapNeighborIndexToBitsetIndex converts a position in layer.NeighborOffsets to its
// neighborhood bit.
func MapNeighborIndexToBitsetIndex(neighborIndex int) int {
	return NeighborhoodBit(layer.NeighborOffsets[neighborIndex])
}

// cubeBit maps a position of the labeling cube to its neighborhood bit.
func cubeBit(index int) int {
	if index >= CenterBit {
		return index + 1
	}
	return index
}

// Octants split the neighborhood into eight overlapping 2×2×2 cubes that all contain the
// center. Octant 1 + xHigh + 2·yHigh + 4·zHigh spans offsets {-1,0} on a low axis and {0,1}
// on a high one. Two positions share an octant iff they are 26-adjacent.
var (
	octantMembers [9][]int
	octantMasks   [9]Neighborhood
	octantsOf     [cubeSize][]int
)

func init() {
	for octant := 1; octant <= 8; octant++ {
		high := octant - 1
		for index := 0; index < cubeSize; index++ {
			o := NeighborhoodOffset(cubeBit(index))
			if inOctantRange(o.X, high&1 != 0) && inOctantRange(o.Y, high&2 != 0) && inOctantRange(o.Z, high&4 != 0) {
				octantMembers[octant] = append(octantMembers[octant], index)
				octantMasks[octant] = octantMasks[octant].With(cubeBit(index))
				octantsOf[index] = append(octantsOf[index], octant)
			}
		}
	}
}

func inOctantRange(c int, high bool) bool {
	if high {
		return c >= 0
	}
	return c <= 0
}

// OctreeLabeling assigns label to every unlabeled foreground position of cube that is
// 26-connected to a foreground position of octant, recursing through the octants each
// newly labeled position belongs to. cube has 26 entries: 0 is background, 1 is
// unlabeled foreground and anything larger is a label.
func OctreeLabeling(octant, label int, cube []int) {
	for _, index := range octantMembers[octant] {
		if cube[index] != 1 {
			continue
		}
		cube[index] = label
		for _, next := range octantsOf[index] {
			if next != octant {
				OctreeLabeling(next, label, cube)
			}
		}
	}
}

// numForegroundComponents counts the 26-connected components among the center's neighbors.
func numForegroundComponents(n Neighborhood) int {
	cube := make([]int, cubeSize)
	for index := range cube {
		if n.Has(cubeBit(index)) {
			cube[index] = 1
		}
	}
	label := 2
	for index := range cube {
		if cube[index] != 1 {
			continue
		}
		// Positions belong to their lowest octant first.
		OctreeLabeling(octantsOf[index][0], label, cube)
		label++
	}
	return label - 2
}

// numBackgroundFaceComponents counts the 6-connected background components of the
// 18-neighborhood that touch one of the six face neighbors.
func numBackgroundFaceComponents(n Neighborhood) int {
	var seen Neighborhood
	components := 0
	for bit := 0; bit < NeighborhoodSize; bit++ {
		if manhattan(NeighborhoodOffset(bit)) != 1 || n.Has(bit) || seen.Has(bit) {
			continue
		}
		components++
		stack := []int{bit}
		seen = seen.With(bit)
		for len(stack) > 0 {
			cur := NeighborhoodOffset(stack[len(stack)-1])
			stack = stack[:len(stack)-1]
			for _, step := range layer.NeighborOffsets[:6] {
				next := cur.Add(step)
				if !inNeighborhood(next) || manhattan(next) == 0 || manhattan(next) == 3 {
					continue
				}
				nextBit := NeighborhoodBit(next)
				if n.Has(nextBit) || seen.Has(nextBit) {
					continue
				}
				seen = seen.With(nextBit)
				stack = append(stack, nextBit)
			}
		}
	}
	return components
}

func inNeighborhood(o layer.Index) bool {
	return o.X >= -1 && o.X <= 1 && o.Y >= -1 && o.Y <= 1 && o.Z >= -1 && o.Z <= 1
}

func manhattan(o layer.Index) int {
	return abs(o.X) + abs(o.Y) + abs(o.Z)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// IsSimplePoint reports whether deleting the center leaves the topology of the foreground
// unchanged: its neighbors form exactly one 26-connected component and the background
// around it exactly one 6-connected component. An isolated voxel is never simple.
func IsSimplePoint(n Neighborhood) bool {
	return numForegroundComponents(n) == 1 && numBackgroundFaceComponents(n) == 1
}

// IsEndPoint reports whether the center is the tip of a skeleton branch: it has neighbors
// and all of them lie on one side of it, within a single octant.
func IsEndPoint(n Neighborhood) bool {
	n = n.Without(CenterBit)
	if n == 0 {
		return false
	}
	for octant := 1; octant <= 8; octant++ {
		if n&^octantMasks[octant] == 0 {
			return true
		}
	}
	return false
}
