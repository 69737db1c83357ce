package skeleton

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/voxmap/layer"
)

var (
	center = layer.Index{}
	posX   = layer.Index{X: 1}
	negX   = layer.Index{X: -1}
	posY   = layer.Index{Y: 1}
)

func TestNeighborhoodBits(t *testing.T) {
	test.That(t, NeighborhoodBit(center), test.ShouldEqual, CenterBit)
	test.That(t, NeighborhoodBit(layer.Index{X: -1, Y: -1, Z: -1}), test.ShouldEqual, 0)
	test.That(t, NeighborhoodBit(layer.Index{X: 1, Y: 1, Z: 1}), test.ShouldEqual, NeighborhoodSize-1)

	seen := map[int]bool{}
	for i, off := range layer.NeighborOffsets {
		bit := MapNeighborIndexToBitsetIndex(i)
		test.That(t, bit, test.ShouldNotEqual, CenterBit)
		test.That(t, seen[bit], test.ShouldBeFalse)
		seen[bit] = true
		test.That(t, NeighborhoodOffset(bit), test.ShouldResemble, off)
	}
	test.That(t, len(seen), test.ShouldEqual, layer.NumNeighbors)

	n := NeighborhoodFromOffsets(center, posX, negX)
	test.That(t, n.Has(CenterBit), test.ShouldBeTrue)
	test.That(t, n.NumNeighbors(), test.ShouldEqual, 2)
	test.That(t, n.Without(NeighborhoodBit(posX)).NumNeighbors(), test.ShouldEqual, 1)
}

func TestIsSimplePoint(t *testing.T) {
	t.Run("isolated voxel", func(t *testing.T) {
		n := NeighborhoodFromOffsets(center)
		test.That(t, IsSimplePoint(n), test.ShouldBeFalse)
		test.That(t, IsEndPoint(n), test.ShouldBeFalse)
	})

	t.Run("middle of a line", func(t *testing.T) {
		n := NeighborhoodFromOffsets(center, negX, posX)
		test.That(t, IsSimplePoint(n), test.ShouldBeFalse)
		test.That(t, IsEndPoint(n), test.ShouldBeFalse)
	})

	t.Run("tip of a line", func(t *testing.T) {
		n := NeighborhoodFromOffsets(center, posX)
		test.That(t, IsSimplePoint(n), test.ShouldBeTrue)
		test.That(t, IsEndPoint(n), test.ShouldBeTrue)
	})

	t.Run("corner", func(t *testing.T) {
		n := NeighborhoodFromOffsets(center, posX, posY)
		test.That(t, IsSimplePoint(n), test.ShouldBeTrue)
		test.That(t, IsEndPoint(n), test.ShouldBeTrue)
	})

	t.Run("row of neighbors on one side", func(t *testing.T) {
		// one connected group of neighbors, but it spans more than one octant, so thinning
		// may still take the center
		n := NeighborhoodFromOffsets(center, layer.Index{X: -1, Y: -1}, layer.Index{Y: -1}, layer.Index{X: 1, Y: -1})
		test.That(t, numForegroundComponents(n), test.ShouldEqual, 1)
		test.That(t, IsSimplePoint(n), test.ShouldBeTrue)
		test.That(t, IsEndPoint(n), test.ShouldBeFalse)

		single := NeighborhoodFromOffsets(center, layer.Index{Y: -1}, layer.Index{X: 1, Y: -1})
		test.That(t, IsEndPoint(single), test.ShouldBeTrue)
	})

	t.Run("interior of a solid", func(t *testing.T) {
		n := Neighborhood(1<<NeighborhoodSize - 1)
		test.That(t, IsSimplePoint(n), test.ShouldBeFalse)
		test.That(t, IsEndPoint(n), test.ShouldBeFalse)
	})

	t.Run("surface of a solid", func(t *testing.T) {
		var n Neighborhood
		for bit := 0; bit < NeighborhoodSize; bit++ {
			if NeighborhoodOffset(bit).Y >= 0 {
				n = n.With(bit)
			}
		}
		test.That(t, IsSimplePoint(n), test.ShouldBeTrue)
		test.That(t, IsEndPoint(n), test.ShouldBeFalse)
	})
}

func TestOctreeLabeling(t *testing.T) {
	cube := make([]int, cubeSize)
	low := NeighborhoodBit(layer.Index{X: -1, Y: -1, Z: -1})
	high := NeighborhoodBit(layer.Index{X: 1, Y: 1, Z: 1}) - 1
	cube[low] = 1
	cube[high] = 1

	OctreeLabeling(1, 2, cube)
	test.That(t, cube[low], test.ShouldEqual, 2)
	test.That(t, cube[high], test.ShouldEqual, 1)

	OctreeLabeling(8, 3, cube)
	test.That(t, cube[high], test.ShouldEqual, 3)

	opposite := NeighborhoodFromOffsets(layer.Index{X: -1, Y: -1, Z: -1}, layer.Index{X: 1, Y: 1, Z: 1})
	test.That(t, numForegroundComponents(opposite), test.ShouldEqual, 2)

	bridged := opposite.With(NeighborhoodBit(posX)).With(NeighborhoodBit(layer.Index{Y: -1}))
	test.That(t, numForegroundComponents(bridged), test.ShouldEqual, 1)
}

func TestCornerTemplates(t *testing.T) {
	test.That(t, len(CornerTemplates), test.ShouldEqual, 12)

	corner := NeighborhoodFromOffsets(center, posX, posY)
	test.That(t, CornerTemplates.Matches(corner), test.ShouldBeTrue)

	filled := corner.With(NeighborhoodBit(layer.Index{X: 1, Y: 1}))
	test.That(t, CornerTemplates.Matches(filled), test.ShouldBeFalse)

	line := NeighborhoodFromOffsets(center, negX, posX)
	test.That(t, CornerTemplates.Matches(line), test.ShouldBeFalse)

	branch := corner.With(NeighborhoodBit(negX))
	test.That(t, CornerTemplates.Matches(branch), test.ShouldBeFalse)

	template := VoxelTemplate{Present: NeighborhoodFromOffsets(posX), Absent: NeighborhoodFromOffsets(negX)}
	test.That(t, template.Matches(NeighborhoodFromOffsets(posX, posY)), test.ShouldBeTrue)
	test.That(t, template.Matches(NeighborhoodFromOffsets(posX, negX)), test.ShouldBeFalse)
}

func TestPruningTemplates(t *testing.T) {
	test.That(t, len(PruningTemplates), test.ShouldEqual, 36)

	tip := NeighborhoodFromOffsets(center, posX, layer.Index{X: 1, Y: 1})
	test.That(t, PruningTemplates.Matches(tip), test.ShouldBeTrue)
	test.That(t, PruningTemplates.Matches(tip.With(NeighborhoodBit(negX))), test.ShouldBeFalse)

	bump := NeighborhoodFromOffsets(center, layer.Index{Y: -1}, layer.Index{X: -1, Y: -1}, layer.Index{X: 1, Y: -1})
	test.That(t, PruningTemplates.Matches(bump), test.ShouldBeTrue)
	test.That(t, PruningTemplates.Matches(bump.With(NeighborhoodBit(posY))), test.ShouldBeFalse)

	for _, n := range []Neighborhood{
		NeighborhoodFromOffsets(center, posX),
		NeighborhoodFromOffsets(center, negX, posX),
		NeighborhoodFromOffsets(center, posX, posY),
		NeighborhoodFromOffsets(center, posX, layer.Index{X: -1, Y: 1}),
	} {
		test.That(t, PruningTemplates.Matches(n), test.ShouldBeFalse)
	}
}
