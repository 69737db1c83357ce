package skeleton

import (
	"cmp"
	"context"
	"runtime"
	"slices"
	"sync"

	"github.com/golang/geo/r3"
	"go.opencensus.io/trace"
	"golang.org/x/sync/errgroup"

	"go.viam.com/voxmap/layer"
	"go.viam.com/voxmap/voxel"
)

// ridgeMask marks, per ESDF block, the voxels on the ridge of the distance field.
type ridgeMask map[layer.BlockIndex][]bool

// ridgeSlope is the steepest climb, in meters of distance per meter traveled, allowed from a
// ridge voxel to any of its neighbors. Away from the medial axis the distance field climbs at
// slope one toward the middle of free space.
const ridgeSlope = 0.5

// GenerateSkeleton rebuilds the skeleton layer from the ESDF layer. Observed voxels
// farther than MinGvdDistance from obstacles that lie on the distance ridge are thinned
// to a one voxel wide skeleton and labeled vertex or edge; nothing else is ever written.
// Only ctx cancellation is an error.
func (g *Generator) GenerateSkeleton(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "skeleton::Generator::GenerateSkeleton")
	defer span.End()

	g.resetSkeletonLayer()
	if g.esdf.NumBlocks() == 0 {
		g.logger.Infow("esdf layer is empty, skeleton is empty")
		g.rebuildDiagram()
		return nil
	}

	ridge, err := g.findRidge(ctx)
	if err != nil {
		return err
	}
	if err := g.writeRidge(ctx, ridge); err != nil {
		return err
	}
	removed, err := g.thin(ctx)
	if err != nil {
		return err
	}
	g.logger.Debugw("thinned skeleton", "removed", removed)

	g.countBasisPoints()
	if g.cfg.GenerateByLayerNeighbors {
		g.GenerateVerticesByLayerNeighbors()
		g.GenerateEdgesByLayerNeighbors()
	} else if err := g.classifyByBasisPoints(ctx); err != nil {
		return err
	}
	g.dropEmptyBlocks()
	g.rebuildDiagram()

	if len(g.diagram.Vertices)+len(g.diagram.Edges) == 0 {
		g.logger.Infow("no observed free space forms a ridge, skeleton is empty", "esdf_blocks", g.esdf.NumBlocks())
		return nil
	}
	g.logger.Infow("generated skeleton",
		"vertices", len(g.diagram.Vertices), "edges", len(g.diagram.Edges), "blocks", g.skeletonLayer.NumBlocks())
	return nil
}

func (g *Generator) workers() int {
	if g.cfg.Workers > 0 {
		return g.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// forEachBlock runs fn over the ESDF blocks in parallel, stopping at the first error or
// when ctx is done.
func (g *Generator) forEachBlock(ctx context.Context, fn func(*layer.Block[voxel.Esdf]) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers())
	for _, idx := range g.esdf.BlockIndices() {
		blk, _ := g.esdf.Block(idx)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(blk)
		})
	}
	return eg.Wait()
}

// esdfCandidate returns the ESDF voxel at global if it is observed free space beyond
// MinGvdDistance.
func (g *Generator) esdfCandidate(global layer.GlobalIndex) (*voxel.Esdf, bool) {
	v, ok := g.esdf.VoxelByGlobalIndex(global)
	if !ok || !v.Observed || float64(v.Distance) <= g.cfg.MinGvdDistance {
		return nil, false
	}
	return v, true
}

// isRidgeVoxel reports whether no neighbor of global climbs away from it at ridgeSlope or
// steeper. Neighbors that are missing, unobserved or not candidates are ignored.
func (g *Generator) isRidgeVoxel(global layer.GlobalIndex, distance float32) bool {
	for _, off := range layer.NeighborOffsets {
		v, ok := g.esdfCandidate(global.Add(off))
		if !ok {
			continue
		}
		step := off.Vector().Norm() * g.esdf.VoxelSize()
		if float64(v.Distance-distance) >= ridgeSlope*step {
			return false
		}
	}
	return true
}

func (g *Generator) findRidge(ctx context.Context) (ridgeMask, error) {
	ridge := make(ridgeMask, g.esdf.NumBlocks())
	var mu sync.Mutex
	vps := g.esdf.VoxelsPerSide()
	err := g.forEachBlock(ctx, func(blk *layer.Block[voxel.Esdf]) error {
		mask := make([]bool, blk.NumVoxels())
		found := false
		for linear := range mask {
			global := layer.GlobalFromBlockAndVoxel(blk.Index(), blk.VoxelIndexFromLinear(linear), vps)
			v, ok := g.esdfCandidate(global)
			if ok && g.isRidgeVoxel(global, v.Distance) {
				mask[linear] = true
				found = true
			}
		}
		if found {
			mu.Lock()
			ridge[blk.Index()] = mask
			mu.Unlock()
		}
		return nil
	})
	return ridge, err
}

// writeRidge copies every ridge voxel into the skeleton layer as an edge voxel. Skeleton
// blocks are only created for blocks that hold ridge voxels.
func (g *Generator) writeRidge(ctx context.Context, ridge ridgeMask) error {
	var mu sync.Mutex
	return g.forEachBlock(ctx, func(blk *layer.Block[voxel.Esdf]) error {
		mask, ok := ridge[blk.Index()]
		if !ok {
			return nil
		}
		out := g.skeletonLayer.NewBlock(blk.Index())
		for linear, isRidge := range mask {
			if !isRidge {
				continue
			}
			out.SetVoxel(blk.VoxelIndexFromLinear(linear), voxel.Skeleton{
				Distance: blk.VoxelByLinearIndex(linear).Distance,
				Class:    voxel.SkeletonEdge,
			})
		}
		mu.Lock()
		defer mu.Unlock()
		return g.skeletonLayer.AddBlock(out, layer.Replace)
	})
}

// countDistinctDirections clusters directions greedily in order. A direction within
// minAngle of an earlier kept one adds nothing.
func countDistinctDirections(directions []r3.Vector, minAngle float64) int {
	kept := make([]r3.Vector, 0, len(directions))
	for _, d := range directions {
		distinct := true
		for _, k := range kept {
			if float64(k.Angle(d)) < minAngle {
				distinct = false
				break
			}
		}
		if distinct {
			kept = append(kept, d)
		}
	}
	return len(kept)
}

// countBasisPoints stores in every skeleton voxel the number of distinct directions toward
// its skeleton neighbors.
func (g *Generator) countBasisPoints() {
	for _, ref := range g.skeletonVoxels() {
		ref.voxel.NumBasisPoints = countDistinctDirections(g.neighborDirections(ref.global), g.cfg.MinSeparationAngle)
	}
}

// classifyByBasisPoints labels junctions, closed tips and distance peaks as vertices and
// the rest of the skeleton as edges. A voxel without skeleton neighbors is kept as a vertex
// only when it is enclosed, see isEnclosedIsolated.
func (g *Generator) classifyByBasisPoints(ctx context.Context) error {
	for _, ref := range g.skeletonVoxels() {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch basis := ref.voxel.NumBasisPoints; {
		case basis >= 3:
			ref.voxel.Class = voxel.SkeletonVertex
		case basis == 2 && g.isSkeletonPeak(ref.global, ref.distance):
			ref.voxel.Class = voxel.SkeletonVertex
		case basis == 1 && g.allNeighborsObserved(ref.global):
			ref.voxel.Class = voxel.SkeletonVertex
		case basis > 0:
			ref.voxel.Class = voxel.SkeletonEdge
		case g.isEnclosedIsolated(ref.global):
			ref.voxel.Class = voxel.SkeletonVertex
		default:
			*ref.voxel = voxel.Skeleton{}
		}
	}
	return nil
}

// isSkeletonPeak reports whether global is at least as far from obstacles as every skeleton
// neighbor and strictly farther than one. Among equal neighbors the lowest global index wins.
func (g *Generator) isSkeletonPeak(global layer.GlobalIndex, distance float32) bool {
	strict := false
	for _, off := range layer.NeighborOffsets {
		n := global.Add(off)
		v, ok := g.skeletonAt(n)
		if !ok || !v.IsSkeleton() {
			continue
		}
		switch {
		case v.Distance > distance:
			return false
		case v.Distance < distance:
			strict = true
		case n.Less(global):
			return false
		}
	}
	return strict
}

// allNeighborsObserved reports whether the 26 ESDF neighbors are resident and observed,
// which tells a closed branch tip from one cut off by the map boundary.
func (g *Generator) allNeighborsObserved(global layer.GlobalIndex) bool {
	for _, off := range layer.NeighborOffsets {
		v, ok := g.esdf.VoxelByGlobalIndex(global.Add(off))
		if !ok || !v.Observed {
			return false
		}
	}
	return true
}

// isEnclosedIsolated reports whether global has no skeleton neighbors and all of its ESDF
// neighbors are observed. This is what a closed room thins down to; it is the room's only
// planning node. Both classification modes use it.
func (g *Generator) isEnclosedIsolated(global layer.GlobalIndex) bool {
	return g.skeletonNeighborhood(global).Without(CenterBit) == 0 && g.allNeighborsObserved(global)
}

// skeletonAt returns the skeleton voxel at global, if its block is resident.
func (g *Generator) skeletonAt(global layer.GlobalIndex) (*voxel.Skeleton, bool) {
	return g.skeletonLayer.VoxelByGlobalIndex(global)
}

func (g *Generator) isSkeleton(global layer.GlobalIndex) bool {
	v, ok := g.skeletonAt(global)
	return ok && v.IsSkeleton()
}

// skeletonNeighborhood returns the skeleton occupancy around global, center included.
func (g *Generator) skeletonNeighborhood(global layer.GlobalIndex) Neighborhood {
	var n Neighborhood
	for bit := 0; bit < NeighborhoodSize; bit++ {
		if g.isSkeleton(global.Add(NeighborhoodOffset(bit))) {
			n = n.With(bit)
		}
	}
	return n
}

type skeletonRef struct {
	global   layer.GlobalIndex
	voxel    *voxel.Skeleton
	distance float32
}

// skeletonVoxels lists the skeleton voxels in block then linear order.
func (g *Generator) skeletonVoxels() []skeletonRef {
	vps := g.skeletonLayer.VoxelsPerSide()
	var refs []skeletonRef
	g.skeletonLayer.ForEachVoxel(func(b *layer.Block[voxel.Skeleton], idx layer.VoxelIndex, v *voxel.Skeleton) bool {
		if v.IsSkeleton() {
			refs = append(refs, skeletonRef{
				global:   layer.GlobalFromBlockAndVoxel(b.Index(), idx, vps),
				voxel:    v,
				distance: v.Distance,
			})
		}
		return true
	})
	return refs
}

// thin repeatedly deletes simple voxels that are not branch tips, closest to obstacles
// first, until a pass deletes nothing. It returns the number of deleted voxels.
func (g *Generator) thin(ctx context.Context) (int, error) {
	total := 0
	for {
		refs := g.skeletonVoxels()
		slices.SortFunc(refs, func(a, b skeletonRef) int {
			if c := cmp.Compare(a.distance, b.distance); c != 0 {
				return c
			}
			return a.global.Compare(b.global)
		})
		removed := 0
		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				return total + removed, err
			}
			n := g.skeletonNeighborhood(ref.global)
			if IsSimplePoint(n) && !IsEndPoint(n) {
				*ref.voxel = voxel.Skeleton{}
				removed++
			}
		}
		if removed == 0 {
			return total, nil
		}
		total += removed
	}
}

// neighborDirections returns the unit directions to the skeleton neighbors of global.
func (g *Generator) neighborDirections(global layer.GlobalIndex) []r3.Vector {
	var directions []r3.Vector
	for _, off := range layer.NeighborOffsets {
		if g.isSkeleton(global.Add(off)) {
			directions = append(directions, off.Vector().Normalize())
		}
	}
	return directions
}

// GenerateVerticesByLayerNeighbors labels as vertices the skeleton voxels that are closed
// branch tips, enclosed isolated voxels, or that have more than NumNeighborsForEdge distinct
// neighbor directions and cannot be removed without changing the skeleton's topology.
func (g *Generator) GenerateVerticesByLayerNeighbors() int {
	vertices := 0
	for _, ref := range g.skeletonVoxels() {
		n := g.skeletonNeighborhood(ref.global)
		closedTip := IsEndPoint(n) && g.allNeighborsObserved(ref.global)
		branching := countDistinctDirections(g.neighborDirections(ref.global), g.cfg.MinSeparationAngle) > g.cfg.NumNeighborsForEdge &&
			!IsSimplePoint(n)
		if closedTip || branching || g.isEnclosedIsolated(ref.global) {
			ref.voxel.Class = voxel.SkeletonVertex
			vertices++
		}
	}
	return vertices
}

// GenerateEdgesByLayerNeighbors labels every skeleton voxel that is not a vertex as an edge.
// Isolated voxels that are not vertices are dropped.
func (g *Generator) GenerateEdgesByLayerNeighbors() int {
	edges := 0
	for _, ref := range g.skeletonVoxels() {
		if ref.voxel.Class == voxel.SkeletonVertex {
			continue
		}
		if g.skeletonNeighborhood(ref.global).Without(CenterBit) == 0 {
			*ref.voxel = voxel.Skeleton{}
			continue
		}
		ref.voxel.Class = voxel.SkeletonEdge
		edges++
	}
	return edges
}
