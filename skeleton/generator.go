// Package skeleton extracts a skeleton of free space from an ESDF layer and turns it
// into a sparse graph of vertices joined by traced edges.
package skeleton

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/voxmap/layer"
	"go.viam.com/voxmap/logging"
	"go.viam.com/voxmap/voxel"
)

// DiagramPoint is one skeleton voxel in world coordinates.
type DiagramPoint struct {
	Point          r3.Vector
	Distance       float64
	NumBasisPoints int
}

// Diagram lists the skeleton voxels by class.
type Diagram struct {
	Vertices []DiagramPoint
	Edges    []DiagramPoint
}

// Generator builds a skeleton layer and sparse graph from an ESDF layer.
// A Generator is not safe for concurrent use.
type Generator struct {
	esdf   *layer.Layer[voxel.Esdf]
	cfg    Config
	logger logging.Logger

	skeletonLayer *layer.Layer[voxel.Skeleton]
	diagram       Diagram
	graph         *SparseSkeletonGraph

	vertexIDs    map[layer.GlobalIndex]int64
	vertexVoxels map[int64]layer.GlobalIndex
}

// NewGenerator returns a generator reading from esdf, which must outlive it. The
// skeleton layer shares the ESDF layer's voxel size and block width.
func NewGenerator(esdf *layer.Layer[voxel.Esdf], cfg Config, logger logging.Logger) (*Generator, error) {
	if esdf == nil {
		return nil, errors.New("esdf layer is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid skeleton config")
	}
	skeletonLayer, err := layer.New[voxel.Skeleton](esdf.VoxelSize(), esdf.VoxelsPerSide())
	if err != nil {
		return nil, err
	}
	return &Generator{
		esdf:          esdf,
		cfg:           cfg,
		logger:        logger,
		skeletonLayer: skeletonLayer,
		graph:         NewSparseSkeletonGraph(),
		vertexIDs:     make(map[layer.GlobalIndex]int64),
		vertexVoxels:  make(map[int64]layer.GlobalIndex),
	}, nil
}

func (g *Generator) resetSkeletonLayer() {
	for _, idx := range g.skeletonLayer.BlockIndices() {
		g.skeletonLayer.RemoveBlock(idx)
	}
	g.diagram = Diagram{}
	g.graph.Clear()
	clear(g.vertexIDs)
	clear(g.vertexVoxels)
}

// dropEmptyBlocks removes skeleton blocks left without any skeleton voxel, such as after thinning.
func (g *Generator) dropEmptyBlocks() {
	for _, idx := range g.skeletonLayer.BlockIndices() {
		blk, _ := g.skeletonLayer.Block(idx)
		empty := true
		for linear := 0; linear < blk.NumVoxels(); linear++ {
			if blk.VoxelByLinearIndex(linear).IsSkeleton() {
				empty = false
				break
			}
		}
		if empty {
			g.skeletonLayer.RemoveBlock(idx)
		}
	}
}

func (g *Generator) rebuildDiagram() {
	g.diagram = Diagram{}
	for _, ref := range g.skeletonVoxels() {
		p := DiagramPoint{
			Point:          g.skeletonLayer.VoxelCenter(ref.global),
			Distance:       float64(ref.distance),
			NumBasisPoints: ref.voxel.NumBasisPoints,
		}
		if ref.voxel.Class == voxel.SkeletonVertex {
			g.diagram.Vertices = append(g.diagram.Vertices, p)
		} else {
			g.diagram.Edges = append(g.diagram.Edges, p)
		}
	}
}

// SkeletonLayer returns the skeleton layer. It is rebuilt by GenerateSkeleton.
func (g *Generator) SkeletonLayer() *layer.Layer[voxel.Skeleton] {
	return g.skeletonLayer
}

// Skeleton returns the skeleton voxels by class, as of the last generation or pruning step.
func (g *Generator) Skeleton() *Diagram {
	return &g.diagram
}

// Graph returns the sparse graph for callers that edit it in place.
func (g *Generator) Graph() *SparseSkeletonGraph {
	return g.graph
}

// GraphView returns a copy of the sparse graph.
func (g *Generator) GraphView() *SparseSkeletonGraph {
	return g.graph.Clone()
}

// MinSeparationAngle returns the angle, in radians, two neighbor directions must differ by
// to count as separate basis points.
func (g *Generator) MinSeparationAngle() float64 { return g.cfg.MinSeparationAngle }

// SetMinSeparationAngle sets the angle used by the next GenerateSkeleton.
func (g *Generator) SetMinSeparationAngle(angle float64) { g.cfg.MinSeparationAngle = angle }

// GenerateByLayerNeighbors reports whether voxels are classified by their skeleton
// neighbors rather than by basis point counts.
func (g *Generator) GenerateByLayerNeighbors() bool { return g.cfg.GenerateByLayerNeighbors }

// SetGenerateByLayerNeighbors selects the classification used by the next GenerateSkeleton.
func (g *Generator) SetGenerateByLayerNeighbors(enabled bool) {
	g.cfg.GenerateByLayerNeighbors = enabled
}

// NumNeighborsForEdge returns the most distinct neighbor directions an edge voxel may have
// when classifying by layer neighbors.
func (g *Generator) NumNeighborsForEdge() int { return g.cfg.NumNeighborsForEdge }

// SetNumNeighborsForEdge sets the neighbor direction limit for edge voxels.
func (g *Generator) SetNumNeighborsForEdge(n int) { g.cfg.NumNeighborsForEdge = n }

// VertexPruningRadius returns the radius in meters used by PruneVertices.
func (g *Generator) VertexPruningRadius() float64 { return g.cfg.VertexPruningRadius }

// SetVertexPruningRadius sets the radius used by the next PruneVertices.
func (g *Generator) SetVertexPruningRadius(radius float64) { g.cfg.VertexPruningRadius = radius }
