package skeleton

import (
	"cmp"
	"math"
	"slices"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"

	"go.viam.com/voxmap/voxel"
)

// vertexPoint is a graph vertex stored in a kd-tree.
type vertexPoint struct {
	id    int64
	point r3.Vector
}

func (p vertexPoint) coord(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return p.point.X
	case 1:
		return p.point.Y
	}
	return p.point.Z
}

// Compare implements kdtree.Comparable.
func (p vertexPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(vertexPoint).coord(d)
}

// Dims implements kdtree.Comparable.
func (p vertexPoint) Dims() int { return 3 }

// Distance implements kdtree.Comparable. It is the squared euclidean distance.
func (p vertexPoint) Distance(c kdtree.Comparable) float64 {
	return p.point.Sub(c.(vertexPoint).point).Norm2()
}

// vertexPoints implements kdtree.Interface.
type vertexPoints []vertexPoint

func (p vertexPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p vertexPoints) Len() int                              { return len(p) }
func (p vertexPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p vertexPoints) Pivot(d kdtree.Dim) int {
	return vertexPlane{vertexPoints: p, Dim: d}.Pivot()
}

// vertexPlane sorts vertexPoints along one dimension.
type vertexPlane struct {
	kdtree.Dim
	vertexPoints
}

func (p vertexPlane) Less(i, j int) bool {
	return p.vertexPoints[i].coord(p.Dim) < p.vertexPoints[j].coord(p.Dim)
}

func (p vertexPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p vertexPlane) Slice(start, end int) kdtree.SortSlicer {
	p.vertexPoints = p.vertexPoints[start:end]
	return p
}

func (p vertexPlane) Swap(i, j int) {
	p.vertexPoints[i], p.vertexPoints[j] = p.vertexPoints[j], p.vertexPoints[i]
}

// PruneGraphVertices keeps, within every group of vertices closer than radius, only the
// one farthest from obstacles. Vertices are visited by decreasing distance, lower id first
// on ties; each vertex still present removes every other present vertex strictly closer
// than radius. Edges of a removed vertex move to the vertex that removed it, growing by
// the distance between the two. Edges that would loop or duplicate an existing
// connection are dropped. It returns the removed vertex ids in ascending order.
func PruneGraphVertices(g *SparseSkeletonGraph, radius float64) []int64 {
	if radius <= 0 || g.NumVertices() < 2 {
		return nil
	}

	points := make(vertexPoints, 0, g.NumVertices())
	for _, id := range g.VertexIDs() {
		v, _ := g.Vertex(id)
		points = append(points, vertexPoint{id: id, point: v.Point})
	}
	order := slices.Clone(points)
	slices.SortStableFunc(order, func(a, b vertexPoint) int {
		va, _ := g.Vertex(a.id)
		vb, _ := g.Vertex(b.id)
		if c := cmp.Compare(vb.Distance, va.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	tree := kdtree.New(points, false)

	var removed []int64
	radiusSq := radius * radius
	for _, p := range order {
		if _, ok := g.Vertex(p.id); !ok {
			continue
		}
		keeper := kdtree.NewDistKeeper(radiusSq)
		tree.NearestSet(keeper, p)

		var group []int64
		for _, found := range keeper.Heap {
			if found.Comparable == nil || found.Dist >= radiusSq {
				continue
			}
			id := found.Comparable.(vertexPoint).id
			if _, ok := g.Vertex(id); ok && id != p.id {
				group = append(group, id)
			}
		}
		slices.Sort(group)
		for _, id := range group {
			mergeVertexInto(g, id, p.id)
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	return removed
}

// mergeVertexInto moves the edges of vertex from onto vertex into and removes from.
func mergeVertexInto(g *SparseSkeletonGraph, from, into int64) {
	fromVertex, _ := g.Vertex(from)
	intoVertex, _ := g.Vertex(into)
	for _, edgeID := range slices.Clone(fromVertex.Edges) {
		e, _ := g.Edge(edgeID)
		other := e.Other(from)
		if other == into {
			g.RemoveEdge(edgeID)
			continue
		}
		if _, dup := g.edgeBetween(into, other); dup {
			g.RemoveEdge(edgeID)
			continue
		}
		if e.StartVertex == from {
			e.StartVertex = into
			e.StartPoint = intoVertex.Point
		} else {
			e.EndVertex = into
			e.EndPoint = intoVertex.Point
		}
		e.Length += intoVertex.Point.Distance(fromVertex.Point)
		e.MinDistance = math.Min(e.MinDistance, intoVertex.Distance)
		e.MaxDistance = math.Max(e.MaxDistance, intoVertex.Distance)
		fromVertex.Edges = slices.DeleteFunc(fromVertex.Edges, func(id int64) bool { return id == edgeID })
		intoVertex.Edges = append(intoVertex.Edges, edgeID)
	}
	g.RemoveVertex(from)
}

// PruneVertices runs PruneGraphVertices with VertexPruningRadius and demotes the voxels
// of removed vertices to edges. It returns the number of removed vertices.
func (g *Generator) PruneVertices() int {
	removed := PruneGraphVertices(g.graph, g.cfg.VertexPruningRadius)
	for _, id := range removed {
		global, ok := g.vertexVoxels[id]
		if !ok {
			continue
		}
		if v, ok := g.skeletonAt(global); ok {
			v.Class = voxel.SkeletonEdge
		}
		delete(g.vertexVoxels, id)
		delete(g.vertexIDs, global)
	}
	if len(removed) > 0 {
		g.graph.SplitIntoSubgraphs()
		g.rebuildDiagram()
	}
	g.logger.Debugw("pruned vertices", "removed", len(removed), "radius", g.cfg.VertexPruningRadius)
	return len(removed)
}

// PruneEdges deletes edge voxels matched by CornerTemplates or PruningTemplates whose
// removal does not change the skeleton's topology. It returns the number deleted.
// It works on the skeleton layer, so it should run before GenerateSparseGraph.
func (g *Generator) PruneEdges() int {
	removed := 0
	for _, ref := range g.skeletonVoxels() {
		if ref.voxel.Class != voxel.SkeletonEdge {
			continue
		}
		n := g.skeletonNeighborhood(ref.global)
		if (CornerTemplates.Matches(n) || PruningTemplates.Matches(n)) && IsSimplePoint(n) {
			*ref.voxel = voxel.Skeleton{}
			removed++
		}
	}
	if removed > 0 {
		g.rebuildDiagram()
	}
	g.logger.Debugw("pruned edge voxels", "removed", removed)
	return removed
}
