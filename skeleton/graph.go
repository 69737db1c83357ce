package skeleton

import (
	"cmp"
	"maps"
	"slices"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Vertex is a node of the sparse skeleton graph.
type Vertex struct {
	ID int64
	// Point is the world position of the vertex voxel's center.
	Point    r3.Vector
	Distance float64
	// Edges lists the ids of incident edges in insertion order.
	Edges      []int64
	SubgraphID int
}

// Edge connects two vertices through a traced chain of skeleton voxels.
type Edge struct {
	ID          int64
	StartVertex int64
	EndVertex   int64
	StartPoint  r3.Vector
	EndPoint    r3.Vector
	// MinDistance and MaxDistance bound the ESDF distance along the path, end vertices included.
	MinDistance float64
	MaxDistance float64
	// Length is the path length in meters.
	Length float64
}

// Other returns the endpoint of e that is not vertexID.
func (e *Edge) Other(vertexID int64) int64 {
	if e.StartVertex == vertexID {
		return e.EndVertex
	}
	return e.StartVertex
}

// SparseSkeletonGraph is the vertex and edge graph traced from a skeleton layer.
// It is not safe for concurrent mutation.
type SparseSkeletonGraph struct {
	vertices     map[int64]*Vertex
	edges        map[int64]*Edge
	nextVertexID int64
	nextEdgeID   int64
}

// NewSparseSkeletonGraph returns an empty graph.
func NewSparseSkeletonGraph() *SparseSkeletonGraph {
	return &SparseSkeletonGraph{
		vertices: make(map[int64]*Vertex),
		edges:    make(map[int64]*Edge),
	}
}

// AddVertex stores v under a new id, ignoring v.ID and v.Edges, and returns the id.
// Ids start at 0 and are never reused until Clear.
func (g *SparseSkeletonGraph) AddVertex(v Vertex) int64 {
	v.ID = g.nextVertexID
	v.Edges = nil
	g.nextVertexID++
	g.vertices[v.ID] = &v
	return v.ID
}

// AddEdge stores e under a new id and registers it with both endpoints. Start and end
// points are taken from the vertices.
func (g *SparseSkeletonGraph) AddEdge(e Edge) (int64, error) {
	start, ok := g.vertices[e.StartVertex]
	if !ok {
		return 0, errors.Errorf("edge start vertex %d does not exist", e.StartVertex)
	}
	end, ok := g.vertices[e.EndVertex]
	if !ok {
		return 0, errors.Errorf("edge end vertex %d does not exist", e.EndVertex)
	}
	if e.StartVertex == e.EndVertex {
		return 0, errors.Errorf("edge would loop on vertex %d", e.StartVertex)
	}
	e.ID = g.nextEdgeID
	g.nextEdgeID++
	e.StartPoint = start.Point
	e.EndPoint = end.Point
	g.edges[e.ID] = &e
	start.Edges = append(start.Edges, e.ID)
	end.Edges = append(end.Edges, e.ID)
	return e.ID, nil
}

// RemoveEdge deletes an edge and unregisters it from its endpoints.
func (g *SparseSkeletonGraph) RemoveEdge(id int64) {
	e, ok := g.edges[id]
	if !ok {
		return
	}
	for _, vertexID := range []int64{e.StartVertex, e.EndVertex} {
		if v, ok := g.vertices[vertexID]; ok {
			v.Edges = slices.DeleteFunc(v.Edges, func(edgeID int64) bool { return edgeID == id })
		}
	}
	delete(g.edges, id)
}

// RemoveVertex deletes a vertex and every incident edge.
func (g *SparseSkeletonGraph) RemoveVertex(id int64) {
	v, ok := g.vertices[id]
	if !ok {
		return
	}
	for _, edgeID := range slices.Clone(v.Edges) {
		g.RemoveEdge(edgeID)
	}
	delete(g.vertices, id)
}

// Vertex returns the vertex with the given id. The pointer stays owned by the graph.
func (g *SparseSkeletonGraph) Vertex(id int64) (*Vertex, bool) {
	v, ok := g.vertices[id]
	return v, ok
}

// Edge returns the edge with the given id. The pointer stays owned by the graph.
func (g *SparseSkeletonGraph) Edge(id int64) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// VertexIDs returns all vertex ids in ascending order.
func (g *SparseSkeletonGraph) VertexIDs() []int64 {
	return slices.Sorted(maps.Keys(g.vertices))
}

// EdgeIDs returns all edge ids in ascending order.
func (g *SparseSkeletonGraph) EdgeIDs() []int64 {
	return slices.Sorted(maps.Keys(g.edges))
}

// NumVertices returns the number of vertices.
func (g *SparseSkeletonGraph) NumVertices() int {
	return len(g.vertices)
}

// NumEdges returns the number of edges.
func (g *SparseSkeletonGraph) NumEdges() int {
	return len(g.edges)
}

// Degree returns the number of edges incident to a vertex.
func (g *SparseSkeletonGraph) Degree(id int64) int {
	v, ok := g.vertices[id]
	if !ok {
		return 0
	}
	return len(v.Edges)
}

// edgeBetween returns an edge joining a and b, if any.
func (g *SparseSkeletonGraph) edgeBetween(a, b int64) (*Edge, bool) {
	v, ok := g.vertices[a]
	if !ok {
		return nil, false
	}
	for _, edgeID := range v.Edges {
		if e := g.edges[edgeID]; e.Other(a) == b {
			return e, true
		}
	}
	return nil, false
}

// Clear removes everything and restarts ids at 0.
func (g *SparseSkeletonGraph) Clear() {
	clear(g.vertices)
	clear(g.edges)
	g.nextVertexID = 0
	g.nextEdgeID = 0
}

// Clone returns a deep copy.
func (g *SparseSkeletonGraph) Clone() *SparseSkeletonGraph {
	clone := &SparseSkeletonGraph{
		vertices:     make(map[int64]*Vertex, len(g.vertices)),
		edges:        make(map[int64]*Edge, len(g.edges)),
		nextVertexID: g.nextVertexID,
		nextEdgeID:   g.nextEdgeID,
	}
	for id, v := range g.vertices {
		vc := *v
		vc.Edges = slices.Clone(v.Edges)
		clone.vertices[id] = &vc
	}
	for id, e := range g.edges {
		ec := *e
		clone.edges[id] = &ec
	}
	return clone
}

// SplitIntoSubgraphs labels every vertex with the index of its connected component and
// returns the number of components. Components are numbered by their lowest vertex id.
func (g *SparseSkeletonGraph) SplitIntoSubgraphs() int {
	undirected := simple.NewUndirectedGraph()
	for id := range g.vertices {
		undirected.AddNode(simple.Node(id))
	}
	for _, e := range g.edges {
		undirected.SetEdge(simple.Edge{F: simple.Node(e.StartVertex), T: simple.Node(e.EndVertex)})
	}

	components := topo.ConnectedComponents(undirected)
	lowest := make([]int64, len(components))
	for i, component := range components {
		lowest[i] = component[0].ID()
		for _, node := range component[1:] {
			lowest[i] = min(lowest[i], node.ID())
		}
	}
	order := make([]int, len(components))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int { return cmp.Compare(lowest[a], lowest[b]) })

	for subgraph, i := range order {
		for _, node := range components[i] {
			g.vertices[node.ID()].SubgraphID = subgraph
		}
	}
	return len(components)
}
