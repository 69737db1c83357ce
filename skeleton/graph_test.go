package skeleton

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"
)

func addVertices(g *SparseSkeletonGraph, vertices ...Vertex) []int64 {
	ids := make([]int64, 0, len(vertices))
	for _, v := range vertices {
		ids = append(ids, g.AddVertex(v))
	}
	return ids
}

func TestSparseSkeletonGraph(t *testing.T) {
	g := NewSparseSkeletonGraph()
	ids := addVertices(g,
		Vertex{Point: r3.Vector{X: 0}, Distance: 1},
		Vertex{Point: r3.Vector{X: 1}, Distance: 2},
		Vertex{Point: r3.Vector{X: 2}, Distance: 3},
	)
	test.That(t, ids, test.ShouldResemble, []int64{0, 1, 2})

	e01, err := g.AddEdge(Edge{StartVertex: 0, EndVertex: 1, Length: 1})
	test.That(t, err, test.ShouldBeNil)
	e12, err := g.AddEdge(Edge{StartVertex: 1, EndVertex: 2, Length: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []int64{e01, e12}, test.ShouldResemble, []int64{0, 1})

	_, err = g.AddEdge(Edge{StartVertex: 1, EndVertex: 1})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = g.AddEdge(Edge{StartVertex: 1, EndVertex: 7})
	test.That(t, err, test.ShouldNotBeNil)

	e, ok := g.Edge(e12)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, e.StartPoint, test.ShouldResemble, r3.Vector{X: 1})
	test.That(t, e.EndPoint, test.ShouldResemble, r3.Vector{X: 2})
	test.That(t, e.Other(1), test.ShouldEqual, int64(2))
	test.That(t, e.Other(2), test.ShouldEqual, int64(1))

	test.That(t, g.Degree(1), test.ShouldEqual, 2)
	test.That(t, g.Degree(9), test.ShouldEqual, 0)
	v, ok := g.Vertex(1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v.Edges, test.ShouldResemble, []int64{e01, e12})

	g.RemoveEdge(e01)
	test.That(t, g.NumEdges(), test.ShouldEqual, 1)
	test.That(t, g.Degree(0), test.ShouldEqual, 0)
	test.That(t, g.Degree(1), test.ShouldEqual, 1)

	g.RemoveVertex(2)
	test.That(t, g.NumVertices(), test.ShouldEqual, 2)
	test.That(t, g.NumEdges(), test.ShouldEqual, 0)
	test.That(t, g.Degree(1), test.ShouldEqual, 0)
	_, ok = g.Vertex(2)
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, g.AddVertex(Vertex{}), test.ShouldEqual, int64(3))
	test.That(t, g.VertexIDs(), test.ShouldResemble, []int64{0, 1, 3})

	g.Clear()
	test.That(t, g.NumVertices(), test.ShouldEqual, 0)
	test.That(t, g.AddVertex(Vertex{}), test.ShouldEqual, int64(0))
}

func TestSparseSkeletonGraphClone(t *testing.T) {
	g := NewSparseSkeletonGraph()
	addVertices(g, Vertex{}, Vertex{Point: r3.Vector{Y: 1}})
	_, err := g.AddEdge(Edge{StartVertex: 0, EndVertex: 1, Length: 1})
	test.That(t, err, test.ShouldBeNil)

	clone := g.Clone()
	test.That(t, cmp.Equal(g, clone, cmp.AllowUnexported(SparseSkeletonGraph{})), test.ShouldBeTrue)
	clone.RemoveVertex(0)
	test.That(t, cmp.Equal(g, clone, cmp.AllowUnexported(SparseSkeletonGraph{})), test.ShouldBeFalse)
	e, _ := clone.Edge(0)
	test.That(t, e, test.ShouldBeNil)
	v, _ := g.Vertex(0)
	test.That(t, v.Edges, test.ShouldResemble, []int64{0})
	test.That(t, g.NumEdges(), test.ShouldEqual, 1)

	// ids continue from where the original left off
	test.That(t, clone.AddVertex(Vertex{}), test.ShouldEqual, int64(2))
	test.That(t, g.EdgeIDs(), test.ShouldResemble, []int64{0})
}

func TestSplitIntoSubgraphs(t *testing.T) {
	g := NewSparseSkeletonGraph()
	addVertices(g, Vertex{}, Vertex{}, Vertex{}, Vertex{}, Vertex{})
	_, err := g.AddEdge(Edge{StartVertex: 3, EndVertex: 4})
	test.That(t, err, test.ShouldBeNil)
	_, err = g.AddEdge(Edge{StartVertex: 1, EndVertex: 0})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, g.SplitIntoSubgraphs(), test.ShouldEqual, 3)
	for id, want := range map[int64]int{0: 0, 1: 0, 2: 1, 3: 2, 4: 2} {
		v, _ := g.Vertex(id)
		test.That(t, v.SubgraphID, test.ShouldEqual, want)
	}

	test.That(t, NewSparseSkeletonGraph().SplitIntoSubgraphs(), test.ShouldEqual, 0)
}

func TestPruneGraphVertices(t *testing.T) {
	t.Run("keeps the farthest vertex of each cluster", func(t *testing.T) {
		g := NewSparseSkeletonGraph()
		addVertices(g,
			Vertex{Point: r3.Vector{X: 0}, Distance: 1},
			Vertex{Point: r3.Vector{X: 0.1}, Distance: 2},
			Vertex{Point: r3.Vector{X: 0.3}, Distance: 1.5},
			Vertex{Point: r3.Vector{X: 1}, Distance: 0.5},
		)
		for _, e := range []Edge{
			{StartVertex: 0, EndVertex: 1, Length: 0.1, MinDistance: 1, MaxDistance: 2},
			{StartVertex: 1, EndVertex: 2, Length: 0.2, MinDistance: 1.5, MaxDistance: 2},
			{StartVertex: 2, EndVertex: 3, Length: 0.7, MinDistance: 0.5, MaxDistance: 1.5},
		} {
			_, err := g.AddEdge(e)
			test.That(t, err, test.ShouldBeNil)
		}

		removed := PruneGraphVertices(g, 0.25)
		test.That(t, removed, test.ShouldResemble, []int64{0, 2})
		test.That(t, g.VertexIDs(), test.ShouldResemble, []int64{1, 3})
		test.That(t, g.EdgeIDs(), test.ShouldResemble, []int64{2})

		e, _ := g.Edge(2)
		test.That(t, e.StartVertex, test.ShouldEqual, int64(1))
		test.That(t, e.EndVertex, test.ShouldEqual, int64(3))
		test.That(t, e.StartPoint, test.ShouldResemble, r3.Vector{X: 0.1})
		test.That(t, e.Length, test.ShouldAlmostEqual, 0.9)
		test.That(t, e.MinDistance, test.ShouldEqual, 0.5)
		test.That(t, e.MaxDistance, test.ShouldEqual, 2.0)
		test.That(t, g.Degree(1), test.ShouldEqual, 1)
		test.That(t, g.Degree(3), test.ShouldEqual, 1)
	})

	t.Run("drops duplicate connections", func(t *testing.T) {
		g := NewSparseSkeletonGraph()
		addVertices(g,
			Vertex{Point: r3.Vector{X: 0}, Distance: 2},
			Vertex{Point: r3.Vector{X: 0.1}, Distance: 1},
			Vertex{Point: r3.Vector{X: 1}, Distance: 1},
		)
		for _, e := range []Edge{
			{StartVertex: 0, EndVertex: 2, Length: 1},
			{StartVertex: 1, EndVertex: 2, Length: 0.9},
			{StartVertex: 0, EndVertex: 1, Length: 0.1},
		} {
			_, err := g.AddEdge(e)
			test.That(t, err, test.ShouldBeNil)
		}

		test.That(t, PruneGraphVertices(g, 0.25), test.ShouldResemble, []int64{1})
		test.That(t, g.EdgeIDs(), test.ShouldResemble, []int64{0})
		e, _ := g.Edge(0)
		test.That(t, e.Length, test.ShouldEqual, 1.0)
	})

	t.Run("ties go to the lower id", func(t *testing.T) {
		g := NewSparseSkeletonGraph()
		addVertices(g,
			Vertex{Point: r3.Vector{X: 0.1}, Distance: 1},
			Vertex{Point: r3.Vector{X: 0}, Distance: 1},
		)
		test.That(t, PruneGraphVertices(g, 0.25), test.ShouldResemble, []int64{1})
	})

	t.Run("zero radius keeps everything", func(t *testing.T) {
		g := NewSparseSkeletonGraph()
		addVertices(g, Vertex{}, Vertex{})
		test.That(t, PruneGraphVertices(g, 0), test.ShouldBeEmpty)
		test.That(t, g.NumVertices(), test.ShouldEqual, 2)
	})
}
