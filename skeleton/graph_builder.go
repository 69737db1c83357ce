package skeleton

import (
	"context"
	"math"

	"go.opencensus.io/trace"

	"go.viam.com/voxmap/layer"
	"go.viam.com/voxmap/voxel"
)

// EdgeTrace is the result of following a chain of edge voxels away from a vertex.
type EdgeTrace struct {
	// VertexID is the graph id of the vertex the chain ends at, or -1 if that vertex is
	// not in the graph.
	VertexID int64
	// Vertex is the global index of the vertex the chain ends at.
	Vertex layer.GlobalIndex
	// MinDistance and MaxDistance bound the ESDF distance along the chain, both vertices included.
	MinDistance float64
	MaxDistance float64
	// Length is the path length in meters from the starting vertex to Vertex.
	Length float64
	// FirstStep is the offset from the starting vertex into the chain and LastStep the
	// offset from the chain onto Vertex.
	FirstStep layer.Index
	LastStep  layer.Index
	// Voxels lists the edge voxels walked, in order.
	Voxels []layer.GlobalIndex
}

func (t *EdgeTrace) include(distance float32) {
	d := float64(distance)
	t.MinDistance = math.Min(t.MinDistance, d)
	t.MaxDistance = math.Max(t.MaxDistance, d)
}

func (g *Generator) stepLength(step layer.Index) float64 {
	return step.Vector().Norm() * g.skeletonLayer.VoxelSize()
}

// FollowEdge walks the chain of edge voxels starting at startVoxel of startBlock, which
// lies one step of direction away from a vertex. Steps may cross into neighboring blocks.
// At each voxel a neighboring vertex other than the starting one ends the walk; otherwise
// the walk moves to the unvisited edge neighbor best aligned with its last step, the
// earlier neighbor offset winning ties. It returns false when the chain dead-ends or the
// start is not an edge voxel.
func (g *Generator) FollowEdge(startBlock layer.BlockIndex, startVoxel layer.VoxelIndex, direction layer.Index) (EdgeTrace, bool) {
	start := layer.GlobalFromBlockAndVoxel(startBlock, startVoxel, g.skeletonLayer.VoxelsPerSide())
	origin := start.Sub(direction)

	startValue, ok := g.skeletonAt(start)
	if !ok || startValue.Class != voxel.SkeletonEdge {
		return EdgeTrace{}, false
	}
	t := EdgeTrace{
		VertexID:    -1,
		MinDistance: float64(startValue.Distance),
		MaxDistance: float64(startValue.Distance),
		Length:      g.stepLength(direction),
		FirstStep:   direction,
		Voxels:      []layer.GlobalIndex{start},
	}
	if originValue, ok := g.skeletonAt(origin); ok && originValue.IsSkeleton() {
		t.include(originValue.Distance)
	}

	visited := map[layer.GlobalIndex]struct{}{start: {}}
	current, heading := start, direction
	for {
		for _, off := range layer.NeighborOffsets {
			n := current.Add(off)
			if n == origin {
				continue
			}
			if v, ok := g.skeletonAt(n); ok && v.Class == voxel.SkeletonVertex {
				t.include(v.Distance)
				t.Length += g.stepLength(off)
				t.LastStep = off
				t.Vertex = n
				if id, ok := g.vertexIDs[n]; ok {
					t.VertexID = id
				}
				return t, true
			}
		}

		headingDir := heading.Vector().Normalize()
		var next layer.Index
		bestAlignment := math.Inf(-1)
		for _, off := range layer.NeighborOffsets {
			n := current.Add(off)
			if _, seen := visited[n]; seen {
				continue
			}
			v, ok := g.skeletonAt(n)
			if !ok || v.Class != voxel.SkeletonEdge {
				continue
			}
			if alignment := off.Vector().Normalize().Dot(headingDir); alignment > bestAlignment {
				bestAlignment = alignment
				next = off
			}
		}
		if math.IsInf(bestAlignment, -1) {
			return t, false
		}

		current = current.Add(next)
		heading = next
		visited[current] = struct{}{}
		t.Voxels = append(t.Voxels, current)
		v, _ := g.skeletonAt(current)
		t.include(v.Distance)
		t.Length += g.stepLength(next)
	}
}

// edgeKey identifies an edge by its endpoints and the direction it leaves the lower one.
type edgeKey struct {
	low, high int64
	direction layer.Index
}

// GenerateSparseGraph rebuilds the graph from the skeleton layer. Vertex voxels become
// vertices, numbered in block then voxel order. Every vertex then tries each of its 26
// directions: a neighboring vertex is joined directly and a neighboring edge voxel is
// followed with FollowEdge. Each chain is recorded once.
func (g *Generator) GenerateSparseGraph(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "skeleton::Generator::GenerateSparseGraph")
	defer span.End()

	g.graph.Clear()
	clear(g.vertexIDs)
	clear(g.vertexVoxels)

	var order []layer.GlobalIndex
	for _, ref := range g.skeletonVoxels() {
		if ref.voxel.Class != voxel.SkeletonVertex {
			continue
		}
		id := g.graph.AddVertex(Vertex{
			Point:    g.skeletonLayer.VoxelCenter(ref.global),
			Distance: float64(ref.distance),
		})
		g.vertexIDs[ref.global] = id
		g.vertexVoxels[id] = ref.global
		order = append(order, ref.global)
	}

	seen := make(map[edgeKey]struct{})
	consumed := make(map[layer.GlobalIndex]struct{})
	vps := g.skeletonLayer.VoxelsPerSide()
	deadEnds := 0
	for _, global := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := g.vertexIDs[global]
		vertex, _ := g.graph.Vertex(id)
		for _, off := range layer.NeighborOffsets {
			n := global.Add(off)
			v, ok := g.skeletonAt(n)
			if !ok {
				continue
			}
			switch v.Class {
			case voxel.SkeletonVertex:
				other := g.vertexIDs[n]
				key := edgeKey{low: id, high: other, direction: off}
				if other < id {
					key = edgeKey{low: other, high: id, direction: off.Scale(-1)}
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				g.addEdge(Edge{
					StartVertex: id,
					EndVertex:   other,
					MinDistance: math.Min(vertex.Distance, float64(v.Distance)),
					MaxDistance: math.Max(vertex.Distance, float64(v.Distance)),
					Length:      g.stepLength(off),
				})
			case voxel.SkeletonEdge:
				if _, done := consumed[n]; done {
					continue
				}
				blockIdx, voxelIdx := layer.BlockAndVoxelFromGlobal(n, vps)
				t, ok := g.FollowEdge(blockIdx, voxelIdx, off)
				if !ok {
					deadEnds++
					continue
				}
				key := edgeKey{low: id, high: t.VertexID, direction: off}
				if t.VertexID < id {
					key = edgeKey{low: t.VertexID, high: id, direction: t.LastStep.Scale(-1)}
				}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				for _, walked := range t.Voxels {
					consumed[walked] = struct{}{}
				}
				g.addEdge(Edge{
					StartVertex: id,
					EndVertex:   t.VertexID,
					MinDistance: t.MinDistance,
					MaxDistance: t.MaxDistance,
					Length:      t.Length,
				})
			case voxel.SkeletonNone:
			}
		}
	}

	subgraphs := g.graph.SplitIntoSubgraphs()
	g.logger.Infow("generated sparse graph",
		"vertices", g.graph.NumVertices(), "edges", g.graph.NumEdges(), "subgraphs", subgraphs, "dead_ends", deadEnds)
	return nil
}

func (g *Generator) addEdge(e Edge) {
	if _, err := g.graph.AddEdge(e); err != nil {
		// Both endpoints come from vertexIDs, so this only fires on a bookkeeping bug.
		g.logger.Errorw("could not add edge", "start", e.StartVertex, "end", e.EndVertex, "error", err)
	}
}
