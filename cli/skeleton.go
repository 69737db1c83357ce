package cli

import (
	"os"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/voxmap/layerio"
	"go.viam.com/voxmap/logging"
	"go.viam.com/voxmap/pointcloud"
	"go.viam.com/voxmap/skeleton"
	"go.viam.com/voxmap/voxel"
)

// InfoAction prints what a layer file holds without decoding its blocks.
func InfoAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one layer file")
	}
	path := c.Args().First()
	info, err := layerio.Stat(path)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s: %s, %d blocks", path, info.Header, info.NumBlocks)
	return nil
}

// SkeletonAction loads an esdf layer, builds its skeleton and sparse graph, and writes
// whichever outputs were requested.
func SkeletonAction(c *cli.Context, logger logging.Logger) error {
	cfg := skeleton.DefaultConfig()
	if path := c.Path(flagConfig); path != "" {
		var err error
		if cfg, err = skeleton.LoadConfig(path); err != nil {
			return err
		}
	}

	esdf, err := layerio.LoadLayer[voxel.Esdf](c.Path(flagESDF), logger)
	if err != nil {
		return err
	}
	gen, err := skeleton.NewGenerator(esdf, cfg, logger.Sublogger("skeleton"))
	if err != nil {
		return err
	}

	if err := gen.GenerateSkeleton(c.Context); err != nil {
		return err
	}
	if c.Bool(flagPruneEdges) {
		gen.PruneEdges()
	}
	if err := gen.GenerateSparseGraph(c.Context); err != nil {
		return err
	}
	if c.Bool(flagPruneVertices) {
		gen.PruneVertices()
	}

	if path := c.Path(flagOutput); path != "" {
		if err := layerio.SaveLayer(gen.SkeletonLayer(), path, logger); err != nil {
			return err
		}
	}
	if path := c.Path(flagPCD); path != "" {
		pcdType := pointcloud.PCDAscii
		if c.Bool(flagPCDBinary) {
			pcdType = pointcloud.PCDBinary
		}
		if err := writePCD(path, gen.Skeleton(), pcdType); err != nil {
			return err
		}
	}

	diagram := gen.Skeleton()
	graph := gen.Graph()
	printf(c.App.Writer, "skeleton: %d vertex voxels, %d edge voxels", len(diagram.Vertices), len(diagram.Edges))
	printf(c.App.Writer, "graph: %d vertices, %d edges", graph.NumVertices(), graph.NumEdges())
	if graph.NumEdges() == 0 {
		return nil
	}
	lengths := make(stats.Float64Data, 0, graph.NumEdges())
	for _, id := range graph.EdgeIDs() {
		e, _ := graph.Edge(id)
		lengths = append(lengths, e.Length)
	}
	mean, err := lengths.Mean()
	if err != nil {
		return err
	}
	longest, err := lengths.Max()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "edge length: mean %.3f m, max %.3f m", mean, longest)
	return nil
}

// diagramPoints lists the vertex points followed by the edge points.
func diagramPoints(diagram *skeleton.Diagram) []pointcloud.Point {
	points := make([]pointcloud.Point, 0, len(diagram.Vertices)+len(diagram.Edges))
	for _, group := range [][]skeleton.DiagramPoint{diagram.Vertices, diagram.Edges} {
		for _, p := range group {
			points = append(points, pointcloud.Point{Position: p.Point, Distance: p.Distance})
		}
	}
	return points
}

func writePCD(path string, diagram *skeleton.Diagram, pcdType pointcloud.PCDType) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating pcd file %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return pointcloud.ToPCD(diagramPoints(diagram), f, pcdType)
}
