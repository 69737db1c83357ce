package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/voxmap/layer"
	"go.viam.com/voxmap/layerio"
	"go.viam.com/voxmap/logging"
	"go.viam.com/voxmap/voxel"
)

// writeChainESDF saves an esdf layer whose free space ridge is a straight line of ten voxels.
func writeChainESDF(t *testing.T, dir string) string {
	t.Helper()
	esdf, err := layer.New[voxel.Esdf](0.1, 16)
	test.That(t, err, test.ShouldBeNil)
	blk := esdf.AllocateBlock(layer.BlockIndex{})
	for linear := 0; linear < blk.NumVoxels(); linear++ {
		*blk.VoxelByLinearIndex(linear) = voxel.Esdf{Observed: true}
	}
	blk.SetHasData(true)
	for x := 2; x <= 11; x++ {
		v, _ := esdf.VoxelByGlobalIndex(layer.GlobalIndex{X: x, Y: 8, Z: 8})
		v.Distance = 1
	}
	path := filepath.Join(dir, "esdf.layer")
	test.That(t, layerio.SaveLayer(esdf, path, logging.NewTestLogger(t)), test.ShouldBeNil)
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"voxmap"}, args...))
	return out.String(), err
}

func TestSkeletonCommand(t *testing.T) {
	dir := t.TempDir()
	esdfPath := writeChainESDF(t, dir)
	outPath := filepath.Join(dir, "skeleton.layer")
	pcdPath := filepath.Join(dir, "skeleton.pcd")

	out, err := runApp(t, "skeleton", "--esdf", esdfPath, "--output", outPath, "--pcd", pcdPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "skeleton: 2 vertex voxels, 8 edge voxels")
	test.That(t, out, test.ShouldContainSubstring, "graph: 2 vertices, 1 edges")
	test.That(t, out, test.ShouldContainSubstring, "edge length: mean 0.900 m, max 0.900 m")

	info, err := layerio.Stat(outPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Header.Kind, test.ShouldEqual, voxel.SkeletonKind)
	test.That(t, info.NumBlocks, test.ShouldEqual, 1)

	pcd, err := os.ReadFile(pcdPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(pcd), test.ShouldContainSubstring, "POINTS 10\n")
	test.That(t, strings.Count(string(pcd), "\n"), test.ShouldEqual, 20)
}

func TestSkeletonCommandConfig(t *testing.T) {
	dir := t.TempDir()
	esdfPath := writeChainESDF(t, dir)
	cfgPath := filepath.Join(dir, "skeleton.yaml")
	test.That(t, os.WriteFile(cfgPath, []byte("min_gvd_distance: 1\n"), 0o600), test.ShouldBeNil)

	out, err := runApp(t, "skeleton", "--esdf", esdfPath, "--config", cfgPath, "--prune-vertices=false")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "graph: 0 vertices, 0 edges")

	test.That(t, os.WriteFile(cfgPath, []byte("workers: -2\n"), 0o600), test.ShouldBeNil)
	_, err = runApp(t, "skeleton", "--esdf", esdfPath, "--config", cfgPath)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSkeletonCommandMissingInput(t *testing.T) {
	_, err := runApp(t, "skeleton", "--esdf", filepath.Join(t.TempDir(), "missing.layer"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = runApp(t, "skeleton")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestInfoCommand(t *testing.T) {
	esdfPath := writeChainESDF(t, t.TempDir())
	out, err := runApp(t, "info", esdfPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, `kind: "esdf"`)
	test.That(t, out, test.ShouldContainSubstring, "1 blocks")

	_, err = runApp(t, "info")
	test.That(t, err, test.ShouldNotBeNil)
}
