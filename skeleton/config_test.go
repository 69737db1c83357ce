package skeleton

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.MinSeparationAngle, test.ShouldEqual, 0.7)
	test.That(t, cfg.GenerateByLayerNeighbors, test.ShouldBeFalse)
	test.That(t, cfg.NumNeighborsForEdge, test.ShouldEqual, 2)
	test.That(t, cfg.VertexPruningRadius, test.ShouldEqual, 0.25)
	test.That(t, cfg.MinGvdDistance, test.ShouldEqual, 0.0)
	test.That(t, cfg.Workers, test.ShouldEqual, 0)
	test.That(t, cfg.Validate(), test.ShouldBeNil)
}

func TestConfigValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"zero angle":          func(c *Config) { c.MinSeparationAngle = 0 },
		"angle above pi":      func(c *Config) { c.MinSeparationAngle = 4 },
		"zero edge neighbors": func(c *Config) { c.NumNeighborsForEdge = 0 },
		"negative radius":     func(c *Config) { c.VertexPruningRadius = -1 },
		"nan gvd distance":    func(c *Config) { c.MinGvdDistance = math.NaN() },
		"negative workers":    func(c *Config) { c.Workers = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			test.That(t, cfg.Validate(), test.ShouldNotBeNil)
		})
	}

	cfg := DefaultConfig()
	cfg.MinSeparationAngle = math.Pi
	cfg.VertexPruningRadius = 0
	test.That(t, cfg.Validate(), test.ShouldBeNil)
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skeleton.yaml")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "generate_by_layer_neighbors: true\nvertex_pruning_radius: 0.5\nworkers: 3\n"))
	test.That(t, err, test.ShouldBeNil)
	want := DefaultConfig()
	want.GenerateByLayerNeighbors = true
	want.VertexPruningRadius = 0.5
	want.Workers = 3
	test.That(t, cfg, test.ShouldResemble, want)

	_, err = LoadConfig(writeConfig(t, "num_neighbors_for_edge: 0\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "num_neighbors_for_edge")

	_, err = LoadConfig(writeConfig(t, "min_separation_angle: [1, 2]\n"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
}
