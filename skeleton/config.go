package skeleton

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the skeleton generator parameters.
type Config struct {
	// MinSeparationAngle is the smallest angle, in radians, between two neighbor
	// directions for both to count as separate support.
	MinSeparationAngle float64 `yaml:"min_separation_angle"`
	// GenerateByLayerNeighbors selects classification by thinning and skeleton neighbor
	// counts instead of basis point counts.
	GenerateByLayerNeighbors bool `yaml:"generate_by_layer_neighbors"`
	// NumNeighborsForEdge is the most distinct neighbor directions an edge voxel may have
	// when classifying by layer neighbors.
	NumNeighborsForEdge int `yaml:"num_neighbors_for_edge"`
	// VertexPruningRadius is the radius in meters within which only the vertex with the
	// largest distance survives.
	VertexPruningRadius float64 `yaml:"vertex_pruning_radius"`
	// MinGvdDistance is the distance in meters an ESDF voxel must exceed to be considered.
	MinGvdDistance float64 `yaml:"min_gvd_distance"`
	// Workers bounds the parallel classification passes. Zero uses GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the default generator parameters.
func DefaultConfig() Config {
	return Config{
		MinSeparationAngle:  0.7,
		NumNeighborsForEdge: 2,
		VertexPruningRadius: 0.25,
	}
}

// Validate returns an error for parameters the generator cannot run with.
func (cfg Config) Validate() error {
	if !(cfg.MinSeparationAngle > 0 && cfg.MinSeparationAngle <= math.Pi) {
		return errors.Errorf("min_separation_angle must be in (0, pi], got %g", cfg.MinSeparationAngle)
	}
	if cfg.NumNeighborsForEdge < 1 {
		return errors.Errorf("num_neighbors_for_edge must be positive, got %d", cfg.NumNeighborsForEdge)
	}
	if cfg.VertexPruningRadius < 0 || math.IsNaN(cfg.VertexPruningRadius) {
		return errors.Errorf("vertex_pruning_radius must not be negative, got %g", cfg.VertexPruningRadius)
	}
	if cfg.MinGvdDistance < 0 || math.IsNaN(cfg.MinGvdDistance) {
		return errors.Errorf("min_gvd_distance must not be negative, got %g", cfg.MinGvdDistance)
	}
	if cfg.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	return nil
}

// LoadConfig reads a YAML config file. Keys missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	//nolint:gosec
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "reading skeleton config")
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing skeleton config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "invalid skeleton config %q", path)
	}
	return cfg, nil
}
