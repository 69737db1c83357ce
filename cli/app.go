// Package cli contains the voxmap command line application.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/voxmap/logging"
)

const (
	flagDebug         = "debug"
	flagESDF          = "esdf"
	flagConfig        = "config"
	flagOutput        = "output"
	flagPCD           = "pcd"
	flagPCDBinary     = "pcd-binary"
	flagPruneEdges    = "prune-edges"
	flagPruneVertices = "prune-vertices"
)

// NewApp returns the voxmap application writing results to out and errors to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	var logger logging.Logger
	return &cli.App{
		Name:            "voxmap",
		Usage:           "inspect voxel layer files and extract free space skeletons",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("voxmap")
			} else {
				logger = logging.NewLogger("voxmap")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "print the header and block count of a layer file",
				ArgsUsage: "<layer file>",
				Action:    InfoAction,
			},
			{
				Name:  "skeleton",
				Usage: "generate the skeleton and sparse graph of an esdf layer",
				UsageText: fmt.Sprintf("voxmap skeleton --%s <file> [--%s <file>] [--%s <file>] [other options]",
					flagESDF, flagOutput, flagPCD),
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagESDF,
						Required: true,
						Usage:    "esdf layer file to read",
					},
					&cli.PathFlag{
						Name:    flagConfig,
						Aliases: []string{"c"},
						Usage:   "load generator configuration from `FILE`",
					},
					&cli.PathFlag{
						Name:  flagOutput,
						Usage: "skeleton layer file to write",
					},
					&cli.PathFlag{
						Name:  flagPCD,
						Usage: "pcd file to write the skeleton points to",
					},
					&cli.BoolFlag{
						Name:  flagPCDBinary,
						Usage: "write the pcd file in binary instead of ascii",
					},
					&cli.BoolFlag{
						Name:  flagPruneEdges,
						Value: true,
						Usage: "remove corner voxels from the skeleton before building the graph",
					},
					&cli.BoolFlag{
						Name:  flagPruneVertices,
						Value: true,
						Usage: "merge graph vertices closer than the configured pruning radius",
					},
				},
				Action: func(c *cli.Context) error {
					return SkeletonAction(c, logger)
				},
			},
		},
	}
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
