// Package main is the voxmap command.
package main

import (
	"log"
	"os"

	"go.viam.com/voxmap/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
