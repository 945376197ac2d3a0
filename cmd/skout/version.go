package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/dshills/skout-mcp/internal/storage"
)

func makeVersionCMD() cli.Command {
	return cli.Command{
		Name:  "version",
		Usage: "Prints build information",
		Action: func(c *cli.Context) error {
			fmt.Printf("skout %s\n", version)
			fmt.Printf("Build Time: %s\n", buildTime)
			fmt.Printf("Build Mode: %s\n", storage.BuildMode)
			fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
			fmt.Printf("Vector Extension: %v\n", storage.VectorExtensionAvailable)
			return nil
		},
	}
}
