package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// stdout is reserved for MCP and command output
	log.SetOutput(os.Stderr)

	app := cli.NewApp()
	app.Name = "skout"
	app.Usage = "caches play-by-play data and searches it"
	app.Version = version
	app.Commands = []cli.Command{
		makeServeCMD(),
		makeDiscoverCMD(),
		makeSyncCMD(),
		makeSearchCMD(),
		makeTagsCMD(),
		makeLinkCMD(),
		makeVideosCMD(),
		makeClipCMD(),
		makeStatusCMD(),
		makeVersionCMD(),
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("failed to run app")
	}
}
