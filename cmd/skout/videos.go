package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/dshills/skout-mcp/internal/config"
)

func makeVideosCMD() cli.Command {
	videosCMD := cli.Command{
		Name:      "videos",
		Usage:     "Stores the licensed video assets of a cached game's plays",
		ArgsUsage: "<game-id>",
		Action:    runVideos,
	}
	configureVideos(&videosCMD)
	return videosCMD
}

func configureVideos(c *cli.Command) {
	c.Flags = config.RegisterFlags(c.Flags)
	c.Flags = append(c.Flags,
		cli.IntFlag{
			Name:  limitFlag,
			Usage: "check at most this many plays (0 checks all)",
		},
	)
}

func runVideos(c *cli.Context) error {
	if err := requireArgs(c, 1, "<game-id>"); err != nil {
		return err
	}
	if c.Int(limitFlag) < 0 {
		return cli.NewExitError("--limit must be >= 0", 2)
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	linker, err := a.RequireVideos()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := linker.LinkGame(ctx, a.Config.League, c.Args().First(), c.Int(limitFlag))
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		log.Warn(w)
	}

	videos, err := a.Store.ListPlayVideos(ctx, res.GameID)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{
		"result": res,
		"videos": videos,
	})
}
