package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/dshills/skout-mcp/internal/clips"
	"github.com/dshills/skout-mcp/internal/config"
	"github.com/dshills/skout-mcp/internal/searcher"
)

const (
	beforeFlag = "before"
	afterFlag  = "after"
)

func makeClipCMD() cli.Command {
	clipCMD := cli.Command{
		Name:      "clip",
		Usage:     "Cuts the clip around a play out of its game's linked video",
		ArgsUsage: "<play-id>",
		Action:    clip,
	}
	configureClip(&clipCMD)
	return clipCMD
}

func configureClip(c *cli.Command) {
	c.Flags = config.RegisterFlags(c.Flags)
	c.Flags = append(c.Flags,
		cli.Float64Flag{
			Name:  beforeFlag,
			Usage: "seconds before the play",
			Value: 5,
		},
		cli.Float64Flag{
			Name:  afterFlag,
			Usage: "seconds after the play",
			Value: 10,
		},
	)
}

func clip(c *cli.Context) error {
	if err := requireArgs(c, 1, "<play-id>"); err != nil {
		return err
	}
	playID := c.Args().First()

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	play, err := a.Store.GetPlay(ctx, playID)
	if err != nil {
		return fmt.Errorf("failed to load play %s: %w", playID, err)
	}
	game, err := a.Store.GetGame(ctx, play.GameID)
	if err != nil {
		return fmt.Errorf("failed to load game %s: %w", play.GameID, err)
	}
	if game.VideoPath == nil {
		return fmt.Errorf("game %s has no linked video", game.GameID)
	}

	slicer, err := a.Slicer()
	if err != nil {
		return err
	}
	offset := searcher.VideoOffset(play.Period, play.ClockSeconds, a.Config.PeriodLength)
	start, end := clips.WindowAround(float64(offset), c.Float64(beforeFlag), c.Float64(afterFlag))
	out, err := slicer.Slice(ctx, clips.Clip{
		Source: *game.VideoPath,
		Start:  start,
		End:    end,
		Name:   playID + ".mp4",
	})
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
