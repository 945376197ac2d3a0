package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/dshills/skout-mcp/internal/config"
	"github.com/dshills/skout-mcp/internal/ingest"
)

const (
	seasonFlag          = "season"
	teamFlag            = "team"
	noEventsFlag        = "no-events"
	noIndexFlag         = "no-index"
	includeUnlinkedFlag = "include-unlinked"
	linkVideosFlag      = "link-play-videos"
)

func makeSyncCMD() cli.Command {
	syncCMD := cli.Command{
		Name:   "sync",
		Usage:  "Crawls a season into the local cache",
		Action: runSync,
	}
	configureSync(&syncCMD)
	return syncCMD
}

func configureSync(c *cli.Command) {
	c.Flags = config.RegisterFlags(c.Flags)
	c.Flags = append(c.Flags,
		cli.StringFlag{
			Name:  seasonFlag,
			Usage: "season id",
		},
		cli.StringSliceFlag{
			Name:  teamFlag,
			Usage: "restrict the schedule crawl to team ids (repeatable)",
		},
		cli.BoolFlag{
			Name:  noEventsFlag,
			Usage: "cache the schedule only",
		},
		cli.BoolFlag{
			Name:  noIndexFlag,
			Usage: "skip embedding plays",
		},
		cli.BoolFlag{
			Name:  includeUnlinkedFlag,
			Usage: "fetch events for games without a linked video",
		},
		cli.BoolFlag{
			Name:  linkVideosFlag,
			Usage: "look up licensed video assets of the ingested plays",
		},
	)
}

func runSync(c *cli.Context) error {
	if c.String(seasonFlag) == "" {
		return cli.NewExitError("--season is required", 2)
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline, err := a.RequirePipeline()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := pipeline.Run(ctx, ingest.Plan{
		League:          a.Config.League,
		SeasonID:        c.String(seasonFlag),
		TeamIDs:         c.StringSlice(teamFlag),
		IngestEvents:    !c.Bool(noEventsFlag),
		IndexPlays:      !c.Bool(noIndexFlag),
		IncludeUnlinked: c.Bool(includeUnlinkedFlag),
		LinkPlayVideos:  c.Bool(linkVideosFlag),
	}, a.Progress)
	if res != nil {
		for _, w := range res.Warnings {
			log.Warn(w)
		}
		fmt.Printf("run %s: %d games, %d plays, %d indexed, %d videos, %d skipped in %s\n",
			res.RunID, res.InsertedGames, res.InsertedPlays, res.IndexedPlays, res.LinkedVideos, res.SkippedGames,
			res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	}
	return err
}
