package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"

	"github.com/dshills/skout-mcp/internal/config"
)

func makeTagsCMD() cli.Command {
	tagsCMD := cli.Command{
		Name:   "tags",
		Usage:  "Lists the distinct play tags in the cache",
		Action: tags,
	}
	tagsCMD.Flags = config.RegisterFlags(tagsCMD.Flags)
	return tagsCMD
}

func tags(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.Store.UniqueTags(context.Background())
	if err != nil {
		return err
	}
	for _, t := range list {
		fmt.Println(t)
	}
	return nil
}

func makeLinkCMD() cli.Command {
	linkCMD := cli.Command{
		Name:      "link",
		Usage:     "Links a cached game to a local recording; an empty path unlinks it",
		ArgsUsage: "<game-id> <video-path>",
		Action:    link,
	}
	linkCMD.Flags = config.RegisterFlags(linkCMD.Flags)
	return linkCMD
}

func link(c *cli.Context) error {
	if err := requireArgs(c, 1, "<game-id> <video-path>"); err != nil {
		return err
	}
	gameID, path := c.Args().Get(0), c.Args().Get(1)
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		path = abs
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.SetVideoPath(context.Background(), gameID, path); err != nil {
		return fmt.Errorf("failed to link %s: %w", gameID, err)
	}
	if path == "" {
		fmt.Printf("%s unlinked\n", gameID)
	} else {
		fmt.Printf("%s -> %s\n", gameID, path)
	}
	return nil
}

func makeStatusCMD() cli.Command {
	statusCMD := cli.Command{
		Name:   "status",
		Usage:  "Shows cache statistics and the last run",
		Action: status,
	}
	statusCMD.Flags = config.RegisterFlags(statusCMD.Flags)
	return statusCMD
}

func status(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	st, err := a.Store.GetStatus(ctx)
	if err != nil {
		return err
	}
	vectors, err := a.Index.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("league:    %s\n", a.Config.League)
	fmt.Printf("seasons:   %d\n", st.Seasons)
	fmt.Printf("games:     %s (%s linked)\n", humanize.Comma(int64(st.Games)), humanize.Comma(int64(st.LinkedGames)))
	fmt.Printf("plays:     %s\n", humanize.Comma(int64(st.Plays)))
	fmt.Printf("videos:    %s\n", humanize.Comma(int64(st.PlayVideos)))
	fmt.Printf("vectors:   %s\n", humanize.Comma(int64(vectors)))
	fmt.Printf("cache:     %s (schema %s, %s)\n", humanize.Bytes(uint64(st.SizeBytes)), st.SchemaVersion, st.BuildMode)
	fmt.Printf("embedder:  %s/%s\n", a.Embedder.Provider(), a.Embedder.Model())
	if run := st.LastRun; run != nil {
		fmt.Printf("last run:  %s season %s, %d games, %d plays, %s\n",
			run.RunID, run.SeasonID, run.InsertedGames, run.InsertedPlays, humanize.Time(run.FinishedAt))
	} else {
		fmt.Println("last run:  never")
	}
	return nil
}
