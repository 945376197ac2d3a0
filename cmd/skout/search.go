package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli"

	"github.com/dshills/skout-mcp/internal/config"
	"github.com/dshills/skout-mcp/internal/searcher"
)

const (
	tagFlag      = "tag"
	yearFromFlag = "year-from"
	yearToFlag   = "year-to"
	limitFlag    = "limit"
	jsonFlag     = "json"
)

func makeSearchCMD() cli.Command {
	searchCMD := cli.Command{
		Name:      "search",
		Usage:     "Searches cached plays",
		ArgsUsage: "<query>",
		Action:    search,
	}
	configureSearch(&searchCMD)
	return searchCMD
}

func configureSearch(c *cli.Command) {
	c.Flags = config.RegisterFlags(c.Flags)
	c.Flags = append(c.Flags,
		cli.StringSliceFlag{
			Name:  tagFlag,
			Usage: "require a tag (repeatable)",
		},
		cli.StringSliceFlag{
			Name:  teamFlag,
			Usage: "restrict to games involving a team name (repeatable)",
		},
		cli.IntFlag{
			Name:  yearFromFlag,
			Usage: "earliest game year",
		},
		cli.IntFlag{
			Name:  yearToFlag,
			Usage: "latest game year",
		},
		cli.IntFlag{
			Name:  limitFlag,
			Usage: "maximum results",
			Value: searcher.DefaultK,
		},
		cli.BoolFlag{
			Name:  jsonFlag,
			Usage: "print results as JSON",
		},
	)
}

func search(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	resp, err := a.Searcher.Search(ctx, searcher.Request{
		Query:    strings.Join(c.Args(), " "),
		Tags:     c.StringSlice(tagFlag),
		Teams:    c.StringSlice(teamFlag),
		YearFrom: c.Int(yearFromFlag),
		YearTo:   c.Int(yearToFlag),
		Limit:    c.Int(limitFlag),
	})
	if err != nil {
		return err
	}
	if c.Bool(jsonFlag) {
		return printJSON(resp.Results)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPLAY\tMATCHUP\tDATE\tPERIOD\tCLOCK\tOFFSET\tDESCRIPTION")
	for _, r := range resp.Results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%d\t%s\n",
			r.Rank, r.PlayID, r.Matchup, r.Date, r.Period, r.Clock, r.Offset, r.Description)
	}
	return w.Flush()
}
