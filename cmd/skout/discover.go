package main

import (
	"github.com/urfave/cli"

	"github.com/dshills/skout-mcp/internal/capabilities"
	"github.com/dshills/skout-mcp/internal/config"
)

const (
	maxSeasonsFlag = "max-seasons"
	noTeamsFlag    = "no-teams"
	noGamesFlag    = "no-games"
)

func makeDiscoverCMD() cli.Command {
	discoverCMD := cli.Command{
		Name:   "discover",
		Usage:  "Reports which seasons, teams and games the API key can read",
		Action: discover,
	}
	configureDiscover(&discoverCMD)
	return discoverCMD
}

func configureDiscover(c *cli.Command) {
	c.Flags = config.RegisterFlags(c.Flags)
	c.Flags = append(c.Flags,
		cli.IntFlag{
			Name:  maxSeasonsFlag,
			Usage: "number of recent seasons to probe",
			Value: capabilities.DefaultMaxSeasons,
		},
		cli.BoolFlag{
			Name:  noTeamsFlag,
			Usage: "skip the teams probe",
		},
		cli.BoolFlag{
			Name:  noGamesFlag,
			Usage: "skip the games probe",
		},
	)
}

func discover(c *cli.Context) error {
	cfg, err := config.FromCLI(c)
	if err != nil {
		return err
	}
	cfg.ConfigureLogging()

	ctx, cancel := signalContext()
	defer cancel()

	report := capabilities.DiscoverWithCredential(ctx, cfg.SynergyConfig(), cfg.League, capabilities.Options{
		MaxSeasons: c.Int(maxSeasonsFlag),
		ProbeTeams: !c.Bool(noTeamsFlag),
		ProbeGames: !c.Bool(noGamesFlag),
	})
	return printJSON(report)
}
