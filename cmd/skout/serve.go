package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/dshills/skout-mcp/internal/config"
	"github.com/dshills/skout-mcp/internal/mcp"
	"github.com/dshills/skout-mcp/internal/storage"
)

func makeServeCMD() cli.Command {
	serveCMD := cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Serves MCP tools over stdio",
		Action:  serve,
	}
	configureServe(&serveCMD)
	return serveCMD
}

func configureServe(c *cli.Command) {
	c.Flags = config.RegisterFlags(c.Flags)
}

func serve(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Warn("failed to close components")
		}
	}()

	s, err := mcp.NewServer(a)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.WithFields(log.Fields{
		"version":    version,
		"build_mode": storage.BuildMode,
		"driver":     storage.DriverName,
		"league":     a.Config.League,
	}).Info("mcp server ready, listening on stdio")

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info("received signal, shutting down")
		return nil
	case err := <-errChan:
		return err
	}
}
