package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/dshills/skout-mcp/internal/app"
	"github.com/dshills/skout-mcp/internal/config"
)

// openApp resolves the config from flags and opens every component.
func openApp(c *cli.Context) (*app.App, error) {
	cfg, err := config.FromCLI(c)
	if err != nil {
		return nil, err
	}
	cfg.ConfigureLogging()
	return app.Open(cfg)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() < n {
		return cli.NewExitError(fmt.Sprintf("usage: skout %s %s", c.Command.Name, usage), 2)
	}
	return nil
}
