package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/jellsite/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command line model.
type CLI struct {
	Source      string           `short:"s" help:"Site source directory" default:"." type:"path"`
	Destination string           `short:"d" help:"Output directory (overrides destination in _config.yml)" type:"path"`
	Drafts      bool             `help:"Render drafts"`
	Future      bool             `help:"Publish posts dated in the future"`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" default:"1" help:"Build the site into the destination directory"`
	Serve  ServeCmd  `cmd:"" help:"Build, watch and serve the site with live reload"`
	Clean  CleanCmd  `cmd:"" help:"Remove the destination directory"`
	Doctor DoctorCmd `cmd:"" help:"Check the source tree for common problems"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// overrides returns the configuration overrides selected on the command line.
// Boolean flags only ever switch features on; leaving one unset keeps the
// file value.
func (c *CLI) overrides() []config.Override {
	var out []config.Override
	if c.Drafts {
		out = append(out, config.WithDrafts(true))
	}
	if c.Future {
		out = append(out, config.WithFuture(true))
	}
	if c.Destination != "" {
		out = append(out, config.WithDestination(c.Destination))
	}
	return out
}

// LoadConfig reads the site configuration with command line overrides applied.
func (c *CLI) LoadConfig() (*config.Config, error) {
	return config.Load(c.Source, c.overrides()...)
}
