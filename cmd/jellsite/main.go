package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/jellsite/cmd/jellsite/commands"
	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
	"git.home.luguber.info/inful/jellsite/internal/version"
)

func main() {
	cli := &commands.CLI{}
	kctx := kong.Parse(cli,
		kong.Name("jellsite"),
		kong.Description("Static site generator with a live-reloading development server."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
		kong.Bind(cli),
	)
	if err := kctx.Run(&commands.Global{Logger: slog.Default()}); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
