package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/jellsite/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Workers int `short:"j" help:"Render workers (defaults to build.workers or the CPU count)"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return b.run(ctx, root)
}

func (b *BuildCmd) run(ctx context.Context, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	var opts []build.Option
	if b.Workers > 0 {
		opts = append(opts, build.WithWorkers(b.Workers))
	}
	res, err := build.New(cfg, opts...).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", res.Report.Summary(), res.Output)
	return nil
}
