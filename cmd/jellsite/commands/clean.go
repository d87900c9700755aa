package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct{}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	dest := filepath.Clean(cfg.Destination)
	if dest == filepath.Clean(cfg.Source) || dest == filepath.Dir(dest) {
		return ferrors.ValidationError("refusing to remove destination").
			WithContext("destination", dest).
			Build()
	}

	// Leftovers of interrupted builds live next to the destination.
	leftovers, _ := filepath.Glob(dest + ".staging-*")
	for _, p := range append([]string{dest}, leftovers...) {
		if err := os.RemoveAll(p); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryWrite, "remove output").
				WithContext("path", p).
				Build()
		}
		slog.Debug("Removed", logfields.Path(p))
	}
	fmt.Printf("Removed %s\n", dest)
	return nil
}
