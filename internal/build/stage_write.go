package build

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/jellsite/internal/content"
)

// stageWrite fills a fresh staging directory and publishes it.
func (o *Orchestrator) stageWrite(ctx context.Context, bs *buildState) error {
	stage, err := beginStaging(o.cfg.Destination, bs.id[:8])
	if err != nil {
		return err
	}
	bs.stage = stage

	for i, u := range bs.targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeFile(stage, u.OutputPath, bs.output[i]); err != nil {
			return err
		}
		bs.report.Written++
	}
	for _, sf := range bs.site.Static {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.copyStatic(stage, sf); err != nil {
			return err
		}
		bs.report.Written++
	}

	if err := publish(stage, o.cfg.Destination); err != nil {
		return err
	}
	bs.stage = ""
	return nil
}

var errOutsideDestination = errors.New("path escapes the destination")

// within joins rel onto root and refuses results outside root.
func within(root, rel string) (string, error) {
	dst := filepath.Join(root, filepath.FromSlash(rel))
	r, err := filepath.Rel(root, dst)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", &WriteError{Op: "write", Path: rel, Err: errOutsideDestination}
	}
	return dst, nil
}

func writeFile(root, rel string, data []byte) error {
	dst, err := within(root, rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &WriteError{Op: "mkdir", Path: rel, Err: err}
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return &WriteError{Op: "write", Path: rel, Err: err}
	}
	return nil
}

func (o *Orchestrator) copyStatic(root string, sf content.StaticFile) error {
	src, err := o.fs.Open(filepath.Join(o.cfg.Source, filepath.FromSlash(sf.SourcePath)))
	if err != nil {
		return &WriteError{Op: "copy", Path: sf.SourcePath, Err: err}
	}
	defer func() { _ = src.Close() }()

	dst, err := within(root, sf.OutputPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &WriteError{Op: "mkdir", Path: sf.OutputPath, Err: err}
	}
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &WriteError{Op: "copy", Path: sf.OutputPath, Err: err}
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return &WriteError{Op: "copy", Path: sf.OutputPath, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Op: "copy", Path: sf.OutputPath, Err: err}
	}
	return nil
}
