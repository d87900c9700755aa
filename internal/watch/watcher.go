// Package watch turns filesystem notifications under a site's source root
// into debounced batches of changes.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
)

// DefaultDebounce is the quiet window used when Config.Debounce is unset.
const DefaultDebounce = 200 * time.Millisecond

var defaultIgnores = []string{
	"**/.*",
	"**/.*/**",
	"**/node_modules/**",
	"**/*~",
	"**/*.swp",
	"**/*.swx",
	"**/#*#",
	"**/4913", // vim writability check file
}

// Config configures a Watcher.
type Config struct {
	Root     string
	Ignore   []string // doublestar patterns relative to Root, merged with the defaults
	Debounce time.Duration
	OnChange func(ctx context.Context, changes []Change)
}

// Watcher reports changes below Root. Run must be called once.
type Watcher struct {
	root     string
	ignores  []string
	debounce time.Duration
	onChange func(ctx context.Context, changes []Change)
	fsw      *fsnotify.Watcher
	started  atomic.Bool
}

// New registers every non-ignored directory below cfg.Root. Failure to set up
// the watch is returned, never deferred to Run.
func New(cfg Config) (*Watcher, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryWatch, "resolve watch root").Build()
	}
	for _, p := range cfg.Ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, ferrors.ValidationError("invalid ignore pattern").WithContext("pattern", p).Build()
		}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryWatch, "create filesystem watcher").Build()
	}
	w := &Watcher{
		root:     root,
		ignores:  append(append([]string(nil), defaultIgnores...), cfg.Ignore...),
		debounce: cfg.Debounce,
		onChange: cfg.OnChange,
		fsw:      fsw,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers debounced batches to OnChange until ctx is done. Pending
// changes are dropped on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ferrors.InternalError("watcher already running").Build()
	}
	deb := NewDebouncer(w.debounce, func(changes []Change) {
		if ctx.Err() != nil || w.onChange == nil {
			return
		}
		w.onChange(ctx, changes)
	})
	defer func() {
		deb.Stop()
		if err := w.fsw.Close(); err != nil {
			slog.Warn("Failed to close filesystem watcher", logfields.Error(err))
		}
	}()

	slog.Info("Watching source tree", logfields.Path(w.root), slog.Duration("debounce", w.debounce))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return ferrors.WatchError("event channel closed").Build()
			}
			if c, ok := w.change(ev); ok {
				slog.Debug("File change detected", logfields.Path(c.Path), logfields.Op(ev.Op.String()))
				deb.Add(c)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ferrors.WatchError("error channel closed").Build()
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				slog.Warn("Filesystem events lost, scheduling full rebuild", logfields.Error(err))
				deb.Add(Change{Path: ".", Op: OpOverflow, Kind: KindConfig})
				continue
			}
			if isFatal(err) {
				return ferrors.WrapError(err, ferrors.CategoryWatch, "filesystem watcher failed").Fatal().Build()
			}
			slog.Warn("Filesystem watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) change(ev fsnotify.Event) (Change, bool) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Change{}, false
	}
	rel = filepath.ToSlash(rel)
	if w.Ignored(rel) {
		return Change{}, false
	}
	if ev.Has(fsnotify.Create) {
		if fi, statErr := os.Stat(ev.Name); statErr == nil && fi.IsDir() {
			if addErr := w.addTree(ev.Name); addErr != nil {
				slog.Warn("Failed to watch new directory", logfields.Path(rel), logfields.Error(addErr))
			}
		}
	}
	return Change{Path: rel, Op: opOf(ev.Op), Kind: Classify(rel)}, true
}

func opOf(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		return OpWrite
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			slog.Debug("Skipping unreadable path", logfields.Path(p), logfields.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && (w.Ignored(rel) || w.Ignored(rel+"/x")) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(p); addErr != nil {
			return ferrors.WrapError(addErr, ferrors.CategoryWatch, "watch directory").WithContext("path", p).Build()
		}
		return nil
	})
}

// Ignored reports whether a root-relative, slash-separated path is excluded.
func (w *Watcher) Ignored(rel string) bool {
	for _, pat := range w.ignores {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}
