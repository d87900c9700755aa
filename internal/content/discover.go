package content

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/jellsite/internal/config"
	"git.home.luguber.info/inful/jellsite/internal/frontmatter"
	"git.home.luguber.info/inful/jellsite/internal/logfields"
	"git.home.luguber.info/inful/jellsite/internal/markdown"
)

// Special top-level directories of a source tree.
const (
	DirPosts    = "_posts"
	DirDrafts   = "_drafts"
	DirLayouts  = "_layouts"
	DirIncludes = "_includes"
	DirData     = "_data"
)

var postName = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})-(.+)\.(md|markdown|html)$`)

// Source is a renderable file found during discovery, not yet converted.
type Source struct {
	Path       string
	Kind       Kind
	Collection string
	Draft      bool // read from _drafts/
	Raw        []byte
	ModTime    time.Time

	FileDate    time.Time // date embedded in a post filename
	HasFileDate bool
	Slug        string
}

// Inventory is everything discovery found under the source root.
type Inventory struct {
	Sources  []Source
	Layouts  []Layout
	Includes map[string]Include
	Data     frontmatter.Value
	Static   []StaticFile
}

func (inv *Inventory) hasLayout(name string) bool {
	for _, l := range inv.Layouts {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Discoverer walks a source tree through an afero filesystem.
type Discoverer struct {
	fs  afero.Fs
	cfg *config.Config
}

// NewDiscoverer returns a Discoverer reading cfg.Source from fsys.
func NewDiscoverer(fsys afero.Fs, cfg *config.Config) *Discoverer {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Discoverer{fs: fsys, cfg: cfg}
}

// Discover classifies every file below the source root. The walk is lexical,
// so repeated runs over an unchanged tree produce identical inventories.
func (d *Discoverer) Discover(ctx context.Context) (*Inventory, error) {
	root := d.cfg.Source
	inv := &Inventory{Includes: map[string]Include{}, Data: frontmatter.EmptyMap()}
	destRel := d.relativeDestination()

	err := afero.Walk(d.fs, root, func(p string, info os.FileInfo, walkErr error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return &DiscoveryError{Path: p, Reason: "outside source root", Err: relErr}
		}
		rel = filepath.ToSlash(rel)
		if walkErr != nil {
			return &DiscoveryError{Path: rel, Reason: "unreadable", Err: walkErr}
		}
		if rel == "." {
			return nil
		}
		if info.IsDir() {
			if d.skipDir(rel, destRel) {
				return filepath.SkipDir
			}
			return nil
		}
		return d.visitFile(inv, rel, p, info)
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("Discovered source tree",
		logfields.Path(root),
		slog.Int("sources", len(inv.Sources)),
		slog.Int("layouts", len(inv.Layouts)),
		slog.Int("includes", len(inv.Includes)),
		slog.Int("static", len(inv.Static)))
	return inv, nil
}

func (d *Discoverer) relativeDestination() string {
	if d.cfg.Destination == "" {
		return ""
	}
	rel, err := filepath.Rel(d.cfg.Source, d.cfg.Destination)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

// area returns the special directory a path lives in, or "" for the general tree.
func (d *Discoverer) area(rel string) (area string, collection string) {
	top, _, _ := strings.Cut(rel, "/")
	switch top {
	case DirPosts, DirDrafts, DirLayouts, DirIncludes, DirData:
		return top, ""
	}
	if name, ok := strings.CutPrefix(top, "_"); ok {
		if _, configured := d.cfg.Collections[name]; configured && name != PostsCollection {
			return top, name
		}
	}
	return "", ""
}

func (d *Discoverer) skipDir(rel, destRel string) bool {
	if destRel != "" && rel == destRel {
		return true
	}
	base := path.Base(rel)
	if area, _ := d.area(rel); area != "" {
		return strings.HasPrefix(base, ".")
	}
	if matchAny(rel, d.cfg.Include) {
		return false
	}
	return strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".") || matchAny(rel, d.cfg.Exclude)
}

func (d *Discoverer) skipFile(rel string) bool {
	base := path.Base(rel)
	if strings.HasPrefix(base, ".") && !matchAny(rel, d.cfg.Include) {
		return true
	}
	if area, _ := d.area(rel); area != "" {
		return false
	}
	if matchAny(rel, d.cfg.Include) {
		return false
	}
	return strings.HasPrefix(base, "_") || strings.HasSuffix(base, "~") || matchAny(rel, d.cfg.Exclude)
}

func (d *Discoverer) visitFile(inv *Inventory, rel, abs string, info os.FileInfo) error {
	if d.skipFile(rel) {
		return nil
	}
	area, collection := d.area(rel)
	ext := strings.ToLower(path.Ext(rel))

	switch area {
	case DirPosts:
		raw, err := d.read(rel, abs)
		if err != nil {
			return err
		}
		return d.addPost(inv, rel, raw, info)
	case DirDrafts:
		if !isContentExt(ext) {
			slog.Debug("Ignoring non-content file in drafts", logfields.Path(rel))
			return nil
		}
		raw, err := d.read(rel, abs)
		if err != nil {
			return err
		}
		inv.Sources = append(inv.Sources, Source{
			Path: rel, Kind: KindPost, Collection: PostsCollection, Draft: true,
			Raw: raw, ModTime: info.ModTime(), Slug: stem(rel),
		})
		return nil
	case DirLayouts:
		raw, err := d.read(rel, abs)
		if err != nil {
			return err
		}
		return addLayout(inv, rel, raw)
	case DirIncludes:
		raw, err := d.read(rel, abs)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(rel, DirIncludes+"/")
		inv.Includes[name] = Include{Name: name, SourcePath: rel, Source: string(raw)}
		return nil
	case DirData:
		return d.addData(inv, rel, abs, ext)
	}

	if isContentExt(ext) {
		raw, err := d.read(rel, abs)
		if err != nil {
			return err
		}
		if markdown.IsMarkdown(ext) || hasFrontMatter(raw) {
			src := Source{Path: rel, Kind: KindPage, Raw: raw, ModTime: info.ModTime(), Slug: stem(rel)}
			if collection != "" {
				src.Kind = KindDocument
				src.Collection = collection
			}
			inv.Sources = append(inv.Sources, src)
			return nil
		}
	}

	out := rel
	if collection != "" {
		if !d.cfg.Collections[collection].Output {
			return nil
		}
		out = strings.TrimPrefix(rel, "_")
	}
	inv.Static = append(inv.Static, StaticFile{SourcePath: rel, OutputPath: out, ModTime: info.ModTime(), Size: info.Size()})
	return nil
}

func (d *Discoverer) read(rel, abs string) ([]byte, error) {
	raw, err := afero.ReadFile(d.fs, abs)
	if err != nil {
		return nil, &DiscoveryError{Path: rel, Reason: "unreadable", Err: err}
	}
	return raw, nil
}

func (d *Discoverer) addPost(inv *Inventory, rel string, raw []byte, info os.FileInfo) error {
	m := postName.FindStringSubmatch(path.Base(rel))
	if m == nil {
		return &DiscoveryError{Path: rel, Reason: "post filename must match YYYY-MM-DD-slug.(md|markdown|html)"}
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return &DiscoveryError{Path: rel, Reason: fmt.Sprintf("invalid date %s-%s-%s in post filename", m[1], m[2], m[3])}
	}
	inv.Sources = append(inv.Sources, Source{
		Path: rel, Kind: KindPost, Collection: PostsCollection,
		Raw: raw, ModTime: info.ModTime(),
		FileDate: date, HasFileDate: true, Slug: m[4],
	})
	return nil
}

func addLayout(inv *Inventory, rel string, raw []byte) error {
	fm, body, _, _, err := frontmatter.Split(raw)
	if err != nil {
		return &FrontMatterError{Path: rel, Err: err}
	}
	meta, err := frontmatter.Parse(fm)
	if err != nil {
		return &FrontMatterError{Path: rel, Err: err}
	}
	name := strings.TrimPrefix(rel, DirLayouts+"/")
	name = strings.TrimSuffix(name, path.Ext(name))
	parent := meta.StringOr("layout", "")
	inv.Layouts = append(inv.Layouts, Layout{
		Name: name, SourcePath: rel, Source: string(body), FrontMatter: meta, Parent: parent,
	})
	return nil
}

func (d *Discoverer) addData(inv *Inventory, rel, abs, ext string) error {
	switch ext {
	case ".yml", ".yaml", ".json":
	default:
		return nil
	}
	raw, err := d.read(rel, abs)
	if err != nil {
		return err
	}
	v, err := frontmatter.Decode(raw)
	if err != nil {
		return &DiscoveryError{Path: rel, Reason: "malformed data file", Err: err}
	}
	key := strings.TrimPrefix(rel, DirData+"/")
	key = strings.TrimSuffix(key, path.Ext(key))
	inv.Data = setPath(inv.Data, strings.Split(key, "/"), v)
	return nil
}

// setPath nests v under the given keys, creating mappings on the way.
func setPath(root frontmatter.Value, keys []string, v frontmatter.Value) frontmatter.Value {
	if len(keys) == 1 {
		return root.With(keys[0], v)
	}
	child, ok := root.Get(keys[0])
	if !ok || !child.IsMapping() {
		child = frontmatter.EmptyMap()
	}
	return root.With(keys[0], setPath(child, keys[1:], v))
}

func isContentExt(ext string) bool {
	return markdown.IsMarkdown(ext) || ext == ".html" || ext == ".htm"
}

func hasFrontMatter(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte("---\n")) || bytes.HasPrefix(raw, []byte("---\r\n"))
}

// stem is the file name without directory and extension.
func stem(rel string) string {
	base := path.Base(rel)
	return strings.TrimSuffix(base, path.Ext(base))
}

// matchAny reports whether rel equals, lives under, or glob-matches a
// pattern. Globs use the same doublestar syntax as the watcher's ignores.
func matchAny(rel string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, path.Base(rel)); ok {
			return true
		}
	}
	return false
}
