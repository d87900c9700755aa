package markdown

import (
	"bytes"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// HighlightStyle is the chroma style whose class names fenced code uses.
const HighlightStyle = "github"

// Renderer converts Markdown bodies (front matter already removed) to HTML.
// A Renderer is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// Option configures a Renderer.
type Option func(*options)

type options struct {
	hardWraps bool
	unsafe    bool
	highlight bool
}

// WithHardWraps renders single newlines as <br>.
func WithHardWraps() Option { return func(o *options) { o.hardWraps = true } }

// WithoutRawHTML drops raw HTML blocks from the output.
func WithoutRawHTML() Option { return func(o *options) { o.unsafe = false } }

// WithoutHighlighting leaves fenced code as plain <pre><code>.
func WithoutHighlighting() Option { return func(o *options) { o.highlight = false } }

// New returns a GitHub-flavoured renderer with footnotes, typographic
// punctuation, generated heading IDs and class-based syntax highlighting
// for fenced code. Raw HTML passes through by default.
func New(opts ...Option) *Renderer {
	o := options{unsafe: true, highlight: true}
	for _, opt := range opts {
		opt(&o)
	}

	var htmlOpts []renderer.Option
	if o.unsafe {
		htmlOpts = append(htmlOpts, html.WithUnsafe())
	}
	if o.hardWraps {
		htmlOpts = append(htmlOpts, html.WithHardWraps())
	}
	exts := []goldmark.Extender{extension.GFM, extension.Footnote, extension.Typographer}
	if o.highlight {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(HighlightStyle),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		))
	}
	return &Renderer{md: goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(htmlOpts...),
	)}
}

// Render converts one Markdown body.
func (r *Renderer) Render(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsMarkdown reports whether a file extension denotes Markdown content.
func IsMarkdown(ext string) bool {
	switch ext {
	case ".md", ".markdown", ".mkd", ".mkdn":
		return true
	default:
		return false
	}
}
