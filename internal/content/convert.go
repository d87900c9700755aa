package content

import (
	"bytes"
	"path"

	"git.home.luguber.info/inful/jellsite/internal/frontmatter"
	"git.home.luguber.info/inful/jellsite/internal/markdown"
)

// Document is the converter's view of one source file.
type Document struct {
	Meta           frontmatter.Value
	RawFrontMatter []byte
	Body           []byte // body text with front matter removed
	BodyHTML       []byte
	Excerpt        []byte
}

// Converter turns raw file text into metadata, body HTML and an excerpt.
// Implementations must be pure and safe for concurrent use.
type Converter interface {
	Convert(sourcePath string, raw []byte) (Document, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(sourcePath string, raw []byte) (Document, error)

func (f ConverterFunc) Convert(sourcePath string, raw []byte) (Document, error) {
	return f(sourcePath, raw)
}

// MarkdownConverter splits YAML front matter, renders Markdown bodies with
// goldmark and passes any other body through unchanged.
type MarkdownConverter struct {
	md *markdown.Renderer
}

// NewMarkdownConverter returns a converter backed by r, or by a default renderer when r is nil.
func NewMarkdownConverter(r *markdown.Renderer) *MarkdownConverter {
	if r == nil {
		r = markdown.New()
	}
	return &MarkdownConverter{md: r}
}

func (c *MarkdownConverter) Convert(sourcePath string, raw []byte) (Document, error) {
	fm, body, _, _, err := frontmatter.Split(raw)
	if err != nil {
		return Document{}, &FrontMatterError{Path: sourcePath, Err: err}
	}
	meta, err := frontmatter.Parse(fm)
	if err != nil {
		return Document{}, &FrontMatterError{Path: sourcePath, Err: err}
	}

	doc := Document{Meta: meta, RawFrontMatter: fm, Body: body}
	isMarkdown := markdown.IsMarkdown(path.Ext(sourcePath))
	if isMarkdown {
		doc.BodyHTML, err = c.md.Render(body)
		if err != nil {
			return Document{}, &ConversionError{Path: sourcePath, Err: err}
		}
	} else {
		doc.BodyHTML = bytes.Clone(body)
	}

	doc.Excerpt, err = c.excerpt(meta, doc.BodyHTML, isMarkdown)
	if err != nil {
		return Document{}, &ConversionError{Path: sourcePath, Err: err}
	}
	return doc, nil
}

// excerpt prefers an explicit excerpt field over the first paragraph.
func (c *MarkdownConverter) excerpt(meta frontmatter.Value, bodyHTML []byte, isMarkdown bool) ([]byte, error) {
	if v, ok := meta.Get("excerpt"); ok {
		if s, ok := v.AsString(); ok {
			if !isMarkdown {
				return []byte(s), nil
			}
			return c.md.Render([]byte(s))
		}
	}
	return markdown.Excerpt(bodyHTML)
}
