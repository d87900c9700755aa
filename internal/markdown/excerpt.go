package markdown

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExcerptFallbackRunes bounds the plain-text excerpt used when the body has no paragraph.
const ExcerptFallbackRunes = 200

// Excerpt returns the first <p> element of rendered HTML. Bodies without a
// paragraph fall back to their leading text, truncated with "...".
func Excerpt(body []byte) ([]byte, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if p := findFirst(doc, atom.P); p != nil {
		var buf bytes.Buffer
		if err := html.Render(&buf, p); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	text := strings.Join(strings.Fields(textContent(doc)), " ")
	if text == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(text) <= ExcerptFallbackRunes {
		return []byte(html.EscapeString(text)), nil
	}
	runes := []rune(text)
	return []byte(html.EscapeString(string(runes[:ExcerptFallbackRunes])) + "..."), nil
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
