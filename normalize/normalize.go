package normalize

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	blankLines = regexp.MustCompile(`\n\s*\n`)
	spaceRuns  = regexp.MustCompile(`[ \t]+`)

	scriptBlock = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	styleBlock  = regexp.MustCompile(`(?is)<style\b.*?</style\s*>`)
	anyTag      = regexp.MustCompile(`(?s)<[^>]*>`)
)

var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

func logger() *slog.Logger {
	return slog.Default().With("component", "normalizer")
}

// Normalize repairs, cleans and canonicalizes one HTML fragment.
func Normalize(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	out, err := normalizeTree(markup)
	if err != nil {
		logger().Debug("falling back to tag strip", "err", err)
		return Fallback(markup)
	}
	return out
}

func normalizeTree(markup string) (string, error) {
	nodes, err := parse(markup)
	if err != nil {
		return "", err
	}

	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	cleanChildren(root)

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return textPass(buf.String()), nil
}

// parse repairs markup and parses it as a body fragment.
func parse(markup string) ([]*html.Node, error) {
	repaired, err := repair(markup)
	if err != nil {
		return nil, err
	}
	return html.ParseFragment(strings.NewReader(repaired), bodyContext)
}

// cleanChildren cleans every child of n, children before parents.
func cleanChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		clean(c)
		c = next
	}
}

func clean(n *html.Node) {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		n.Parent.RemoveChild(n)
		return
	case html.TextNode:
		n.Data = asciiOnly(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Sup:
		n.Parent.RemoveChild(n)
		return
	case atom.Br:
		n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: "\n"}, n)
		n.Parent.RemoveChild(n)
		return
	}

	cleanChildren(n)
	n.Attr = nil

	switch n.DataAtom {
	case atom.A:
		n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: textOf(n)}, n)
		n.Parent.RemoveChild(n)
		return
	case atom.Section, atom.Article, atom.Aside, atom.Div, atom.Span:
		if !isEmpty(n) {
			unwrap(n)
			return
		}
	}

	if isEmpty(n) {
		n.Parent.RemoveChild(n)
	}
}

// isEmpty reports whether no text node in n's subtree holds non-whitespace.
func isEmpty(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			return false
		}
		if c.Type == html.ElementNode && !isEmpty(c) {
			return false
		}
	}
	return true
}

func unwrap(n *html.Node) {
	parent := n.Parent
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
		c = next
	}
	parent.RemoveChild(n)
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// asciiOnly drops non-ASCII characters. No-break spaces become ordinary
// spaces first so words they separate stay apart.
func asciiOnly(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\u00a0':
			return ' '
		case r > 127:
			return -1
		}
		return r
	}, s)
}

// textPass drops non-ASCII characters and collapses whitespace.
func textPass(s string) string {
	s = asciiOnly(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankLines.ReplaceAllString(s, "\n")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Fallback strips script and style blocks and every tag, decodes entities and
// applies the text pass. It is the best-effort result when parsing fails.
func Fallback(markup string) string {
	s := scriptBlock.ReplaceAllString(markup, "")
	s = styleBlock.ReplaceAllString(s, "")
	s = anyTag.ReplaceAllString(s, "")
	return textPass(html.UnescapeString(s))
}
