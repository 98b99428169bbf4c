package normalize

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlainText extracts the readable text of a fragment with one line per block
// element and cells of a row joined by a space.
func PlainText(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	nodes, err := parse(markup)
	if err != nil {
		return Fallback(markup)
	}

	var b strings.Builder
	for _, n := range nodes {
		writeText(&b, n)
	}
	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(asciiOnly(line)), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Sup:
		return
	case atom.Br:
		b.WriteByte('\n')
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}

	switch n.DataAtom {
	case atom.Td, atom.Th:
		b.WriteByte(' ')
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Tr, atom.Table, atom.Ul, atom.Ol, atom.Div, atom.Section,
		atom.Article, atom.Aside, atom.Caption, atom.Dt, atom.Dd, atom.Blockquote, atom.Pre:
		b.WriteByte('\n')
	}
}
