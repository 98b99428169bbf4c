// Package decompose converts normalized label HTML into a flat sequence of
// structured blocks for display and indexing.
package decompose

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/poiesic/druglabel/core"
)

var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// Decompose classifies each top-level node of a fragment in document order.
// Nodes whose derived content is empty are omitted. Non-empty input never
// yields an empty result: when nothing classifies, the fragment's text is
// returned as one text node.
func Decompose(markup string) []core.StructuredNode {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), bodyContext)
	if err != nil {
		return []core.StructuredNode{{Type: core.NodeText, Text: strings.TrimSpace(markup)}}
	}

	var out []core.StructuredNode
	var all strings.Builder
	for _, n := range nodes {
		all.WriteString(textOf(n))
		if node, ok := classify(n); ok {
			out = append(out, node)
		}
	}
	if len(out) == 0 {
		if text := strings.TrimSpace(all.String()); text != "" {
			out = append(out, core.StructuredNode{Type: core.NodeText, Text: text})
		}
	}
	return out
}

// DecomposeBlocks decomposes each named block. Blocks with no content are
// left out of the result.
func DecomposeBlocks(blocks []core.NamedText) map[string][]core.StructuredNode {
	out := make(map[string][]core.StructuredNode, len(blocks))
	for _, b := range blocks {
		if nodes := Decompose(b.Text); len(nodes) > 0 {
			out[b.Name] = nodes
		}
	}
	return out
}

func classify(n *html.Node) (core.StructuredNode, bool) {
	switch n.Type {
	case html.TextNode:
		return textNode(core.NodeText, n.Data)
	case html.ElementNode:
	default:
		return core.StructuredNode{}, false
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		node, ok := textNode(core.NodeHeader, textOf(n))
		node.Level = int(n.Data[1] - '0')
		return node, ok
	case atom.P:
		return textNode(core.NodeParagraph, textOf(n))
	case atom.Ol:
		return listNode(core.NodeOrderedList, n)
	case atom.Ul:
		return listNode(core.NodeUnorderedList, n)
	case atom.Table:
		return tableNode(n)
	case atom.Tr:
		return rowNode(n)
	case atom.Td, atom.Th:
		return textNode(core.NodeTableCell, textOf(n))
	default:
		return textNode(core.NodeText, textOf(n))
	}
}

func textNode(typ core.NodeType, text string) (core.StructuredNode, bool) {
	text = strings.TrimSpace(text)
	return core.StructuredNode{Type: typ, Text: text}, text != ""
}

// listNode collects the text of direct li children only.
func listNode(typ core.NodeType, n *html.Node) (core.StructuredNode, bool) {
	node := core.StructuredNode{Type: typ}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		if text := strings.TrimSpace(textOf(c)); text != "" {
			node.Items = append(node.Items, text)
		}
	}
	return node, len(node.Items) > 0
}

// tableNode collects direct rows, looking through thead, tbody and tfoot.
func tableNode(n *html.Node) (core.StructuredNode, bool) {
	node := core.StructuredNode{Type: core.NodeTable}
	var collect func(*html.Node)
	collect = func(parent *html.Node) {
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead, atom.Tbody, atom.Tfoot:
				collect(c)
			case atom.Tr:
				if row, ok := rowNode(c); ok {
					node.Rows = append(node.Rows, row)
				}
			}
		}
	}
	collect(n)
	return node, len(node.Rows) > 0
}

func rowNode(n *html.Node) (core.StructuredNode, bool) {
	row := core.StructuredNode{Type: core.NodeTableRow}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		if cell, ok := textNode(core.NodeTableCell, textOf(c)); ok {
			row.Cells = append(row.Cells, cell)
		}
	}
	return row, len(row.Cells) > 0
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			b.WriteString(c.Data)
		case c.Type == html.ElementNode && c.DataAtom == atom.Br:
			b.WriteByte('\n')
		case c.Type == html.ElementNode:
			b.WriteString(textOf(c))
		}
	}
	return b.String()
}
