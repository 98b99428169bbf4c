package normalize

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type frame struct {
	name      string
	synthetic bool
}

type repairer struct {
	out   strings.Builder
	stack []frame
}

// repair rewrites markup into a token stream in which every tr has a table
// ancestor, every td/th a tr ancestor and every li a ul/ol ancestor. Stray end
// tags are dropped and open elements are closed at the end of input.
func repair(markup string) (string, error) {
	r := &repairer{}
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", err
			}
			r.closeAll()
			return r.out.String(), nil
		case html.StartTagToken:
			tok := z.Token()
			r.start(tok, !isVoid(tok.DataAtom))
		case html.SelfClosingTagToken:
			r.start(z.Token(), false)
		case html.EndTagToken:
			r.end(z.Token().Data)
		case html.TextToken:
			tok := z.Token()
			if strings.TrimSpace(tok.Data) != "" {
				r.closeSynthetic("")
			}
			r.out.WriteString(tok.String())
		case html.CommentToken:
			r.out.WriteString(z.Token().String())
		case html.DoctypeToken:
			// dropped
		}
	}
}

func (r *repairer) start(tok html.Token, push bool) {
	name := tok.Data
	r.closeSynthetic(name)

	switch name {
	case "tr":
		if !r.open("table") {
			r.openSynthetic("table")
		}
	case "td", "th":
		if !r.open("tr") {
			if !r.open("table") {
				r.openSynthetic("table")
			}
			r.openSynthetic("tr")
		}
	case "li":
		if !r.open("ul", "ol") {
			r.openSynthetic("ul")
		}
	}

	r.out.WriteString(tok.String())
	if push {
		r.stack = append(r.stack, frame{name: name})
	}
}

func (r *repairer) end(name string) {
	for i := len(r.stack) - 1; i >= 0; i-- {
		if r.stack[i].name == name && !r.stack[i].synthetic {
			r.popTo(i)
			return
		}
	}
}

// closeSynthetic closes synthetic frames on top of the stack that cannot hold
// the next start tag. An empty name closes every synthetic frame on top.
func (r *repairer) closeSynthetic(next string) {
	for len(r.stack) > 0 {
		top := r.stack[len(r.stack)-1]
		if !top.synthetic || accepts(top.name, next) {
			return
		}
		r.popTo(len(r.stack) - 1)
	}
}

func accepts(synthetic, next string) bool {
	switch synthetic {
	case "table":
		return next == "tr" || next == "td" || next == "th"
	case "tr":
		return next == "td" || next == "th"
	case "ul":
		return next == "li"
	}
	return false
}

func (r *repairer) open(names ...string) bool {
	for i := len(r.stack) - 1; i >= 0; i-- {
		for _, n := range names {
			if r.stack[i].name == n {
				return true
			}
		}
	}
	return false
}

func (r *repairer) openSynthetic(name string) {
	r.out.WriteString("<" + name + ">")
	r.stack = append(r.stack, frame{name: name, synthetic: true})
}

func (r *repairer) popTo(i int) {
	for j := len(r.stack) - 1; j >= i; j-- {
		r.out.WriteString("</" + r.stack[j].name + ">")
	}
	r.stack = r.stack[:i]
}

func (r *repairer) closeAll() {
	if len(r.stack) > 0 {
		r.popTo(0)
	}
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}
