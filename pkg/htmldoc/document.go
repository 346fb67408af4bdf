// Package htmldoc edits generated articles as an HTML tree. All enrichment
// steps mutate the same parsed document, which is serialized once.
package htmldoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed article fragment rooted at a synthetic body element.
type Document struct {
	body *html.Node
	sel  *goquery.Document
}

// Parse parses an HTML fragment.
func Parse(fragment string) (*Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return &Document{body: body, sel: goquery.NewDocumentFromNode(body)}, nil
}

// HTML serializes the document body.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	for c := d.body.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// Text returns the concatenated text content.
func (d *Document) Text() string {
	return d.sel.Text()
}

// Find exposes goquery selection over the body.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.sel.Find(selector)
}

// ExtractTitle removes the first h1 and returns its text.
func (d *Document) ExtractTitle() string {
	h1 := d.sel.Find("h1").First()
	if h1.Length() == 0 {
		return ""
	}
	title := strings.TrimSpace(collapseSpace(h1.Text()))
	h1.Remove()
	return title
}

// walk visits nodes depth-first. Returning false skips the children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		walk(c, fn)
		c = next
	}
}

func hasAncestor(n *html.Node, tags ...atom.Atom) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		for _, t := range tags {
			if p.DataAtom == t {
				return true
			}
		}
	}
	return false
}

func isElement(n *html.Node, tags ...atom.Atom) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, t := range tags {
		if n.DataAtom == t {
			return true
		}
	}
	return false
}

func isBlank(n *html.Node) bool {
	return n.Type == html.TextNode && strings.TrimSpace(strings.ReplaceAll(n.Data, "\u00a0", " ")) == ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return collapseSpace(b.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func element(tag atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag.String(), DataAtom: tag, Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// topLevel returns the ancestor of n that is a direct child of the body.
func (d *Document) topLevel(n *html.Node) *html.Node {
	for n != nil && n.Parent != d.body {
		n = n.Parent
	}
	return n
}

// parseNodes parses a fragment in the context of the body element.
func (d *Document) parseNodes(fragment string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(fragment), d.body)
}

// RewriteText applies fn to every text node outside script and style
// elements. The edit is committed only if accept approves the total text
// length before and after; it returns the number of nodes changed and
// whether the edit was committed.
func (d *Document) RewriteText(fn func(string) string, accept func(before, after int) bool) (int, bool) {
	type edit struct {
		n    *html.Node
		data string
	}
	var edits []edit
	before, after := 0, 0
	walk(d.body, func(n *html.Node) bool {
		if isElement(n, atom.Script, atom.Style) {
			return false
		}
		if n.Type == html.TextNode {
			out := fn(n.Data)
			before += len(n.Data)
			after += len(out)
			if out != n.Data {
				edits = append(edits, edit{n, out})
			}
		}
		return true
	})
	if len(edits) == 0 {
		return 0, true
	}
	if accept != nil && !accept(before, after) {
		return 0, false
	}
	for _, e := range edits {
		e.n.Data = e.data
	}
	return len(edits), true
}
