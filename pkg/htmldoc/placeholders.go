package htmldoc

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// placeholderPattern matches IMAGE_PLACEHOLDER_n, [IMAGE_PLACEHOLDER_n] and [IMAGE-n].
var placeholderPattern = regexp.MustCompile(`\[?IMAGE_PLACEHOLDER_(\d+)\]?|\[IMAGE-(\d+)\]`)

// Placeholder is one distinct placeholder literal found in the document.
type Placeholder struct {
	Index   int
	Literal string
	InAttr  bool
}

func placeholderIndex(m []string) int {
	s := m[1]
	if s == "" {
		s = m[2]
	}
	n, _ := strconv.Atoi(s)
	return n
}

// ScanPlaceholders finds placeholder literals in a raw string, in order of first
// occurrence and unique by literal.
func ScanPlaceholders(s string) []Placeholder {
	var out []Placeholder
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		if seen[m[0]] {
			continue
		}
		seen[m[0]] = true
		out = append(out, Placeholder{Index: placeholderIndex(m), Literal: m[0]})
	}
	return out
}

// CountPlaceholders counts every placeholder occurrence in a raw string.
func CountPlaceholders(s string) int {
	return len(placeholderPattern.FindAllStringIndex(s, -1))
}

// Placeholders scans text nodes and attribute values in one pass.
func (d *Document) Placeholders() []Placeholder {
	var out []Placeholder
	seen := make(map[string]bool)
	add := func(s string, inAttr bool) {
		for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
			if seen[m[0]] {
				continue
			}
			seen[m[0]] = true
			out = append(out, Placeholder{Index: placeholderIndex(m), Literal: m[0], InAttr: inAttr})
		}
	}
	walk(d.body, func(n *html.Node) bool {
		switch n.Type {
		case html.TextNode:
			add(n.Data, false)
		case html.ElementNode:
			for _, a := range n.Attr {
				add(a.Val, true)
			}
		}
		return true
	})
	return out
}

// PlaceholderIndices returns the distinct placeholder indices in document order.
func (d *Document) PlaceholderIndices() []int {
	var out []int
	seen := make(map[int]bool)
	for _, p := range d.Placeholders() {
		if !seen[p.Index] {
			seen[p.Index] = true
			out = append(out, p.Index)
		}
	}
	return out
}

func replaceIndex(s string, index int, repl string) (string, int) {
	count := 0
	out := placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		if placeholderIndex(placeholderPattern.FindStringSubmatch(m)) != index {
			return m
		}
		count++
		return repl
	})
	return out, count
}

// ReplacePlaceholder substitutes every literal form of the indexed placeholder
// with an image URL. Attribute occurrences get the URL in place; text
// occurrences become an image element. Returns the number of replacements.
func (d *Document) ReplacePlaceholder(index int, url, alt string) int {
	if url == "" {
		return 0
	}

	var textNodes []*html.Node
	count := 0
	walk(d.body, func(n *html.Node) bool {
		switch n.Type {
		case html.ElementNode:
			for i, a := range n.Attr {
				replaced, c := replaceIndex(a.Val, index, url)
				if c > 0 {
					n.Attr[i].Val = replaced
					count += c
				}
			}
			if isElement(n, atom.Img) && alt != "" {
				if cur := attr(n, "alt"); cur == "" || placeholderPattern.MatchString(cur) || cur == url {
					setAttr(n, "alt", alt)
				}
			}
		case html.TextNode:
			if placeholderPattern.MatchString(n.Data) {
				textNodes = append(textNodes, n)
			}
		}
		return true
	})

	for _, n := range textNodes {
		count += d.replaceInText(n, index, url, alt)
	}
	return count
}

func (d *Document) replaceInText(n *html.Node, index int, url, alt string) int {
	matches := placeholderPattern.FindAllStringSubmatchIndex(n.Data, -1)
	var hits [][]int
	for _, m := range matches {
		idx := m[2:4]
		if idx[0] < 0 {
			idx = m[4:6]
		}
		if i, _ := strconv.Atoi(n.Data[idx[0]:idx[1]]); i == index {
			hits = append(hits, m)
		}
	}
	if len(hits) == 0 {
		return 0
	}

	parent := n.Parent
	img := func() *html.Node {
		return element(atom.Img, html.Attribute{Key: "src", Val: url}, html.Attribute{Key: "alt", Val: alt}, html.Attribute{Key: "loading", Val: "lazy"})
	}

	// A paragraph holding only the placeholder becomes a figure.
	if isElement(parent, atom.P) && len(hits) == 1 && parent.FirstChild == n && parent.LastChild == n &&
		strings.TrimSpace(n.Data[:hits[0][0]]) == "" && strings.TrimSpace(n.Data[hits[0][1]:]) == "" {
		fig := element(atom.Figure)
		fig.AppendChild(img())
		parent.Parent.InsertBefore(fig, parent)
		parent.Parent.RemoveChild(parent)
		return 1
	}

	block := parent == d.body || isElement(parent, atom.Div, atom.Section, atom.Article, atom.Main)
	pos := 0
	for _, m := range hits {
		if m[0] > pos {
			parent.InsertBefore(text(n.Data[pos:m[0]]), n)
		}
		if block {
			fig := element(atom.Figure)
			fig.AppendChild(img())
			parent.InsertBefore(fig, n)
		} else {
			parent.InsertBefore(img(), n)
		}
		pos = m[1]
	}
	if pos < len(n.Data) {
		parent.InsertBefore(text(n.Data[pos:]), n)
	}
	parent.RemoveChild(n)
	return len(hits)
}

// StripUnresolvedPlaceholders removes all remaining placeholder literals.
// Images still pointing at a placeholder are dropped, and figure or paragraph
// wrappers left empty are removed. Returns the number of literals removed.
func (d *Document) StripUnresolvedPlaceholders() int {
	count := 0
	var dropImgs []*html.Node
	touched := make(map[*html.Node]bool)

	walk(d.body, func(n *html.Node) bool {
		switch n.Type {
		case html.ElementNode:
			if isElement(n, atom.Img) {
				for _, a := range n.Attr {
					if placeholderPattern.MatchString(a.Val) {
						count += len(placeholderPattern.FindAllStringIndex(a.Val, -1))
						dropImgs = append(dropImgs, n)
						break
					}
				}
				return true
			}
			kept := n.Attr[:0]
			for _, a := range n.Attr {
				if placeholderPattern.MatchString(a.Val) {
					count += len(placeholderPattern.FindAllStringIndex(a.Val, -1))
					continue
				}
				kept = append(kept, a)
			}
			n.Attr = kept
		case html.TextNode:
			if placeholderPattern.MatchString(n.Data) {
				count += len(placeholderPattern.FindAllStringIndex(n.Data, -1))
				n.Data = placeholderPattern.ReplaceAllString(n.Data, "")
				touched[n.Parent] = true
			}
		}
		return true
	})

	for _, img := range dropImgs {
		if img.Parent != nil {
			touched[img.Parent] = true
			img.Parent.RemoveChild(img)
		}
	}

	for n := range touched {
		d.removeIfEmpty(n)
	}
	return count
}

// removeIfEmpty removes empty wrappers walking up from n.
func (d *Document) removeIfEmpty(n *html.Node) {
	for n != nil && n != d.body && n.Parent != nil {
		if !isElement(n, atom.P, atom.Figure, atom.Picture, atom.A, atom.Span) {
			return
		}
		if isElement(n, atom.Figure) {
			if hasMedia(n) {
				return
			}
		} else if hasContent(n) {
			return
		}
		parent := n.Parent
		parent.RemoveChild(n)
		n = parent
	}
}

func hasMedia(n *html.Node) bool {
	found := false
	walk(n, func(c *html.Node) bool {
		if c != n && isElement(c, atom.Img, atom.Picture, atom.Video, atom.Iframe, atom.Svg) {
			found = true
		}
		return !found
	})
	return found
}

func hasContent(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
		if c.Type == html.TextNode && !isBlank(c) {
			return true
		}
	}
	return false
}
