package htmldoc

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxContextRunes caps the text handed to image prompts.
const maxContextRunes = 1200

// ImageURLs harvests img src values in document order, without duplicates.
func (d *Document) ImageURLs() []string {
	var urls []string
	seen := make(map[string]bool)
	d.sel.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" || seen[src] {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})
	return urls
}

// isImageBlock reports whether n renders as a standalone image: an img, a
// figure, or a paragraph holding only an image.
func isImageBlock(n *html.Node) bool {
	if isElement(n, atom.Img, atom.Figure, atom.Picture) {
		return true
	}
	if !isElement(n, atom.P, atom.A) {
		return false
	}
	media := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && isBlank(c):
		case isImageBlock(c):
			media++
		default:
			return false
		}
	}
	return media == 1
}

// SeparateAdjacentImages inserts a spacer paragraph between image blocks that
// are separated only by whitespace. Returns the number of spacers added.
func (d *Document) SeparateAdjacentImages() int {
	var pairs [][2]*html.Node
	walk(d.body, func(n *html.Node) bool {
		if n.Type != html.ElementNode || !isImageBlock(n) {
			return n.Type == html.ElementNode
		}
		next := n.NextSibling
		for next != nil && next.Type == html.TextNode && isBlank(next) {
			next = next.NextSibling
		}
		if next != nil && next.Type == html.ElementNode && isImageBlock(next) {
			pairs = append(pairs, [2]*html.Node{n, next})
		}
		return false
	})

	for _, pair := range pairs {
		parent := pair[1].Parent
		if parent == nil {
			continue
		}
		spacer := element(atom.P, html.Attribute{Key: "class", Val: "image-spacer"})
		spacer.AppendChild(text("\u00a0"))
		// Inline images inside a paragraph get a line break instead.
		if isElement(parent, atom.P) {
			spacer = element(atom.Br)
		}
		parent.InsertBefore(spacer, pair[1])
	}
	return len(pairs)
}

// PlaceholderContext returns the text around the first occurrence of the
// indexed placeholder: the nearest preceding heading and up to maxParagraphs
// neighbouring paragraphs.
func (d *Document) PlaceholderContext(index, maxParagraphs int) string {
	var target *html.Node
	walk(d.body, func(n *html.Node) bool {
		if target != nil {
			return false
		}
		switch n.Type {
		case html.TextNode:
			if _, c := replaceIndex(n.Data, index, ""); c > 0 {
				target = n
			}
		case html.ElementNode:
			for _, a := range n.Attr {
				if _, c := replaceIndex(a.Val, index, ""); c > 0 {
					target = n
					break
				}
			}
		}
		return target == nil
	})
	if target == nil {
		return ""
	}

	block := d.topLevel(target)
	if block == nil {
		return ""
	}

	var heading string
	var before []string
	for s := block.PrevSibling; s != nil; s = s.PrevSibling {
		if isElement(s, atom.H1, atom.H2, atom.H3, atom.H4) {
			heading = nodeText(s)
			break
		}
		if isElement(s, atom.P, atom.Ul, atom.Ol) && len(before) < 1 {
			before = append(before, nodeText(s))
		}
	}

	var after []string
	for s := block.NextSibling; s != nil && len(before)+len(after) < maxParagraphs; s = s.NextSibling {
		if isElement(s, atom.H1, atom.H2, atom.H3) {
			break
		}
		if isElement(s, atom.P, atom.Ul, atom.Ol) {
			if t := nodeText(s); t != "" {
				after = append(after, t)
			}
		}
	}

	var b strings.Builder
	if heading != "" {
		b.WriteString(heading)
		b.WriteString("\n")
	}
	for _, p := range append(before, after...) {
		if own := strings.TrimSpace(placeholderPattern.ReplaceAllString(p, "")); own != "" {
			b.WriteString(own)
			b.WriteString("\n")
		}
	}
	out := strings.TrimSpace(b.String())
	if r := []rune(out); len(r) > maxContextRunes {
		out = string(r[:maxContextRunes])
	}
	return out
}
